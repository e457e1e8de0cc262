package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yumozi/llm-gm/internal/config"
	"github.com/yumozi/llm-gm/internal/seed"
	"github.com/yumozi/llm-gm/internal/world"
)

var seedDelay = seed.DefaultDelay

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the test world with the embedded entity corpus",
		Long: "Creates the test world if absent and inserts the embedded corpus " +
			"(50 items, 50 abilities, 50 NPCs, 50 rules), generating an embedding " +
			"per entity. Seed once; re-running duplicates entities.",
		RunE: runSeed,
	}
	cmd.Flags().DurationVar(&seedDelay, "delay", seed.DefaultDelay, "pause between entity inserts (rate limiting)")
	return cmd
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := config.NewRegistry()
	registerBuiltinProviders(reg)
	embedder, err := buildEmbeddings(cfg, reg)
	if err != nil {
		return err
	}

	seeder := seed.NewSeeder(st, embedder, seed.WithDelay(seedDelay))
	counts, err := seeder.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, "Seeding complete.")
	total := 0
	for _, c := range world.Categories() {
		if counts[c] == 0 {
			continue
		}
		fmt.Fprintf(os.Stdout, "  %-13s %d\n", string(c)+":", counts[c])
		total += counts[c]
	}
	fmt.Fprintf(os.Stdout, "  %-13s %d\n", "total:", total)
	return nil
}
