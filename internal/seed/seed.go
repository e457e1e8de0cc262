// Package seed populates a store with the embedded test-world corpus: 50
// items, 50 abilities, 50 NPCs and 50 rules, each with a generated
// embedding.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/antzucaro/matchr"
	"gopkg.in/yaml.v3"

	"github.com/yumozi/llm-gm/internal/resilience"
	"github.com/yumozi/llm-gm/internal/store"
	"github.com/yumozi/llm-gm/internal/world"
	"github.com/yumozi/llm-gm/pkg/provider/embeddings"
)

//go:embed corpus.yaml
var corpusYAML []byte

// DefaultDelay is the pause between entity inserts, pacing embedding
// requests below provider rate limits.
const DefaultDelay = 200 * time.Millisecond

// jwThreshold is the Jaro-Winkler similarity above which two distinct
// entity names in the same category are flagged as near duplicates.
const jwThreshold = 0.93

// WorldSpec is the world metadata of the corpus.
type WorldSpec struct {
	Name        string `yaml:"name"`
	Tone        string `yaml:"tone"`
	Setting     string `yaml:"setting"`
	Description string `yaml:"description"`
}

// EntitySpec is one corpus entity before embedding.
type EntitySpec struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Priority    bool   `yaml:"priority"`
}

// Corpus is the parsed seed data.
type Corpus struct {
	World      WorldSpec                       `yaml:"world"`
	Categories map[world.Category][]EntitySpec `yaml:"categories"`
}

// LoadCorpus parses the embedded corpus. Unknown YAML fields and unknown
// category keys are errors.
func LoadCorpus() (*Corpus, error) {
	var raw struct {
		World      WorldSpec               `yaml:"world"`
		Categories map[string][]EntitySpec `yaml:"categories"`
	}
	dec := yaml.NewDecoder(bytes.NewReader(corpusYAML))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("seed: parse corpus: %w", err)
	}

	c := &Corpus{
		World:      raw.World,
		Categories: make(map[world.Category][]EntitySpec, len(raw.Categories)),
	}
	for key, specs := range raw.Categories {
		cat, err := world.ParseCategory(key)
		if err != nil {
			return nil, fmt.Errorf("seed: corpus: %w", err)
		}
		c.Categories[cat] = specs
	}
	return c, nil
}

// Seeder writes the corpus into a store, embedding each entity.
type Seeder struct {
	store    store.Store
	embedder embeddings.Provider
	logger   *slog.Logger
	delay    time.Duration
	retrier  *resilience.Retrier
}

// Option is a functional option for [NewSeeder].
type Option func(*Seeder)

// WithDelay overrides the inter-insert delay. Zero disables pacing.
func WithDelay(d time.Duration) Option {
	return func(s *Seeder) { s.delay = d }
}

// WithLogger sets the progress logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(s *Seeder) { s.logger = l }
}

// NewSeeder creates a [Seeder] writing to st and embedding via embedder.
func NewSeeder(st store.Store, embedder embeddings.Provider, opts ...Option) *Seeder {
	s := &Seeder{
		store:    st,
		embedder: embedder,
		logger:   slog.Default(),
		delay:    DefaultDelay,
		retrier:  resilience.NewRetrier(resilience.DefaultRetryConfig("seed embedding")),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run seeds the embedded corpus and returns the resulting per-category
// entity counts. The corpus world is created if absent; re-running against
// an already seeded world duplicates entities, so seed once.
func (s *Seeder) Run(ctx context.Context) (map[world.Category]int, error) {
	corpus, err := LoadCorpus()
	if err != nil {
		return nil, err
	}

	w, err := s.ensureWorld(ctx, corpus.World)
	if err != nil {
		return nil, err
	}
	s.logger.Info("seeding world", "world", w.Name, "world_id", w.ID)

	for _, c := range world.Categories() {
		specs := corpus.Categories[c]
		if len(specs) == 0 {
			continue
		}
		if err := s.seedCategory(ctx, w.ID, c, specs); err != nil {
			return nil, err
		}
	}

	counts, err := s.store.CountEntities(ctx, w.ID)
	if err != nil {
		return nil, fmt.Errorf("seed: count entities: %w", err)
	}
	return counts, nil
}

func (s *Seeder) ensureWorld(ctx context.Context, spec WorldSpec) (world.World, error) {
	w, err := s.store.WorldByName(ctx, spec.Name)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, store.ErrWorldNotFound) {
		return world.World{}, fmt.Errorf("seed: lookup world: %w", err)
	}

	w, err = s.store.CreateWorld(ctx, world.World{
		Name:        spec.Name,
		Tone:        spec.Tone,
		Setting:     spec.Setting,
		Description: spec.Description,
	})
	if err != nil {
		return world.World{}, fmt.Errorf("seed: create world: %w", err)
	}
	return w, nil
}

func (s *Seeder) seedCategory(ctx context.Context, worldID string, c world.Category, specs []EntitySpec) error {
	for _, pair := range NearDuplicates(specNames(specs)) {
		s.logger.Warn("near-duplicate entity names in corpus",
			"category", c, "a", pair[0], "b", pair[1])
	}

	s.logger.Info("seeding category", "category", c, "count", len(specs))
	for i, spec := range specs {
		text := spec.Name + " " + spec.Description
		embedding, err := resilience.ExecuteWithResult(ctx, s.retrier, func(ctx context.Context) ([]float32, error) {
			return s.embedder.Embed(ctx, text)
		})
		if err != nil {
			return fmt.Errorf("seed: embed %s %q: %w", c, spec.Name, err)
		}

		err = s.store.InsertEntity(ctx, world.Entity{
			WorldID:     worldID,
			Category:    c,
			Name:        spec.Name,
			Description: spec.Description,
			Embedding:   embedding,
			Priority:    spec.Priority,
		})
		if err != nil {
			return fmt.Errorf("seed: insert %s %q: %w", c, spec.Name, err)
		}
		s.logger.Debug("seeded entity", "category", c, "name", spec.Name,
			"progress", fmt.Sprintf("%d/%d", i+1, len(specs)))

		if s.delay > 0 && i < len(specs)-1 {
			if err := sleepCtx(ctx, s.delay); err != nil {
				return err
			}
		}
	}
	return nil
}

// NearDuplicates returns pairs of distinct names whose Jaro-Winkler
// similarity crosses the duplicate threshold.
func NearDuplicates(names []string) [][2]string {
	var pairs [][2]string
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			if names[i] == names[j] {
				pairs = append(pairs, [2]string{names[i], names[j]})
				continue
			}
			if matchr.JaroWinkler(names[i], names[j], false) >= jwThreshold {
				pairs = append(pairs, [2]string{names[i], names[j]})
			}
		}
	}
	return pairs
}

func specNames(specs []EntitySpec) []string {
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	return names
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
