// Package dmctx renders retrieval results into the context block injected
// into the game-master generation prompt, and carries the fixed prompt
// templates.
//
// Assembly is pure and deterministic: identical inputs always produce
// byte-identical strings. Downstream token/cost comparisons depend on that,
// so any formatting change here invalidates previously collected results.
package dmctx

import (
	"fmt"
	"strings"

	"github.com/yumozi/llm-gm/internal/retrieval"
	"github.com/yumozi/llm-gm/internal/world"
)

// SystemPrompt is the fixed game-master persona. It must be reproduced
// verbatim for compatibility with previously collected experiment results.
const SystemPrompt = `You are an experienced and objective game master for a tabletop role-playing game.

DM Guidelines:
- Acknowledge player actions with logical consequences
- Provide immersive, vivid descriptions
- Avoid describing player emotions (only environmental effects)
- Use objective narration without meta-commentary
- Refer to unknown entities descriptively, not by name
- Proactively advance the story to decision points`

// renderOrder lists the categories rendered into the context, in order.
// Organizations and taxonomies are fetched for counting but never rendered
// in this composition.
var renderOrder = []world.Category{
	world.Items, world.Abilities, world.Locations, world.NPCs, world.Rules,
}

// sectionHeaders maps rendered categories to their section headers. Note
// the NPCs casing.
var sectionHeaders = map[world.Category]string{
	world.Items:     "=== ITEMS ===",
	world.Abilities: "=== ABILITIES ===",
	world.Locations: "=== LOCATIONS ===",
	world.NPCs:      "=== NPCs ===",
	world.Rules:     "=== RULES ===",
}

// Assemble renders world metadata plus a retrieval result into a single
// context string. Empty categories produce no section header at all. The
// returned string ends with a single trailing newline.
func Assemble(w world.World, result retrieval.Result) string {
	var parts []string

	parts = append(parts,
		"=== WORLD SETTING ===",
		"Name: "+w.Name,
		"Tone: "+w.Tone,
		"Setting: "+w.Setting,
		"Description: "+w.Description,
		"",
	)

	for _, c := range renderOrder {
		entities := result.Entities(c)
		if len(entities) == 0 {
			continue
		}
		parts = append(parts, sectionHeaders[c])
		for _, e := range entities {
			line := "- " + e.Name + ": " + e.Description
			if c == world.Rules && e.Priority {
				line = "- [HIGH PRIORITY] " + e.Name + ": " + e.Description
			}
			parts = append(parts, line)
		}
		parts = append(parts, "")
	}

	return strings.Join(parts, "\n")
}

// UserPrompt renders the generation request's user message from an
// assembled context and the player's action. The player message is wrapped
// in plain double quotes, not Go-escaped; the template is part of the
// compatibility surface.
func UserPrompt(context, playerMessage string) string {
	return fmt.Sprintf("%s\n\nPlayer Action: \"%s\"\n\nGenerate an engaging DM response based on the world context and player action.", context, playerMessage)
}
