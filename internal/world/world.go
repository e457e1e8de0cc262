// Package world defines the read-side data model for the experiment harness:
// worlds, their entities, and the closed set of entity categories the game
// master consults when building context.
//
// The category set is fixed per world. Retrieval code iterates over
// [Categories] rather than dispatching on free-form strings, so an
// unrecognised category cannot slip in at runtime.
package world

import "fmt"

// World is the top-level setting record. It is owned by the entity store;
// this harness only reads it.
type World struct {
	ID          string
	Name        string
	Tone        string
	Setting     string
	Description string
}

// Entity is a single world record (an item, rule, NPC, ...). Embedding is
// optional: the full and random strategies never need it. Priority is only
// meaningful for the rules category.
type Entity struct {
	ID          string
	WorldID     string
	Category    Category
	Name        string
	Description string
	Embedding   []float32
	Priority    bool
}

// Category classifies an entity. The set is closed; see [Categories].
type Category string

const (
	Items         Category = "items"
	Abilities     Category = "abilities"
	Locations     Category = "locations"
	NPCs          Category = "npcs"
	Organizations Category = "organizations"
	Taxonomies    Category = "taxonomies"
	Rules         Category = "rules"
)

// Categories returns every category consulted for a world, in the fixed
// order used for retrieval and counting.
func Categories() []Category {
	return []Category{Items, Abilities, Locations, NPCs, Organizations, Taxonomies, Rules}
}

// IsValid reports whether c is a recognised category.
func (c Category) IsValid() bool {
	switch c {
	case Items, Abilities, Locations, NPCs, Organizations, Taxonomies, Rules:
		return true
	}
	return false
}

// ParseCategory converts a store-native category name into a [Category].
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.IsValid() {
		return "", fmt.Errorf("world: unknown category %q", s)
	}
	return c, nil
}

// SampleLimit returns the per-category entity limit for a base top-k value.
//
// Rules are deliberately over-sampled (a game master should rarely forget a
// rule), and the two reference categories (organizations and taxonomies)
// are capped low because they add background flavour rather than actionable
// detail.
func (c Category) SampleLimit(topK int) int {
	switch c {
	case Rules:
		return max(topK, 10)
	case Organizations, Taxonomies:
		return min(topK, 3)
	default:
		return topK
	}
}

// RandomSampleLimit returns the per-category sample size for the random
// strategy. Unlike [Category.SampleLimit] it only biases rules; every other
// category draws the base k.
func (c Category) RandomSampleLimit(topK int) int {
	if c == Rules {
		return max(topK, 10)
	}
	return topK
}
