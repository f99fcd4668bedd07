package loot

import "math"

// RandomFunc returns a uniform double in [0, 1].
type RandomFunc func() float64

// Generator decides how many loot items should appear after a given
// amount of elapsed time. The probability of at least one spawn over the
// base interval is p; over a fraction r of the interval it becomes
// 1-(1-p)^r. Spawned counts never exceed the looter shortage, so a map
// never carries more loot than it has dogs.
type Generator struct {
	baseIntervalMs  float64
	probability     float64
	random          RandomFunc
	timeWithoutLoot float64 // ms accumulated since the last spawn
}

// NewGenerator builds a generator over a base interval in milliseconds.
// random may be nil, in which case spawns are deterministic (the random
// factor is fixed at 1).
func NewGenerator(baseIntervalMs, probability float64, random RandomFunc) *Generator {
	if random == nil {
		random = func() float64 { return 1.0 }
	}
	return &Generator{
		baseIntervalMs: baseIntervalMs,
		probability:    probability,
		random:         random,
	}
}

// Generate returns the number of items to spawn after deltaMs more
// milliseconds, given the current loot and looter counts on the map.
func (g *Generator) Generate(deltaMs float64, lootCount, looterCount int) int {
	g.timeWithoutLoot += deltaMs

	shortage := 0
	if looterCount > lootCount {
		shortage = looterCount - lootCount
	}

	ratio := g.timeWithoutLoot / g.baseIntervalMs
	p := (1.0 - math.Pow(1.0-g.probability, ratio)) * g.random()
	p = math.Min(math.Max(p, 0.0), 1.0)

	n := int(math.Round(float64(shortage) * p))
	if n > 0 {
		g.timeWithoutLoot = 0
	}
	return n
}
