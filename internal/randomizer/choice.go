package randomizer

import "math/rand"

// Choose picks one option. With nil weights every option is equally likely.
// Otherwise an option is picked with probability proportional to its weight;
// options with no weight or a non-positive weight are never picked. Duplicate
// options count once per occurrence. It reports false when nothing can be picked.
func Choose(rng *rand.Rand, options []string, weights map[string]int) (string, bool) {
	if len(options) == 0 {
		return "", false
	}
	if weights == nil {
		return options[rng.Intn(len(options))], true
	}

	total := 0
	for _, o := range options {
		if w := weights[o]; w > 0 {
			total += w
		}
	}
	if total == 0 {
		return "", false
	}

	n := rng.Intn(total)
	for _, o := range options {
		w := weights[o]
		if w <= 0 {
			continue
		}
		if n < w {
			return o, true
		}
		n -= w
	}
	return "", false
}

// coin flips a fair coin.
func coin(rng *rand.Rand) bool {
	return rng.Intn(2) == 0
}

// between returns a uniform integer in [min, max].
func between(rng *rand.Rand, min, max int) int {
	if max <= min {
		return min
	}
	return min + rng.Intn(max-min+1)
}
