package randomizer

import (
	"math/rand"
	"testing"
)

func TestChooseUniform(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	options := []string{"Elf", "Dwarf", "Halfling", "Gnome"}
	const draws = 10000

	counts := map[string]int{}
	for i := 0; i < draws; i++ {
		got, ok := Choose(rng, options, nil)
		if !ok {
			t.Fatal("Choose reported nothing selectable")
		}
		counts[got]++
	}

	expected := float64(draws) / float64(len(options))
	chi := 0.0
	for _, o := range options {
		d := float64(counts[o]) - expected
		chi += d * d / expected
	}
	// 3 degrees of freedom, p = 0.001
	if chi > 16.27 {
		t.Errorf("chi-square = %.2f for counts %v", chi, counts)
	}
}

func TestChooseWeighted(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	options := []string{"Elf", "Human", "Orc"}
	weights := map[string]int{"Elf": 3, "Human": 1, "Orc": 0}
	const draws = 10000

	counts := map[string]int{}
	for i := 0; i < draws; i++ {
		got, ok := Choose(rng, options, weights)
		if !ok {
			t.Fatal("Choose reported nothing selectable")
		}
		counts[got]++
	}

	if counts["Orc"] != 0 {
		t.Errorf("Orc has weight 0 but was chosen %d times", counts["Orc"])
	}
	if share := float64(counts["Elf"]) / draws; share < 0.73 || share > 0.77 {
		t.Errorf("Elf share = %.3f, want about 0.75", share)
	}
}

func TestChooseNothingSelectable(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	tests := []struct {
		name    string
		options []string
		weights map[string]int
	}{
		{"no options", nil, nil},
		{"all zero", []string{"A", "B"}, map[string]int{"A": 0}},
		{"negative", []string{"A"}, map[string]int{"A": -2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, ok := Choose(rng, tt.options, tt.weights); ok {
				t.Errorf("Choose = %q, want nothing", got)
			}
		})
	}
}

func TestChooseDoesNotMutate(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	options := []string{"A", "B"}
	weights := map[string]int{"A": 1, "B": 2}
	Choose(rng, options, weights)
	if options[0] != "A" || options[1] != "B" || len(weights) != 2 || weights["B"] != 2 {
		t.Errorf("inputs changed: %v %v", options, weights)
	}
}

func TestBetween(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		if n := between(rng, 1, 3); n < 1 || n > 3 {
			t.Fatalf("between(1, 3) = %d", n)
		}
	}
	if n := between(rng, 2, 1); n != 2 {
		t.Errorf("between(2, 1) = %d, want 2", n)
	}
}
