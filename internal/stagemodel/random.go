package stagemodel

import "math/rand"

// randSource is the thin seedable random source the MLE restart loop draws
// starting points from; tests construct one with a fixed seed for
// deterministic behavior instead of reaching for the global generator.
type randSource struct {
	r *rand.Rand
}

// newRandSource returns a randSource seeded from seed.
func newRandSource(seed int64) *randSource {
	return &randSource{r: rand.New(rand.NewSource(seed))}
}

func (s *randSource) intn(n int) int {
	return s.r.Intn(n)
}
