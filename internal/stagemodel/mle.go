package stagemodel

import "math"

// stableIterations is the number of consecutive random-restart hill climbs
// that must fail to improve the global best before the MLE search stops
// (spec.md §4.2.1).
const stableIterations = 20

// mlePoint is an integer-resolution point in the (pi, mu, sigma) parameter
// space of the uniform/truncated-Gaussian mixture, all expressed as percent
// of the image extent.
type mlePoint struct {
	pi, mu, sigma int
	likelihood    float64
}

func (p mlePoint) valid() bool {
	return p.pi >= 0 && p.pi < 100 && p.mu > 0 && p.mu < 100 && p.sigma > 0 && p.sigma < 100
}

// mleDirections are the six axis-aligned unit moves in (pi, mu, sigma) space.
var mleDirections = [6][3]int{
	{1, 0, 0}, {-1, 0, 0},
	{0, 1, 0}, {0, -1, 0},
	{0, 0, 1}, {0, 0, -1},
}

// mleCache memoizes likelihoods for every integer (pi, mu, sigma) triple, a
// dense 100x100x100 array as specified.
type mleCache struct {
	values [100][100][100]float32
	filled [100][100][100]bool
}

func newMLECache() *mleCache {
	return &mleCache{}
}

func (c *mleCache) get(p mlePoint) (float64, bool) {
	if !p.valid() {
		return 0, false
	}
	if !c.filled[p.pi][p.mu][p.sigma] {
		return 0, false
	}
	return float64(c.values[p.pi][p.mu][p.sigma]), true
}

func (c *mleCache) set(p mlePoint, likelihood float64) {
	if !p.valid() {
		return
	}
	c.values[p.pi][p.mu][p.sigma] = float32(likelihood)
	c.filled[p.pi][p.mu][p.sigma] = true
}

// mleLikelihood computes the log-likelihood of the mixture model at p given
// samples already rescaled to percent of the image extent (spec.md §4.2.1):
// log|pi/100 + (1-pi/100)*phi(t; mu, sigma)| summed over samples.
func mleLikelihood(p mlePoint, samples []float64) float64 {
	if p.pi < 0 || p.pi >= 100 {
		return math.Inf(-1)
	}
	piFrac := float64(p.pi) / 100.0
	mu := float64(p.mu)
	sigma := float64(p.sigma)

	var sum float64
	for _, t := range samples {
		z := (t - mu) / sigma
		gaussian := math.Exp(-0.5*z*z) / (math.Sqrt(2*math.Pi) * sigma)
		mix := piFrac + (1-piFrac)*gaussian
		sum += math.Log(math.Abs(mix))
	}
	return sum
}

// mleHillClimb runs one hill-climb search from start: at each step, evaluate
// all six neighbors, move to the strictly-best one, and stop when none
// improves on the current point.
func mleHillClimb(start mlePoint, cache *mleCache, samples []float64, rnd *randSource) mlePoint {
	if !start.valid() {
		start.likelihood = math.Inf(-1)
	} else if l, ok := cache.get(start); ok {
		start.likelihood = l
	} else {
		start.likelihood = mleLikelihood(start, samples)
		cache.set(start, start.likelihood)
	}

	current := start
	for {
		best := current
		for _, d := range mleDirections {
			cand := mlePoint{pi: current.pi + d[0], mu: current.mu + d[1], sigma: current.sigma + d[2]}
			if !cand.valid() {
				continue
			}
			if l, ok := cache.get(cand); ok {
				cand.likelihood = l
			} else {
				cand.likelihood = mleLikelihood(cand, samples)
				cache.set(cand, cand.likelihood)
			}
			if cand.likelihood > best.likelihood {
				best = cand
			}
		}
		if best.likelihood > current.likelihood {
			current = best
			continue
		}
		return current
	}
}

// estimateOverlap runs random-restart hill climbing until stableIterations
// consecutive restarts fail to improve the global best, returning
// overlap = 100 - mu* as a percentage (spec.md §4.2.1).
func estimateOverlap(samples []float64, rnd *randSource) float64 {
	cache := newMLECache()
	best := mlePoint{likelihood: math.Inf(-1)}
	stable := 0

	for stable < stableIterations {
		start := mlePoint{pi: rnd.intn(100), mu: 1 + rnd.intn(99), sigma: 1 + rnd.intn(99)}
		found := mleHillClimb(start, cache, samples, rnd)
		if found.likelihood > best.likelihood {
			best = found
			stable = 0
		} else {
			stable++
		}
	}
	return 100.0 - float64(best.mu)
}
