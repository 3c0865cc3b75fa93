package calculus

import "github.com/snc-qos/admission-core/pkg/utils"

const (
	searchRangeDecreaseCount = 25
	holderSeed               = 1
)

// DependencyOptimization theta- and Hölder-optimizes root given the
// dependent nodes registered in ar (the `dependencyOptimization()` form).
func DependencyOptimization(root Delayer, ar *Arena) float64 {
	return dependencyOptimization(root, ar.DependentBounds())
}

// dependencyOptimization searches the Hölder (p, q) brackets of every
// dependent node returned by root's arena so as to minimize the delay at
// root, narrowing each node's bracket toward the best value found each
// round. It returns the best delay found across all rounds.
//
// The search is deterministically seeded so repeated calls against the same
// DAG reproduce the same bound.
func dependencyOptimization(root Delayer, dependent []*DependencyParams) float64 {
	if len(dependent) == 0 {
		_, delay := bestDelay(root)
		return delay
	}

	rng := utils.NewRandSource(holderSeed)
	iterations := 10 * len(dependent)

	_, bestL := bestDelay(root)

	for round := 0; round < searchRangeDecreaseCount; round++ {
		roundBestP := make([]float64, len(dependent))
		roundBestQ := make([]float64, len(dependent))
		for i, d := range dependent {
			roundBestP[i] = d.P
			roundBestQ[i] = d.Q
		}
		improved := false

		for trial := 0; trial < iterations; trial++ {
			idx := weightedPick(rng, dependent)
			d := dependent[idx]

			savedP, savedQ := d.P, d.Q
			if rng.BernoulliBool(0.5) {
				p := d.LowerP + rng.Float64()*(d.UpperP-d.LowerP)
				d.SetP(p)
			} else {
				q := d.LowerQ + rng.Float64()*(d.UpperQ-d.LowerQ)
				d.SetQ(q)
			}

			_, delay := bestDelay(root)
			if delay < bestL {
				bestL = delay
				improved = true
				for i, dd := range dependent {
					roundBestP[i] = dd.P
					roundBestQ[i] = dd.Q
				}
			} else {
				d.P, d.Q = savedP, savedQ
			}
		}

		for i, d := range dependent {
			d.P, d.Q = roundBestP[i], roundBestQ[i]
			narrowBracket(d)
		}

		if !improved && round > 0 {
			break
		}
	}

	return bestL
}

// weightedPick selects a dependent node index with probability proportional
// to its current bracket width, so nodes with more search room left are
// sampled more often.
func weightedPick(rng *utils.RandSource, dependent []*DependencyParams) int {
	total := 0.0
	for _, d := range dependent {
		total += d.bracketWidth()
	}
	if total <= 0 {
		return rng.Intn(len(dependent))
	}

	target := rng.Float64() * total
	cum := 0.0
	for i, d := range dependent {
		cum += d.bracketWidth()
		if target <= cum {
			return i
		}
	}
	return len(dependent) - 1
}

// narrowBracket shrinks a node's p/q search bracket by a factor of 1/1.2
// around its current best value.
func narrowBracket(d *DependencyParams) {
	widthP := (d.UpperP - d.LowerP) / 1.2
	d.LowerP = d.P - widthP/2
	d.UpperP = d.P + widthP/2
	if d.LowerP < 1.001 {
		d.LowerP = 1.001
	}

	widthQ := (d.UpperQ - d.LowerQ) / 1.2
	d.LowerQ = d.Q - widthQ/2
	d.UpperQ = d.Q + widthQ/2
	if d.LowerQ < 1.001 {
		d.LowerQ = 1.001
	}
}
