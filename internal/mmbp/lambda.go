package mmbp

import (
	"math"

	"github.com/snc-qos/admission-core/internal/search"
)

// lambdaSegmentation implements the LAMBDA state-segmentation procedure: it
// finds a geometric threshold ladder λ_0 < λ_1 < ... < λ_{n-1} = high and a
// confidence parameter a such that the lowest threshold stays at or above
// low, via the recurrence λ_{k-1} = (√λ_k - a)². n is capped at maxStates
// and reduced when the recurrence collapses before reaching state 0 (the
// chain runs out of "room" for that many states at any workable a).
//
// Returns the per-state representative rate λ_k (used to seed each state's
// per-step arrival probability) and its lower threshold λ_k - a√λ_k (used
// to classify intervals into states).
func lambdaSegmentation(low, high float64, maxStates int) (lambda []float64, threshold []float64, a float64) {
	if maxStates < 1 {
		maxStates = 1
	}
	if high <= 0 {
		return []float64{0}, []float64{0}, 0
	}
	if low < 0 {
		low = 0
	}

	for n := maxStates; n >= 1; n-- {
		chainA, lambdaN, valid := solveChain(low, high, n)
		if valid || n == 1 {
			threshN := make([]float64, n)
			for k := 0; k < n; k++ {
				threshN[k] = lambdaN[k] - chainA*math.Sqrt(lambdaN[k])
			}
			return lambdaN, threshN, chainA
		}
	}
	// unreachable: n == 1 always returns above.
	return []float64{high}, []float64{high}, 0
}

// chain builds the geometric ladder top-down from high using confidence a,
// clamping to 0 (and reporting invalid) if the recurrence would go complex.
func chain(high, a float64, n int) (lambda []float64, valid bool) {
	lambda = make([]float64, n)
	lambda[n-1] = high
	valid = true
	for k := n - 1; k > 0; k-- {
		s := math.Sqrt(lambda[k])
		if s < a {
			valid = false
			for j := k - 1; j >= 0; j-- {
				lambda[j] = 0
			}
			break
		}
		lambda[k-1] = (s - a) * (s - a)
	}
	return lambda, valid
}

// solveChain binary-searches for the tightest a (largest a for which the
// state-0 threshold f(a) = λ_0 - a√λ_0 still satisfies f(a) >= low), then
// returns the resulting chain.
func solveChain(low, high float64, n int) (a float64, lambda []float64, valid bool) {
	eval := func(x float64) float64 {
		l, _ := chain(high, x, n)
		return l[0] - x*math.Sqrt(l[0])
	}
	a = search.BinaryReverse(0, high, low, 0.01, eval)
	lambda, valid = chain(high, a, n)
	return a, lambda, valid
}

// classifyInterval returns the largest state index k whose lower threshold
// is at or below count, else 0.
func classifyInterval(threshold []float64, count float64) int {
	state := 0
	for k := len(threshold) - 1; k >= 0; k-- {
		if threshold[k] <= count {
			state = k
			break
		}
	}
	return state
}
