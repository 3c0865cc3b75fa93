package mmbp

import "math"

// CalcBound returns the (σ, ρ) arrival bound at parameter theta: σ is always
// 0 and ρ = log(spec(θ)) / θ, per spec.md §4.3 step 6.
func (a *Arrival) CalcBound(theta float64) (sigma, rho float64) {
	if theta <= 0 {
		return 0, math.Inf(1)
	}
	spec := a.SpectralRadius(theta)
	if math.IsInf(spec, 1) {
		return 0, math.Inf(1)
	}
	return 0, math.Log(spec) / theta
}

// FlowDependencies returns the set of flow ids this arrival depends on.
func (a *Arrival) FlowDependencies() map[uint32]struct{} {
	return a.Dependencies
}

// AddDependency records that this arrival also depends on the given flow
// (used when two clients are wired together via registry dependencies).
func (a *Arrival) AddDependency(flowID uint32) {
	a.Dependencies[flowID] = struct{}{}
}
