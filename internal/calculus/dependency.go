// Package calculus implements the SNC operator algebra (C4): arrival and
// service bound nodes under Hölder-parameterized dependency, their
// composition into per-flow latency bounds, and the nested θ/Hölder
// numerical optimizers that evaluate tight bounds.
package calculus

// DependencyParams carries a node's current Hölder (p, q) parameters, the
// search bracket the Hölder optimizer narrows on, and the set of flow ids
// this node's bound depends on.
type DependencyParams struct {
	P, Q                           float64
	LowerP, UpperP, LowerQ, UpperQ float64
	Dependencies                   map[uint32]struct{}
	dependent                      bool
}

// SetP sets p and derives q = p/(p-1) to maintain 1/p + 1/q = 1.
func (d *DependencyParams) SetP(p float64) {
	d.P = p
	d.Q = p / (p - 1)
}

// SetQ sets q and derives p = q/(q-1).
func (d *DependencyParams) SetQ(q float64) {
	d.Q = q
	d.P = q / (q - 1)
}

// ResetOptBounds initializes the search bracket to the standard starting
// window [1.001, 2.0] on both p and q, with p = 2 (spec.md §4.4).
func (d *DependencyParams) ResetOptBounds() {
	d.LowerP, d.UpperP = 1.001, 2.0
	d.LowerQ, d.UpperQ = 1.001, 2.0
	d.SetP(2)
}

// IsDependent reports whether this node is dependent (its children's
// dependency sets intersected at construction).
func (d *DependencyParams) IsDependent() bool {
	return d.dependent
}

// bracketWidth is the total bracket length used to weight random trial
// selection during Hölder optimization.
func (d *DependencyParams) bracketWidth() float64 {
	return (d.UpperP - d.LowerP) + (d.UpperQ - d.LowerQ)
}

// CheckDependence reports whether two flow-id dependency sets intersect. It
// is the exported form of the same check used when composing operator
// nodes, for analyses (C6) that need to decide how to bucket arrivals
// before aggregating them.
func CheckDependence(a, b map[uint32]struct{}) bool {
	return checkDependence(a, b)
}

// checkDependence reports whether two dependency sets intersect.
func checkDependence(a, b map[uint32]struct{}) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	for id := range small {
		if _, ok := large[id]; ok {
			return true
		}
	}
	return false
}

// unionDeps returns the union of two dependency sets.
func unionDeps(a, b map[uint32]struct{}) map[uint32]struct{} {
	out := make(map[uint32]struct{}, len(a)+len(b))
	for id := range a {
		out[id] = struct{}{}
	}
	for id := range b {
		out[id] = struct{}{}
	}
	return out
}

// newCompositeParams builds the DependencyParams for a composite node from
// its two children's dependency sets, marking it dependent (and resetting
// its optimization bracket) when those sets intersect.
func newCompositeParams(depsA, depsB map[uint32]struct{}) *DependencyParams {
	d := &DependencyParams{P: 1, Q: 1, Dependencies: unionDeps(depsA, depsB)}
	if checkDependence(depsA, depsB) {
		d.dependent = true
		d.ResetOptBounds()
	}
	return d
}
