package calculus

import "math"

// LatencyBoundNode evaluates the tail-latency bound for an arrival process
// A served by a service process S: the smallest delay L such that
// P[latency > L] < epsilon holds at the evaluated theta.
type LatencyBoundNode struct {
	A, S     Node
	Epsilon  float64
	StepSize float64
	dep      *DependencyParams
}

func newLatencyBoundNode(a, s Node, epsilon, stepSize float64) *LatencyBoundNode {
	return &LatencyBoundNode{A: a, S: s, Epsilon: epsilon, StepSize: stepSize, dep: newCompositeParams(a.Dependencies(), s.Dependencies())}
}

// CalcBound returns (L, 0): the delay bound is carried in sigma, rho is
// unused for the root node and always 0.
//
//	L(θ) = stepSize · ( log(ε·(1 − exp(θ·(ρ_A+ρ_S)))) / θ − (σ_A + σ_S) ) / ρ_S
//
// Valid iff ρ_A + ρ_S < 0 (stability) and the log argument lands in (0, 1];
// either violation yields +Inf.
func (n *LatencyBoundNode) CalcBound(theta float64) (float64, float64) {
	sigmaA, rhoA := n.A.CalcBound(n.dep.P * theta)
	sigmaS, rhoS := n.S.CalcBound(n.dep.Q * theta)
	if rhoA+rhoS >= 0 {
		return math.Inf(1), 0
	}
	arg := n.Epsilon * (1 - math.Exp(theta*(rhoA+rhoS)))
	if arg <= 0 || arg > 1 {
		return math.Inf(1), 0
	}
	delay := n.StepSize * (math.Log(arg)/theta - (sigmaA + sigmaS)) / rhoS
	return delay, 0
}

func (n *LatencyBoundNode) Dependencies() map[uint32]struct{} { return n.dep.Dependencies }
func (n *LatencyBoundNode) depParams() *DependencyParams       { return n.dep }

// Delay is a convenience accessor returning just the delay component of
// CalcBound, for callers that only evaluate the root node.
func (n *LatencyBoundNode) Delay(theta float64) float64 {
	d, _ := n.CalcBound(theta)
	return d
}
