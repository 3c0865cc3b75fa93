package calculus

import "math"

// Node is the common interface for every arrival and service bound in the
// operator algebra. Composite nodes own their children for the lifetime of
// the analysis that built them.
type Node interface {
	CalcBound(theta float64) (sigma, rho float64)
	Dependencies() map[uint32]struct{}
}

// dependentNode is implemented by composite nodes that carry Hölder
// parameters subject to optimization.
type dependentNode interface {
	Node
	depParams() *DependencyParams
}

// leafArrival adapts any pre-fitted arrival model (e.g. *mmbp.Arrival) into
// a Node, for use as the source arrival at the base of a flow's DAG.
type leafArrival struct {
	calc func(theta float64) (sigma, rho float64)
	deps map[uint32]struct{}
}

// NewLeafArrival wraps a fitted arrival model's CalcBound/Dependencies pair
// as a Node.
func NewLeafArrival(calc func(theta float64) (sigma, rho float64), deps map[uint32]struct{}) Node {
	return &leafArrival{calc: calc, deps: deps}
}

func (l *leafArrival) CalcBound(theta float64) (float64, float64) { return l.calc(theta) }
func (l *leafArrival) Dependencies() map[uint32]struct{}          { return l.deps }

// ConstantService is a leaf service node with a fixed bandwidth, the
// queue's service process in isolation.
type ConstantService struct {
	Bandwidth float64
	StepSize  float64
}

// NewConstantService builds a ConstantService bound for a queue with the
// given bandwidth (work units per second) at the analysis's discrete step
// size.
func NewConstantService(bandwidth, stepSize float64) *ConstantService {
	return &ConstantService{Bandwidth: bandwidth, StepSize: stepSize}
}

func (c *ConstantService) CalcBound(float64) (float64, float64) {
	return 0, -c.Bandwidth * c.StepSize
}
func (c *ConstantService) Dependencies() map[uint32]struct{} { return nil }

// AggregateArrival combines two arrival processes into their sum.
type AggregateArrival struct {
	A, B Node
	dep  *DependencyParams
}

// NewAggregateArrival builds an AggregateArrival node over A and B.
func NewAggregateArrival(a, b Node) *AggregateArrival {
	return &AggregateArrival{A: a, B: b, dep: newCompositeParams(a.Dependencies(), b.Dependencies())}
}

func (n *AggregateArrival) CalcBound(theta float64) (float64, float64) {
	sigmaA, rhoA := n.A.CalcBound(n.dep.P * theta)
	sigmaB, rhoB := n.B.CalcBound(n.dep.Q * theta)
	return sigmaA + sigmaB, rhoA + rhoB
}
func (n *AggregateArrival) Dependencies() map[uint32]struct{} { return n.dep.Dependencies }
func (n *AggregateArrival) depParams() *DependencyParams       { return n.dep }

// ConvolutionService convolutes two service processes along a tandem path.
type ConvolutionService struct {
	S, T Node
	dep  *DependencyParams
}

// NewConvolutionService builds a ConvolutionService node over S and T.
func NewConvolutionService(s, t Node) *ConvolutionService {
	return &ConvolutionService{S: s, T: t, dep: newCompositeParams(s.Dependencies(), t.Dependencies())}
}

func (n *ConvolutionService) CalcBound(theta float64) (float64, float64) {
	sigmaS, rhoS := n.S.CalcBound(n.dep.P * theta)
	sigmaT, rhoT := n.T.CalcBound(n.dep.Q * theta)
	if rhoS == rhoT {
		// equal-rho tie-break: perturb to avoid log(0) below.
		rhoS = 0.99 * rhoS
	}
	logTerm := math.Log(1-math.Exp(-theta*math.Abs(rhoS-rhoT))) / theta
	sigma := sigmaS + sigmaT - logTerm
	rho := math.Max(rhoS, rhoT)
	return sigma, rho
}
func (n *ConvolutionService) Dependencies() map[uint32]struct{} { return n.dep.Dependencies }
func (n *ConvolutionService) depParams() *DependencyParams       { return n.dep }

// OutputArrival derives the arrival process leaving a queue from the arrival
// process entering it and the queue's service process.
type OutputArrival struct {
	A, S Node
	dep  *DependencyParams
}

// NewOutputArrival builds an OutputArrival node over A (input arrival) and S
// (service).
func NewOutputArrival(a, s Node) *OutputArrival {
	return &OutputArrival{A: a, S: s, dep: newCompositeParams(a.Dependencies(), s.Dependencies())}
}

func (n *OutputArrival) CalcBound(theta float64) (float64, float64) {
	sigmaA, rhoA := n.A.CalcBound(n.dep.P * theta)
	sigmaS, rhoS := n.S.CalcBound(n.dep.Q * theta)
	arg := 1 - math.Exp(theta*(rhoA+rhoS))
	if arg <= 0 || arg > 1 {
		return math.Inf(1), rhoA
	}
	sigma := sigmaA + sigmaS - math.Log(arg)/theta
	return sigma, rhoA
}
func (n *OutputArrival) Dependencies() map[uint32]struct{} { return n.dep.Dependencies }
func (n *OutputArrival) depParams() *DependencyParams       { return n.dep }

// LeftoverService derives the service left over for lower-priority flows at
// a queue, after a higher-priority arrival process has been served.
type LeftoverService struct {
	A, S Node
	dep  *DependencyParams
}

// NewLeftoverService builds a LeftoverService node over A (arrival consuming
// service) and S (the queue's total service).
func NewLeftoverService(a, s Node) *LeftoverService {
	return &LeftoverService{A: a, S: s, dep: newCompositeParams(a.Dependencies(), s.Dependencies())}
}

func (n *LeftoverService) CalcBound(theta float64) (float64, float64) {
	sigmaA, rhoA := n.A.CalcBound(n.dep.P * theta)
	sigmaS, rhoS := n.S.CalcBound(n.dep.Q * theta)
	return sigmaA + sigmaS, rhoA + rhoS
}
func (n *LeftoverService) Dependencies() map[uint32]struct{} { return n.dep.Dependencies }
func (n *LeftoverService) depParams() *DependencyParams       { return n.dep }
