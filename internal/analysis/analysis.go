// Package analysis implements the three per-flow SNC latency algorithms
// (C6): hop-by-hop, convolution, and aggregate-two-hop-dependency. Each
// builds an ephemeral operator DAG over a target flow's path through the
// registry (C5) and writes the resulting latency bound back onto it.
// Grounded in original_source/SNC-Library/SNC.cpp.
package analysis

import (
	"fmt"
	"sort"

	"github.com/snc-qos/admission-core/internal/calculus"
	"github.com/snc-qos/admission-core/internal/registry"
)

// Strategy selects which of the three SNC analyses computes a flow's
// latency.
type Strategy int

const (
	HopByHop Strategy = iota
	Convolution
	AggregateTwoHop
)

// ParseStrategy maps a config string to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "hop_by_hop":
		return HopByHop, nil
	case "convolution":
		return Convolution, nil
	case "aggregate":
		return AggregateTwoHop, nil
	default:
		return 0, fmt.Errorf("unknown analysis strategy %q", s)
	}
}

// CalcFlowLatency computes flowID's latency bound using the given strategy
// and writes it back into the registry, per spec.md §4.6/§4.7 ("assumes
// priorities are set").
func CalcFlowLatency(reg *registry.Registry, strategy Strategy, stepSize float64, flowID uint32) (float64, error) {
	target, ok := reg.Flow(flowID)
	if !ok {
		return 0, registry.NewStatusError(registry.FlowNameNonexistent, fmt.Sprintf("flow id %d does not exist", flowID))
	}

	var latency float64
	switch strategy {
	case HopByHop:
		latency = hopByHopAnalysis(reg, stepSize, target)
	case Convolution:
		latency = convolutionAnalysis(reg, stepSize, target)
	case AggregateTwoHop:
		latency = aggregateAnalysisTwoHopDep(reg, stepSize, target)
	default:
		return 0, fmt.Errorf("unknown analysis strategy %d", strategy)
	}

	reg.SetFlowLatency(flowID, latency)
	return latency, nil
}

func flowArrivalNode(f *registry.Flow) calculus.Node {
	return calculus.NewLeafArrival(f.Arrival.CalcBound, f.Arrival.FlowDependencies())
}

// sortedFlowsUpTo returns every flow other than target with priority <=
// target.Priority, ordered by the §4.5 comparator, followed by target
// itself — the sweep order both per-flow analyses process.
func sortedFlowsUpTo(reg *registry.Registry, target *registry.Flow) []*registry.Flow {
	var others []*registry.Flow
	for _, f := range reg.AllFlows() {
		if f.ID == target.ID {
			continue
		}
		if f.Priority <= target.Priority {
			others = append(others, f)
		}
	}
	sort.Slice(others, func(i, j int) bool { return registry.Less(others[i], others[j]) })
	return append(others, target)
}

// hopByHopAnalysis is SNC::hopByHopAnalysis specialized to a single target
// flow: every queue starts at its raw ConstantService, and every
// priority-ordered flow up to and including target threads its arrival
// through OutputArrival/LeftoverService at each hop. Target's own
// per-hop LatencyBound contributions, evaluated via the full Hölder
// optimizer, are summed into its latency.
func hopByHopAnalysis(reg *registry.Registry, stepSize float64, target *registry.Flow) float64 {
	ar := calculus.NewArena(stepSize)
	leftover := make(map[uint32]calculus.Node, len(reg.Queues()))
	for _, q := range reg.Queues() {
		leftover[q.ID] = ar.ConstantService(q.Bandwidth)
	}

	var latency float64
	for _, f := range sortedFlowsUpTo(reg, target) {
		arrival := flowArrivalNode(f)
		for _, qid := range f.QueueIDs {
			service := leftover[qid]
			if f.ID == target.ID {
				lb := ar.LatencyBound(arrival, service, f.Epsilon/float64(len(f.QueueIDs)))
				latency += calculus.DependencyOptimization(lb, ar)
			}
			leftover[qid] = ar.Leftover(arrival, service)
			arrival = ar.Output(arrival, service)
		}
	}
	return latency
}

// convolutionAnalysis is SNC::convolutionAnalysis: per priority-ordered
// flow, the leftover services along its path are convolved left-to-right
// before any of them are updated this round; target's latency is the
// single LatencyBound over its own arrival against that convolved service.
func convolutionAnalysis(reg *registry.Registry, stepSize float64, target *registry.Flow) float64 {
	ar := calculus.NewArena(stepSize)
	leftover := make(map[uint32]calculus.Node, len(reg.Queues()))
	for _, q := range reg.Queues() {
		leftover[q.ID] = ar.ConstantService(q.Bandwidth)
	}

	var latency float64
	for _, f := range sortedFlowsUpTo(reg, target) {
		convolved := leftover[f.QueueIDs[0]]
		for _, qid := range f.QueueIDs[1:] {
			convolved = ar.Convolve(convolved, leftover[qid])
		}

		if f.ID == target.ID {
			lb := ar.LatencyBound(flowArrivalNode(f), convolved, f.Epsilon)
			latency = calculus.DependencyOptimization(lb, ar)
		}

		arrival := flowArrivalNode(f)
		for _, qid := range f.QueueIDs {
			service := leftover[qid]
			leftover[qid] = ar.Leftover(arrival, service)
			arrival = ar.Output(arrival, service)
		}
	}
	return latency
}

// aggregate groups arrivals into dependency-independent buckets (scanning
// left to right, joining the first bucket that does not already depend on
// the arrival), then folds the buckets with AggregateArrival. Mirrors
// SNC::aggregateArrivals, minimizing Hölder-optimization dimensionality.
func aggregate(ar *calculus.Arena, arrivals []calculus.Node) calculus.Node {
	var groups []calculus.Node
	for _, a := range arrivals {
		placed := false
		for i, g := range groups {
			if !calculus.CheckDependence(a.Dependencies(), g.Dependencies()) {
				groups[i] = ar.Aggregate(a, g)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, a)
		}
	}

	result := groups[0]
	for _, g := range groups[1:] {
		result = ar.Aggregate(result, g)
	}
	return result
}

// aggregateAnalysisTwoHopDep is SNC::aggregateAnalysisTwoHopDep, the
// production algorithm for flows with one or two hops.
func aggregateAnalysisTwoHopDep(reg *registry.Registry, stepSize float64, target *registry.Flow) float64 {
	ar := calculus.NewArena(stepSize)

	if len(target.QueueIDs) == 1 {
		return oneHopAggregate(reg, ar, target)
	}
	return twoHopAggregate(reg, ar, target)
}

func oneHopAggregate(reg *registry.Registry, ar *calculus.Arena, target *registry.Flow) float64 {
	firstQueueID := target.QueueIDs[0]
	firstQueue, _ := reg.Queue(firstQueueID)

	var arrivals []calculus.Node
	for _, f := range reg.FlowsAtQueue(firstQueueID) {
		if f.QueueIDs[0] != firstQueueID {
			continue
		}
		if f.Priority <= target.Priority && f.ID != target.ID {
			arrivals = append(arrivals, flowArrivalNode(f))
		}
	}

	var service calculus.Node = ar.ConstantService(firstQueue.Bandwidth)
	if len(arrivals) > 0 {
		service = ar.Leftover(aggregate(ar, arrivals), service)
	}

	lb := ar.LatencyBound(flowArrivalNode(target), service, target.Epsilon/float64(len(target.QueueIDs)))
	return calculus.CalcLatency(lb)
}

func twoHopAggregate(reg *registry.Registry, ar *calculus.Arena, target *registry.Flow) float64 {
	firstQueueID := target.QueueIDs[0]
	secondQueueID := target.QueueIDs[1]
	secondQueue, _ := reg.Queue(secondQueueID)

	// Identify first-hop queues feeding this second queue via a flow of
	// priority <= target's, recording the lowest (numerically highest)
	// such priority per first-hop queue.
	firstQueuePriority := make(map[uint32]int)
	for _, f := range reg.FlowsAtQueue(secondQueueID) {
		// Only flows for which this queue is their own second hop.
		if len(f.QueueIDs) != 2 || f.QueueIDs[1] != secondQueueID {
			continue
		}
		if f.Priority > target.Priority {
			continue
		}
		q0 := f.QueueIDs[0]
		if p, ok := firstQueuePriority[q0]; !ok || f.Priority > p {
			firstQueuePriority[q0] = f.Priority
		}
	}

	var firstQueueService calculus.Node
	var aggregateArrivalShared calculus.Node
	var arrivalsSecondQueue []calculus.Node

	// Deterministic order over the first-hop queues for reproducible DAGs.
	qids := make([]uint32, 0, len(firstQueuePriority))
	for qid := range firstQueuePriority {
		qids = append(qids, qid)
	}
	sort.Slice(qids, func(i, j int) bool { return qids[i] < qids[j] })

	for _, qid := range qids {
		lowestPriority := firstQueuePriority[qid]
		q, _ := reg.Queue(qid)

		var shared, nonShared []calculus.Node
		for _, f := range reg.FlowsAtQueue(qid) {
			// Only flows for which this queue is their own first hop.
			if f.QueueIDs[0] != qid {
				continue
			}
			if f.Priority > lowestPriority || f.ID == target.ID {
				continue
			}
			arrival := flowArrivalNode(f)
			if len(f.QueueIDs) == 2 && f.QueueIDs[1] == secondQueueID {
				shared = append(shared, arrival)
			} else {
				nonShared = append(nonShared, arrival)
			}
		}

		var service calculus.Node = ar.ConstantService(q.Bandwidth)
		if len(nonShared) > 0 {
			service = ar.Leftover(aggregate(ar, nonShared), service)
		}

		if qid == firstQueueID {
			firstQueueService = service
			if len(shared) > 0 {
				aggregateArrivalShared = aggregate(ar, shared)
			}
		} else if len(shared) > 0 {
			output := ar.Output(aggregate(ar, shared), service)
			arrivalsSecondQueue = append(arrivalsSecondQueue, output)
		}
	}

	if firstQueueService == nil {
		fq, _ := reg.Queue(firstQueueID)
		firstQueueService = ar.ConstantService(fq.Bandwidth)
	}

	var secondQueueService calculus.Node = ar.ConstantService(secondQueue.Bandwidth)
	if len(arrivalsSecondQueue) > 0 {
		secondQueueService = ar.Leftover(aggregate(ar, arrivalsSecondQueue), secondQueueService)
	}

	finalService := ar.Convolve(firstQueueService, secondQueueService)
	var rootService calculus.Node = finalService
	if aggregateArrivalShared != nil {
		rootService = ar.Leftover(aggregateArrivalShared, finalService)
	}

	lb := ar.LatencyBound(flowArrivalNode(target), rootService, target.Epsilon)
	return calculus.DependencyOptimization(lb, ar)
}

