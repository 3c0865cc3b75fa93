package analysis

import (
	"math"
	"testing"

	"github.com/snc-qos/admission-core/internal/registry"
)

// twoHopRegistry builds a target flow crossing q1->q2, plus any number of
// "other" flows each crossing their own first-hop queue into the shared q2.
func twoHopRegistry(t *testing.T, otherFirstHopCount int) (*registry.Registry, *registry.Flow) {
	t.Helper()
	r := registry.New()
	r.AddQueue("q1", 1.25e8)
	r.AddQueue("q2", 1.25e8)

	targetArrival := fitArrival(t, 1, 1000, 1500)
	if _, err := r.AddClient(registry.ClientSpec{
		Name: "target", SLOSeconds: 0.01, SLOPercentile: 99.9,
		Flows: []registry.FlowSpec{{Name: "target-f", QueueNames: []string{"q1", "q2"}, Arrival: targetArrival}},
	}); err != nil {
		t.Fatalf("AddClient(target) error = %v", err)
	}
	target, _ := r.FlowByName("target-f")
	target.Epsilon = 0.001

	for i := 0; i < otherFirstHopCount; i++ {
		qname := "q0-" + string(rune('a'+i))
		if _, err := r.AddQueue(qname, 1.25e8); err != nil {
			t.Fatalf("AddQueue(%s) error = %v", qname, err)
		}
		arrival := fitArrival(t, uint32(i+2), 500, 1500)
		name := "other-" + string(rune('a'+i))
		if _, err := r.AddClient(registry.ClientSpec{
			Name: name, SLOSeconds: 0.01, SLOPercentile: 99.9,
			Flows: []registry.FlowSpec{{Name: name + "-f", QueueNames: []string{qname, "q2"}, Arrival: arrival}},
		}); err != nil {
			t.Fatalf("AddClient(%s) error = %v", name, err)
		}
	}
	return r, target
}

// TestAggregateTwoHopMultipleSharedFirstHops exercises the two-hop
// aggregate's Q2 construction when several other flows reach the shared
// second queue via distinct first-hop queues of their own (none of which is
// the target's own first hop): each must be folded in as its own
// OutputArrival summand of the Q2 arrival set, per SPEC_FULL.md §9's
// resolution of the two-hop aggregate discriminator. This must not panic on
// the hop-index bookkeeping and must produce a non-decreasing latency bound
// as more competing first-hop queues are added.
func TestAggregateTwoHopMultipleSharedFirstHops(t *testing.T) {
	r0, target0 := twoHopRegistry(t, 0)
	r1, target1 := twoHopRegistry(t, 1)
	r2, target2 := twoHopRegistry(t, 2)

	l0, err := CalcFlowLatency(r0, AggregateTwoHop, stepSize, target0.ID)
	if err != nil {
		t.Fatalf("CalcFlowLatency(0 others) error = %v", err)
	}
	l1, err := CalcFlowLatency(r1, AggregateTwoHop, stepSize, target1.ID)
	if err != nil {
		t.Fatalf("CalcFlowLatency(1 other) error = %v", err)
	}
	l2, err := CalcFlowLatency(r2, AggregateTwoHop, stepSize, target2.ID)
	if err != nil {
		t.Fatalf("CalcFlowLatency(2 others) error = %v", err)
	}

	if math.IsNaN(l0) || math.IsNaN(l1) || math.IsNaN(l2) {
		t.Fatalf("latency is NaN: l0=%v l1=%v l2=%v", l0, l1, l2)
	}
	if l1 < l0-1e-9 {
		t.Errorf("adding a competing first-hop queue decreased latency: l0=%v l1=%v", l0, l1)
	}
	if !math.IsInf(l1, 1) && !math.IsInf(l2, 1) && l2 < l1-1e-9 {
		t.Errorf("adding a second competing first-hop queue decreased latency: l1=%v l2=%v", l1, l2)
	}
}
