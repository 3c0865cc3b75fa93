package analysis

import (
	"math"
	"testing"

	"github.com/snc-qos/admission-core/internal/estimator"
	"github.com/snc-qos/admission-core/internal/mmbp"
	"github.com/snc-qos/admission-core/internal/registry"
)

const stepSize = 1e-5

func fitArrival(t *testing.T, flowID uint32, ratePerSec float64, workBytes float64) *mmbp.Arrival {
	t.Helper()
	n := 2000
	intervalNs := uint64(1e9 / ratePerSec)
	entries := make([]estimator.ProcessedTraceEntry, n)
	for i := range entries {
		entries[i] = estimator.ProcessedTraceEntry{ArrivalTimeNs: uint64(i) * intervalNs, Work: workBytes, IsGet: true}
	}
	a, err := mmbp.Fit(entries, flowID, mmbp.Config{MaxStates: 10, IntervalWidthSeconds: 1, StepSizeSeconds: stepSize}, "exponential")
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	return a
}

func singleHopRegistry(t *testing.T, bandwidth, ratePerSec, work, slo, sloPercentile float64) (*registry.Registry, *registry.Flow) {
	t.Helper()
	r := registry.New()
	if _, err := r.AddQueue("q0", bandwidth); err != nil {
		t.Fatalf("AddQueue() error = %v", err)
	}
	arrival := fitArrival(t, 1, ratePerSec, work)
	client, err := r.AddClient(registry.ClientSpec{
		Name:          "tenant-a",
		SLOSeconds:    slo,
		SLOPercentile: sloPercentile,
		Flows:         []registry.FlowSpec{{Name: "f0", QueueNames: []string{"q0"}, Arrival: arrival}},
	})
	if err != nil {
		t.Fatalf("AddClient() error = %v", err)
	}
	flow, _ := r.FlowByName("f0")
	flow.Epsilon = 1 - sloPercentile/100
	_ = client
	return r, flow
}

func TestAggregateTwoHopSingleTenantAdmissible(t *testing.T) {
	r, flow := singleHopRegistry(t, 1.25e8, 1000, 1500, 0.01, 99.9)
	latency, err := CalcFlowLatency(r, AggregateTwoHop, stepSize, flow.ID)
	if err != nil {
		t.Fatalf("CalcFlowLatency() error = %v", err)
	}
	if math.IsInf(latency, 1) {
		t.Fatalf("latency is infinite, want finite for a lightly loaded single tenant")
	}
	if latency > flow.Epsilon*1e6 && latency > 10 {
		t.Errorf("latency = %v looks implausibly large", latency)
	}
}

func TestHopByHopAndConvolutionAgreeOnIsolatedFlow(t *testing.T) {
	r, flow := singleHopRegistry(t, 1.25e8, 1000, 1500, 0.01, 99.9)

	hbh, err := CalcFlowLatency(r, HopByHop, stepSize, flow.ID)
	if err != nil {
		t.Fatalf("HopByHop CalcFlowLatency() error = %v", err)
	}
	conv, err := CalcFlowLatency(r, Convolution, stepSize, flow.ID)
	if err != nil {
		t.Fatalf("Convolution CalcFlowLatency() error = %v", err)
	}

	// For a single-hop flow with no competing traffic, both strategies
	// reduce to the same LatencyBound(arrival, ConstantService, epsilon)
	// evaluation and should agree closely.
	if math.Abs(hbh-conv) > 1e-6*math.Max(1, math.Abs(hbh)) {
		t.Errorf("hop-by-hop = %v, convolution = %v, want approximately equal for an isolated single-hop flow", hbh, conv)
	}
}

func TestAggregateTwoHopOverloadIsInfeasible(t *testing.T) {
	r := registry.New()
	r.AddQueue("q0", 1e6)
	for i := 0; i < 10; i++ {
		arrival := fitArrival(t, uint32(i+1), 5000, 1500)
		name := []string{"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7", "t8", "t9"}[i]
		if _, err := r.AddClient(registry.ClientSpec{
			Name:          name,
			SLOSeconds:    0.001,
			SLOPercentile: 99.9,
			Flows:         []registry.FlowSpec{{Name: name + "-f", QueueNames: []string{"q0"}, Arrival: arrival}},
		}); err != nil {
			t.Fatalf("AddClient() error = %v", err)
		}
		flow, _ := r.FlowByName(name + "-f")
		flow.Epsilon = 0.001
		flow.Priority = i
	}

	var worst float64
	for _, f := range r.AllFlows() {
		latency, err := CalcFlowLatency(r, AggregateTwoHop, stepSize, f.ID)
		if err != nil {
			t.Fatalf("CalcFlowLatency() error = %v", err)
		}
		if latency > worst {
			worst = latency
		}
	}
	if !math.IsInf(worst, 1) && worst < 0.001 {
		t.Errorf("ten heavy tenants on one queue should not all fit under a 1ms SLO, got max latency %v", worst)
	}
}
