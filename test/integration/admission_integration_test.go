//go:build integration
// +build integration

// Package integration_test drives the admission controller through its
// full HTTP surface and checks the six end-to-end scenarios of spec.md §8.
package integration_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/snc-qos/admission-core/internal/admission"
	"github.com/snc-qos/admission-core/internal/analysis"
	"github.com/snc-qos/admission-core/internal/httpapi"
	"github.com/snc-qos/admission-core/internal/mmbp"
	"github.com/snc-qos/admission-core/internal/registry"
)

const stepSize = 1e-5

func traceJSON(ratePerSec float64, n int, workHexBytes string) string {
	intervalNs := uint64(1e9 / ratePerSec)
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "%d,%s,Get\n", uint64(i)*intervalNs, workHexBytes)
	}
	payload := map[string]any{
		"trace":     sb.String(),
		"estimator": map[string]any{"type": "networkIn", "nonDataConstant": 1500},
	}
	raw, _ := json.Marshal(payload)
	return string(raw)
}

// newHarness builds a registry seeded with the given queues, wraps it in an
// admission.Controller and an httpapi.Server, and returns both the server
// (for driving HTTP requests) and the controller (for white-box assertions
// on registry state that the HTTP surface doesn't expose, like per-flow
// priority).
func newHarness(t *testing.T, strategy analysis.Strategy, queues map[string]float64) (*httpapi.Server, *admission.Controller) {
	t.Helper()
	reg := registry.New()
	for name, bw := range queues {
		if _, err := reg.AddQueue(name, bw); err != nil {
			t.Fatalf("AddQueue(%s) error = %v", name, err)
		}
	}
	cfg := mmbp.Config{MaxStates: 10, IntervalWidthSeconds: 1, StepSizeSeconds: stepSize}
	ctrl := admission.New(reg, strategy, stepSize, cfg, nil)
	return httpapi.NewServer(ctrl), ctrl
}

func postClients(t *testing.T, srv *httpapi.Server, body string) map[string]any {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/clients", strings.NewReader(body))
	srv.Handler().ServeHTTP(rr, req)
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json from POST /v1/clients: %v (body: %s)", err, rr.Body.String())
	}
	resp["httpStatus"] = rr.Code
	return resp
}

func clientBatch(name string, slo float64, flows ...string) string {
	return fmt.Sprintf(`[{"name":%q,"SLO":%v,"flows":[%s]}]`, name, slo, strings.Join(flows, ","))
}

func flowDescriptor(name string, queues []string, rate float64, n int) string {
	qs := make([]string, len(queues))
	for i, q := range queues {
		qs[i] = fmt.Sprintf("%q", q)
	}
	return fmt.Sprintf(`{"name":%q,"queues":[%s],"arrivalInfo":%s}`,
		name, strings.Join(qs, ","), traceJSON(rate, n, "5dc"))
}

// Scenario 1: single tenant, single hop.
func TestIntegration_SingleTenantSingleHop(t *testing.T) {
	srv, ctrl := newHarness(t, analysis.HopByHop, map[string]float64{"Q": 1.25e8})

	body := clientBatch("tenant", 0.01, flowDescriptor("f0", []string{"Q"}, 1000, 3000))
	resp := postClients(t, srv, body)

	if resp["admitted"] != true {
		t.Fatalf("admitted = %v, want true: %v", resp["admitted"], resp)
	}
	flow, ok := ctrl.Registry().FlowByName("f0")
	if !ok {
		t.Fatalf("flow f0 not found after admission")
	}
	if flow.Priority != 0 {
		t.Errorf("flow.Priority = %d, want 0 for the only client", flow.Priority)
	}
	if flow.Latency <= 0 {
		t.Errorf("flow.Latency = %v, want a finite positive latency", flow.Latency)
	}
	if flow.Latency > 0.01 {
		t.Errorf("flow.Latency = %v, want <= SLO 0.01", flow.Latency)
	}
}

// Scenario 2: two tenants, shared hop, tight SLO first.
func TestIntegration_TwoTenantsSharedHopTightSLOFirst(t *testing.T) {
	srv, ctrl := newHarness(t, analysis.AggregateTwoHop, map[string]float64{"Q": 1.25e8})

	respA := postClients(t, srv, clientBatch("tenant-a", 0.005, flowDescriptor("a-f", []string{"Q"}, 500, 2000)))
	if respA["admitted"] != true {
		t.Fatalf("tenant-a admitted = %v, want true: %v", respA["admitted"], respA)
	}
	respB := postClients(t, srv, clientBatch("tenant-b", 0.020, flowDescriptor("b-f", []string{"Q"}, 500, 2000)))
	if respB["admitted"] != true {
		t.Fatalf("tenant-b admitted = %v, want true: %v", respB["admitted"], respB)
	}

	aFlow, _ := ctrl.Registry().FlowByName("a-f")
	bFlow, _ := ctrl.Registry().FlowByName("b-f")
	if aFlow.Priority != 0 {
		t.Errorf("tenant-a priority = %d, want 0 (tighter SLO)", aFlow.Priority)
	}
	if bFlow.Priority <= aFlow.Priority {
		t.Errorf("tenant-b priority = %d, want > tenant-a priority %d", bFlow.Priority, aFlow.Priority)
	}
}

// Scenario 3: infeasible overload.
func TestIntegration_InfeasibleOverloadRejectsAndLeavesRegistryUnchanged(t *testing.T) {
	srv, ctrl := newHarness(t, analysis.AggregateTwoHop, map[string]float64{"Q": 1.25e8})

	var flows []string
	for i := 0; i < 10; i++ {
		flows = append(flows, flowDescriptor(fmt.Sprintf("heavy-%d-f", i), []string{"Q"}, 50000, 3000))
	}
	var clients []string
	for i, f := range flows {
		clients = append(clients, fmt.Sprintf(`{"name":"heavy-%d","SLO":0.001,"flows":[%s]}`, i, f))
	}
	body := "[" + strings.Join(clients, ",") + "]"

	before := len(ctrl.Registry().AllFlows())
	resp := postClients(t, srv, body)

	if resp["admitted"] != false {
		t.Fatalf("admitted = %v, want false for ten overloaded tenants", resp["admitted"])
	}
	if got := len(ctrl.Registry().AllFlows()); got != before {
		t.Errorf("registry flow count = %d after rejection, want unchanged %d", got, before)
	}
	if len(ctrl.Registry().Clients()) != 0 {
		t.Errorf("registry has %d clients after rejection, want 0", len(ctrl.Registry().Clients()))
	}
}

// Scenario 4: two-hop aggregate, disjoint first hops sharing a second hop.
func TestIntegration_TwoHopAggregateDisjointFirstHopsSharedSecondHop(t *testing.T) {
	srv, ctrl := newHarness(t, analysis.AggregateTwoHop, map[string]float64{
		"Q1a": 1.25e8, "Q1b": 1.25e8, "Q2": 1.25e8,
	})

	respA := postClients(t, srv, clientBatch("tenant-a", 0.02, flowDescriptor("a-f", []string{"Q1a", "Q2"}, 500, 2000)))
	if respA["admitted"] != true {
		t.Fatalf("tenant-a admitted = %v, want true: %v", respA["admitted"], respA)
	}
	respB := postClients(t, srv, clientBatch("tenant-b", 0.02, flowDescriptor("b-f", []string{"Q1b", "Q2"}, 500, 2000)))
	if respB["admitted"] != true {
		t.Fatalf("tenant-b admitted = %v, want true: %v", respB["admitted"], respB)
	}

	aFlow, _ := ctrl.Registry().FlowByName("a-f")
	bFlow, _ := ctrl.Registry().FlowByName("b-f")
	if aFlow.Latency <= 0 || bFlow.Latency <= 0 {
		t.Errorf("expected finite positive latencies, got a=%v b=%v", aFlow.Latency, bFlow.Latency)
	}
}

// Scenario 5: dependent clients. A symmetric dependency must not decrease
// the resulting latency relative to the same topology with no dependency.
func TestIntegration_DependentClientsLatencyNeverDecreases(t *testing.T) {
	srvDep, ctrlDep := newHarness(t, analysis.AggregateTwoHop, map[string]float64{"Q": 1.25e8})
	bodyDep := fmt.Sprintf(`[
		{"name":"dep-a","SLO":0.05,"dependencies":["dep-b"],"flows":[%s]},
		{"name":"dep-b","SLO":0.05,"dependencies":["dep-a"],"flows":[%s]}
	]`, flowDescriptor("dep-a-f", []string{"Q"}, 500, 2000), flowDescriptor("dep-b-f", []string{"Q"}, 500, 2000))
	respDep := postClients(t, srvDep, bodyDep)
	if respDep["admitted"] != true {
		t.Fatalf("dependent batch admitted = %v, want true: %v", respDep["admitted"], respDep)
	}
	depFlow, _ := ctrlDep.Registry().FlowByName("dep-a-f")

	srvIndep, ctrlIndep := newHarness(t, analysis.AggregateTwoHop, map[string]float64{"Q": 1.25e8})
	bodyIndep := fmt.Sprintf(`[
		{"name":"indep-a","SLO":0.05,"flows":[%s]},
		{"name":"indep-b","SLO":0.05,"flows":[%s]}
	]`, flowDescriptor("indep-a-f", []string{"Q"}, 500, 2000), flowDescriptor("indep-b-f", []string{"Q"}, 500, 2000))
	respIndep := postClients(t, srvIndep, bodyIndep)
	if respIndep["admitted"] != true {
		t.Fatalf("independent batch admitted = %v, want true: %v", respIndep["admitted"], respIndep)
	}
	indepFlow, _ := ctrlIndep.Registry().FlowByName("indep-a-f")

	if depFlow.Latency < indepFlow.Latency-1e-9 {
		t.Errorf("dependent latency %v is lower than independent latency %v, want dependency to never help", depFlow.Latency, indepFlow.Latency)
	}
}

// Scenario 6: del/rechurn. After deleting and re-admitting A with a
// stricter SLO, A's priority must strictly dominate (numerically precede)
// B's.
func TestIntegration_DelRechurnPriorityDominance(t *testing.T) {
	srv, ctrl := newHarness(t, analysis.AggregateTwoHop, map[string]float64{"Q": 1.25e8})

	respA := postClients(t, srv, clientBatch("tenant-a", 0.02, flowDescriptor("a-f", []string{"Q"}, 500, 2000)))
	if respA["admitted"] != true {
		t.Fatalf("tenant-a admitted = %v, want true: %v", respA["admitted"], respA)
	}
	respB := postClients(t, srv, clientBatch("tenant-b", 0.01, flowDescriptor("b-f", []string{"Q"}, 500, 2000)))
	if respB["admitted"] != true {
		t.Fatalf("tenant-b admitted = %v, want true: %v", respB["admitted"], respB)
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/v1/clients/tenant-a", nil)
	srv.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("DELETE tenant-a status = %d, want 200: %s", rr.Code, rr.Body.String())
	}

	respA2 := postClients(t, srv, clientBatch("tenant-a", 0.001, flowDescriptor("a-f2", []string{"Q"}, 500, 2000)))
	if respA2["admitted"] != true {
		t.Fatalf("re-admitted tenant-a = %v, want true: %v", respA2["admitted"], respA2)
	}

	aFlow, _ := ctrl.Registry().FlowByName("a-f2")
	bFlow, _ := ctrl.Registry().FlowByName("b-f")
	if aFlow.Priority >= bFlow.Priority {
		t.Errorf("re-admitted tenant-a priority = %d, want strictly less than tenant-b priority %d", aFlow.Priority, bFlow.Priority)
	}
}
