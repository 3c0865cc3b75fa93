package estimator

import (
	"strings"
	"testing"
)

func TestTraceReaderParsing(t *testing.T) {
	data := strings.Join([]string{
		"1000,5dc,Get",
		"not a valid line",
		"2000,bb8,Put",
		"3000,zz,Get", // invalid hex, skipped
		"",
	}, "\n")

	tr, err := NewTraceReader(strings.NewReader(data))
	if err != nil {
		t.Fatalf("NewTraceReader() error = %v", err)
	}
	if tr.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tr.Len())
	}

	e1, ok := tr.Next()
	if !ok || e1.ArrivalNs != 1000 || e1.SizeBytes != 0x5dc || !e1.IsGet {
		t.Errorf("first entry = %+v, ok=%v", e1, ok)
	}
	e2, ok := tr.Next()
	if !ok || e2.ArrivalNs != 2000 || e2.SizeBytes != 0xbb8 || e2.IsGet {
		t.Errorf("second entry = %+v, ok=%v", e2, ok)
	}
	if _, ok := tr.Next(); ok {
		t.Errorf("Next() after exhaustion should return ok=false")
	}

	tr.Reset()
	if _, ok := tr.Next(); !ok {
		t.Errorf("Next() after Reset() should yield the first entry again")
	}
}

func TestNetworkEstimators(t *testing.T) {
	in := NewNetworkInEstimator(10, 0, 0, 2)
	if got := in.Estimate(1500, true); got != 10 {
		t.Errorf("NetworkIn get = %v, want 10", got)
	}
	if got := in.Estimate(1500, false); got != 3000 {
		t.Errorf("NetworkIn put = %v, want 3000", got)
	}

	out := NewNetworkOutEstimator(10, 0, 0, 2)
	if got := out.Estimate(1500, true); got != 3000 {
		t.Errorf("NetworkOut get = %v, want 3000", got)
	}
	if got := out.Estimate(1500, false); got != 10 {
		t.Errorf("NetworkOut put = %v, want 10", got)
	}
}

func TestProcessedTrace(t *testing.T) {
	data := "1000,5dc,Get\n2000,bb8,Put\n"
	tr, err := NewTraceReader(strings.NewReader(data))
	if err != nil {
		t.Fatalf("NewTraceReader() error = %v", err)
	}
	pt := NewProcessedTrace(tr, NewNetworkInEstimator(1, 0, 0, 1))

	entries := pt.All()
	if len(entries) != 2 {
		t.Fatalf("All() returned %d entries, want 2", len(entries))
	}
	if entries[0].Work != 1 || !entries[0].IsGet {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[1].Work != float64(0xbb8) || entries[1].IsGet {
		t.Errorf("entries[1] = %+v", entries[1])
	}

	pt.Reset()
	first, ok := pt.Next()
	if !ok || first.ArrivalTimeNs != 1000 {
		t.Errorf("Next() after Reset() = %+v, ok=%v", first, ok)
	}
}
