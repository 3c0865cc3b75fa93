package admission

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/snc-qos/admission-core/internal/estimator"
	"github.com/snc-qos/admission-core/internal/mmbp"
)

// arrivalInfo is the decoded form of a FlowDescriptor's ArrivalInfo: a raw
// trace in the §6 line format, the work estimator to apply to it, and the
// MGF variant to fit. This is the concrete binding this repo gives to
// spec.md §6's "arrivalInfo: <serialized MMBP>" — trace-file parsing beyond
// the abstract stream contract is out of scope, so arrivalInfo carries the
// trace itself through that same contract (internal/estimator) rather than
// a pre-fitted, hand-rolled serialization of the MMBP matrices.
type arrivalInfo struct {
	Trace     string                  `json:"trace"`
	Estimator estimator.EstimatorSpec `json:"estimator"`
	MGF       string                  `json:"mgf,omitempty"`
}

// fitArrival decodes raw and fits an MMBP arrival for flowID using cfg.
func fitArrival(raw json.RawMessage, flowID uint32, cfg mmbp.Config) (*mmbp.Arrival, error) {
	var info arrivalInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("decode arrivalInfo: %w", err)
	}
	est, err := estimator.Create(info.Estimator)
	if err != nil {
		return nil, fmt.Errorf("arrivalInfo estimator: %w", err)
	}
	reader, err := estimator.NewTraceReader(strings.NewReader(info.Trace))
	if err != nil {
		return nil, fmt.Errorf("arrivalInfo trace: %w", err)
	}
	entries := estimator.NewProcessedTrace(reader, est).All()

	mgfVariant := info.MGF
	if mgfVariant == "" {
		mgfVariant = "exponential"
	}
	arrival, err := mmbp.Fit(entries, flowID, cfg, mgfVariant)
	if err != nil {
		return nil, fmt.Errorf("fit MMBP arrival: %w", err)
	}
	return arrival, nil
}
