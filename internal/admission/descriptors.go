package admission

import "encoding/json"

// FlowDescriptor is the wire shape of one flow inside a client descriptor
// (spec.md §6). ArrivalInfo carries enough to rebuild the flow's MMBP
// arrival without this repo having to invent a binary wire format for it:
// a raw trace (the same line format TraceReader already parses) plus the
// work estimator to apply to it.
type FlowDescriptor struct {
	Name         string          `json:"name"`
	Queues       []string        `json:"queues"`
	ArrivalInfo  json.RawMessage `json:"arrivalInfo"`
	Priority     *int            `json:"priority,omitempty"`
	EnforcerAddr string          `json:"enforcerAddr,omitempty"`
	DstAddr      string          `json:"dstAddr,omitempty"`
	SrcAddr      string          `json:"srcAddr,omitempty"`
}

// hasEnforcerAddrs reports whether the three enforcer address fields are all
// present, the condition spec.md §6 gives for forwarding to the Enforcer.
func (f FlowDescriptor) hasEnforcerAddrs() bool {
	return f.EnforcerAddr != "" && f.DstAddr != "" && f.SrcAddr != ""
}

// ClientDescriptor is the wire shape of one tenant in an AddClients batch.
type ClientDescriptor struct {
	Name          string           `json:"name"`
	SLO           float64          `json:"SLO"`
	SLOPercentile *float64         `json:"SLOpercentile,omitempty"`
	Flows         []FlowDescriptor `json:"flows"`
	Dependencies  []string         `json:"dependencies,omitempty"`
}

func (c ClientDescriptor) sloPercentile() float64 {
	if c.SLOPercentile != nil {
		return *c.SLOPercentile
	}
	return 99
}
