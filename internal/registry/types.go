package registry

import "github.com/snc-qos/admission-core/internal/mmbp"

// Queue is a single congestion point: one direction of one host link.
type Queue struct {
	ID        uint32
	Name      string
	Bandwidth float64
	// FlowIDs is the set of flows currently incident on this queue.
	FlowIDs map[uint32]struct{}
}

// Flow is one tenant's traffic along an ordered path of queues.
type Flow struct {
	ID       uint32
	Name     string
	ClientID uint32
	QueueIDs []uint32
	Priority int
	Latency  float64
	Arrival  *mmbp.Arrival
	Epsilon  float64
}

// Client is a tenant: a named bundle of flows with a tail-latency SLO.
type Client struct {
	ID            uint32
	Name          string
	FlowIDs       []uint32
	SLOSeconds    float64
	SLOPercentile float64
	Latency       float64
}

// Less implements the §4.5 priority comparator: smaller priority wins,
// ties broken in favor of the higher-latency flow.
func Less(f1, f2 *Flow) bool {
	if f1.Priority != f2.Priority {
		return f1.Priority < f2.Priority
	}
	return f1.Latency > f2.Latency
}
