package admission

import "github.com/snc-qos/admission-core/internal/registry"

// flowHop identifies one flow at one point along its own path — the Go
// analog of SNC-Meister.cpp's FlowIndex (flowId, index).
type flowHop struct {
	flowID uint32
	hop    int
}

// markAffectedFlows performs the DFS closure of spec.md §4.7 step 5: from a
// newly admitted flow's first hop, downstream through every queue it
// traverses, into every other flow incident on that queue (from the point
// each crosses it onward) whose priority is equal to or lower than the
// originating flow's (numerically ≥) — repeating
// downstream from there. Grounded in SNC-Meister.cpp's markAffectedFlows;
// the one deviation is forced by this repo's registry, which (unlike the
// original's per-queue FlowIndex incidence list) does not track at which
// hop index a flow crosses a given queue when it appears more than once on
// that flow's path — hopIndexAtQueue resolves this by first occurrence,
// sound because no flow in this domain traverses the same queue twice.
func markAffectedFlows(reg *registry.Registry, affected map[flowHop]struct{}, fi flowHop, priority int) {
	f, ok := reg.Flow(fi.flowID)
	if !ok {
		return
	}
	if f.Priority < priority {
		return
	}
	if _, seen := affected[fi]; seen {
		return
	}
	affected[fi] = struct{}{}

	for idx := fi.hop; idx < len(f.QueueIDs); idx++ {
		qid := f.QueueIDs[idx]
		for _, g := range reg.FlowsAtQueue(qid) {
			gi := hopIndexAtQueue(g, qid)
			if gi < 0 {
				continue
			}
			markAffectedFlows(reg, affected, flowHop{g.ID, gi}, f.Priority)
		}
	}
}

func hopIndexAtQueue(f *registry.Flow, queueID uint32) int {
	for i, qid := range f.QueueIDs {
		if qid == queueID {
			return i
		}
	}
	return -1
}

// affectedClientIDs collects the distinct client ids of every flow in an
// affected-flow set.
func affectedClientIDs(reg *registry.Registry, affected map[flowHop]struct{}) map[uint32]struct{} {
	out := make(map[uint32]struct{})
	for fi := range affected {
		if f, ok := reg.Flow(fi.flowID); ok {
			out[f.ClientID] = struct{}{}
		}
	}
	return out
}
