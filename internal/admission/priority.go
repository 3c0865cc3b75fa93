package admission

import (
	"sort"

	"github.com/snc-qos/admission-core/internal/registry"
)

// assignPrioritiesBySLO walks every registered client in ascending SLO
// order and assigns each of its flows a priority, incrementing the
// priority counter whenever the running SLO threshold is strictly
// exceeded — so ties in SLO share a priority. Grounded in
// priorityAlgoBySLO.cpp's configurePrioritiesBySLO, with the increment
// moved to *after* assigning the current group (see SPEC_FULL.md §9):
// the smallest SLO gets priority 0, not 1.
func assignPrioritiesBySLO(reg *registry.Registry) {
	clients := reg.Clients()
	sort.SliceStable(clients, func(i, j int) bool {
		return clients[i].SLOSeconds < clients[j].SLOSeconds
	})

	priority := 0
	currentSLO := -1.0
	for i, client := range clients {
		if i > 0 && client.SLOSeconds > currentSLO {
			priority++
		}
		currentSLO = client.SLOSeconds
		for _, fid := range client.FlowIDs {
			reg.SetFlowPriority(fid, priority)
		}
	}
}
