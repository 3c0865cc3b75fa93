package admission

import (
	"fmt"

	"github.com/snc-qos/admission-core/internal/registry"
)

// validateBatch checks syntax and uniqueness of every client descriptor in
// the batch, against both the live registry and the rest of the batch.
// Grounded in SNC-Meister.cpp's checkClientInfos/checkClientInfo/checkFlowInfo.
func (c *Controller) validateBatch(clients []ClientDescriptor) error {
	clientNames := make(map[string]struct{})
	flowNames := make(map[string]struct{})
	for _, cd := range clients {
		if err := c.validateClient(clientNames, flowNames, cd); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) validateClient(clientNames, flowNames map[string]struct{}, cd ClientDescriptor) error {
	if cd.Name == "" {
		return registry.NewStatusError(registry.MissingArgument, "client missing name")
	}
	if _, ok := c.reg.ClientByName(cd.Name); ok {
		return registry.NewStatusError(registry.ClientNameInUse, fmt.Sprintf("client %q already exists", cd.Name))
	}
	if _, ok := clientNames[cd.Name]; ok {
		return registry.NewStatusError(registry.ClientNameInUse, fmt.Sprintf("client %q already exists", cd.Name))
	}
	clientNames[cd.Name] = struct{}{}

	if cd.SLO <= 0 {
		return registry.NewStatusError(registry.InvalidArgument, fmt.Sprintf("client %q: SLO must be > 0", cd.Name))
	}
	if cd.SLOPercentile != nil && !(*cd.SLOPercentile > 0 && *cd.SLOPercentile < 100) {
		return registry.NewStatusError(registry.InvalidArgument, fmt.Sprintf("client %q: SLOpercentile must be in (0,100)", cd.Name))
	}
	if cd.Flows == nil {
		return registry.NewStatusError(registry.MissingArgument, fmt.Sprintf("client %q missing flows", cd.Name))
	}
	for _, fd := range cd.Flows {
		if err := c.validateFlow(flowNames, fd); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) validateFlow(flowNames map[string]struct{}, fd FlowDescriptor) error {
	if fd.Name == "" {
		return registry.NewStatusError(registry.MissingArgument, "flow missing name")
	}
	if _, ok := c.reg.FlowByName(fd.Name); ok {
		return registry.NewStatusError(registry.FlowNameInUse, fmt.Sprintf("flow %q already exists", fd.Name))
	}
	if _, ok := flowNames[fd.Name]; ok {
		return registry.NewStatusError(registry.FlowNameInUse, fmt.Sprintf("flow %q already exists", fd.Name))
	}
	flowNames[fd.Name] = struct{}{}

	if fd.Queues == nil {
		return registry.NewStatusError(registry.MissingArgument, fmt.Sprintf("flow %q missing queues", fd.Name))
	}
	for _, qn := range fd.Queues {
		if _, ok := c.reg.QueueByName(qn); !ok {
			return registry.NewStatusError(registry.QueueNameNonexistent, fmt.Sprintf("flow %q: queue %q does not exist", fd.Name, qn))
		}
	}
	if fd.ArrivalInfo == nil {
		return registry.NewStatusError(registry.MissingArgument, fmt.Sprintf("flow %q missing arrivalInfo", fd.Name))
	}
	return nil
}
