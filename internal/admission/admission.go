// Package admission implements the admission controller (C7): the seven-
// step add_clients algorithm, del_client/add_queue/del_queue pass-throughs,
// and the Enforcer wiring that follows a commit or delete. Grounded in
// original_source/SNC-Meister/SNC-Meister.cpp's
// snc_meister_add_clients_svc/snc_meister_del_client_svc and
// priorityAlgoBySLO.cpp.
package admission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/snc-qos/admission-core/internal/analysis"
	"github.com/snc-qos/admission-core/internal/enforcer"
	"github.com/snc-qos/admission-core/internal/mmbp"
	"github.com/snc-qos/admission-core/internal/registry"
	"github.com/snc-qos/admission-core/pkg/logger"
)

// Controller owns the registry and serializes every admission decision
// through a single mutex, playing the role spec.md §5 assigns to "one
// logical worker" — the concurrent-RPC-ingress-must-be-serialized-before-
// entry requirement is met by holding this lock for the duration of each
// operation.
type Controller struct {
	mu       sync.Mutex
	reg      *registry.Registry
	strategy analysis.Strategy
	stepSize float64
	mmbpCfg  mmbp.Config
	enf      enforcer.Enforcer
	log      *slog.Logger

	// descriptors caches each admitted client's original descriptor, so
	// DelClient can replay enforcerAddr/dstAddr/srcAddr per flow on removal
	// without the registry itself needing to know about the enforcer.
	descriptors map[uint32]ClientDescriptor
}

// New builds a Controller around an existing registry.
func New(reg *registry.Registry, strategy analysis.Strategy, stepSize float64, mmbpCfg mmbp.Config, enf enforcer.Enforcer) *Controller {
	return &Controller{
		reg:         reg,
		strategy:    strategy,
		stepSize:    stepSize,
		mmbpCfg:     mmbpCfg,
		enf:         enf,
		log:         logger.Default,
		descriptors: make(map[uint32]ClientDescriptor),
	}
}

// AddClientsResult is the outcome of one AddClients call.
type AddClientsResult struct {
	Admitted bool
	Status   registry.Status
}

// statusResult maps a registry error to a negative-but-successful-check
// result when it carries a *StatusError, or returns err unchanged
// otherwise (an internal error the caller should treat as a failure, not
// an admission verdict).
func statusResult(err error) (AddClientsResult, error) {
	var se *registry.StatusError
	if errors.As(err, &se) {
		return AddClientsResult{Admitted: false, Status: se.Status}, nil
	}
	return AddClientsResult{}, err
}

// AddClients runs the full seven-step admission algorithm of spec.md §4.7.
func (c *Controller) AddClients(ctx context.Context, clients []ClientDescriptor) (AddClientsResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	batchID := uuid.NewString()
	log := c.log.With("batch_id", batchID, "op", "add_clients", "client_count", len(clients))

	// Step 1: validate syntax and uniqueness.
	if err := c.validateBatch(clients); err != nil {
		log.Info("add_clients rejected at validation", "error", err)
		return statusResult(err)
	}

	// Steps 2-6 run entirely against a scratch clone of the registry, per
	// spec.md §9: new client/flow records are built there, dependencies are
	// wired there, and the whole latency sweep runs there. Nothing is
	// written to the live registry until admitted is known, so a rejected
	// batch never has to undo anything on the live side — unlike
	// original_source/SNC-Meister/SNC-Meister.cpp's in-place mutate-then-
	// rollback, which this avoids entirely rather than reproducing.
	scratch := c.reg.Clone()

	// Step 2: add clients and flows to the scratch registry.
	added, err := c.stageClients(scratch, clients)
	if err != nil {
		log.Info("add_clients rejected while staging", "error", err)
		return statusResult(err)
	}

	// Step 3: wire dependencies.
	for _, cd := range clients {
		for _, dep := range cd.Dependencies {
			if err := scratch.AddDependency(cd.Name, dep); err != nil {
				log.Info("add_clients rejected wiring dependencies", "error", err)
				return statusResult(err)
			}
		}
	}

	// Step 4: assign priorities by SLO across the whole scratch registry.
	assignPrioritiesBySLO(scratch)

	newClientIDs := make(map[uint32]struct{}, len(added))
	for _, client := range added {
		newClientIDs[client.ID] = struct{}{}
	}

	// Step 5: latency sweep over the newly added clients, accumulating the
	// affected-flow closure as we go.
	admitted := true
	affected := make(map[flowHop]struct{})
	for _, client := range added {
		if !c.checkClientLatency(scratch, client) {
			admitted = false
			break
		}
		for _, fid := range client.FlowIDs {
			markAffectedFlows(scratch, affected, flowHop{flowID: fid, hop: 0}, 0)
		}
	}

	// Step 6: recheck affected incumbent clients.
	if admitted {
		for cid := range affectedClientIDs(scratch, affected) {
			if _, isNew := newClientIDs[cid]; isNew {
				continue
			}
			client, ok := scratch.Client(cid)
			if !ok {
				continue
			}
			if !c.checkClientLatency(scratch, client) {
				admitted = false
				break
			}
		}
	}

	// Step 7: splice the scratch registry in as the new live one, or
	// discard it. Rejection leaves c.reg — and every incumbent's Flow.Latency
	// and Client.Latency — untouched, since scratch was never anything but
	// an independent copy.
	if !admitted {
		log.Info("add_clients rejected: SLO violation")
		return AddClientsResult{Admitted: false, Status: registry.Success}, nil
	}

	c.reg = scratch
	for _, cd := range clients {
		if client, ok := c.reg.ClientByName(cd.Name); ok {
			c.descriptors[client.ID] = cd
		}
	}
	c.notifyEnforcer(ctx, clients)
	log.Info("add_clients admitted")
	return AddClientsResult{Admitted: true, Status: registry.Success}, nil
}

// checkClientLatency recomputes the latency of every flow of client, against
// reg, via the configured SNC analysis and rolls the result up; it returns
// false if the client's SLO is violated.
func (c *Controller) checkClientLatency(reg *registry.Registry, client *registry.Client) bool {
	for _, fid := range client.FlowIDs {
		if _, err := analysis.CalcFlowLatency(reg, c.strategy, c.stepSize, fid); err != nil {
			c.log.Warn("latency analysis failed", "flow_id", fid, "error", err)
			return false
		}
	}
	latency, err := reg.ClientLatency(client.ID)
	if err != nil {
		return false
	}
	return latency <= client.SLOSeconds
}

// stageClients fits each flow's MMBP arrival and adds every client
// transactionally into reg (the scratch clone) — a failure here just leaves
// that clone partially built; it is never committed, so nothing needs
// unwinding.
func (c *Controller) stageClients(reg *registry.Registry, clients []ClientDescriptor) ([]*registry.Client, error) {
	added := make([]*registry.Client, 0, len(clients))
	for _, cd := range clients {
		flowSpecs := make([]registry.FlowSpec, len(cd.Flows))
		for i, fd := range cd.Flows {
			fid := reg.ReserveFlowID()
			arrival, err := fitArrival(fd.ArrivalInfo, fid, c.mmbpCfg)
			if err != nil {
				return nil, registry.NewStatusError(registry.InvalidArgument, fmt.Sprintf("flow %q: %v", fd.Name, err))
			}
			flowSpecs[i] = registry.FlowSpec{
				ID:         fid,
				Name:       fd.Name,
				QueueNames: fd.Queues,
				Arrival:    arrival,
				Priority:   fd.Priority,
			}
		}

		client, err := reg.AddClient(registry.ClientSpec{
			Name:          cd.Name,
			SLOSeconds:    cd.SLO,
			SLOPercentile: cd.sloPercentile(),
			Flows:         flowSpecs,
		})
		if err != nil {
			return nil, err
		}

		epsilon := 1 - cd.sloPercentile()/100
		for _, fd := range cd.Flows {
			if flow, ok := reg.FlowByName(fd.Name); ok {
				flow.Epsilon = epsilon
			}
		}

		added = append(added, client)
	}
	return added, nil
}

// notifyEnforcer fires one Update per flow of the newly admitted clients
// whose descriptor carries all three enforcer address fields.
func (c *Controller) notifyEnforcer(ctx context.Context, clients []ClientDescriptor) {
	if c.enf == nil {
		return
	}
	for _, cd := range clients {
		for _, fd := range cd.Flows {
			if !fd.hasEnforcerAddrs() {
				continue
			}
			flow, ok := c.reg.FlowByName(fd.Name)
			if !ok {
				continue
			}
			if err := c.enf.Update(ctx, fd.EnforcerAddr, fd.DstAddr, fd.SrcAddr, flow.Priority); err != nil {
				c.log.Warn("enforcer update failed", "flow", fd.Name, "error", err)
			}
		}
	}
}

// DelClient removes a client, replaying a Remove to the enforcer for every
// flow of it whose descriptor carried enforcer address fields.
func (c *Controller) DelClient(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	client, ok := c.reg.ClientByName(name)
	if !ok {
		return registry.NewStatusError(registry.ClientNameNonexistent, fmt.Sprintf("client %q does not exist", name))
	}
	if cd, ok := c.descriptors[client.ID]; ok && c.enf != nil {
		for _, fd := range cd.Flows {
			if !fd.hasEnforcerAddrs() {
				continue
			}
			if err := c.enf.Remove(ctx, fd.EnforcerAddr, fd.DstAddr, fd.SrcAddr); err != nil {
				c.log.Warn("enforcer remove failed", "flow", fd.Name, "error", err)
			}
		}
	}
	delete(c.descriptors, client.ID)
	return c.reg.DelClient(name)
}

// AddQueue delegates to the registry.
func (c *Controller) AddQueue(name string, bandwidth float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name == "" {
		return registry.NewStatusError(registry.MissingArgument, "queue missing name")
	}
	if bandwidth <= 0 {
		return registry.NewStatusError(registry.InvalidArgument, "queue bandwidth must be > 0")
	}
	_, err := c.reg.AddQueue(name, bandwidth)
	return err
}

// DelQueue delegates to the registry.
func (c *Controller) DelQueue(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reg.DelQueue(name)
}

// Registry exposes the underlying registry for read-only introspection
// endpoints (internal/httpapi's ListQueues/ListClients).
func (c *Controller) Registry() *registry.Registry {
	return c.reg
}
