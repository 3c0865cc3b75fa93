package registry

import (
	"fmt"

	"github.com/snc-qos/admission-core/internal/mmbp"
)

// FlowSpec describes one flow to be created as part of AddClient, already
// resolved to the point where only registry-level structural checks (name
// uniqueness, queue existence) remain; syntactic validation of the raw
// descriptor is the admission controller's job (C7).
type FlowSpec struct {
	Name       string
	QueueNames []string
	Arrival    *mmbp.Arrival
	Priority   *int
	// ID, if nonzero, is used as the flow's id instead of auto-assigning
	// one. Set via ReserveFlowID when a caller needs to know a flow's final
	// id before building its arrival (the MMBP fit self-references it).
	ID uint32
}

// ClientSpec describes one client to be created as part of AddClient.
type ClientSpec struct {
	Name          string
	SLOSeconds    float64
	SLOPercentile float64
	Flows         []FlowSpec
}

// Registry owns every Queue, Flow, and Client record and their name/id
// tables, per spec.md §4.5. It is the admission controller's only
// process-wide mutable state.
type Registry struct {
	queues       map[uint32]*Queue
	queueIDByName map[string]uint32

	flows       map[uint32]*Flow
	flowIDByName map[string]uint32

	clients       map[uint32]*Client
	clientIDByName map[string]uint32

	nextQueueID  uint32
	nextFlowID   uint32
	nextClientID uint32
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		queues:         make(map[uint32]*Queue),
		queueIDByName:  make(map[string]uint32),
		flows:          make(map[uint32]*Flow),
		flowIDByName:   make(map[string]uint32),
		clients:        make(map[uint32]*Client),
		clientIDByName: make(map[string]uint32),
	}
}

// AddQueue registers a new queue. Fails with QueueNameInUse if the name is
// already taken.
func (r *Registry) AddQueue(name string, bandwidth float64) (*Queue, error) {
	if _, ok := r.queueIDByName[name]; ok {
		return nil, NewStatusError(QueueNameInUse, fmt.Sprintf("queue %q already exists", name))
	}
	r.nextQueueID++
	id := r.nextQueueID
	q := &Queue{ID: id, Name: name, Bandwidth: bandwidth, FlowIDs: make(map[uint32]struct{})}
	r.queues[id] = q
	r.queueIDByName[name] = id
	return q, nil
}

// DelQueue removes a queue by name. Fails with QueueNameNonexistent if
// unknown, or QueueHasActiveFlows if any flow still traverses it.
func (r *Registry) DelQueue(name string) error {
	id, ok := r.queueIDByName[name]
	if !ok {
		return NewStatusError(QueueNameNonexistent, fmt.Sprintf("queue %q does not exist", name))
	}
	q := r.queues[id]
	if len(q.FlowIDs) > 0 {
		return NewStatusError(QueueHasActiveFlows, fmt.Sprintf("queue %q still has active flows", name))
	}
	delete(r.queues, id)
	delete(r.queueIDByName, name)
	return nil
}

// Queue looks up a queue by id.
func (r *Registry) Queue(id uint32) (*Queue, bool) {
	q, ok := r.queues[id]
	return q, ok
}

// QueueByName looks up a queue by name.
func (r *Registry) QueueByName(name string) (*Queue, bool) {
	id, ok := r.queueIDByName[name]
	if !ok {
		return nil, false
	}
	return r.queues[id], true
}

// Queues returns every registered queue, for introspection endpoints.
func (r *Registry) Queues() []*Queue {
	out := make([]*Queue, 0, len(r.queues))
	for _, q := range r.queues {
		out = append(out, q)
	}
	return out
}

// FlowByName looks up a flow by name.
func (r *Registry) FlowByName(name string) (*Flow, bool) {
	id, ok := r.flowIDByName[name]
	if !ok {
		return nil, false
	}
	return r.flows[id], true
}

// Flow looks up a flow by id.
func (r *Registry) Flow(id uint32) (*Flow, bool) {
	f, ok := r.flows[id]
	return f, ok
}

// Client looks up a client by id.
func (r *Registry) Client(id uint32) (*Client, bool) {
	c, ok := r.clients[id]
	return c, ok
}

// ClientByName looks up a client by name.
func (r *Registry) ClientByName(name string) (*Client, bool) {
	id, ok := r.clientIDByName[name]
	if !ok {
		return nil, false
	}
	return r.clients[id], true
}

// Clients returns every registered client, for introspection endpoints.
func (r *Registry) Clients() []*Client {
	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

// ReserveFlowID advances the flow id sequence and returns the reserved id,
// without creating a flow record. Callers that must know a flow's final id
// before building its arrival (MMBP fitting self-references the flow id)
// reserve one here and pass it back via FlowSpec.ID.
func (r *Registry) ReserveFlowID() uint32 {
	r.nextFlowID++
	return r.nextFlowID
}

// Clone returns a deep copy: every queue, flow, and client is a fresh
// record (so priority/latency writes on one registry never leak into the
// other), and every flow's arrival carries its own independent dependency
// set. Used by the admission controller (C7) to stage a batch against a
// scratch registry and discard it on rejection without ever touching the
// live one, per spec.md §9.
func (r *Registry) Clone() *Registry {
	clone := &Registry{
		queues:         make(map[uint32]*Queue, len(r.queues)),
		queueIDByName:  make(map[string]uint32, len(r.queueIDByName)),
		flows:          make(map[uint32]*Flow, len(r.flows)),
		flowIDByName:   make(map[string]uint32, len(r.flowIDByName)),
		clients:        make(map[uint32]*Client, len(r.clients)),
		clientIDByName: make(map[string]uint32, len(r.clientIDByName)),
		nextQueueID:    r.nextQueueID,
		nextFlowID:     r.nextFlowID,
		nextClientID:   r.nextClientID,
	}
	for id, q := range r.queues {
		flowIDs := make(map[uint32]struct{}, len(q.FlowIDs))
		for fid := range q.FlowIDs {
			flowIDs[fid] = struct{}{}
		}
		clone.queues[id] = &Queue{ID: q.ID, Name: q.Name, Bandwidth: q.Bandwidth, FlowIDs: flowIDs}
	}
	for name, id := range r.queueIDByName {
		clone.queueIDByName[name] = id
	}
	for id, f := range r.flows {
		clone.flows[id] = &Flow{
			ID:       f.ID,
			Name:     f.Name,
			ClientID: f.ClientID,
			QueueIDs: append([]uint32(nil), f.QueueIDs...),
			Priority: f.Priority,
			Latency:  f.Latency,
			Arrival:  f.Arrival.Clone(),
			Epsilon:  f.Epsilon,
		}
	}
	for name, id := range r.flowIDByName {
		clone.flowIDByName[name] = id
	}
	for id, cl := range r.clients {
		clone.clients[id] = &Client{
			ID:            cl.ID,
			Name:          cl.Name,
			FlowIDs:       append([]uint32(nil), cl.FlowIDs...),
			SLOSeconds:    cl.SLOSeconds,
			SLOPercentile: cl.SLOPercentile,
			Latency:       cl.Latency,
		}
	}
	for name, id := range r.clientIDByName {
		clone.clientIDByName[name] = id
	}
	return clone
}

// AddClient transactionally registers a client and all of its flows. On any
// error, no partial state is left behind.
func (r *Registry) AddClient(spec ClientSpec) (*Client, error) {
	if _, ok := r.clientIDByName[spec.Name]; ok {
		return nil, NewStatusError(ClientNameInUse, fmt.Sprintf("client %q already exists", spec.Name))
	}
	for _, fs := range spec.Flows {
		if _, ok := r.flowIDByName[fs.Name]; ok {
			return nil, NewStatusError(FlowNameInUse, fmt.Sprintf("flow %q already exists", fs.Name))
		}
	}

	queueIDSets := make([][]uint32, len(spec.Flows))
	for i, fs := range spec.Flows {
		ids := make([]uint32, len(fs.QueueNames))
		for j, qn := range fs.QueueNames {
			qid, ok := r.queueIDByName[qn]
			if !ok {
				return nil, NewStatusError(QueueNameNonexistent, fmt.Sprintf("queue %q does not exist", qn))
			}
			ids[j] = qid
		}
		queueIDSets[i] = ids
	}

	r.nextClientID++
	clientID := r.nextClientID
	client := &Client{
		ID:            clientID,
		Name:          spec.Name,
		SLOSeconds:    spec.SLOSeconds,
		SLOPercentile: spec.SLOPercentile,
	}

	flowIDs := make([]uint32, 0, len(spec.Flows))
	for i, fs := range spec.Flows {
		fid := fs.ID
		if fid == 0 {
			r.nextFlowID++
			fid = r.nextFlowID
		}
		priority := 0
		if fs.Priority != nil {
			priority = *fs.Priority
		}
		flow := &Flow{
			ID:       fid,
			Name:     fs.Name,
			ClientID: clientID,
			QueueIDs: queueIDSets[i],
			Priority: priority,
			Arrival:  fs.Arrival,
		}
		r.flows[fid] = flow
		r.flowIDByName[fs.Name] = fid
		flowIDs = append(flowIDs, fid)

		for _, qid := range queueIDSets[i] {
			r.queues[qid].FlowIDs[fid] = struct{}{}
		}
	}

	client.FlowIDs = flowIDs
	r.clients[clientID] = client
	r.clientIDByName[spec.Name] = clientID
	return client, nil
}

// DelClient removes a client and cascades the deletion to all of its flows,
// detaching them from every queue they traversed.
func (r *Registry) DelClient(name string) error {
	id, ok := r.clientIDByName[name]
	if !ok {
		return NewStatusError(ClientNameNonexistent, fmt.Sprintf("client %q does not exist", name))
	}
	client := r.clients[id]
	for _, fid := range client.FlowIDs {
		flow := r.flows[fid]
		for _, qid := range flow.QueueIDs {
			delete(r.queues[qid].FlowIDs, fid)
		}
		delete(r.flows, fid)
		delete(r.flowIDByName, flow.Name)
	}
	delete(r.clients, id)
	delete(r.clientIDByName, name)
	return nil
}

// SetFlowPriority sets a flow's priority by id.
func (r *Registry) SetFlowPriority(flowID uint32, priority int) error {
	flow, ok := r.flows[flowID]
	if !ok {
		return NewStatusError(FlowNameNonexistent, fmt.Sprintf("flow id %d does not exist", flowID))
	}
	flow.Priority = priority
	return nil
}

// AddDependency makes every flow of client A depend, in its MMBP arrival's
// dependency set, on every flow of client B, and vice versa. Symmetric and
// idempotent.
func (r *Registry) AddDependency(clientAName, clientBName string) error {
	a, ok := r.clientIDByName[clientAName]
	if !ok {
		return NewStatusError(ClientNameNonexistent, fmt.Sprintf("client %q does not exist", clientAName))
	}
	b, ok := r.clientIDByName[clientBName]
	if !ok {
		return NewStatusError(ClientNameNonexistent, fmt.Sprintf("client %q does not exist", clientBName))
	}

	clientA, clientB := r.clients[a], r.clients[b]
	for _, fa := range clientA.FlowIDs {
		for _, fb := range clientB.FlowIDs {
			if fa == fb {
				continue
			}
			r.flows[fa].Arrival.AddDependency(fb)
			r.flows[fb].Arrival.AddDependency(fa)
		}
	}
	return nil
}

// SetFlowLatency records the latency most recently computed for a flow by
// an SNC analysis (C6). The registry does not run analyses itself.
func (r *Registry) SetFlowLatency(flowID uint32, latency float64) {
	if flow, ok := r.flows[flowID]; ok {
		flow.Latency = latency
	}
}

// ClientLatency sums the latencies of all of a client's flows, as currently
// recorded, and writes the sum back onto the client record.
func (r *Registry) ClientLatency(clientID uint32) (float64, error) {
	client, ok := r.clients[clientID]
	if !ok {
		return 0, NewStatusError(ClientNameNonexistent, fmt.Sprintf("client id %d does not exist", clientID))
	}
	sum := 0.0
	for _, fid := range client.FlowIDs {
		sum += r.flows[fid].Latency
	}
	client.Latency = sum
	return sum, nil
}

// AllLatencies recomputes and returns ClientLatency for every client.
func (r *Registry) AllLatencies() map[uint32]float64 {
	out := make(map[uint32]float64, len(r.clients))
	for id := range r.clients {
		out[id], _ = r.ClientLatency(id)
	}
	return out
}

// FlowsAtQueue returns every flow currently incident on the queue with the
// given id.
func (r *Registry) FlowsAtQueue(queueID uint32) []*Flow {
	q, ok := r.queues[queueID]
	if !ok {
		return nil
	}
	out := make([]*Flow, 0, len(q.FlowIDs))
	for fid := range q.FlowIDs {
		out = append(out, r.flows[fid])
	}
	return out
}

// AllFlows returns every registered flow.
func (r *Registry) AllFlows() []*Flow {
	out := make([]*Flow, 0, len(r.flows))
	for _, f := range r.flows {
		out = append(out, f)
	}
	return out
}
