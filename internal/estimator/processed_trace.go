package estimator

// ProcessedTraceEntry is one estimated sample from a tenant's trace: the
// arrival timestamp, the estimated work, and whether it was a get.
type ProcessedTraceEntry struct {
	ArrivalTimeNs uint64
	Work          float64
	IsGet         bool
}

// ProcessedTrace wraps a TraceReader and an Estimator, translating raw
// (size, isGet) samples into the (arrival_time, work, is_get) stream the
// rest of the engine consumes.
type ProcessedTrace struct {
	reader    *TraceReader
	estimator Estimator
}

// NewProcessedTrace builds a ProcessedTrace over an already-parsed reader.
func NewProcessedTrace(reader *TraceReader, estimator Estimator) *ProcessedTrace {
	return &ProcessedTrace{reader: reader, estimator: estimator}
}

// Next returns the next processed entry, or ok=false once exhausted.
func (p *ProcessedTrace) Next() (ProcessedTraceEntry, bool) {
	raw, ok := p.reader.Next()
	if !ok {
		return ProcessedTraceEntry{}, false
	}
	return ProcessedTraceEntry{
		ArrivalTimeNs: raw.ArrivalNs,
		Work:          p.estimator.Estimate(raw.SizeBytes, raw.IsGet),
		IsGet:         raw.IsGet,
	}, true
}

// Reset rewinds the underlying trace to its first entry.
func (p *ProcessedTrace) Reset() {
	p.reader.Reset()
}

// All estimates and returns every entry in the trace without disturbing the
// cursor.
func (p *ProcessedTrace) All() []ProcessedTraceEntry {
	raw := p.reader.All()
	out := make([]ProcessedTraceEntry, len(raw))
	for i, r := range raw {
		out[i] = ProcessedTraceEntry{
			ArrivalTimeNs: r.ArrivalNs,
			Work:          p.estimator.Estimate(r.SizeBytes, r.IsGet),
			IsGet:         r.IsGet,
		}
	}
	return out
}
