// Package mmbp fits a Markov-Modulated Bernoulli Process (C3) to a tenant
// trace: interval tally, LAMBDA state segmentation, transition matrix
// estimation, per-state MGF fitting, and spectral-radius evaluation.
package mmbp

import (
	"math"

	"github.com/snc-qos/admission-core/internal/estimator"
	"github.com/snc-qos/admission-core/internal/mgf"
)

// maxStatesHardLimit mirrors the original library's cap on fitted states.
const maxStatesHardLimit = 10

// Config tunes the fit; zero values fall back to the spec's defaults.
type Config struct {
	MaxStates            int
	IntervalWidthSeconds float64 // W
	StepSizeSeconds      float64 // discrete-time SNC step
}

func (c Config) withDefaults() Config {
	if c.MaxStates <= 0 || c.MaxStates > maxStatesHardLimit {
		c.MaxStates = maxStatesHardLimit
	}
	if c.IntervalWidthSeconds <= 0 {
		c.IntervalWidthSeconds = 1.0
	}
	if c.StepSizeSeconds <= 0 {
		c.StepSizeSeconds = 1e-5
	}
	return c
}

// Arrival is a fitted MMBP arrival process: a transition matrix over a
// finite set of states, a per-state request-size MGF, and the set of flow
// ids this arrival depends on (initialized to contain its own flow, per
// spec.md §4.3: "MMBP depends on itself").
type Arrival struct {
	cfg          Config
	Transition   [][]float64
	StateMGFs    []mgf.MGF
	Dependencies map[uint32]struct{}
	ownerFlow    uint32
}

// Fit builds an Arrival from a processed trace for the given flow id. mgfVariant
// selects the per-state MGF type (default: "exponential").
func Fit(entries []estimator.ProcessedTraceEntry, flowID uint32, cfg Config, mgfVariant string) (*Arrival, error) {
	cfg = cfg.withDefaults()
	if mgfVariant == "" {
		mgfVariant = "exponential"
	}

	intervalCount, intervalOf := tallyIntervals(entries, cfg.IntervalWidthSeconds)

	low, high := math.Inf(1), math.Inf(-1)
	for _, c := range intervalCount {
		if c < low {
			low = c
		}
		if c > high {
			high = c
		}
	}
	if math.IsInf(low, 1) {
		low, high = 0, 0
	}

	lambda, threshold, a := lambdaSegmentation(low, high, cfg.MaxStates)
	_ = a
	numStates := len(lambda)

	stateOfInterval := make([]int, len(intervalCount))
	for i, c := range intervalCount {
		stateOfInterval[i] = classifyInterval(threshold, c)
	}

	transition := buildTransitionMatrix(stateOfInterval, numStates, cfg.IntervalWidthSeconds, cfg.StepSizeSeconds)

	stateMGFs := make([]mgf.MGF, numStates)
	for k := range stateMGFs {
		m, err := mgf.New(mgfVariant)
		if err != nil {
			return nil, err
		}
		stateMGFs[k] = m
	}
	for idx, entry := range entries {
		interval := intervalOf[idx]
		if interval < 0 || interval >= len(stateOfInterval) {
			continue
		}
		state := stateOfInterval[interval]
		stateMGFs[state].AddSample(entry.Work, entry.IsGet)
	}
	for k, m := range stateMGFs {
		m.SetProbRequest(lambda[k] * cfg.StepSizeSeconds / cfg.IntervalWidthSeconds)
	}

	deps := map[uint32]struct{}{flowID: {}}

	return &Arrival{
		cfg:          cfg,
		Transition:   transition,
		StateMGFs:    stateMGFs,
		Dependencies: deps,
		ownerFlow:    flowID,
	}, nil
}

// Clone returns a copy of the arrival with its own independent Dependencies
// set. Transition and StateMGFs are never mutated after Fit, so they are
// shared rather than copied; only AddDependency writes through an Arrival
// pointer post-fit, which is why Dependencies is the one field a scratch
// registry (C7/C5) needs isolated from the original.
func (a *Arrival) Clone() *Arrival {
	deps := make(map[uint32]struct{}, len(a.Dependencies))
	for id := range a.Dependencies {
		deps[id] = struct{}{}
	}
	return &Arrival{
		cfg:          a.cfg,
		Transition:   a.Transition,
		StateMGFs:    a.StateMGFs,
		Dependencies: deps,
		ownerFlow:    a.ownerFlow,
	}
}

func tallyIntervals(entries []estimator.ProcessedTraceEntry, widthSeconds float64) (counts []float64, intervalOf []int) {
	if len(entries) == 0 {
		return nil, nil
	}
	widthNs := widthSeconds * 1e9
	maxIdx := 0
	intervalOf = make([]int, len(entries))
	for i, e := range entries {
		idx := int(float64(e.ArrivalTimeNs) / widthNs)
		intervalOf[i] = idx
		if idx > maxIdx {
			maxIdx = idx
		}
	}
	counts = make([]float64, maxIdx+1)
	for _, idx := range intervalOf {
		counts[idx]++
	}
	return counts, intervalOf
}

func buildTransitionMatrix(stateOfInterval []int, numStates int, widthSeconds, stepSizeSeconds float64) [][]float64 {
	t := make([][]float64, numStates)
	for i := range t {
		t[i] = make([]float64, numStates)
	}
	if len(stateOfInterval) < 2 {
		for i := range t {
			t[i][i] = 1
		}
		return t
	}

	transitionCounts := make([][]float64, numStates)
	stateIntervalCounts := make([]float64, numStates)
	for i := range transitionCounts {
		transitionCounts[i] = make([]float64, numStates)
	}
	for i := 0; i < len(stateOfInterval)-1; i++ {
		from, to := stateOfInterval[i], stateOfInterval[i+1]
		transitionCounts[from][to]++
		stateIntervalCounts[from]++
	}
	stateIntervalCounts[stateOfInterval[len(stateOfInterval)-1]]++

	for i := 0; i < numStates; i++ {
		durationI := widthSeconds * stateIntervalCounts[i]
		denom := math.Floor(durationI / stepSizeSeconds)
		if denom < 1 {
			denom = 1
		}
		offDiagSum := 0.0
		for j := 0; j < numStates; j++ {
			if j == i {
				continue
			}
			t[i][j] = transitionCounts[i][j] / denom
			offDiagSum += t[i][j]
		}
		t[i][i] = 1 - offDiagSum
	}
	return t
}
