package mgf

import (
	"encoding/json"
	"fmt"
)

// envelope is the wire form of a fitted MGF: a type tag plus whatever state
// that variant needs to reproduce its fit without replaying samples.
type envelope struct {
	Type string          `json:"type"`
	P    float64         `json:"p"`
	State json.RawMessage `json:"state,omitempty"`
}

type deterministicState struct {
	Sum   float64 `json:"sum"`
	Count int     `json:"count"`
}

type exponentialState struct {
	TotalSize float64 `json:"totalSize"`
	Count     int     `json:"count"`
}

type hyperexponentialState struct {
	Sum        float64 `json:"sum"`
	SumSquares float64 `json:"sumSquares"`
	Count      int     `json:"count"`
}

type hyperexponentialGetPutState struct {
	GetTotalSize float64 `json:"getTotalSize"`
	GetCount     int     `json:"getCount"`
	PutTotalSize float64 `json:"putTotalSize"`
	PutCount     int     `json:"putCount"`
}

type empiricalState struct {
	Samples []float64 `json:"samples"`
}

// Marshal serializes a fitted MGF by tag plus its fitted state.
func Marshal(m MGF) ([]byte, error) {
	var env envelope
	switch v := m.(type) {
	case *Deterministic:
		env.Type = "deterministic"
		env.P = v.p
		state, err := json.Marshal(deterministicState{Sum: v.sum, Count: v.count})
		if err != nil {
			return nil, err
		}
		env.State = state
	case *Exponential:
		env.Type = "exponential"
		env.P = v.p
		state, err := json.Marshal(exponentialState{TotalSize: v.totalSize, Count: v.count})
		if err != nil {
			return nil, err
		}
		env.State = state
	case *Hyperexponential:
		env.Type = "hyperexponential"
		env.P = v.p
		state, err := json.Marshal(hyperexponentialState{Sum: v.sum, SumSquares: v.sumSquares, Count: v.count})
		if err != nil {
			return nil, err
		}
		env.State = state
	case *HyperexponentialGetPut:
		env.Type = "hyperexponentialGetPut"
		env.P = v.p
		state, err := json.Marshal(hyperexponentialGetPutState{
			GetTotalSize: v.getTotalSize, GetCount: v.getCount,
			PutTotalSize: v.putTotalSize, PutCount: v.putCount,
		})
		if err != nil {
			return nil, err
		}
		env.State = state
	case *Empirical:
		env.Type = "empirical"
		env.P = v.p
		state, err := json.Marshal(empiricalState{Samples: v.samples})
		if err != nil {
			return nil, err
		}
		env.State = state
	default:
		return nil, fmt.Errorf("mgf: unknown MGF implementation %T", m)
	}
	return json.Marshal(env)
}

// Unmarshal rebuilds an MGF from its tagged wire form.
func Unmarshal(data []byte) (MGF, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("mgf: invalid envelope: %w", err)
	}
	switch env.Type {
	case "deterministic":
		var s deterministicState
		if len(env.State) > 0 {
			if err := json.Unmarshal(env.State, &s); err != nil {
				return nil, err
			}
		}
		m := &Deterministic{sum: s.Sum, count: s.Count}
		m.p = env.P
		return m, nil
	case "exponential":
		var s exponentialState
		if len(env.State) > 0 {
			if err := json.Unmarshal(env.State, &s); err != nil {
				return nil, err
			}
		}
		m := &Exponential{totalSize: s.TotalSize, count: s.Count}
		m.p = env.P
		return m, nil
	case "hyperexponential":
		var s hyperexponentialState
		if len(env.State) > 0 {
			if err := json.Unmarshal(env.State, &s); err != nil {
				return nil, err
			}
		}
		m := &Hyperexponential{sum: s.Sum, sumSquares: s.SumSquares, count: s.Count}
		m.p = env.P
		return m, nil
	case "hyperexponentialGetPut":
		var s hyperexponentialGetPutState
		if len(env.State) > 0 {
			if err := json.Unmarshal(env.State, &s); err != nil {
				return nil, err
			}
		}
		m := &HyperexponentialGetPut{
			getTotalSize: s.GetTotalSize, getCount: s.GetCount,
			putTotalSize: s.PutTotalSize, putCount: s.PutCount,
		}
		m.p = env.P
		return m, nil
	case "empirical":
		var s empiricalState
		if len(env.State) > 0 {
			if err := json.Unmarshal(env.State, &s); err != nil {
				return nil, err
			}
		}
		m := &Empirical{samples: s.Samples, cache: make(map[float64]float64)}
		m.p = env.P
		return m, nil
	default:
		return nil, fmt.Errorf("mgf: unknown type %q", env.Type)
	}
}

// New constructs a fresh, unfit MGF of the named variant, for building
// arrival models before replaying a trace through AddSample.
func New(variant string) (MGF, error) {
	switch variant {
	case "deterministic":
		return NewDeterministic(), nil
	case "exponential":
		return NewExponential(), nil
	case "hyperexponential":
		return NewHyperexponential(), nil
	case "hyperexponentialGetPut":
		return NewHyperexponentialGetPut(), nil
	case "empirical":
		return NewEmpirical(), nil
	default:
		return nil, fmt.Errorf("mgf: unknown variant %q", variant)
	}
}
