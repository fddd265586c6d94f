package wire

import (
	"encoding/json"
	"fmt"
)

// envelope is the on-the-wire frame: a kind tag plus the raw payload.
// In-process transports pass Msg values directly; networked transports
// frame them with Encode/Decode.
type envelope struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Encode frames a message as JSON for a networked transport.
func Encode(m Msg) ([]byte, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", m.Kind(), err)
	}
	return json.Marshal(envelope{Kind: m.Kind(), Payload: payload})
}

// Decode is the inverse of Encode.
func Decode(data []byte) (Msg, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}

	unmarshal := func(into Msg) (Msg, error) {
		if err := json.Unmarshal(env.Payload, into); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s payload: %w", env.Kind, err)
		}
		return into, nil
	}

	switch env.Kind {
	case KindValue:
		m, err := unmarshal(&ValueMsg{})
		if err != nil {
			return nil, err
		}
		return *m.(*ValueMsg), nil
	case KindCost:
		m, err := unmarshal(&CostMsg{})
		if err != nil {
			return nil, err
		}
		return *m.(*CostMsg), nil
	case KindTerminate:
		m, err := unmarshal(&TerminateMsg{})
		if err != nil {
			return nil, err
		}
		return *m.(*TerminateMsg), nil
	case KindDFSView:
		m, err := unmarshal(&DFSViewMsg{})
		if err != nil {
			return nil, err
		}
		return *m.(*DFSViewMsg), nil
	case KindHeuristic:
		m, err := unmarshal(&HeuristicMsg{})
		if err != nil {
			return nil, err
		}
		return *m.(*HeuristicMsg), nil
	case KindStart:
		return StartMsg{}, nil
	case KindAssignment:
		m, err := unmarshal(&AssignmentMsg{})
		if err != nil {
			return nil, err
		}
		return *m.(*AssignmentMsg), nil
	case KindTrace:
		m, err := unmarshal(&TraceMsg{})
		if err != nil {
			return nil, err
		}
		return *m.(*TraceMsg), nil
	case KindAgentFinished:
		m, err := unmarshal(&AgentFinishedMsg{})
		if err != nil {
			return nil, err
		}
		return *m.(*AgentFinishedMsg), nil
	default:
		return nil, fmt.Errorf("unknown message kind %q", env.Kind)
	}
}
