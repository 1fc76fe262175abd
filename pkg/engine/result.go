package engine

import (
	"fmt"
)

// State classifies the outcome of one channel in one cycle.
type State int

const (
	StateOK State = iota + 1
	// StateNone is the value before classification; it is never published.
	StateNone
	StateErrLo
	StateErrHi
	StateErr
	StateErrNoSensor
	StateErrNoSupport
)

var stateNames = map[State]string{
	StateOK:           "OK",
	StateNone:         "NONE",
	StateErrLo:        "ERR_LO",
	StateErrHi:        "ERR_HI",
	StateErr:          "ERR",
	StateErrNoSensor:  "ERR_NOSENSOR",
	StateErrNoSupport: "ERR_NOSUPPT",
}

// States returns every state in declaration order.
func States() []State {
	return []State{StateOK, StateNone, StateErrLo, StateErrHi, StateErr, StateErrNoSensor, StateErrNoSupport}
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	name, ok := stateNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown state %d", int(s))
	}
	return []byte(name), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	for state, name := range stateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}

// ChannelResult is the output of one cycle for one channel. Value and Unit
// are set only when State is StateOK.
type ChannelResult struct {
	Module  int      `json:"module"`
	Channel int      `json:"channel"`
	State   State    `json:"state"`
	Value   *float64 `json:"value"`
	Unit    *string  `json:"unit"`
}

func (r ChannelResult) String() string {
	if r.State != StateOK || r.Value == nil || r.Unit == nil {
		return fmt.Sprintf("module %d channel %d: %s", r.Module, r.Channel, r.State)
	}
	return fmt.Sprintf("module %d channel %d: %s %g %s", r.Module, r.Channel, r.State, *r.Value, *r.Unit)
}
