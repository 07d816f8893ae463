package model

import (
	"fmt"
	"time"
)

// TargetState is a target's position in its lifecycle. Every target moves
// Pending → Fetching → Extracting → Done, or branches to Failed from
// Fetching (fetch errors) or Extracting (parse errors).
//
// Design decision: We use iota-based constants rather than string constants
// for efficiency in comparisons. The String() method provides the
// human-readable form used in logs, events, and the history store.
type TargetState int

const (
	// StatePending means the target is enqueued and waiting for a worker.
	StatePending TargetState = iota

	// StateFetching means a worker is retrieving the target's document.
	StateFetching

	// StateExtracting means the document arrived and rules are being
	// applied.
	StateExtracting

	// StateDone means the target completed and its record (if any) was
	// appended to the result.
	StateDone

	// StateFailed means the target failed permanently and was appended to
	// the failure log.
	StateFailed
)

// String returns the lowercase name of the state.
func (s TargetState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateFetching:
		return "fetching"
	case StateExtracting:
		return "extracting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ParseTargetState converts a stored state name back into a TargetState.
func ParseTargetState(s string) (TargetState, error) {
	switch s {
	case "pending":
		return StatePending, nil
	case "fetching":
		return StateFetching, nil
	case "extracting":
		return StateExtracting, nil
	case "done":
		return StateDone, nil
	case "failed":
		return StateFailed, nil
	default:
		return 0, fmt.Errorf("unknown target state %q", s)
	}
}

// MarshalJSON renders the state as its lowercase name so event streams and
// stored history stay readable without this package's constants.
func (s TargetState) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON accepts the lowercase state name.
func (s *TargetState) UnmarshalJSON(data []byte) error {
	name := string(data)
	if len(name) >= 2 && name[0] == '"' && name[len(name)-1] == '"' {
		name = name[1 : len(name)-1]
	}
	parsed, err := ParseTargetState(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Event is one lifecycle notification: a target entered a state. The
// coordinator emits events synchronously on every transition; sinks (the
// logger adapter, the history store) must return quickly.
type Event struct {
	// Time is when the transition happened.
	Time time.Time `json:"time"`

	// URL identifies the target.
	URL string `json:"url"`

	// State is the state the target entered.
	State TargetState `json:"state"`

	// Detail carries the error text for failed states and is empty
	// otherwise.
	Detail string `json:"detail,omitempty"`

	// Attempts is the fetch attempt count at the time of the event.
	// Zero until the first attempt finishes.
	Attempts int `json:"attempts,omitempty"`
}
