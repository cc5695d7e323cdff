package engine

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// State is the parsed lifecycle state of a compose project.
type State int

const (
	// StateUnknown means the engine's status string was not parsable.
	StateUnknown State = iota

	// StateRunning means at least one container is running.
	StateRunning

	// StateStopped means containers exist but none are running.
	StateStopped

	// StateRemoved means the project is registered with zero containers.
	StateRemoved

	// StateNotStarted means a definition exists but the engine has never
	// seen the project. Assigned by the reconciler, never parsed.
	StateNotStarted
)

// String returns the lower-case state name used in logs and CLI output.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateRemoved:
		return "removed"
	case StateNotStarted:
		return "not started"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the state as its string name in API and CLI output.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// statusPattern matches the engine's "<state>(<count>)" status shape.
var statusPattern = regexp.MustCompile(`^([a-z]+)\((\d+)\)`)

// ParseStatus maps an engine-reported status string to a State and container
// count. Mixed statuses like "running(2), exited(1)" are classified by their
// first segment. Anything unparsable maps to StateUnknown with count 0; the
// caller keeps the raw string for display.
func ParseStatus(raw string) (State, int) {
	m := statusPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return StateUnknown, 0
	}

	count, err := strconv.Atoi(m[2])
	if err != nil {
		return StateUnknown, 0
	}

	switch m[1] {
	case "running":
		return StateRunning, count
	case "exited":
		if count > 0 {
			return StateStopped, count
		}
		return StateRemoved, 0
	default:
		return StateUnknown, count
	}
}
