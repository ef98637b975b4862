package session

import "fmt"

// State is the session's position in the produce/export lifecycle.
type State int

const (
	Idle State = iota
	Encoding
	AwaitingAsset
	Composed
	Exported
	Discarded
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Encoding:
		return "encoding"
	case AwaitingAsset:
		return "awaiting_asset"
	case Composed:
		return "composed"
	case Exported:
		return "exported"
	case Discarded:
		return "discarded"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Event reports a state the session entered. Err is set when the transition
// was caused by a failure.
type Event struct {
	State State
	Err   error
}
