package domain

// LoopMode is the playback repeat policy. Toggling is pure state with no side
// effects; the browse loop consumes it when a track finishes.
type LoopMode int

const (
	LoopNone LoopMode = iota
	LoopSingle
	LoopAll
)

// Next cycles none -> single -> all -> none.
func (l LoopMode) Next() LoopMode {
	switch l {
	case LoopNone:
		return LoopSingle
	case LoopSingle:
		return LoopAll
	default:
		return LoopNone
	}
}

// String returns the name of the loop mode.
func (l LoopMode) String() string {
	switch l {
	case LoopSingle:
		return "single"
	case LoopAll:
		return "all"
	default:
		return "none"
	}
}

// Status returns the header indicator for the loop mode, empty when off.
func (l LoopMode) Status() string {
	switch l {
	case LoopSingle:
		return "[LOOP: SINGLE]"
	case LoopAll:
		return "[LOOP: ALL]"
	default:
		return ""
	}
}
