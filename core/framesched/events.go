package framesched

import "fmt"

// Event is an input to Scheduler.HandleEvent.
type Event interface {
	isEvent()
}

// Configure is the compositor's size announcement. Zero sizes mean the
// client picks.
type Configure struct {
	Serial        uint32
	Width, Height int
}

// Redraw asks for the content to be repainted.
type Redraw struct{}

// FrameDone is the one-shot frame callback firing.
type FrameDone struct {
	Token uint32
}

// BufferRelease is the compositor giving a buffer back.
type BufferRelease struct {
	Handle uint32
}

// Scale is the output scale factor changing.
type Scale struct {
	Factor int
}

func (Configure) isEvent()     {}
func (Redraw) isEvent()        {}
func (FrameDone) isEvent()     {}
func (BufferRelease) isEvent() {}
func (Scale) isEvent()         {}

//----------

type ActionKind int

const (
	None   ActionKind = iota // nothing to do
	Submit                   // a frame was painted and committed
	Defer                    // a redraw is owed but could not be submitted now
	Ignore                   // stale or invalid event
	Queued                   // event arrived while handling another one
)

func (k ActionKind) String() string {
	switch k {
	case None:
		return "none"
	case Submit:
		return "submit"
	case Defer:
		return "defer"
	case Ignore:
		return "ignore"
	case Queued:
		return "queued"
	}
	return fmt.Sprintf("action(%d)", int(k))
}

// Action reports what HandleEvent did.
type Action struct {
	Kind   ActionKind
	Reason string // defer/ignore

	// submit only
	Width, Height int  // buffer size in pixels
	Realloc       bool // the buffer was (re)allocated for this frame
}

func (a Action) String() string {
	switch a.Kind {
	case Submit:
		return fmt.Sprintf("submit %dx%d realloc=%v", a.Width, a.Height, a.Realloc)
	case Defer, Ignore:
		return fmt.Sprintf("%v: %v", a.Kind, a.Reason)
	}
	return a.Kind.String()
}

//----------

type State int

const (
	Unconfigured State = iota
	Idle
	AwaitingFrame
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Idle:
		return "idle"
	case AwaitingFrame:
		return "awaitingframe"
	}
	return fmt.Sprintf("state(%d)", int(s))
}
