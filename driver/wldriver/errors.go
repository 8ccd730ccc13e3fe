package wldriver

import "fmt"

// CapabilityError reports a global the compositor does not announce.
type CapabilityError struct {
	Interface string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("compositor doesn't support %v", e.Interface)
}

// ProtocolError is a fatal wl_display.error sent by the compositor.
type ProtocolError struct {
	ObjectID  uint32
	Interface string
	Code      uint32
	Message   string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("wldriver: protocol error on %v#%d, code %d: %v", e.Interface, e.ObjectID, e.Code, e.Message)
}
