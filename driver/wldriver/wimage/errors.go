package wimage

import "fmt"

// ResourceError reports a failure to obtain or map shared memory.
type ResourceError struct {
	Op   string
	Size int
	Err  error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("wimage: %v (%d bytes): %v", e.Op, e.Size, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}
