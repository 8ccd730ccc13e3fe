// Package bufpooltest provides an in-memory bufpool.Allocator.
package bufpooltest

import (
	"fmt"

	"github.com/jmigpin/wlpanel/core/bufpool"
)

// Allocator hands out heap backed buffers with increasing handles.
type Allocator struct {
	Fail bool // next allocations fail while set

	Allocs  []Alloc
	Closed  []uint32
	handles uint32
}

type Alloc struct {
	Handle                uint32
	Width, Height, Stride int
}

func (a *Allocator) Allocate(width, height, stride int) (bufpool.Backing, error) {
	if a.Fail {
		return nil, fmt.Errorf("bufpooltest: allocation failure")
	}
	a.handles++
	a.Allocs = append(a.Allocs, Alloc{a.handles, width, height, stride})
	return &backing{a: a, handle: a.handles, pix: make([]byte, stride*height)}, nil
}

// Live returns the number of allocated and not yet closed backings.
func (a *Allocator) Live() int {
	return len(a.Allocs) - len(a.Closed)
}

type backing struct {
	a      *Allocator
	handle uint32
	pix    []byte
	closed bool
}

func (b *backing) Handle() uint32 { return b.handle }
func (b *backing) Pix() []byte    { return b.pix }
func (b *backing) Close() error {
	if b.closed {
		return fmt.Errorf("bufpooltest: double close of %v", b.handle)
	}
	b.closed = true
	b.a.Closed = append(b.a.Closed, b.handle)
	return nil
}
