// Package bufpool selects and (re)allocates the shared memory buffers a
// surface is drawn into.
package bufpool

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmigpin/wlpanel/util/logutil"
)

// Size is the number of slots: double buffering.
const Size = 2

var ErrAllBusy = errors.New("bufpool: all buffers busy")

// Pool is a fixed set of buffer slots. Not safe for concurrent use; it lives
// on the event loop goroutine.
type Pool struct {
	alloc  Allocator
	logger *slog.Logger
	slots  [Size]*Buffer // nil until first used
	stats  Stats
}

type Stats struct {
	Allocs   int // backings created
	Failures int // allocation failures
	Stale    int // release signals for unknown handles
}

func NewPool(alloc Allocator, logger *slog.Logger) *Pool {
	return &Pool{alloc: alloc, logger: logutil.OrDiscard(logger)}
}

//----------

// Acquire returns the first free buffer, (re)allocated to width x height,
// and marks it busy. Returns ErrAllBusy when every slot is busy, or a
// wrapped allocation error; in both cases the caller should defer.
func (p *Pool) Acquire(width, height int) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("bufpool: bad size %dx%d", width, height)
	}

	i := p.firstFree()
	if i < 0 {
		return nil, ErrAllBusy
	}

	b := p.slots[i]
	realloc := b == nil || b.width != width || b.height != height
	if realloc {
		if b != nil {
			p.logger.Debug("bufpool: resize", "slot", i,
				"from", fmt.Sprintf("%dx%d", b.width, b.height),
				"to", fmt.Sprintf("%dx%d", width, height))
			p.destroy(i)
		}
		b2, err := p.allocate(width, height)
		if err != nil {
			p.stats.Failures++
			return nil, fmt.Errorf("bufpool: allocate %dx%d: %w", width, height, err)
		}
		p.slots[i] = b2
		b = b2
	}

	b.busy = true
	b.reallocated = realloc
	return b, nil
}

func (p *Pool) firstFree() int {
	for i, b := range p.slots {
		if b == nil || !b.busy {
			return i
		}
	}
	return -1
}

func (p *Pool) allocate(width, height int) (*Buffer, error) {
	stride := width * BytesPerPixel
	bk, err := p.alloc.Allocate(width, height, stride)
	if err != nil {
		return nil, err
	}
	if len(bk.Pix()) < stride*height {
		_ = bk.Close()
		return nil, fmt.Errorf("backing too small: %v < %v", len(bk.Pix()), stride*height)
	}
	p.stats.Allocs++
	return newBuffer(bk, width, height, stride), nil
}

func (p *Pool) destroy(i int) {
	b := p.slots[i]
	p.slots[i] = nil
	if err := b.close(); err != nil {
		p.logger.Warn("bufpool: destroy", "slot", i, "err", err)
	}
}

//----------

// Release clears the busy flag of the buffer owning handle. Unknown handles
// are stale signals: ignored, reported with false.
func (p *Pool) Release(handle uint32) bool {
	for _, b := range p.slots {
		if b != nil && b.Handle() == handle {
			b.busy = false
			return true
		}
	}
	p.stats.Stale++
	p.logger.Debug("bufpool: stale release", "handle", handle)
	return false
}

// Busy returns the number of busy slots.
func (p *Pool) Busy() int {
	n := 0
	for _, b := range p.slots {
		if b != nil && b.busy {
			n++
		}
	}
	return n
}

func (p *Pool) Stats() Stats {
	return p.stats
}

// Close releases every buffer, busy or not.
func (p *Pool) Close() error {
	var err error
	for i, b := range p.slots {
		if b == nil {
			continue
		}
		p.slots[i] = nil
		if err2 := b.close(); err2 != nil && err == nil {
			err = err2
		}
	}
	if err != nil {
		return fmt.Errorf("bufpool: close: %w", err)
	}
	return nil
}
