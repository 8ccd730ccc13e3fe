//go:build linux

// Package wimage puts panel pixels in shared memory the compositor can read.
package wimage

import (
	"fmt"
	"log/slog"

	"github.com/jmigpin/wlpanel/core/bufpool"
	"github.com/jmigpin/wlpanel/driver/wldriver"
	"github.com/jmigpin/wlpanel/util/logutil"
)

// ShmBuffer is a wl_buffer over its own shm region.
type ShmBuffer struct {
	region *ShmRegion
	buf    *wldriver.Buffer
}

func (b *ShmBuffer) Handle() uint32 { return b.buf.ID() }
func (b *ShmBuffer) Pix() []byte    { return b.region.Data }

// Close destroys the wl_buffer and releases the memory. The compositor has
// its own mapping; it keeps showing the last committed contents.
func (b *ShmBuffer) Close() error {
	b.buf.Destroy()
	return b.region.Close()
}

//----------

// ShmAllocator creates argb8888 buffers for a bufpool.Pool.
type ShmAllocator struct {
	shm    *wldriver.Shm
	logger *slog.Logger

	// OnRelease is called with the buffer handle when the compositor is
	// done reading a buffer.
	OnRelease func(handle uint32)
}

func NewShmAllocator(shm *wldriver.Shm, logger *slog.Logger) *ShmAllocator {
	return &ShmAllocator{shm: shm, logger: logutil.OrDiscard(logger)}
}

func (a *ShmAllocator) Allocate(width, height, stride int) (bufpool.Backing, error) {
	if width <= 0 || height <= 0 || stride < width*bufpool.BytesPerPixel {
		return nil, fmt.Errorf("wimage: bad buffer geometry: %vx%v stride %v", width, height, stride)
	}
	size := stride * height
	region, err := ShmOpen(size)
	if err != nil {
		return nil, err
	}

	// one pool per buffer: resizing a buffer replaces the whole region
	pool := a.shm.CreatePool(region.Fd, size)
	buf := pool.CreateBuffer(0, width, height, stride, wldriver.FormatARGB8888)
	pool.Destroy()

	b := &ShmBuffer{region: region, buf: buf}
	buf.OnRelease = func() {
		if a.OnRelease != nil {
			a.OnRelease(buf.ID())
		}
	}
	a.logger.Debug("wimage: shm buffer", "id", buf.ID(), "width", width, "height", height, "bytes", size)
	return b, nil
}
