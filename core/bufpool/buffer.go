package bufpool

import (
	"image"

	"github.com/jmigpin/wlpanel/util/imageutil"
)

// Bytes per pixel of the only supported format (argb8888).
const BytesPerPixel = 4

// Backing is the shared memory and compositor handle behind a Buffer.
type Backing interface {
	Handle() uint32 // compositor side id, used to match release signals
	Pix() []byte    // mapped memory, stride*height bytes
	Close() error   // destroys the handle and releases the memory
}

// Allocator creates backings of the given size in pixels.
type Allocator interface {
	Allocate(width, height, stride int) (Backing, error)
}

//----------

// Buffer is one slot of a Pool. It is busy from the moment it is acquired
// until the compositor releases it.
type Buffer struct {
	backing Backing
	img     *imageutil.BGRA

	width, height, stride int

	busy        bool
	reallocated bool
}

func newBuffer(b Backing, width, height, stride int) *Buffer {
	r := image.Rect(0, 0, width, height)
	img := imageutil.NewBGRAFromBuffer(b.Pix(), stride, &r)
	return &Buffer{
		backing: b,
		img:     img,
		width:   width,
		height:  height,
		stride:  stride,
	}
}

// Image draws into the buffer's shared memory.
func (b *Buffer) Image() *imageutil.BGRA { return b.img }

func (b *Buffer) Handle() uint32 { return b.backing.Handle() }
func (b *Buffer) Width() int     { return b.width }
func (b *Buffer) Height() int    { return b.height }
func (b *Buffer) Stride() int    { return b.stride }
func (b *Buffer) Size() int      { return b.stride * b.height }
func (b *Buffer) Busy() bool     { return b.busy }

// Reallocated reports whether the last Acquire that returned this buffer
// had to (re)create its backing.
func (b *Buffer) Reallocated() bool { return b.reallocated }

func (b *Buffer) close() error {
	b.img = nil
	return b.backing.Close()
}
