// Package wltest has a fake compositor that speaks the wire protocol over a
// socketpair, enough to drive a wldriver.Client in tests.
package wltest

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"deedles.dev/wl/wire"
	"github.com/jmigpin/wlpanel/driver/wldriver"
	"golang.org/x/sys/unix"
)

// PanelGlobals are the globals a layer shell panel needs.
var PanelGlobals = []wldriver.Global{
	{Name: 1, Interface: wldriver.CompositorInterface, Version: 4},
	{Name: 2, Interface: wldriver.ShmInterface, Version: 1},
	{Name: 3, Interface: wldriver.OutputInterface, Version: 3},
	{Name: 4, Interface: wldriver.LayerShellInterface, Version: 4},
}

type Request struct {
	Sender uint32
	Iface  string
	Op     uint16
	NewID  uint32
	Args   []uint32
	Str    string
	File   *os.File // wl_shm.create_pool
}

func (r *Request) String() string {
	return fmt.Sprintf("%v#%d.%d%v", r.Iface, r.Sender, r.Op, r.Args)
}

//----------

// Compositor records every request and answers the ones a client blocks
// on: sync, get_registry and destroys (with delete_id). Anything else is up
// to OnRequest or to the test calling Event.
type Compositor struct {
	Globals []wldriver.Global
	// sent on wl_shm bind
	Formats []uint32
	// sent on wl_output bind when > 0
	OutputScale int
	// runs on the compositor goroutine, before the default answers
	OnRequest func(c *Compositor, r *Request)

	conn   *wire.Conn
	mu     sync.Mutex
	ifaces map[uint32]string
	reqs   []*Request
	serial uint32
}

// NewClient starts c on one end of a socketpair and returns a client on
// the other. Both are closed on test cleanup.
func NewClient(t testing.TB, c *Compositor, logger *slog.Logger) *wldriver.Client {
	t.Helper()
	cc, sc, err := Pipe()
	if err != nil {
		t.Fatal(err)
	}
	c.conn = sc
	c.ifaces = map[uint32]string{1: wldriver.DisplayInterface}
	if c.Formats == nil {
		c.Formats = []uint32{wldriver.FormatARGB8888, wldriver.FormatXRGB8888}
	}
	go c.serve()

	client := wldriver.NewClient(cc, logger)
	t.Cleanup(func() {
		client.Close()
		sc.Close()
		c.mu.Lock()
		defer c.mu.Unlock()
		for _, r := range c.reqs {
			if r.File != nil {
				r.File.Close()
			}
		}
	})
	return client
}

func (c *Compositor) serve() {
	for {
		m, err := wire.ReadMessage(c.conn)
		if err != nil {
			return
		}
		r := c.record(m)
		if c.OnRequest != nil {
			c.OnRequest(c, r)
		}
		c.answer(r)
	}
}

func (c *Compositor) record(m *wire.MessageBuffer) *Request {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := &Request{Sender: m.Sender(), Iface: c.ifaces[m.Sender()], Op: m.Op()}
	newID := func(iface string) {
		r.NewID = m.ReadObject()
		c.ifaces[r.NewID] = iface
	}
	is := func(iface string, op uint16) bool {
		return r.Iface == iface && r.Op == op
	}
	switch {
	case is(wldriver.DisplayInterface, 0):
		newID(wldriver.CallbackInterface)
	case is(wldriver.DisplayInterface, 1):
		newID(wldriver.RegistryInterface)
	case is(wldriver.RegistryInterface, 0):
		name := m.ReadUint()
		id := m.ReadNewID()
		r.Args = []uint32{name, id.Version}
		r.Str = id.Interface
		r.NewID = id.ID
		c.ifaces[id.ID] = id.Interface
	case is(wldriver.CompositorInterface, 0):
		newID(wldriver.SurfaceInterface)
	case is(wldriver.SurfaceInterface, 3):
		newID(wldriver.CallbackInterface)
	case is(wldriver.ShmInterface, 0):
		newID(wldriver.ShmPoolInterface)
		r.File = m.ReadFile()
		r.Args = []uint32{uint32(m.ReadInt())}
	case is(wldriver.ShmPoolInterface, 0):
		newID(wldriver.BufferInterface)
		for i := 0; i < 5; i++ {
			r.Args = append(r.Args, m.ReadUint())
		}
	case is(wldriver.LayerShellInterface, 0):
		newID(wldriver.LayerSurfaceInterface)
		r.Args = []uint32{m.ReadObject(), m.ReadObject(), m.ReadUint()}
		r.Str = m.ReadString()
	default:
		for n := (int(m.Size()) - 8) / 4; n > 0; n-- {
			r.Args = append(r.Args, m.ReadUint())
		}
	}
	c.reqs = append(c.reqs, r)
	return r
}

func (c *Compositor) answer(r *Request) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch r.Iface {
	case wldriver.DisplayInterface:
		switch r.Op {
		case 0: // sync
			c.serial++
			c.event(r.NewID, 0, c.serial)
			c.deleteID(r.NewID)
		case 1: // get_registry
			for _, g := range c.Globals {
				m := wire.NewMessage(ObjectID(r.NewID), 0)
				m.WriteUint(g.Name)
				m.WriteString(g.Interface)
				m.WriteUint(g.Version)
				c.send(m)
			}
		}
	case wldriver.RegistryInterface:
		switch r.Str {
		case wldriver.ShmInterface:
			for _, f := range c.Formats {
				c.event(r.NewID, 0, f)
			}
		case wldriver.OutputInterface:
			if c.OutputScale > 0 {
				c.event(r.NewID, 3, uint32(c.OutputScale))
				c.event(r.NewID, 2)
			}
		}
	case wldriver.SurfaceInterface, wldriver.BufferInterface, wldriver.OutputInterface:
		if r.Op == 0 { // destroy, release
			c.deleteID(r.Sender)
		}
	case wldriver.ShmPoolInterface:
		if r.Op == 1 {
			c.deleteID(r.Sender)
		}
	case wldriver.LayerSurfaceInterface:
		if r.Op == 7 {
			c.deleteID(r.Sender)
		}
	}
}

func (c *Compositor) deleteID(id uint32) {
	c.event(1, 1, id)
	delete(c.ifaces, id)
}

func (c *Compositor) event(id uint32, op uint16, args ...uint32) {
	m := wire.NewMessage(ObjectID(id), op)
	for _, a := range args {
		m.WriteUint(a)
	}
	c.send(m)
}

func (c *Compositor) send(m *wire.MessageBuilder) {
	// the client may have gone away; the test sees it through its requests
	_ = m.Build(c.conn)
}

//----------

// Event sends an event with uint arguments.
func (c *Compositor) Event(id uint32, op uint16, args ...uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.event(id, op, args...)
}

// Send sends an event built by the test.
func (c *Compositor) Send(m *wire.MessageBuilder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.send(m)
}

// Done fires the callback id and deletes it, as after a frame.
func (c *Compositor) Done(id uint32, data uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ifaces[id] != wldriver.CallbackInterface {
		return
	}
	c.event(id, 0, data)
	c.deleteID(id)
}

// Objects returns the live ids of iface, sorted.
func (c *Compositor) Objects(iface string) []uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	u := []uint32{}
	for id, s := range c.ifaces {
		if s == iface {
			u = append(u, id)
		}
	}
	sort.Slice(u, func(i, j int) bool { return u[i] < u[j] })
	return u
}

func (c *Compositor) Requests() []*Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Request(nil), c.reqs...)
}

// FindAll returns the requests of iface with the opcode, in order.
func (c *Compositor) FindAll(iface string, op uint16) []*Request {
	u := []*Request{}
	for _, r := range c.Requests() {
		if r.Iface == iface && r.Op == op {
			u = append(u, r)
		}
	}
	return u
}

// Find returns the first matching request or nil.
func (c *Compositor) Find(iface string, op uint16) *Request {
	if u := c.FindAll(iface, op); len(u) > 0 {
		return u[0]
	}
	return nil
}

// Last returns the last matching request or nil.
func (c *Compositor) Last(iface string, op uint16) *Request {
	if u := c.FindAll(iface, op); len(u) > 0 {
		return u[len(u)-1]
	}
	return nil
}

//----------

// ObjectID is an object of the other end, known only by its id. It is
// enough to send messages on its behalf.
type ObjectID uint32

func (id ObjectID) ID() uint32 { return uint32(id) }
func (id ObjectID) SetID(uint32) {}
func (id ObjectID) Dispatch(*wire.MessageBuffer) error { return nil }
func (id ObjectID) Delete() {}

// Pipe returns the two ends of a unix socketpair.
func Pipe() (*wire.Conn, *wire.Conn, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("wltest: socketpair: %w", err)
	}
	c1, err := fileConn(fds[0], "wltest-0")
	if err != nil {
		unix.Close(fds[1])
		return nil, nil, err
	}
	c2, err := fileConn(fds[1], "wltest-1")
	if err != nil {
		c1.Close()
		return nil, nil, err
	}
	return wire.NewConn(c1), wire.NewConn(c2), nil
}

func fileConn(fd int, name string) (*net.UnixConn, error) {
	f := os.NewFile(uintptr(fd), name)
	defer f.Close() // FileConn dups the fd
	fc, err := net.FileConn(f)
	if err != nil {
		return nil, fmt.Errorf("wltest: fileconn: %w", err)
	}
	return fc.(*net.UnixConn), nil
}

//----------

// WaitFor polls fn until it is true or fails the test after a few seconds.
func WaitFor(t testing.TB, what string, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !fn() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %v", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
