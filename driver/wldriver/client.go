// Package wldriver is a small wayland client: the object table, the core
// protocol objects a shm panel needs and the wlr layer shell. Messages are
// encoded and decoded with deedles.dev/wl/wire.
package wldriver

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"deedles.dev/wl/wire"
	"github.com/jmigpin/wlpanel/util/logutil"
)

type Object interface {
	wire.Object
	Interface() string
}

type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// ReadResult is one message read by the connection goroutine. The message
// only carries its own bytes; events with fds are not handled by any object
// of this package.
type ReadResult struct {
	Msg *wire.MessageBuffer
	Err error
}

//----------

// Client owns the connection and every object created through it. All
// methods, and every On* callback of the objects, run on the goroutine that
// calls Dispatch. Enqueue is the exception and may be called from anywhere.
type Client struct {
	Display  *Display
	Registry *Registry

	conn    *wire.Conn
	logger  *slog.Logger
	objects map[uint32]Object
	freeIDs []uint32
	nextID  uint32
	globals map[uint32]Global
	sendErr error

	qmu   sync.Mutex
	queue []*wire.MessageBuilder

	reads chan ReadResult
	done  chan struct{}
}

var _ wire.State = (*Client)(nil)

func Connect(logger *slog.Logger) (*Client, error) {
	conn, err := wire.Dial()
	if err != nil {
		return nil, fmt.Errorf("wldriver: connect: %w", err)
	}
	return NewClient(conn, logger), nil
}

func NewClient(conn *wire.Conn, logger *slog.Logger) *Client {
	c := &Client{
		conn:    conn,
		logger:  logutil.OrDiscard(logger),
		objects: map[uint32]Object{},
		nextID:  displayID + 1,
		globals: map[uint32]Global{},
		reads:   make(chan ReadResult, 32),
		done:    make(chan struct{}),
	}
	c.Display = &Display{proxy: c.newProxy(DisplayInterface)}
	c.Display.SetID(displayID)
	c.Add(c.Display)
	c.Registry = c.Display.getRegistry()

	go c.readLoop()
	return c
}

func (c *Client) Close() error {
	select {
	case <-c.done:
		return nil
	default:
	}
	close(c.done)
	return c.conn.Close()
}

func (c *Client) Logger() *slog.Logger {
	return c.logger
}

//----------

// readLoop is the only caller of wire.ReadMessage, and so the only goroutine
// touching the fds the connection receives.
func (c *Client) readLoop() {
	for {
		m, err := wire.ReadMessage(c.conn)
		select {
		case c.reads <- ReadResult{m, err}:
		case <-c.done:
			return
		}
		if err != nil {
			return
		}
	}
}

// Reads delivers messages from the compositor. Pass them to Dispatch.
func (c *Client) Reads() <-chan ReadResult {
	return c.reads
}

// Dispatch routes one message to its object. Messages for unknown or
// destroyed objects are dropped.
func (c *Client) Dispatch(r ReadResult) error {
	if r.Err != nil {
		return fmt.Errorf("wldriver: read: %w", r.Err)
	}
	m := r.Msg
	obj, ok := c.objects[m.Sender()]
	if !ok {
		c.logger.Debug("wldriver: event for unknown object", "id", m.Sender(), "opcode", m.Op())
		return nil
	}
	if err := obj.Dispatch(m); err != nil {
		return err
	}
	if err := m.Err(); err != nil {
		return fmt.Errorf("wldriver: %v event %d: %w", obj, m.Op(), err)
	}
	if c.logger.Enabled(context.Background(), slog.LevelDebug) {
		c.logger.Debug("wldriver: event", "msg", m.Debug(obj))
	}
	return nil
}

// Enqueue implements wire.State. Requests are only written on Flush.
func (c *Client) Enqueue(m *wire.MessageBuilder) {
	c.qmu.Lock()
	defer c.qmu.Unlock()
	c.queue = append(c.queue, m)
}

// Flush sends the queued requests in order. A failed request poisons the
// client: later flushes return the same error.
func (c *Client) Flush() error {
	c.qmu.Lock()
	q := c.queue
	c.queue = nil
	c.qmu.Unlock()

	if c.sendErr != nil {
		return c.sendErr
	}
	debug := c.logger.Enabled(context.Background(), slog.LevelDebug)
	for _, m := range q {
		if debug {
			c.logger.Debug("wldriver: request", "msg", m.String())
		}
		if err := m.Build(c.conn); err != nil {
			c.sendErr = fmt.Errorf("wldriver: send %v: %w", m, err)
			return c.sendErr
		}
	}
	return nil
}

// Roundtrip flushes and dispatches until the compositor has processed every
// request sent so far.
func (c *Client) Roundtrip(ctx context.Context) error {
	done := false
	cb := c.Display.Sync()
	cb.OnDone = func(uint32) { done = true }
	if err := c.Flush(); err != nil {
		return err
	}
	for !done {
		select {
		case r := <-c.reads:
			if err := c.Dispatch(r); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

//----------

// Globals returns the announced globals sorted by name.
func (c *Client) Globals() []Global {
	u := make([]Global, 0, len(c.globals))
	for _, g := range c.globals {
		u = append(u, g)
	}
	sort.Slice(u, func(i, j int) bool { return u[i].Name < u[j].Name })
	return u
}

// Global returns the first announced global of the interface.
func (c *Client) Global(iface string) (Global, bool) {
	for _, g := range c.Globals() {
		if g.Interface == iface {
			return g, true
		}
	}
	return Global{}, false
}

// MustHave returns a CapabilityError for the first missing interface.
func (c *Client) MustHave(ifaces ...string) error {
	for _, iface := range ifaces {
		if _, ok := c.Global(iface); !ok {
			return &CapabilityError{Interface: iface}
		}
	}
	return nil
}

//----------

// Add implements wire.State. Objects without an id get the lowest free one.
func (c *Client) Add(obj wire.Object) {
	o, ok := obj.(Object)
	if !ok {
		panic(fmt.Sprintf("wldriver: %T is not a wldriver object", obj))
	}
	if o.ID() == 0 {
		o.SetID(c.allocID())
	}
	c.objects[o.ID()] = o
}

// Get implements wire.State.
func (c *Client) Get(id uint32) wire.Object {
	if obj, ok := c.objects[id]; ok {
		return obj
	}
	return nil
}

func (c *Client) newProxy(iface string) proxy {
	return proxy{c: c, iface: iface}
}

func (c *Client) allocID() uint32 {
	if n := len(c.freeIDs); n > 0 {
		id := c.freeIDs[n-1]
		c.freeIDs = c.freeIDs[:n-1]
		return id
	}
	id := c.nextID
	c.nextID++
	return id
}

// Destroyed objects may still get events until the compositor confirms
// with delete_id; keep the id reserved and drop those events.
func (c *Client) zombify(id uint32) {
	if obj, ok := c.objects[id]; ok {
		c.objects[id] = &zombie{proxy: proxy{c: c, id: id, iface: obj.Interface()}}
	}
}

func (c *Client) deleteID(id uint32) {
	obj, ok := c.objects[id]
	if !ok || id == displayID {
		c.logger.Debug("wldriver: delete_id for unknown object", "id", id)
		return
	}
	obj.Delete()
	delete(c.objects, id)
	c.freeIDs = append(c.freeIDs, id)
}

//----------

// proxy carries the id and interface of an object. The id is set by
// Client.Add.
type proxy struct {
	c     *Client
	id    uint32
	iface string
}

func (p *proxy) ID() uint32        { return p.id }
func (p *proxy) SetID(id uint32)   { p.id = id }
func (p *proxy) Interface() string { return p.iface }
func (p *proxy) Delete()           {}

func (p *proxy) String() string {
	return fmt.Sprintf("%v#%d", p.iface, p.id)
}

func (p *proxy) unknownEvent(m *wire.MessageBuffer) error {
	p.c.logger.Debug("wldriver: unhandled event", "object", p.String(), "opcode", m.Op())
	return nil
}

// request starts a message sent by obj. The name and args only show in
// debug logs.
func request(obj Object, opcode uint16, method string, args ...any) *wire.MessageBuilder {
	m := wire.NewMessage(obj, opcode)
	m.Method = method
	m.Args = args
	return m
}

type zombie struct {
	proxy
}

func (z *zombie) Dispatch(m *wire.MessageBuffer) error { return nil }
