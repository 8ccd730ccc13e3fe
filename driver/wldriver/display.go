package wldriver

import (
	"deedles.dev/wl/wire"
)

const (
	DisplayInterface  = "wl_display"
	RegistryInterface = "wl_registry"
	CallbackInterface = "wl_callback"
)

// Object 1 is the display; the first id a client allocates is 2.
const displayID = 1

type Display struct {
	proxy
}

func (d *Display) Sync() *Callback {
	cb := &Callback{proxy: d.c.newProxy(CallbackInterface)}
	d.c.Add(cb)
	m := request(d, 0, "sync", cb.id)
	m.WriteObject(cb)
	d.c.Enqueue(m)
	return cb
}

func (d *Display) getRegistry() *Registry {
	r := &Registry{proxy: d.c.newProxy(RegistryInterface)}
	d.c.Add(r)
	m := request(d, 1, "get_registry", r.id)
	m.WriteObject(r)
	d.c.Enqueue(m)
	return r
}

func (d *Display) Dispatch(m *wire.MessageBuffer) error {
	switch m.Op() {
	case 0: // error
		id, code, msg := m.ReadObject(), m.ReadUint(), m.ReadString()
		iface := "unknown"
		if obj, ok := d.c.objects[id]; ok {
			iface = obj.Interface()
		}
		return &ProtocolError{ObjectID: id, Interface: iface, Code: code, Message: msg}
	case 1: // delete_id
		d.c.deleteID(m.ReadUint())
		return nil
	}
	return d.unknownEvent(m)
}

//----------

type Registry struct {
	proxy

	OnGlobal       func(Global)
	OnGlobalRemove func(name uint32)
}

var _ wire.Binder = (*Registry)(nil)

// Bind implements wire.Binder. The object with obj.ID must already be
// added to the client.
func (r *Registry) Bind(name uint32, obj wire.NewID) {
	m := request(r, 0, "bind", name, obj.Interface, obj.Version, obj.ID)
	m.WriteUint(name)
	m.WriteNewID(obj)
	r.c.Enqueue(m)
}

func (r *Registry) bind(g Global, version uint32, obj Object) {
	r.c.Add(obj)
	r.Bind(g.Name, wire.NewID{Interface: g.Interface, Version: version, ID: obj.ID()})
}

func (r *Registry) Dispatch(m *wire.MessageBuffer) error {
	switch m.Op() {
	case 0: // global
		g := Global{Name: m.ReadUint(), Interface: m.ReadString(), Version: m.ReadUint()}
		if m.Err() != nil {
			return nil // reported by the client
		}
		r.c.globals[g.Name] = g
		if r.OnGlobal != nil {
			r.OnGlobal(g)
		}
		return nil
	case 1: // global_remove
		name := m.ReadUint()
		delete(r.c.globals, name)
		if r.OnGlobalRemove != nil {
			r.OnGlobalRemove(name)
		}
		return nil
	}
	return r.unknownEvent(m)
}

//----------

// Callback fires once. The compositor destroys it after done.
type Callback struct {
	proxy
	OnDone func(data uint32)
}

func (cb *Callback) Dispatch(m *wire.MessageBuffer) error {
	switch m.Op() {
	case 0: // done
		data := m.ReadUint()
		if cb.OnDone != nil {
			cb.OnDone(data)
		}
		return nil
	}
	return cb.unknownEvent(m)
}

//----------

func minVersion(g Global, want uint32) uint32 {
	if g.Version < want {
		return g.Version
	}
	return want
}
