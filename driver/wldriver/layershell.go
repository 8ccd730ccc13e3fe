package wldriver

import (
	"fmt"
	"strings"

	"deedles.dev/wl/wire"
)

type Layer uint32

const (
	LayerBackground Layer = 0
	LayerBottom     Layer = 1
	LayerTop        Layer = 2
	LayerOverlay    Layer = 3
)

func ParseLayer(s string) (Layer, error) {
	switch strings.ToLower(s) {
	case "background":
		return LayerBackground, nil
	case "bottom":
		return LayerBottom, nil
	case "top":
		return LayerTop, nil
	case "overlay":
		return LayerOverlay, nil
	}
	return 0, fmt.Errorf("unknown layer: %q", s)
}

type Anchor uint32

const (
	AnchorTop    Anchor = 1
	AnchorBottom Anchor = 2
	AnchorLeft   Anchor = 4
	AnchorRight  Anchor = 8
)

func ParseAnchor(u []string) (Anchor, error) {
	a := Anchor(0)
	for _, s := range u {
		switch strings.ToLower(s) {
		case "top":
			a |= AnchorTop
		case "bottom":
			a |= AnchorBottom
		case "left":
			a |= AnchorLeft
		case "right":
			a |= AnchorRight
		default:
			return 0, fmt.Errorf("unknown anchor: %q", s)
		}
	}
	return a, nil
}

//----------

type LayerShell struct {
	proxy
}

func BindLayerShell(c *Client, g Global) *LayerShell {
	o := &LayerShell{proxy: c.newProxy(LayerShellInterface)}
	c.Registry.bind(g, minVersion(g, 1), o)
	return o
}

// GetLayerSurface gives surf the layer surface role. A nil output lets the
// compositor choose.
func (o *LayerShell) GetLayerSurface(surf *Surface, output *Output, layer Layer, namespace string) *LayerSurface {
	ls := &LayerSurface{proxy: o.c.newProxy(LayerSurfaceInterface)}
	o.c.Add(ls)
	m := request(o, 0, "get_layer_surface", ls.id, surf.id, layer, namespace)
	m.WriteObject(ls)
	m.WriteObject(surf)
	if output != nil {
		m.WriteObject(output)
	} else {
		m.WriteUint(0)
	}
	m.WriteUint(uint32(layer))
	m.WriteString(namespace)
	o.c.Enqueue(m)
	return ls
}

func (o *LayerShell) Dispatch(m *wire.MessageBuffer) error {
	return o.unknownEvent(m)
}

//----------

type LayerSurface struct {
	proxy

	OnConfigure func(serial uint32, width, height int)
	OnClosed    func()
}

func (ls *LayerSurface) SetSize(w, h int) {
	m := request(ls, 0, "set_size", w, h)
	m.WriteUint(uint32(w))
	m.WriteUint(uint32(h))
	ls.c.Enqueue(m)
}

func (ls *LayerSurface) SetAnchor(a Anchor) {
	m := request(ls, 1, "set_anchor", a)
	m.WriteUint(uint32(a))
	ls.c.Enqueue(m)
}

func (ls *LayerSurface) SetExclusiveZone(zone int) {
	m := request(ls, 2, "set_exclusive_zone", zone)
	m.WriteInt(int32(zone))
	ls.c.Enqueue(m)
}

func (ls *LayerSurface) SetMargin(top, right, bottom, left int) {
	m := request(ls, 3, "set_margin", top, right, bottom, left)
	m.WriteInt(int32(top))
	m.WriteInt(int32(right))
	m.WriteInt(int32(bottom))
	m.WriteInt(int32(left))
	ls.c.Enqueue(m)
}

func (ls *LayerSurface) SetKeyboardInteractivity(v bool) {
	u := uint32(0)
	if v {
		u = 1
	}
	m := request(ls, 4, "set_keyboard_interactivity", u)
	m.WriteUint(u)
	ls.c.Enqueue(m)
}

func (ls *LayerSurface) AckConfigure(serial uint32) {
	m := request(ls, 6, "ack_configure", serial)
	m.WriteUint(serial)
	ls.c.Enqueue(m)
}

func (ls *LayerSurface) Destroy() {
	ls.c.Enqueue(request(ls, 7, "destroy"))
	ls.c.zombify(ls.id)
}

func (ls *LayerSurface) Dispatch(m *wire.MessageBuffer) error {
	switch m.Op() {
	case 0: // configure
		serial, w, h := m.ReadUint(), m.ReadUint(), m.ReadUint()
		if err := m.Err(); err != nil {
			return nil // reported by the client
		}
		if ls.OnConfigure != nil {
			ls.OnConfigure(serial, int(w), int(h))
		}
		return nil
	case 1: // closed
		if ls.OnClosed != nil {
			ls.OnClosed()
		}
		return nil
	}
	return ls.unknownEvent(m)
}
