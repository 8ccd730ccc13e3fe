package fswatcher

import (
	"path/filepath"

	fsnotify "github.com/fsnotify/fsnotify"
)

// FsnWatcher sends events whose op intersects opMask. The mask is fixed
// at creation; the event goroutine reads it.
type FsnWatcher struct {
	w      *fsnotify.Watcher
	events chan any
	opMask Op
	done   chan struct{}
}

func NewFsnWatcher(opMask Op) (*FsnWatcher, error) {
	w0, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &FsnWatcher{
		w:      w0,
		events: make(chan any),
		opMask: opMask,
		done:   make(chan struct{}),
	}
	go w.eventLoop()
	return w, nil
}

//----------

func (w *FsnWatcher) Close() error {
	select {
	case <-w.done:
		return nil
	default:
	}
	close(w.done)
	return w.w.Close()
}

func (w *FsnWatcher) Add(name string) error {
	return w.w.Add(name)
}
func (w *FsnWatcher) Remove(name string) error {
	return w.w.Remove(name)
}

//----------

func (w *FsnWatcher) Events() <-chan any {
	return w.events
}

//----------

func (w *FsnWatcher) eventLoop() {
	defer close(w.events)
	for {
		select {
		case <-w.done:
			return
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			if !w.send(err) {
				return
			}
		case ev, ok := <-w.w.Events:
			if !ok {
				return
			}
			if e := w.convert(ev); e != nil {
				if !w.send(e) {
					return
				}
			}
		}
	}
}

func (w *FsnWatcher) send(v any) bool {
	select {
	case w.events <- v:
		return true
	case <-w.done:
		return false
	}
}

func (w *FsnWatcher) convert(ev fsnotify.Event) *Event {
	name := ev.Name
	subName := ""

	var op Op
	if ev.Op&fsnotify.Create > 0 {
		op.Add(Create)
		// make event name dir, with subname file
		n, sn := filepath.Split(name)
		name, subName = filepath.Clean(n), sn
	}
	if ev.Op&fsnotify.Write > 0 {
		op.Add(Modify)
	}
	if ev.Op&fsnotify.Remove > 0 {
		op.Add(Remove)
	}
	if ev.Op&fsnotify.Rename > 0 {
		op.Add(Rename)
	}
	if ev.Op&fsnotify.Chmod > 0 {
		op.Add(Attrib)
	}
	if op&w.opMask == 0 {
		return nil
	}
	return &Event{Op: op, Name: name, SubName: subName}
}
