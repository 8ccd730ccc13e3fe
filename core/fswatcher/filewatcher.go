package fswatcher

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/jmigpin/wlpanel/util/logutil"
)

// FileOps are the ops that change a file's content.
const FileOps = Create | Modify | Remove | Rename

// FileWatcher reports changes to a single file. The parent directory is
// watched, so the file may be created later or replaced by a rename, as
// editors do on save. Bursts of events closer than delay are coalesced.
// Events outside FileOps are ignored.
type FileWatcher struct {
	w       Watcher
	name    string
	delay   time.Duration
	logger  *slog.Logger
	changed chan struct{}
	done    chan struct{}
}

func NewFileWatcher(w Watcher, name string, delay time.Duration, logger *slog.Logger) (*FileWatcher, error) {
	name, err := filepath.Abs(name)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(name)
	if err := w.Add(dir); err != nil {
		return nil, fmt.Errorf("fswatcher: watch %v: %w", dir, err)
	}
	fw := &FileWatcher{
		w:       w,
		name:    name,
		delay:   delay,
		logger:  logutil.OrDiscard(logger),
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go fw.eventLoop()
	return fw, nil
}

func (fw *FileWatcher) Close() error {
	select {
	case <-fw.done:
		return nil
	default:
	}
	close(fw.done)
	return fw.w.Close()
}

// Changed receives once per burst of changes.
func (fw *FileWatcher) Changed() <-chan struct{} {
	return fw.changed
}

//----------

func (fw *FileWatcher) eventLoop() {
	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-fw.done:
			return
		case v, ok := <-fw.w.Events():
			if !ok {
				return
			}
			switch t := v.(type) {
			case error:
				fw.logger.Warn("fswatcher: watch error", "err", t)
			case *Event:
				if t.JoinNames() != fw.name || !t.Op.HasAny(FileOps) {
					continue
				}
				fw.logger.Debug("fswatcher: file event", "name", fw.name, "op", t.Op)
				if timer == nil {
					timer = time.NewTimer(fw.delay)
				} else {
					timer.Stop()
					timer.Reset(fw.delay)
				}
				timerC = timer.C
			}
		case <-timerC:
			timerC = nil
			select {
			case fw.changed <- struct{}{}:
			default: // one pending notification is enough
			}
		}
	}
}
