package core

import (
	"time"

	"github.com/jmigpin/wlpanel/ui"
)

type Options struct {
	ConfigPath string
	Renderer   string

	WatchConfig bool
	WatchDelay  time.Duration
}

func DefaultOptions() *Options {
	return &Options{
		Renderer:    ui.RendererRaster,
		WatchConfig: true,
		WatchDelay:  100 * time.Millisecond,
	}
}
