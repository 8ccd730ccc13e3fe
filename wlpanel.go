// Wayland layer shell panel.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/jmigpin/wlpanel/core"
	"github.com/jmigpin/wlpanel/core/config"
	"golang.org/x/term"
)

func main() {
	opt := core.DefaultOptions()

	// flags
	flag.StringVar(&opt.ConfigPath, "config", config.DefaultPath(), "config file (toml)")
	flag.StringVar(&opt.Renderer, "renderer", opt.Renderer, "painter: raster or gg")
	flag.BoolVar(&opt.WatchConfig, "watch", opt.WatchConfig, "reload the config file when it changes")
	logLevel := flag.String("loglevel", "info", "debug, info, warn or error")
	version := flag.Bool("version", false, "output version and exit")
	flag.Parse()

	if *version {
		fmt.Printf("version: %v\n", core.Version())
		return
	}

	logger, err := newLogger(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := core.RunPanel(ctx, opt, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("wlpanel", "err", err)
		os.Exit(1)
	}
}

func newLogger(level string) (*slog.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	l := log.NewWithOptions(os.Stderr, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          "wlpanel",
	})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		styles := log.DefaultStyles()
		styles.Levels[log.DebugLevel] = lipgloss.NewStyle().
			SetString("DEBU").
			Foreground(lipgloss.Color("63"))
		l.SetStyles(styles)
	} else {
		l.SetFormatter(log.LogfmtFormatter)
	}
	return slog.New(l), nil
}
