// Package config loads the panel settings from a toml file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/jmigpin/wlpanel/driver/wldriver"
	"github.com/jmigpin/wlpanel/util/imageutil"
	"github.com/jmigpin/wlpanel/util/logutil"
)

type Config struct {
	Width                 int      `toml:"width"`
	Height                int      `toml:"height"`
	Namespace             string   `toml:"namespace"`
	Layer                 string   `toml:"layer"`
	Anchor                []string `toml:"anchor"`
	ExclusiveZone         int      `toml:"exclusive_zone"`
	Margin                []int    `toml:"margin"` // top, right, bottom, left
	KeyboardInteractivity bool     `toml:"keyboard_interactivity"`

	Scene Scene `toml:"scene"`
}

type Scene struct {
	Background   string  `toml:"background"`
	CornerRadius float64 `toml:"corner_radius"`
	BorderWidth  float64 `toml:"border_width"`
	Circle       Circle  `toml:"circle"`
	Text         string  `toml:"text"`
	TextX        float64 `toml:"text_x"`
	TextY        float64 `toml:"text_y"`
	TextColor    string  `toml:"text_color"`
	Font         string  `toml:"font"` // regular, medium, bold, mono or a ttf file
	FontSize     float64 `toml:"font_size"`
}

type Circle struct {
	X     float64 `toml:"x"`
	Y     float64 `toml:"y"`
	R     float64 `toml:"r"`
	Color string  `toml:"color"`
}

func Default() *Config {
	return &Config{
		Width:     720,
		Height:    300,
		Namespace: "panel",
		Layer:     "top",
		Anchor:    []string{"top", "left"},
		Margin:    []int{0, 0, 0, 0},
		Scene: Scene{
			Background:   "#008080",
			CornerRadius: 50,
			Circle:       Circle{X: 330, Y: 160, R: 40, Color: "#000000"},
			Text:         "Test text antialiasing",
			TextX:        100,
			TextY:        100,
			TextColor:    "#ffffff",
			Font:         "bold",
			FontSize:     16,
		},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/wlpanel/config.toml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "wlpanel", "config.toml")
}

//----------

// Load reads the file over the defaults. A missing file gives the
// defaults. Unknown keys are logged and ignored.
func Load(path string, logger *slog.Logger) (*Config, error) {
	logger = logutil.OrDiscard(logger)
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Info("config: file not found, using defaults", "path", path)
			return Default(), nil
		}
		return nil, fmt.Errorf("config: %w", err)
	}
	for _, k := range md.Undecoded() {
		logger.Warn("config: unknown key", "key", k.String(), "path", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Parse(s string, logger *slog.Logger) (*Config, error) {
	logger = logutil.OrDiscard(logger)
	cfg := Default()
	md, err := toml.Decode(s, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	for _, k := range md.Undecoded() {
		logger.Warn("config: unknown key", "key", k.String())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

//----------

func (c *Config) Validate() error {
	if c.Width < 0 {
		return &ValidationError{"width", "negative"}
	}
	if c.Height < 0 {
		return &ValidationError{"height", "negative"}
	}
	if _, err := wldriver.ParseLayer(c.Layer); err != nil {
		return &ValidationError{"layer", err.Error()}
	}
	a, err := wldriver.ParseAnchor(c.Anchor)
	if err != nil {
		return &ValidationError{"anchor", err.Error()}
	}
	// a zero size must be stretched between opposite anchors
	if c.Width == 0 && a&(wldriver.AnchorLeft|wldriver.AnchorRight) != wldriver.AnchorLeft|wldriver.AnchorRight {
		return &ValidationError{"width", "0 requires anchor left and right"}
	}
	if c.Height == 0 && a&(wldriver.AnchorTop|wldriver.AnchorBottom) != wldriver.AnchorTop|wldriver.AnchorBottom {
		return &ValidationError{"height", "0 requires anchor top and bottom"}
	}
	if len(c.Margin) != 4 {
		return &ValidationError{"margin", "expecting [top, right, bottom, left]"}
	}
	if c.Namespace == "" {
		return &ValidationError{"namespace", "empty"}
	}

	colors := []struct{ key, v string }{
		{"scene.background", c.Scene.Background},
		{"scene.circle.color", c.Scene.Circle.Color},
		{"scene.text_color", c.Scene.TextColor},
	}
	for _, u := range colors {
		if _, err := imageutil.ParseHexColor(u.v); err != nil {
			return &ValidationError{u.key, err.Error()}
		}
	}
	if c.Scene.FontSize <= 0 {
		return &ValidationError{"scene.font_size", "must be positive"}
	}
	if c.Scene.CornerRadius < 0 || c.Scene.BorderWidth < 0 || c.Scene.Circle.R < 0 {
		return &ValidationError{"scene", "negative size"}
	}
	return nil
}

// Values already checked by Validate.
func (c *Config) LayerValue() wldriver.Layer {
	l, _ := wldriver.ParseLayer(c.Layer)
	return l
}
func (c *Config) AnchorValue() wldriver.Anchor {
	a, _ := wldriver.ParseAnchor(c.Anchor)
	return a
}

//----------

// SameSurface reports whether the layer surface state is unchanged. The
// layer and namespace can't change on an existing layer surface.
func (c *Config) SameSurface(o *Config) bool {
	return c.Width == o.Width &&
		c.Height == o.Height &&
		c.AnchorValue() == o.AnchorValue() &&
		c.ExclusiveZone == o.ExclusiveZone &&
		reflect.DeepEqual(c.Margin, o.Margin) &&
		c.KeyboardInteractivity == o.KeyboardInteractivity
}

func (c *Config) SameRole(o *Config) bool {
	return c.LayerValue() == o.LayerValue() && c.Namespace == o.Namespace
}

func (c *Config) SameScene(o *Config) bool {
	return c.Scene == o.Scene
}

//----------

type ValidationError struct {
	Key string
	Msg string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %v: %v", e.Key, strings.TrimSpace(e.Msg))
}
