package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when no -config flag is given.
const DefaultPath = "portal.yaml"

type Window struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

// Assets are resolved relative to BasePath.
type Assets struct {
	BasePath     string `yaml:"base_path"`
	Scene        string `yaml:"scene"`
	BakedTexture string `yaml:"baked_texture"`
	DecoderPath  string `yaml:"decoder_path"`
}

type Render struct {
	MaxPixelRatio float64 `yaml:"max_pixel_ratio"`
	Samples       int     `yaml:"samples"`
	VSync         bool    `yaml:"vsync"`
}

type Camera struct {
	Fov      float32    `yaml:"fov"`
	Near     float32    `yaml:"near"`
	Far      float32    `yaml:"far"`
	Position [3]float32 `yaml:"position"`
}

type Controls struct {
	Target        [3]float32 `yaml:"target"`
	Damping       bool       `yaml:"damping"`
	DampingFactor float32    `yaml:"damping_factor"`
}

// Debug holds the initial values of the debug panel parameters.
type Debug struct {
	Background   string  `yaml:"background"`
	ColorStart   string  `yaml:"color_start"`
	ColorEnd     string  `yaml:"color_end"`
	ParticleSize float32 `yaml:"particle_size"`
}

type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type Config struct {
	Window   Window   `yaml:"window"`
	Assets   Assets   `yaml:"assets"`
	Render   Render   `yaml:"render"`
	Camera   Camera   `yaml:"camera"`
	Controls Controls `yaml:"controls"`
	Debug    Debug    `yaml:"debug"`
	Log      Log      `yaml:"log"`
}

// Default returns the configuration the scene was authored with.
func Default() Config {
	return Config{
		Window: Window{Width: 1280, Height: 720, Title: "Portal"},
		Assets: Assets{
			BasePath:     "static",
			Scene:        "assets/portal-ultimate.glb",
			BakedTexture: "assets/baked.jpg",
			DecoderPath:  "draco/",
		},
		Render:   Render{MaxPixelRatio: 2, Samples: 4, VSync: true},
		Camera:   Camera{Fov: 45, Near: 0.1, Far: 100, Position: [3]float32{4, 2, 4}},
		Controls: Controls{Damping: true, DampingFactor: 0.05},
		Debug: Debug{
			Background:   "#2a1d1d",
			ColorStart:   "#e675a6",
			ColorEnd:     "#2a1d1d",
			ParticleSize: 100,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads a YAML file on top of Default. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %q: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var err error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		err = multierr.Append(err, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	if c.Assets.Scene == "" {
		err = multierr.Append(err, errors.New("assets.scene is required"))
	}
	if c.Assets.BakedTexture == "" {
		err = multierr.Append(err, errors.New("assets.baked_texture is required"))
	}
	if c.Render.MaxPixelRatio < 1 {
		err = multierr.Append(err, fmt.Errorf("render.max_pixel_ratio %v must be >= 1", c.Render.MaxPixelRatio))
	}
	if c.Render.Samples < 0 {
		err = multierr.Append(err, fmt.Errorf("render.samples %d must not be negative", c.Render.Samples))
	}
	if c.Camera.Fov <= 0 || c.Camera.Fov >= 180 {
		err = multierr.Append(err, fmt.Errorf("camera.fov %v out of range (0,180)", c.Camera.Fov))
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		err = multierr.Append(err, fmt.Errorf("camera clip planes near=%v far=%v are invalid", c.Camera.Near, c.Camera.Far))
	}
	if c.Controls.DampingFactor <= 0 || c.Controls.DampingFactor > 1 {
		err = multierr.Append(err, fmt.Errorf("controls.damping_factor %v out of range (0,1]", c.Controls.DampingFactor))
	}
	for _, field := range []struct{ name, value string }{
		{"debug.background", c.Debug.Background},
		{"debug.color_start", c.Debug.ColorStart},
		{"debug.color_end", c.Debug.ColorEnd},
	} {
		if _, cerr := ParseHex(field.value); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", field.name, cerr))
		}
	}
	if c.Debug.ParticleSize < 0 || c.Debug.ParticleSize > 500 {
		err = multierr.Append(err, fmt.Errorf("debug.particle_size %v out of range [0,500]", c.Debug.ParticleSize))
	}
	return err
}

// ScenePath is the scene asset path joined with the base path.
func (a Assets) ScenePath() string {
	return filepath.Join(a.BasePath, a.Scene)
}

func (a Assets) TexturePath() string {
	return filepath.Join(a.BasePath, a.BakedTexture)
}

func (a Assets) DecoderDir() string {
	return filepath.Join(a.BasePath, a.DecoderPath)
}
