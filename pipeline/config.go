package pipeline

import (
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/vantage3d/vantage/featureflag"
	"github.com/vantage3d/vantage/occlusion"
	"github.com/vantage3d/vantage/triangle"
)

const (
	ErrTypeInvalidConfig = "invalid_config"
)

// HideMethod is how culled elements are hidden from the renderer.
type HideMethod int

const (
	// Culled elements get a zero emissive multiplier. Their geometry is still
	// rasterized.
	HideEmissiveMultiplier HideMethod = iota

	// Culled elements are moved beyond the far plane.
	HideMoveAway

	// Culled elements are scaled to zero so every triangle collapses.
	HideScaleToZero
)

func ParseHideMethod(s string) (HideMethod, error) {
	switch strings.ToLower(strings.ReplaceAll(s, "_", "")) {
	case "emissivemultiplier", "emissive":
		return HideEmissiveMultiplier, nil
	case "moveaway":
		return HideMoveAway, nil
	case "scaletozero":
		return HideScaleToZero, nil
	default:
		return 0, errors.New("unknown culling method").
			WithType(ErrTypeInvalidConfig).
			WithTag("culling_method", s)
	}
}

func (m HideMethod) String() string {
	switch m {
	case HideEmissiveMultiplier:
		return "EmissiveMultiplier"
	case HideMoveAway:
		return "MoveAway"
	case HideScaleToZero:
		return "ScaleToZero"
	default:
		return "Unknown"
	}
}

func (m HideMethod) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *HideMethod) UnmarshalText(b []byte) error {
	method, err := ParseHideMethod(string(b))
	if err != nil {
		return err
	}
	*m = method
	return nil
}

// FrustumConfig configures the frustum pass.
type FrustumConfig struct {
	Enabled          bool `json:"enabled"`
	UseSphereCulling bool `json:"use_sphere_culling"`

	// The size of the cube used as bounds for objects without bounds.
	DefaultObjectSize float32 `json:"default_object_size"`

	CullingMethod HideMethod `json:"culling_method"`
}

// Config is the culling configuration.
type Config struct {
	Frustum   FrustumConfig    `json:"frustum"`
	Occlusion occlusion.Config `json:"occlusion"`
	Triangle  triangle.Config  `json:"triangle"`

	DebugLogging      bool `json:"debug_logging"`
	LogIntervalFrames int  `json:"log_interval_frames"`

	// The number of goroutines testing objects against the frustum and the
	// depth buffer. Values lower than 2 run the pass serially.
	Workers int `json:"workers"`

	// The emissive multiplier given to visible elements.
	EmissiveMultiplier float32 `json:"emissive_multiplier"`

	// The coordinate culled elements are moved to on every axis when hidden
	// with HideMoveAway.
	MoveAwayDistance float32 `json:"move_away_distance"`
}

func DefaultConfig() Config {
	return Config{
		Frustum: FrustumConfig{
			Enabled:           true,
			DefaultObjectSize: 2,
			CullingMethod:     HideMoveAway,
		},
		Occlusion:          occlusion.DefaultConfig(),
		Triangle:           triangle.DefaultConfig(),
		LogIntervalFrames:  120,
		Workers:            1,
		EmissiveMultiplier: 1,
		MoveAwayDistance:   1e6,
	}
}

func (c Config) Validate() error {
	if c.Frustum.DefaultObjectSize <= 0 {
		return errors.New("default object size must be positive").
			WithType(ErrTypeInvalidConfig).
			WithTag("default_object_size", c.Frustum.DefaultObjectSize)
	}

	switch c.Frustum.CullingMethod {
	case HideEmissiveMultiplier, HideMoveAway, HideScaleToZero:
	default:
		return errors.New("unknown culling method").
			WithType(ErrTypeInvalidConfig).
			WithTag("culling_method", int(c.Frustum.CullingMethod))
	}

	if c.LogIntervalFrames < 0 {
		return errors.New("log interval must not be negative").
			WithType(ErrTypeInvalidConfig).
			WithTag("log_interval_frames", c.LogIntervalFrames)
	}

	if c.Workers < 0 {
		return errors.New("workers must not be negative").
			WithType(ErrTypeInvalidConfig).
			WithTag("workers", c.Workers)
	}

	if err := c.Occlusion.Validate(); err != nil {
		return errors.New("invalid occlusion config").
			WithType(ErrTypeInvalidConfig).
			Wrap(err)
	}

	if err := c.Triangle.Validate(); err != nil {
		return errors.New("invalid triangle config").
			WithType(ErrTypeInvalidConfig).
			Wrap(err)
	}
	return nil
}

// LoadConfig decodes a JSON culling configuration. Omitted options keep their
// default value.
func LoadConfig(r io.Reader) (Config, error) {
	c := DefaultConfig()
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return Config{}, errors.New("decoding culling config failed").
			WithType(ErrTypeInvalidConfig).
			Wrap(err)
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadConfigFile loads a JSON culling configuration file.
func LoadConfigFile(filename string) (Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return Config{}, errors.New("opening culling config file failed").
			WithType(ErrTypeInvalidConfig).
			WithTag("filename", filename).
			Wrap(err)
	}
	defer f.Close()

	return LoadConfig(f)
}

// WithFeatureFlags returns the configuration with the culling passes toggled
// by the given flags.
func (c Config) WithFeatureFlags(f featureflag.FeatureFlag) Config {
	f.IfSet(featureflag.FlagDisableFrustumCulling, func() {
		c.Frustum.Enabled = false
	})
	f.IfSet(featureflag.FlagDisableOcclusionCulling, func() {
		c.Occlusion.Enabled = false
	})
	f.IfSet(featureflag.FlagDisableTriangleCulling, func() {
		c.Triangle.Enabled = false
	})
	f.IfSet(featureflag.FlagSphereCulling, func() {
		c.Frustum.UseSphereCulling = true
	})
	f.IfSet(featureflag.FlagParallelVisibility, func() {
		if c.Workers < 2 {
			c.Workers = runtime.NumCPU()
		}
	})
	return c
}
