package triangle

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
)

// Config describes which triangle culling methods run and their thresholds.
type Config struct {
	Enabled bool    `json:"enabled"`
	Methods Methods `json:"methods"`

	// Triangles whose normal makes a dot product with the direction to the
	// camera lower or equal to BackfaceEpsilon are culled.
	BackfaceEpsilon float32 `json:"backface_epsilon"`

	// Minimum projected area, in pixels.
	MinTriangleArea float32 `json:"min_triangle_area"`

	// Minimum world space area.
	MinWorldArea float32 `json:"min_world_area"`

	// World space area under which a triangle is considered collapsed.
	DegenerateEpsilon float32 `json:"degenerate_epsilon"`

	// Triangles whose center is further than MaxDistance from the camera are
	// culled. Zero disables the limit.
	MaxDistance float32 `json:"max_distance"`

	// Triangles whose normal makes an absolute cosine with the view direction
	// lower than AngleThreshold are seen edge-on and culled.
	AngleThreshold float32 `json:"angle_threshold"`

	DebugLogging      bool `json:"debug_logging"`
	LogIntervalFrames int  `json:"log_interval_frames"`
}

func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		Methods:           Backface | Degenerate | Small,
		BackfaceEpsilon:   0.001,
		MinTriangleArea:   4,
		MinWorldArea:      0.0001,
		DegenerateEpsilon: 0.0001,
		MaxDistance:       1000,
		AngleThreshold:    0.1,
		LogIntervalFrames: 60,
	}
}

func (c Config) Validate() error {
	fields := []struct {
		name  string
		value float32
	}{
		{"backface_epsilon", c.BackfaceEpsilon},
		{"min_triangle_area", c.MinTriangleArea},
		{"min_world_area", c.MinWorldArea},
		{"degenerate_epsilon", c.DegenerateEpsilon},
		{"max_distance", c.MaxDistance},
		{"angle_threshold", c.AngleThreshold},
	}

	for _, f := range fields {
		if f.value < 0 {
			return errors.New("triangle culling threshold must not be negative").
				WithType(ErrTypeInvalidConfig).
				WithTag(f.name, f.value)
		}
	}

	if c.AngleThreshold > 1 {
		return errors.New("angle threshold is a cosine and must not exceed 1").
			WithType(ErrTypeInvalidConfig).
			WithTag("angle_threshold", c.AngleThreshold)
	}

	if c.Methods&^AllMethods != 0 {
		return errors.New("unknown triangle culling method").
			WithType(ErrTypeInvalidConfig).
			WithTag("methods", uint8(c.Methods))
	}
	return nil
}
