package occlusion

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
)

const (
	ErrTypeDegenerateProjection = "degenerate_projection"
	ErrTypeInvalidConfig        = "invalid_config"
)

// Config describes how the software occlusion test runs.
type Config struct {
	Enabled bool `json:"enabled"`

	// The depth buffer is a square grid of DepthBufferResolution cells per
	// side.
	DepthBufferResolution int `json:"depth_buffer_resolution"`

	// Stored depths must be closer than the tested object's nearest depth
	// minus DepthBias for the object to be occluded.
	DepthBias float32 `json:"depth_bias"`

	// The number of cells sampled per query. Zero or a negative value
	// samples every covered cell.
	SampleCount int `json:"sample_count"`

	// Objects whose nearest depth is beyond MaxTestDistance are not tested
	// and stay visible. Zero disables the limit.
	MaxTestDistance float32 `json:"max_test_distance"`

	// Only objects whose bounds diagonal is longer than MinOccluderSize are
	// registered as occluders.
	MinOccluderSize float32 `json:"min_occluder_size"`
}

func DefaultConfig() Config {
	return Config{
		Enabled:               true,
		DepthBufferResolution: 128,
		DepthBias:             0.01,
		SampleCount:           0,
		MaxTestDistance:       1000,
		MinOccluderSize:       1,
	}
}

func (c Config) Validate() error {
	switch {
	case c.DepthBufferResolution <= 0:
		return errors.New("depth buffer resolution must be positive").
			WithType(ErrTypeInvalidConfig).
			WithTag("depth_buffer_resolution", c.DepthBufferResolution)

	case c.DepthBias < 0:
		return errors.New("depth bias must not be negative").
			WithType(ErrTypeInvalidConfig).
			WithTag("depth_bias", c.DepthBias)

	case c.MaxTestDistance < 0:
		return errors.New("max test distance must not be negative").
			WithType(ErrTypeInvalidConfig).
			WithTag("max_test_distance", c.MaxTestDistance)

	case c.MinOccluderSize < 0:
		return errors.New("min occluder size must not be negative").
			WithType(ErrTypeInvalidConfig).
			WithTag("min_occluder_size", c.MinOccluderSize)

	default:
		return nil
	}
}
