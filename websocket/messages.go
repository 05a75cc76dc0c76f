package websocket

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vantage3d/vantage/models"
	"github.com/vantage3d/vantage/pipeline"
)

// CameraData describes the camera of a frame request. Explicit view and
// projection matrices take precedence over the look-at parameters.
type CameraData struct {
	View       *mgl32.Mat4 `json:"view,omitempty"`
	Projection *mgl32.Mat4 `json:"projection,omitempty"`

	Position mgl32.Vec3 `json:"position"`
	Target   mgl32.Vec3 `json:"target"`
	Up       mgl32.Vec3 `json:"up"`
	FovY     float32    `json:"fov_y"`
	Near     float32    `json:"near"`
	Far      float32    `json:"far"`

	Viewport mgl32.Vec2 `json:"viewport"`
}

// Camera converts the data to a pipeline camera.
func (d CameraData) Camera() (pipeline.Camera, error) {
	if d.View != nil && d.Projection != nil {
		return pipeline.Camera{
			View:       *d.View,
			Projection: *d.Projection,
			Position:   d.Position,
			Viewport:   d.Viewport,
		}, nil
	}

	if d.View != nil || d.Projection != nil {
		return pipeline.Camera{}, errors.New("view and projection must be set together").
			WithType(ErrTypeInvalidMessage)
	}

	up := d.Up
	if up.Len() == 0 {
		up = mgl32.Vec3{0, 1, 0}
	}

	switch {
	case d.FovY <= 0 || d.FovY >= 180:
		return pipeline.Camera{}, errors.New("invalid field of view").
			WithType(ErrTypeInvalidMessage).
			WithTag("fov_y", d.FovY)

	case d.Near <= 0 || d.Far <= d.Near:
		return pipeline.Camera{}, errors.New("invalid clip planes").
			WithType(ErrTypeInvalidMessage).
			WithTag("near", d.Near).
			WithTag("far", d.Far)

	case d.Target.Sub(d.Position).Len() == 0:
		return pipeline.Camera{}, errors.New("camera target is its position").
			WithType(ErrTypeInvalidMessage)
	}

	return pipeline.NewPerspectiveCamera(d.Position, d.Target, up, d.FovY, d.Near, d.Far, d.Viewport), nil
}

type FrameRequest struct {
	Camera CameraData `json:"camera"`

	// Reports only the elements whose visibility changed since the previous
	// frame of the connection.
	ChangesOnly bool `json:"changes_only,omitempty"`
}

// ElementResult is the visibility of an element after a frame.
type ElementResult struct {
	ID       uint32                `json:"id"`
	Instance models.InstanceHandle `json:"instance"`
	models.Visibility
}

// InstanceResult is the render state of an instance after a frame.
type InstanceResult struct {
	Instance models.InstanceHandle `json:"instance"`
	models.InstanceState
}

type FrameResponse struct {
	Frame        uint64              `json:"frame"`
	SceneVersion uint64              `json:"scene_version"`
	Elements     []ElementResult     `json:"elements"`
	Instances    []InstanceResult    `json:"instances"`
	Statistics   pipeline.Statistics `json:"statistics"`
}

type ElementUpdateRequest struct {
	ID        uint32           `json:"id"`
	Transform models.Transform `json:"transform"`
}

type ElementUpdateResponse struct {
	ID           uint32 `json:"id"`
	SceneVersion uint64 `json:"scene_version"`
}

type StatsResponse struct {
	Frames   uint64              `json:"frames"`
	Last     pipeline.Statistics `json:"last"`
	Interval pipeline.Statistics `json:"interval"`
}

type PongResponse struct {
	ClientID string `json:"client_id"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}
