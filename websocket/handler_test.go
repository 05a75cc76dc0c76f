package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
	"github.com/vantage3d/vantage/featureflag"
	"github.com/vantage3d/vantage/geometry"
	"github.com/vantage3d/vantage/models"
	"github.com/vantage3d/vantage/pipeline"
	"golang.org/x/net/websocket"
)

func newTestScene(t *testing.T) (*models.Scene, uint32, uint32) {
	scene := models.NewScene()

	newCube := func(position mgl32.Vec3) *models.SceneElement {
		tr := models.IdentityTransform()
		tr.Position = position
		bounds := geometry.AabbFromCenterSize(mgl32.Vec3{}, mgl32.Vec3{2, 2, 2})
		return &models.SceneElement{
			Transform: tr,
			Shape:     models.Simple{Bounds: &bounds},
		}
	}

	front := scene.Add(newCube(mgl32.Vec3{0, 0, -10}))
	behind := scene.Add(newCube(mgl32.Vec3{0, 0, 10}))
	return scene, front, behind
}

func testCameraData() CameraData {
	return CameraData{
		Position: mgl32.Vec3{0, 0, 0},
		Target:   mgl32.Vec3{0, 0, -1},
		Up:       mgl32.Vec3{0, 1, 0},
		FovY:     60,
		Near:     0.1,
		Far:      1000,
		Viewport: mgl32.Vec2{1920, 1080},
	}
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	t.Cleanup(cancel)
	return ctx
}

func requireErrorResponse(t *testing.T, msg Msg, code string) {
	require.Equal(t, MsgTypeError, msg.Type)

	var res ErrorResponse
	require.NoError(t, msg.DataTo(&res))
	require.Equal(t, code, res.Code)
}

func TestHandlerHandlePing(t *testing.T) {
	scene, _, _ := newTestScene(t)
	client, close := NewTestingEnv(t, newTestHandler(scene, pipeline.DefaultConfig()))
	defer close()

	msg, err := Request(testContext(t), client, MsgTypePing, 1, nil)
	require.NoError(t, err)
	require.Equal(t, MsgTypePong, msg.Type)
	require.NotZero(t, msg.Time)

	var res PongResponse
	require.NoError(t, msg.DataTo(&res))
	require.NotEmpty(t, res.ClientID)
}

func TestHandlerHandleFrame(t *testing.T) {
	scene, front, behind := newTestScene(t)
	client, close := NewTestingEnv(t, newTestHandler(scene, pipeline.DefaultConfig()))
	defer close()

	ctx := testContext(t)

	msg, err := Request(ctx, client, MsgTypeFrame, 1, FrameRequest{Camera: testCameraData()})
	require.NoError(t, err)
	require.Equal(t, MsgTypeFrameResult, msg.Type)

	var res FrameResponse
	require.NoError(t, msg.DataTo(&res))
	require.Equal(t, uint64(1), res.Frame)
	require.Equal(t, scene.Version(), res.SceneVersion)
	require.Len(t, res.Elements, 2)

	require.Equal(t, front, res.Elements[0].ID)
	require.True(t, res.Elements[0].Visible)
	require.Equal(t, models.NotCulled, res.Elements[0].Reason)
	require.Positive(t, res.Elements[0].TrianglesRendered)

	require.Equal(t, behind, res.Elements[1].ID)
	require.False(t, res.Elements[1].Visible)
	require.Equal(t, models.FrustumCulled, res.Elements[1].Reason)

	require.Len(t, res.Instances, 2)
	require.Equal(t, float32(1), res.Instances[0].EmissiveMultiplier)
	require.Equal(t, mgl32.Vec3{0, 0, -10}, res.Instances[0].Transform.Col(3).Vec3())
	require.Zero(t, res.Instances[1].EmissiveMultiplier)
	require.Equal(t, mgl32.Vec3{1e6, 1e6, 1e6}, res.Instances[1].Transform.Col(3).Vec3())

	require.Equal(t, 2, res.Statistics.Objects)
	require.Equal(t, 1, res.Statistics.Visible)
	require.Equal(t, 1, res.Statistics.FrustumCulled)

	t.Run("explicit matrices", func(t *testing.T) {
		cam := testCameraData()
		view := mgl32.LookAtV(cam.Position, cam.Target, cam.Up)
		proj := mgl32.Perspective(mgl32.DegToRad(60), 16.0/9.0, 0.1, 1000)

		msg, err := Request(ctx, client, MsgTypeFrame, 2, FrameRequest{
			Camera: CameraData{
				View:       &view,
				Projection: &proj,
				Viewport:   cam.Viewport,
			},
		})
		require.NoError(t, err)

		var res FrameResponse
		require.NoError(t, msg.DataTo(&res))
		require.Equal(t, uint64(2), res.Frame)
		require.True(t, res.Elements[0].Visible)
		require.False(t, res.Elements[1].Visible)
	})
}

func TestHandlerFrameChangesOnly(t *testing.T) {
	scene, _, behind := newTestScene(t)
	client, close := NewTestingEnv(t, newTestHandler(scene, pipeline.DefaultConfig()))
	defer close()

	ctx := testContext(t)
	req := FrameRequest{
		Camera:      testCameraData(),
		ChangesOnly: true,
	}

	frame := func(requestID uint32) FrameResponse {
		msg, err := Request(ctx, client, MsgTypeFrame, requestID, req)
		require.NoError(t, err)

		var res FrameResponse
		require.NoError(t, msg.DataTo(&res))
		return res
	}

	require.Len(t, frame(1).Elements, 2)
	require.Empty(t, frame(2).Elements)

	tr := models.IdentityTransform()
	tr.Position = mgl32.Vec3{3, 0, -10}
	msg, err := Request(ctx, client, MsgTypeElementUpdate, 3, ElementUpdateRequest{
		ID:        behind,
		Transform: tr,
	})
	require.NoError(t, err)
	require.Equal(t, MsgTypeElementUpdateResponse, msg.Type)

	var update ElementUpdateResponse
	require.NoError(t, msg.DataTo(&update))
	require.Equal(t, behind, update.ID)
	require.Equal(t, scene.Version(), update.SceneVersion)

	res := frame(4)
	require.Equal(t, update.SceneVersion, res.SceneVersion)
	require.Len(t, res.Elements, 1)
	require.Equal(t, behind, res.Elements[0].ID)
	require.True(t, res.Elements[0].Visible)
	require.Len(t, res.Instances, 1)
	require.Equal(t, float32(1), res.Instances[0].EmissiveMultiplier)
}

func TestHandlerHandleElementUpdateErrors(t *testing.T) {
	scene, _, _ := newTestScene(t)
	client, close := NewTestingEnv(t, newTestHandler(scene, pipeline.DefaultConfig()))
	defer close()

	ctx := testContext(t)

	t.Run("not found", func(t *testing.T) {
		msg, err := Request(ctx, client, MsgTypeElementUpdate, 1, ElementUpdateRequest{
			ID:        42,
			Transform: models.IdentityTransform(),
		})
		require.NoError(t, err)
		requireErrorResponse(t, msg, ErrCodeNotFound)
	})

	t.Run("zero scale is accepted", func(t *testing.T) {
		tr := models.IdentityTransform()
		tr.Scale = mgl32.Vec3{}
		msg, err := Request(ctx, client, MsgTypeElementUpdate, 2, ElementUpdateRequest{
			ID:        1,
			Transform: tr,
		})
		require.NoError(t, err)
		require.Equal(t, MsgTypeElementUpdateResponse, msg.Type)
	})
}

func TestHandlerBadRequests(t *testing.T) {
	scene, _, _ := newTestScene(t)
	client, close := NewTestingEnv(t, newTestHandler(scene, pipeline.DefaultConfig()))
	defer close()

	ctx := testContext(t)

	t.Run("invalid camera", func(t *testing.T) {
		cam := testCameraData()
		cam.FovY = 0

		msg, err := Request(ctx, client, MsgTypeFrame, 1, FrameRequest{Camera: cam})
		require.NoError(t, err)
		requireErrorResponse(t, msg, ErrCodeInvalidMessage)
	})

	t.Run("view without projection", func(t *testing.T) {
		view := mgl32.Ident4()
		msg, err := Request(ctx, client, MsgTypeFrame, 2, FrameRequest{
			Camera: CameraData{View: &view},
		})
		require.NoError(t, err)
		requireErrorResponse(t, msg, ErrCodeInvalidMessage)
	})

	t.Run("invalid data", func(t *testing.T) {
		msg, err := Request(ctx, client, MsgTypeElementUpdate, 3, []int{1, 2})
		require.NoError(t, err)
		requireErrorResponse(t, msg, ErrCodeInvalidMessage)
	})

	t.Run("unknown type", func(t *testing.T) {
		msg, err := Request(ctx, client, "teleport", 4, nil)
		require.NoError(t, err)
		requireErrorResponse(t, msg, ErrCodeUnknownType)
	})

	t.Run("malformed message", func(t *testing.T) {
		require.NoError(t, websocket.Message.Send(client, "{not json"))

		res, _, err := Receive(client)
		require.NoError(t, err)
		requireErrorResponse(t, res, ErrCodeInvalidMessage)
	})

	t.Run("connection stays open", func(t *testing.T) {
		msg, err := Request(ctx, client, MsgTypePing, 5, nil)
		require.NoError(t, err)
		require.Equal(t, MsgTypePong, msg.Type)
	})
}

func TestHandlerHandleStats(t *testing.T) {
	scene, _, _ := newTestScene(t)
	client, close := NewTestingEnv(t, newTestHandler(scene, pipeline.DefaultConfig()))
	defer close()

	ctx := testContext(t)

	for i := uint32(1); i <= 3; i++ {
		_, err := Request(ctx, client, MsgTypeFrame, i, FrameRequest{Camera: testCameraData()})
		require.NoError(t, err)
	}

	msg, err := Request(ctx, client, MsgTypeStats, 4, nil)
	require.NoError(t, err)
	require.Equal(t, MsgTypeStatsResponse, msg.Type)

	var res StatsResponse
	require.NoError(t, msg.DataTo(&res))
	require.Equal(t, uint64(3), res.Frames)
	require.Equal(t, 1, res.Last.Frames)
	require.Equal(t, 1, res.Last.FrustumCulled)
	require.Equal(t, 3, res.Interval.Frames)
	require.Equal(t, 3, res.Interval.FrustumCulled)
}

func TestHandlerIdleTimeout(t *testing.T) {
	scene, _, _ := newTestScene(t)
	client, close := NewTestingEnv(t, func() Handler {
		return &ViewerHandler{
			ClientIdleTimeout: time.Millisecond * 50,
			Scene:             scene,
			Config:            pipeline.DefaultConfig(),
		}
	})
	defer close()

	client.SetDeadline(time.Now().Add(time.Second * 5))
	_, _, err := Receive(client)
	require.Error(t, err)
}

func TestViewerHandlerFeatureFlags(t *testing.T) {
	scene, _, _ := newTestScene(t)

	h := &ViewerHandler{
		Scene:        scene,
		Config:       pipeline.DefaultConfig(),
		FeatureFlags: featureflag.New([]string{string(featureflag.FlagDisableFrustumCulling)}),
	}
	h.init()
	require.False(t, h.pipeline.Config().Frustum.Enabled)
}
