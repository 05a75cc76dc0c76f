package smoketest

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
	"github.com/vantage3d/vantage/geometry"
	"github.com/vantage3d/vantage/models"
	"github.com/vantage3d/vantage/pipeline"
	vwebsocket "github.com/vantage3d/vantage/websocket"
	"golang.org/x/net/websocket"
)

func newFrameServer(t *testing.T) *httptest.Server {
	scene := models.NewScene()

	bounds := geometry.AabbFromCenterSize(mgl32.Vec3{}, mgl32.Vec3{2, 2, 2})
	for _, z := range []float32{-10, 10} {
		tr := models.IdentityTransform()
		tr.Position = mgl32.Vec3{0, 0, z}
		scene.Add(&models.SceneElement{
			Transform: tr,
			Shape:     models.Simple{Bounds: &bounds},
		})
	}

	server := httptest.NewServer(websocket.Server{
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			h := &vwebsocket.ViewerHandler{
				ClientIdleTimeout: time.Minute,
				Scene:             scene,
				Config:            pipeline.DefaultConfig(),
			}
			defer h.Close()

			vwebsocket.Handle(context.Background(), conn, h)
		},
	})
	t.Cleanup(server.Close)
	return server
}

func TestRun(t *testing.T) {
	server := newFrameServer(t)

	t.Run("success", func(t *testing.T) {
		res, err := Run(context.Background(), Options{
			Endpoint:  server.URL,
			UserAgent: "vantage smoke test",
			Timeout:   time.Second * 5,
		})
		require.NoError(t, err)
		require.True(t, res.Success)
		require.Empty(t, res.Error)
		require.Equal(t, server.URL, res.Endpoint)
		require.Equal(t, uint64(1), res.Frame)
		require.Equal(t, 2, res.Elements)
		require.Equal(t, 1, res.Visible)
		require.Positive(t, res.PingLatencyMilliSec)
		require.Positive(t, res.FrameLatencyMilliSec)
	})

	t.Run("invalid camera", func(t *testing.T) {
		res, err := Run(context.Background(), Options{
			Endpoint: server.URL,
			Camera:   &vwebsocket.CameraData{FovY: 60},
			Timeout:  time.Second * 5,
		})
		require.Error(t, err)
		require.False(t, res.Success)
		require.Contains(t, res.Error, "unexpected response")
	})

	t.Run("unreachable server", func(t *testing.T) {
		res, err := Run(context.Background(), Options{
			Endpoint: "http://127.0.0.1:1",
			Timeout:  time.Second,
		})
		require.Error(t, err)
		require.False(t, res.Success)
	})
}

func TestWebsocketURL(t *testing.T) {
	require.Equal(t, "ws://localhost:4000", websocketURL("http://localhost:4000"))
	require.Equal(t, "wss://vantage.example.com", websocketURL("https://vantage.example.com"))
	require.Equal(t, "ws://localhost", websocketURL("ws://localhost"))
}

func TestHandleSmokeTest(t *testing.T) {
	server := newFrameServer(t)

	t.Run("synchronous", func(t *testing.T) {
		h := HandleSmokeTest(context.Background(), Options{
			Endpoint: "http://127.0.0.1:1",
			Timeout:  time.Second * 5,
		})

		body, err := json.Marshal(Request{Endpoint: server.URL})
		require.NoError(t, err)

		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodPost, "/smoke-test", bytes.NewReader(body)))
		require.Equal(t, http.StatusOK, w.Code)

		var res Results
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		require.True(t, res.Success)
		require.Equal(t, server.URL, res.Endpoint)
	})

	t.Run("failure", func(t *testing.T) {
		h := HandleSmokeTest(context.Background(), Options{
			Endpoint: "http://127.0.0.1:1",
			Timeout:  time.Second,
		})

		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodPost, "/smoke-test", nil))
		require.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("bad request", func(t *testing.T) {
		h := HandleSmokeTest(context.Background(), Options{Endpoint: server.URL})

		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodPost, "/smoke-test", bytes.NewReader([]byte("{"))))
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("background", func(t *testing.T) {
		results := make(chan Results, 1)
		h := HandleSmokeTest(context.Background(), Options{
			Endpoint: server.URL,
			Timeout:  time.Second * 5,
			SendResult: func(_ context.Context, res Results) error {
				results <- res
				return nil
			},
		})

		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodPost, "/smoke-test", nil))
		require.Equal(t, http.StatusOK, w.Code)

		select {
		case res := <-results:
			require.True(t, res.Success)
			require.Equal(t, 2, res.Elements)

		case <-time.After(time.Second * 5):
			t.Fatal("smoke test result not sent")
		}
	})
}
