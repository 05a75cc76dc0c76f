package smoketest

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/segmentio/encoding/json"
	vwebsocket "github.com/vantage3d/vantage/websocket"
	"golang.org/x/net/websocket"
)

const (
	ErrTypeSmokeTest = "smoke_test_failed"

	defaultTimeout = time.Second * 10
)

type Options struct {
	// The frame server endpoint tested when a request does not name one.
	Endpoint string

	UserAgent string

	// The camera the test frame is culled for. A camera at the origin looking
	// toward -z is used when nil.
	Camera *vwebsocket.CameraData

	Timeout time.Duration

	// When set, smoke tests triggered over HTTP run in the background and
	// their results are passed to SendResult.
	SendResult func(context.Context, Results) error
}

// Request is the optional body of a smoke test HTTP request.
type Request struct {
	Endpoint string        `json:"endpoint,omitempty"`
	Timeout  time.Duration `json:"timeout,omitempty"`
}

// Results are the outcome of a smoke test.
type Results struct {
	Endpoint  string    `json:"endpoint"`
	StartedAt time.Time `json:"started_at"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`

	PingLatencyMilliSec  float64 `json:"ping_latency_ms"`
	FrameLatencyMilliSec float64 `json:"frame_latency_ms"`

	Frame    uint64 `json:"frame"`
	Elements int    `json:"elements"`
	Visible  int    `json:"visible"`
}

func defaultCamera() vwebsocket.CameraData {
	return vwebsocket.CameraData{
		Target:   mgl32.Vec3{0, 0, -1},
		Up:       mgl32.Vec3{0, 1, 0},
		FovY:     60,
		Near:     0.1,
		Far:      1000,
		Viewport: mgl32.Vec2{1280, 720},
	}
}

// Run connects to a frame server, pings it and requests the culling of a
// frame.
func Run(ctx context.Context, opts Options) (Results, error) {
	res := Results{
		Endpoint:  opts.Endpoint,
		StartedAt: time.Now(),
	}

	err := run(ctx, opts, &res)
	if err != nil {
		res.Error = err.Error()
		return res, err
	}

	res.Success = true
	return res, nil
}

func run(ctx context.Context, opts Options, res *Results) error {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	config, err := websocket.NewConfig(websocketURL(opts.Endpoint), opts.Endpoint)
	if err != nil {
		return errors.New("invalid endpoint").
			WithType(ErrTypeSmokeTest).
			WithTag("endpoint", opts.Endpoint).
			Wrap(err)
	}
	if opts.UserAgent != "" {
		config.Header.Set("User-Agent", opts.UserAgent)
	}

	conn, err := config.DialContext(ctx)
	if err != nil {
		return errors.New("dialing frame server failed").
			WithType(ErrTypeSmokeTest).
			WithTag("endpoint", opts.Endpoint).
			Wrap(err)
	}
	defer conn.Close()

	start := time.Now()
	msg, err := vwebsocket.Request(ctx, conn, vwebsocket.MsgTypePing, 1, nil)
	if err != nil {
		return errors.New("ping failed").WithType(ErrTypeSmokeTest).Wrap(err)
	}
	if msg.Type != vwebsocket.MsgTypePong {
		return unexpectedResponse(msg)
	}
	res.PingLatencyMilliSec = milliseconds(time.Since(start))

	camera := defaultCamera()
	if opts.Camera != nil {
		camera = *opts.Camera
	}

	start = time.Now()
	msg, err = vwebsocket.Request(ctx, conn, vwebsocket.MsgTypeFrame, 2, vwebsocket.FrameRequest{
		Camera: camera,
	})
	if err != nil {
		return errors.New("frame request failed").WithType(ErrTypeSmokeTest).Wrap(err)
	}
	if msg.Type != vwebsocket.MsgTypeFrameResult {
		return unexpectedResponse(msg)
	}
	res.FrameLatencyMilliSec = milliseconds(time.Since(start))

	var frame vwebsocket.FrameResponse
	if err := msg.DataTo(&frame); err != nil {
		return errors.New("reading frame result failed").WithType(ErrTypeSmokeTest).Wrap(err)
	}

	res.Frame = frame.Frame
	res.Elements = len(frame.Elements)
	for _, e := range frame.Elements {
		if e.Visible {
			res.Visible++
		}
	}
	return nil
}

func unexpectedResponse(msg vwebsocket.Msg) error {
	err := errors.New("unexpected response").
		WithType(ErrTypeSmokeTest).
		WithTag("type", msg.Type)

	var errRes vwebsocket.ErrorResponse
	if msg.Type == vwebsocket.MsgTypeError && msg.DataTo(&errRes) == nil {
		err = err.WithTag("code", errRes.Code).WithTag("message", errRes.Message)
	}
	return err
}

func websocketURL(endpoint string) string {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return "wss://" + strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		return "ws://" + strings.TrimPrefix(endpoint, "http://")
	default:
		return endpoint
	}
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// HandleSmokeTest runs a smoke test against the endpoint in the request body,
// or against the configured one.
func HandleSmokeTest(ctx context.Context, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			logs.Warn(errors.New("reading body failed").Wrap(err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		var req Request
		if len(b) != 0 {
			if err := json.Unmarshal(b, &req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
		}

		testOpts := opts
		if req.Endpoint != "" {
			testOpts.Endpoint = req.Endpoint
		}
		if req.Timeout > 0 {
			testOpts.Timeout = req.Timeout
		}

		if opts.SendResult == nil {
			res, err := Run(r.Context(), testOpts)
			if err != nil {
				logs.Warn(err)
			}
			writeResults(w, res)
			return
		}

		go func() {
			res, err := Run(ctx, testOpts)
			if err != nil {
				logs.Warn(err)
			}

			if err := opts.SendResult(ctx, res); err != nil {
				logs.Warn(errors.New("sending smoke test result failed").
					WithTag("endpoint", testOpts.Endpoint).
					Wrap(err))
			}
		}()

		w.WriteHeader(http.StatusOK)
	}
}

func writeResults(w http.ResponseWriter, res Results) {
	b, err := json.Marshal(res)
	if err != nil {
		logs.Warn(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if !res.Success {
		w.WriteHeader(http.StatusBadGateway)
	}
	w.Write(b)
}
