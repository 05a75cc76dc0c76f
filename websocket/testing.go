package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"github.com/vantage3d/vantage/models"
	"github.com/vantage3d/vantage/pipeline"
	"golang.org/x/net/websocket"
)

// NewTestingEnv creates a testing environment to unit test viewer handlers.
// It returns a client connected to a server running the created handlers.
func NewTestingEnv(t *testing.T, newHandler func() Handler) (*websocket.Conn, func()) {
	var mutex sync.Mutex
	logger := t.Log

	logs.Encoder = func(v any) ([]byte, error) {
		return json.MarshalIndent(v, "", "  ")
	}

	logs.SetLogger(func(e logs.Entry) {
		mutex.Lock()
		defer mutex.Unlock()

		if logger != nil {
			logger(e)
		}
	})

	errors.Encoder = json.Marshal

	client, close := newTestingEnv(t, newHandler)
	return client, func() {
		mutex.Lock()
		defer mutex.Unlock()
		logger = nil
		close()
	}
}

func newTestingEnv(t *testing.T, newHandler func() Handler) (*websocket.Conn, func()) {
	server := httptest.NewServer(websocket.Server{
		Handshake: func(c *websocket.Config, r *http.Request) error {
			return nil
		},
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			handler := newHandler()
			defer handler.Close()

			Handle(context.Background(), conn, handler)
		},
	})

	config, err := websocket.NewConfig(
		strings.ReplaceAll(server.URL, "http://", "ws://"),
		"http://localhost",
	)
	if err != nil {
		t.Fatalf("error initializing web socket: %s", err)
	}

	config.Header.Set("User-Agent", "ted")
	config.Header.Set("X-Forwarded-For", "192.0.0.0")
	config.Header.Set(HeaderClientID, uuid.NewString())

	client, err := websocket.DialConfig(config)
	if err != nil {
		t.Fatalf("error dialing web socket: %s", err)
	}

	return client, func() {
		client.Close()
		server.Close()
	}
}

// Request sends a message to the server and waits for the response with the
// same request id. Messages of other requests are skipped.
func Request(ctx context.Context, conn *websocket.Conn, t MsgType, requestID uint32, data any) (Msg, error) {
	msg, err := NewMsg(t, requestID, data)
	if err != nil {
		return Msg{}, err
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
		defer conn.SetDeadline(time.Time{})
	}

	if _, err := Send(conn, msg); err != nil {
		return Msg{}, errors.New("sending request failed").
			WithTag("type", t).
			Wrap(err)
	}

	for {
		res, _, err := Receive(conn)
		if err != nil {
			return Msg{}, errors.New("receiving response failed").
				WithTag("type", t).
				Wrap(err)
		}

		if res.RequestID == requestID {
			return res, nil
		}
	}
}

func newTestHandler(scene *models.Scene, c pipeline.Config) func() Handler {
	return func() Handler {
		var h Handler = &ViewerHandler{
			ClientIdleTimeout: time.Minute,
			Scene:             scene,
			Config:            c,
		}

		h = HandlerWithLogs(h, time.Millisecond*100)
		h = HandlerWithMetrics(h, "https://vantage-test.com")
		return h
	}
}
