package websocket

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"golang.org/x/net/websocket"
)

func HandlerWithLogs(h Handler, summaryInterval time.Duration) Handler {
	ctx, cancel := context.WithCancel(context.Background())

	handler := &handlerWithLogs{
		Handler:            h,
		summaryInterval:    summaryInterval,
		closeSummaryWorker: cancel,
		counter:            make(map[string]int),
	}

	go handler.startSummaryWorker(ctx)
	return handler
}

type handlerWithLogs struct {
	Handler

	summaryInterval    time.Duration
	closeSummaryWorker func()
	counterMutex       sync.Mutex
	counter            map[string]int

	frames int
}

func (h *handlerWithLogs) HandleConnect(conn *websocket.Conn) {
	h.Handler.HandleConnect(conn)

	entry := logs.WithTag(logs.ClientIDTag, h.GetClientID())
	if req := conn.Request(); req != nil {
		entry = entry.WithTag("http_headers", struct {
			UserAgent     string `json:"user_agent,omitempty"`
			XForwardedFor string `json:"x_forwarded_for,omitempty"`
		}{
			UserAgent:     req.UserAgent(),
			XForwardedFor: req.Header.Get("X-Forwarded-For"),
		})
	}
	entry.Info("new viewer is connected")
}

func (h *handlerWithLogs) HandleFrame(ctx context.Context, respond ResponseSender, msg Msg) error {
	err := h.Handler.HandleFrame(ctx, respond, msg)
	if err == nil {
		h.frames++
	}
	return err
}

func (h *handlerWithLogs) HandleElementUpdate(ctx context.Context, respond ResponseSender, msg Msg) error {
	var req ElementUpdateRequest
	msg.DataTo(&req)

	if err := h.Handler.HandleElementUpdate(ctx, respond, msg); err != nil {
		return err
	}

	logs.WithTag(logs.ClientIDTag, h.GetClientID()).
		WithTag("element_id", req.ID).
		WithTag("request_id", msg.RequestID).
		Debug("element update handled")
	return nil
}

func (h *handlerWithLogs) HandleDisconnect(err error) {
	h.Handler.HandleDisconnect(err)

	entry := logs.WithTag(logs.ClientIDTag, h.GetClientID()).
		WithTag("frames", h.frames)
	if err != nil {
		entry = entry.WithTag("reason", err.Error())
	}
	entry.Info("viewer disconnected")
}

func (h *handlerWithLogs) Receiver() Receiver {
	receive := h.Handler.Receiver()

	return func() (Msg, int, error) {
		msg, n, err := receive()
		if err != nil && !stderrors.Is(err, io.EOF) && !stderrors.Is(err, net.ErrClosed) {
			logs.Warn(errors.New("receiving message failed").
				WithTag(logs.ClientIDTag, h.GetClientID()).
				Wrap(err))
		} else if err == nil {
			logs.WithTag(logs.ClientIDTag, h.GetClientID()).
				WithTag("msg_type", msg.Type).
				WithTag("request_id", msg.RequestID).
				Debug("message received")
			h.incCounter(string(msg.Type))
		}
		return msg, n, err
	}
}

func (h *handlerWithLogs) Sender() Sender {
	sender := h.Handler.Sender()

	return func(msg Msg) (int, error) {
		n, err := sender(msg)
		if err != nil && !stderrors.Is(err, net.ErrClosed) {
			logs.Warn(errors.New("sending message failed").
				WithTag(logs.ClientIDTag, h.GetClientID()).
				WithTag("msg_type", msg.Type).
				Wrap(err))
		} else if err == nil {
			logs.WithTag(logs.ClientIDTag, h.GetClientID()).
				WithTag("msg_type", msg.Type).
				WithTag("bytes", n).
				Debug("message sent")
		}
		return n, err
	}
}

func (h *handlerWithLogs) Close() {
	h.Handler.Close()
	h.closeSummaryWorker()
	h.logSummary()
}

func (h *handlerWithLogs) startSummaryWorker(ctx context.Context) {
	ticker := time.NewTicker(h.summaryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			h.logSummary()
		}
	}
}

func (h *handlerWithLogs) incCounter(msgType string) {
	h.counterMutex.Lock()
	defer h.counterMutex.Unlock()

	h.counter[msgType]++
}

func (h *handlerWithLogs) logSummary() {
	h.counterMutex.Lock()
	defer h.counterMutex.Unlock()

	if len(h.counter) == 0 {
		return
	}

	entry := logs.WithTag(logs.ClientIDTag, h.GetClientID()).
		WithTag("time_interval", h.summaryInterval.String())

	for k, v := range h.counter {
		entry = entry.WithTag(k, v)
		delete(h.counter, k)
	}

	entry.Info("inbound message summary")
}
