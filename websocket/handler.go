package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"golang.org/x/net/websocket"
)

const (
	sendChanSize    = 512
	receiveChanSize = 64
)

// Handler represents a viewer connection handler.
type Handler interface {
	// Handles a client connection.
	HandleConnect(conn *websocket.Conn)

	// Handles a ping request.
	HandlePing(ctx context.Context, respond ResponseSender, msg Msg) error

	// Handles a request to cull a frame for a camera.
	HandleFrame(ctx context.Context, respond ResponseSender, msg Msg) error

	// Handles a request to move a scene element.
	HandleElementUpdate(ctx context.Context, respond ResponseSender, msg Msg) error

	// Handles a request for the culling statistics of the connection.
	HandleStats(ctx context.Context, respond ResponseSender, msg Msg) error

	// Handles a client's disconnection.
	HandleDisconnect(error)

	// Creates a message receiver used to receive incoming messages.
	Receiver() Receiver

	// Creates a message sender used to send messages.
	Sender() Sender

	// Closes the handler and releases its allocated resources.
	Close()

	// The time a client is idle before being disconnected.
	IdleTimeout() time.Duration

	// Get ClientID
	GetClientID() string
}

// Handle runs the connection loop of the given handler until the client
// disconnects or the context is canceled.
func Handle(ctx context.Context, conn *websocket.Conn, h Handler) {
	handler := handler{
		Conn:    conn,
		Handler: h,
	}

	handler.Handle(ctx)
}

type handler struct {
	// The WebSocket connection.
	Conn *websocket.Conn

	// The viewer handler.
	Handler Handler

	sendChan       chan Msg
	receiveChan    chan Msg
	sender         Sender
	receiver       Receiver
	disconnectChan chan error
}

func (h *handler) Handle(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	h.Handler.HandleConnect(h.Conn)

	h.disconnectChan = make(chan error, 8)
	defer func() {
		for len(h.disconnectChan) != 0 {
			<-h.disconnectChan
		}
	}()

	var wg sync.WaitGroup

	h.sendChan = make(chan Msg, sendChanSize)
	h.sender = h.Handler.Sender()

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.startSending(ctx)
	}()

	h.receiveChan = make(chan Msg, receiveChanSize)
	h.receiver = h.Handler.Receiver()

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.startReceiving(ctx)
	}()

	idleTimeout := h.Handler.IdleTimeout()
	idleTimer := time.NewTimer(idleTimeout)
	defer idleTimer.Stop()

	responder := responseSender{
		clientID: h.Handler.GetClientID(),
		sendMsg:  h.sendMsg,
	}

	for ctx.Err() == nil {
		select {
		case <-ctx.Done():
			h.disconnect(ctx.Err())

		case <-idleTimer.C:
			h.disconnect(errors.New("idle connection").WithTag("duration", idleTimeout))

		case msg := <-h.receiveChan:
			idleTimer.Stop()
			idleTimer.Reset(idleTimeout)

			if err := h.handleMessage(ctx, msg, responder); err != nil {
				h.disconnect(errors.New("handling message failed").Wrap(err))
			}

		case err := <-h.disconnectChan:
			h.handleDisconnect(err)
			if ctx.Err() == nil {
				// cancel context so go routines can cleanly exit
				cancel()
			}
		}
	}

	wg.Wait()
}

func (h *handler) sendMsg(msg Msg) {
	select {
	case h.sendChan <- msg:
	default:
		logs.WithTag(logs.ClientIDTag, h.Handler.GetClientID()).
			WithTag("msg_type", msg.Type).
			Debug("send queue is full, message dropped")
	}
}

func (h *handler) startSending(ctx context.Context) {
	defer func() {
		for len(h.sendChan) != 0 {
			<-h.sendChan
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-h.sendChan:
			if _, err := h.sender(msg); err != nil {
				h.disconnect(errors.New("sending message failed").Wrap(err))
				return
			}
		}
	}
}

func (h *handler) startReceiving(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		default:
			msg, _, err := h.receiver()
			if errors.IsType(err, ErrTypeInvalidMessage) {
				h.sendError(0, ErrCodeInvalidMessage, err)
				continue
			}
			if err != nil {
				h.disconnect(errors.New("receiving message failed").Wrap(err))
				return
			}

			select {
			case h.receiveChan <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (h *handler) handleMessage(ctx context.Context, msg Msg, responder ResponseSender) error {
	var err error

	switch msg.Type {
	case MsgTypePing:
		err = h.Handler.HandlePing(ctx, responder, msg)

	case MsgTypeFrame:
		err = h.Handler.HandleFrame(ctx, responder, msg)

	case MsgTypeElementUpdate:
		err = h.Handler.HandleElementUpdate(ctx, responder, msg)

	case MsgTypeStats:
		err = h.Handler.HandleStats(ctx, responder, msg)

	default:
		h.sendError(msg.RequestID, ErrCodeUnknownType, errors.New("unknown message type").
			WithTag("type", msg.Type))
		return nil
	}

	// Bad requests are answered, the connection stays open.
	if errors.IsType(err, ErrTypeInvalidMessage) {
		h.sendError(msg.RequestID, ErrCodeInvalidMessage, err)
		return nil
	}
	return err
}

func (h *handler) sendError(requestID uint32, code string, err error) {
	res := ErrorResponse{Code: code}
	if err != nil {
		res.Message = err.Error()
	}

	msg, encErr := NewMsg(MsgTypeError, requestID, res)
	if encErr != nil {
		logs.Warn(encErr)
		return
	}
	h.sendMsg(msg)
}

func (h *handler) disconnect(err error) {
	select {
	case h.disconnectChan <- err:
	default:
	}
}

func (h *handler) handleDisconnect(err error) {
	h.Conn.Close()
	h.Handler.HandleDisconnect(err)
}

type responseSender struct {
	clientID string
	sendMsg  func(Msg)
}

func (r responseSender) Send(t MsgType, requestID uint32, data any) {
	msg, err := NewMsg(t, requestID, data)
	if err != nil {
		logs.WithTag(logs.ClientIDTag, r.clientID).
			WithTag("msg_type", t).
			WithTag("error", err.Error()).
			Debug("message not sent")
		return
	}
	r.sendMsg(msg)
}

func (r responseSender) SendMsg(msg Msg) {
	r.sendMsg(msg)
}
