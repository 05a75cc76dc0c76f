package websocket

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

const (
	ErrTypeInvalidMessage = "invalid_message"
)

// MsgType is the type of a message exchanged with viewers.
type MsgType string

const (
	MsgTypePing                  MsgType = "ping"
	MsgTypePong                  MsgType = "pong"
	MsgTypeFrame                 MsgType = "frame"
	MsgTypeFrameResult           MsgType = "frame_result"
	MsgTypeElementUpdate         MsgType = "element_update"
	MsgTypeElementUpdateResponse MsgType = "element_update_response"
	MsgTypeStats                 MsgType = "stats"
	MsgTypeStatsResponse         MsgType = "stats_response"
	MsgTypeError                 MsgType = "error"
)

// Error codes sent in error messages.
const (
	ErrCodeInvalidMessage  = "invalid_message"
	ErrCodeUnknownType     = "unknown_message_type"
	ErrCodeNotFound        = "not_found"
	ErrCodeInvalidArgument = "invalid_argument"
)

// Msg is a JSON message exchanged over a viewer connection.
type Msg struct {
	Type      MsgType         `json:"type"`
	RequestID uint32          `json:"request_id,omitempty"`
	Time      time.Time       `json:"time"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMsg creates a message with the given data encoded as JSON.
func NewMsg(t MsgType, requestID uint32, data any) (Msg, error) {
	msg := Msg{
		Type:      t,
		RequestID: requestID,
		Time:      time.Now(),
	}

	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return Msg{}, errors.New("encoding message data failed").
				WithType(ErrTypeInvalidMessage).
				WithTag("type", t).
				Wrap(err)
		}
		msg.Data = b
	}
	return msg, nil
}

// DataTo decodes the message data into v. A message without data leaves v
// untouched.
func (m Msg) DataTo(v any) error {
	if len(m.Data) == 0 {
		return nil
	}

	if err := json.Unmarshal(m.Data, v); err != nil {
		return errors.New("decoding message data failed").
			WithType(ErrTypeInvalidMessage).
			WithTag("type", m.Type).
			Wrap(err)
	}
	return nil
}

// Receiver reads the next message. It returns the number of bytes read.
type Receiver func() (Msg, int, error)

// Sender writes a message. It returns the number of bytes written.
type Sender func(Msg) (int, error)

// ResponseSender queues messages to be sent to a viewer.
type ResponseSender interface {
	Send(t MsgType, requestID uint32, data any)
	SendMsg(msg Msg)
}

// Receive reads a message from the connection.
func Receive(conn *websocket.Conn) (Msg, int, error) {
	var b []byte
	if err := websocket.Message.Receive(conn, &b); err != nil {
		return Msg{}, 0, err
	}

	var msg Msg
	if err := json.Unmarshal(b, &msg); err != nil {
		return Msg{}, len(b), errors.New("decoding message failed").
			WithType(ErrTypeInvalidMessage).
			Wrap(err)
	}
	return msg, len(b), nil
}

// Send writes a message to the connection as a text frame.
func Send(conn *websocket.Conn, msg Msg) (int, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return 0, errors.New("encoding message failed").
			WithType(ErrTypeInvalidMessage).
			WithTag("type", msg.Type).
			Wrap(err)
	}

	if err := websocket.Message.Send(conn, string(b)); err != nil {
		return 0, err
	}
	return len(b), nil
}
