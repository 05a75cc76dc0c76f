package websocket

import (
	"context"
	"sort"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/google/uuid"
	"github.com/vantage3d/vantage/featureflag"
	"github.com/vantage3d/vantage/models"
	"github.com/vantage3d/vantage/pipeline"
	"golang.org/x/net/websocket"
)

// HeaderClientID is the header a viewer can use to identify itself. A random
// id is used when it is missing.
const HeaderClientID = "X-Vantage-Client-Id"

// ViewerHandler culls the shared scene for a single viewer. Each connection
// owns its pipeline, its copy of the scene and the instance states sent back
// to the viewer.
type ViewerHandler struct {
	// The time a client is idle before being disconnected.
	ClientIdleTimeout time.Duration

	// The scene shared between viewers.
	Scene *models.Scene

	// The culling configuration.
	Config pipeline.Config

	FeatureFlags featureflag.FeatureFlag

	conn      *websocket.Conn
	clientID  string
	pipeline  *pipeline.Pipeline
	instances *models.InstanceTable

	elements     []*models.SceneElement
	sceneVersion uint64
	hasSnapshot  bool
	frame        uint64
	visible      map[uint32]bool
}

func (h *ViewerHandler) HandleConnect(conn *websocket.Conn) {
	h.conn = conn

	if req := conn.Request(); req != nil {
		h.clientID = req.Header.Get(HeaderClientID)
	}
	if h.clientID == "" {
		h.clientID = uuid.NewString()
	}

	h.init()
}

func (h *ViewerHandler) init() {
	if h.pipeline != nil {
		return
	}

	h.pipeline = pipeline.New(h.Config.WithFeatureFlags(h.FeatureFlags))
	h.instances = models.NewInstanceTable()
	h.visible = make(map[uint32]bool)
}

func (h *ViewerHandler) HandlePing(ctx context.Context, respond ResponseSender, msg Msg) error {
	respond.Send(MsgTypePong, msg.RequestID, PongResponse{
		ClientID: h.clientID,
	})
	return nil
}

func (h *ViewerHandler) HandleFrame(ctx context.Context, respond ResponseSender, msg Msg) error {
	h.init()

	var req FrameRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	cam, err := req.Camera.Camera()
	if err != nil {
		return err
	}

	h.refreshScene()
	res := h.pipeline.RunFrame(cam, h.elements, h.instances)
	h.frame = res.Frame

	respond.Send(MsgTypeFrameResult, msg.RequestID, h.frameResponse(res, req.ChangesOnly))
	return nil
}

// refreshScene replaces the elements with a new snapshot of the scene when it
// changed since the last frame.
func (h *ViewerHandler) refreshScene() {
	if h.Scene == nil {
		return
	}

	if h.hasSnapshot && h.Scene.Version() == h.sceneVersion {
		return
	}

	h.elements, h.sceneVersion = h.Scene.Snapshot()
	h.hasSnapshot = true

	ids := make(map[uint32]struct{}, len(h.elements))
	for _, e := range h.elements {
		ids[e.ID] = struct{}{}
	}
	for id := range h.visible {
		if _, ok := ids[id]; !ok {
			delete(h.visible, id)
		}
	}
}

func (h *ViewerHandler) frameResponse(res pipeline.FrameResult, changesOnly bool) FrameResponse {
	out := FrameResponse{
		Frame:        res.Frame,
		SceneVersion: h.sceneVersion,
		Elements:     make([]ElementResult, 0, len(h.elements)),
		Instances:    make([]InstanceResult, 0, len(h.elements)),
		Statistics:   res.Statistics,
	}

	for _, e := range h.elements {
		previous, known := h.visible[e.ID]
		h.visible[e.ID] = e.Visibility.Visible
		if changesOnly && known && previous == e.Visibility.Visible {
			continue
		}

		out.Elements = append(out.Elements, ElementResult{
			ID:         e.ID,
			Instance:   e.Instance,
			Visibility: e.Visibility,
		})

		if s, ok := h.instances.State(e.Instance); ok {
			out.Instances = append(out.Instances, InstanceResult{
				Instance:      e.Instance,
				InstanceState: s,
			})
		}
	}

	sort.Slice(out.Instances, func(i, j int) bool {
		return out.Instances[i].Instance < out.Instances[j].Instance
	})
	return out
}

func (h *ViewerHandler) HandleElementUpdate(ctx context.Context, respond ResponseSender, msg Msg) error {
	var req ElementUpdateRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	if h.Scene == nil {
		respond.Send(MsgTypeError, msg.RequestID, ErrorResponse{
			Code:    ErrCodeNotFound,
			Message: "no scene loaded",
		})
		return nil
	}

	err := h.Scene.Update(req.ID, req.Transform)
	switch {
	case errors.IsType(err, models.ErrTypeElementNotFound):
		respond.Send(MsgTypeError, msg.RequestID, ErrorResponse{
			Code:    ErrCodeNotFound,
			Message: err.Error(),
		})
		return nil

	case errors.IsType(err, models.ErrTypeInvalidTransform):
		respond.Send(MsgTypeError, msg.RequestID, ErrorResponse{
			Code:    ErrCodeInvalidArgument,
			Message: err.Error(),
		})
		return nil

	case err != nil:
		return err
	}

	respond.Send(MsgTypeElementUpdateResponse, msg.RequestID, ElementUpdateResponse{
		ID:           req.ID,
		SceneVersion: h.Scene.Version(),
	})
	return nil
}

func (h *ViewerHandler) HandleStats(ctx context.Context, respond ResponseSender, msg Msg) error {
	h.init()

	respond.Send(MsgTypeStatsResponse, msg.RequestID, StatsResponse{
		Frames:   h.frame,
		Last:     h.pipeline.Statistics(),
		Interval: h.pipeline.IntervalStatistics(),
	})
	return nil
}

func (h *ViewerHandler) HandleDisconnect(_ error) {
}

func (h *ViewerHandler) Receiver() Receiver {
	return func() (Msg, int, error) {
		return Receive(h.conn)
	}
}

func (h *ViewerHandler) Sender() Sender {
	return func(msg Msg) (int, error) {
		return Send(h.conn, msg)
	}
}

func (h *ViewerHandler) Close() {
	h.elements = nil
	h.visible = nil
}

func (h *ViewerHandler) IdleTimeout() time.Duration {
	return h.ClientIdleTimeout
}

func (h *ViewerHandler) GetClientID() string {
	return h.clientID
}

// Frames returns the number of frames culled for the viewer.
func (h *ViewerHandler) Frames() uint64 {
	return h.frame
}
