package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"lecture-quiz-service/internal/app"
	"lecture-quiz-service/internal/domain"
	"lecture-quiz-service/internal/logger"
)

type WSHandler struct {
	service  *app.PracticeService
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.PracticeService, log *logger.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// startPayload selects a single set (linear) or an explicit list of questions.
type startPayload struct {
	SetID string               `json:"setId"`
	Refs  []domain.QuestionRef `json:"refs"`
}

type answerPayload struct {
	Answer domain.Value `json:"answer"`
}

type reviewPayload struct {
	Ref domain.QuestionRef `json:"ref"`
}

type favoritePayload struct {
	FolderID string `json:"folderId"`
}

type checkedPayload struct {
	Result domain.ResultEntry `json:"result"`
	State  app.SessionView    `json:"state"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and runs one practice session per connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage, 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Warn("ws write error", "user_id", userID, "error", err)
				// drain so the reader never blocks on a dead connection
				for range send {
				}
				return
			}
		}
	}()

	conv := &conversation{service: h.service, userID: userID, send: send}
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		conv.handle(r.Context(), inbound)
	}

	conv.close()
	close(send)
	<-writerDone
}

// conversation holds the per-connection state of the practice protocol.
type conversation struct {
	service   *app.PracticeService
	userID    string
	sessionID string
	send      chan<- outboundMessage
}

func (c *conversation) handle(ctx context.Context, inbound inboundMessage) {
	switch inbound.Type {
	case "start":
		var payload startPayload
		if !c.decode(inbound.Payload, &payload) {
			return
		}
		c.close()
		var (
			view app.SessionView
			err  error
		)
		if len(payload.Refs) > 0 {
			view, err = c.service.StartExternal(ctx, c.userID, payload.Refs)
		} else {
			view, err = c.service.StartLinear(ctx, c.userID, payload.SetID)
		}
		if err != nil {
			c.fail(err)
			return
		}
		c.sessionID = view.SessionID
		c.emit("state", view)
	case "answer":
		var payload answerPayload
		if !c.decode(inbound.Payload, &payload) {
			return
		}
		c.state(c.service.Answer(ctx, c.sessionID, payload.Answer))
	case "check":
		entry, view, err := c.service.Check(ctx, c.sessionID)
		if err != nil {
			c.fail(err)
			return
		}
		c.emit("checked", checkedPayload{Result: entry, State: view})
	case "next":
		c.state(c.service.Next(ctx, c.sessionID))
	case "prev":
		c.state(c.service.Prev(ctx, c.sessionID))
	case "restart":
		c.state(c.service.Restart(ctx, c.sessionID))
	case "retryWrong":
		view, retried, err := c.service.RetryWrong(ctx, c.sessionID)
		if err != nil {
			c.fail(err)
			return
		}
		if !retried {
			c.emit("nothingToRetry", view)
			return
		}
		c.emit("state", view)
	case "review":
		var payload reviewPayload
		if !c.decode(inbound.Payload, &payload) {
			return
		}
		review, ok, err := c.service.Review(ctx, c.sessionID, payload.Ref)
		if err != nil {
			c.fail(err)
			return
		}
		if !ok {
			c.emit("error", errorPayload{Message: "question has no recorded result"})
			return
		}
		c.emit("review", review)
	case "favorite":
		var payload favoritePayload
		if !c.decode(inbound.Payload, &payload) {
			return
		}
		if err := c.service.ToggleFavorite(ctx, c.sessionID, payload.FolderID); err != nil {
			c.fail(err)
		}
	case "folders":
		folders := c.service.Folders(ctx, c.userID)
		if folders == nil {
			folders = []domain.FavoriteFolder{}
		}
		c.emit("folders", folders)
	case "summary":
		summary, err := c.service.Summary(ctx, c.sessionID)
		if err != nil {
			c.fail(err)
			return
		}
		c.emit("summary", summary)
	default:
		c.emit("error", errorPayload{Message: "unsupported message type"})
	}
}

func (c *conversation) state(view app.SessionView, err error) {
	if err != nil {
		c.fail(err)
		return
	}
	c.emit("state", view)
}

func (c *conversation) decode(raw json.RawMessage, v any) bool {
	if len(raw) == 0 {
		return true
	}
	if err := json.Unmarshal(raw, v); err != nil {
		c.emit("error", errorPayload{Message: "invalid payload"})
		return false
	}
	return true
}

func (c *conversation) fail(err error) {
	c.emit("error", errorPayload{Message: err.Error()})
}

func (c *conversation) emit(typ string, payload any) {
	c.send <- outboundMessage{Type: typ, Payload: payload}
}

func (c *conversation) close() {
	if c.sessionID != "" {
		c.service.Close(c.sessionID)
		c.sessionID = ""
	}
}
