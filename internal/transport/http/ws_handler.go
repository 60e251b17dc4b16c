package http

import (
	"encoding/json"
	"net/http"

	"progress-service/internal/app"
	"progress-service/internal/domain"
	"progress-service/internal/logger"
	"github.com/gorilla/websocket"
)

// WSHandler accepts submissions over a websocket so a client can stream
// answer batches without a request per batch.
type WSHandler struct {
	submissions     *app.SubmissionService
	catalog         *app.CatalogService
	defaultUserID   int64
	maxAnswerLength int
	log             *logger.Logger
	upgrader        websocket.Upgrader
}

func NewWSHandler(submissions *app.SubmissionService, catalog *app.CatalogService, defaultUserID int64, maxAnswerLength int, log *logger.Logger) *WSHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &WSHandler{
		submissions:     submissions,
		catalog:         catalog,
		defaultUserID:   defaultUserID,
		maxAnswerLength: answerLimit(maxAnswerLength),
		log:             log,
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

type lessonSubmitPayload struct {
	LessonID int64 `json:"lesson_id"`
	submitRequest
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type wsErrorPayload struct {
	Status    int      `json:"status"`
	Message   string   `json:"message"`
	ProblemID *int64   `json:"problem_id,omitempty"`
	Details   []string `json:"details,omitempty"`
}

// ServeWS upgrades the request and answers each inbound message in order.
// The acting user is fixed for the connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := h.defaultUserID
	raw := r.URL.Query().Get("userId")
	if raw == "" {
		raw = r.Header.Get(UserHeader)
	}
	if raw != "" {
		id, ok := parsePositiveID(raw)
		if !ok {
			http.Error(w, "invalid userId", http.StatusBadRequest)
			return
		}
		userID = id
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	log := h.log.With("user_id", userID)
	send := make(chan outboundMessage, 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Warn("ws write failed", "error", err)
				return
			}
		}
	}()

	ctx := r.Context()
	send <- outboundMessage{Type: "ready", Payload: map[string]int64{"user_id": userID}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "submit_lesson":
			var payload lessonSubmitPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- wsError(http.StatusBadRequest, "invalid submit_lesson payload")
				continue
			}
			if payload.LessonID <= 0 {
				send <- wsError(http.StatusBadRequest, "invalid lesson id")
				continue
			}
			if issues := payload.validate(h.maxAnswerLength); len(issues) > 0 {
				send <- outboundMessage{Type: "error", Payload: wsErrorPayload{Status: http.StatusUnprocessableEntity, Message: "validation failed", Details: issues}}
				continue
			}
			result, err := h.submissions.SubmitLesson(ctx, userID, payload.LessonID, payload.normalizedAttemptID(), payload.domainAnswers())
			send <- h.resultMessage(result, err, log)
		case "submit_practice":
			var payload submitRequest
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- wsError(http.StatusBadRequest, "invalid submit_practice payload")
				continue
			}
			if issues := payload.validate(h.maxAnswerLength); len(issues) > 0 {
				send <- outboundMessage{Type: "error", Payload: wsErrorPayload{Status: http.StatusUnprocessableEntity, Message: "validation failed", Details: issues}}
				continue
			}
			result, err := h.submissions.SubmitPractice(ctx, userID, payload.normalizedAttemptID(), payload.domainAnswers())
			send <- h.resultMessage(result, err, log)
		case "practice":
			problems, err := h.catalog.SelectPractice(ctx, userID)
			if err != nil {
				send <- h.errorMessage(err, log)
				continue
			}
			send <- outboundMessage{Type: "practice", Payload: map[string]any{"problems": problems}}
		default:
			send <- wsError(http.StatusBadRequest, "unsupported message type")
		}
	}

	close(send)
	<-writerDone
}

func (h *WSHandler) resultMessage(result domain.SubmissionResult, err error, log *logger.Logger) outboundMessage {
	if err != nil {
		return h.errorMessage(err, log)
	}
	return outboundMessage{Type: "submission_result", Payload: result}
}

func (h *WSHandler) errorMessage(err error, log *logger.Logger) outboundMessage {
	status, body := errorBody(err)
	if status == http.StatusInternalServerError {
		log.Error("ws request failed", "error", err)
	}
	return outboundMessage{Type: "error", Payload: wsErrorPayload{Status: status, Message: body.Error, ProblemID: body.ProblemID}}
}

func wsError(status int, msg string) outboundMessage {
	return outboundMessage{Type: "error", Payload: wsErrorPayload{Status: status, Message: msg}}
}
