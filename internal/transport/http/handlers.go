package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"progress-service/internal/app"
	"progress-service/internal/domain"
	"progress-service/internal/logger"
	"github.com/go-chi/chi/v5"
)

// UserHeader carries the acting user's id. Requests without it act as the
// configured default user.
const UserHeader = "X-User-ID"

const maxBodyBytes = 1 << 20

// Handler exposes the catalog and submission use cases over JSON.
type Handler struct {
	submissions     *app.SubmissionService
	catalog         *app.CatalogService
	defaultUserID   int64
	maxAnswerLength int
	log             *logger.Logger
}

// NewHandler builds the JSON handlers. maxAnswerLength should match the
// engine's configured limit; zero selects the default.
func NewHandler(submissions *app.SubmissionService, catalog *app.CatalogService, defaultUserID int64, maxAnswerLength int, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		submissions:     submissions,
		catalog:         catalog,
		defaultUserID:   defaultUserID,
		maxAnswerLength: answerLimit(maxAnswerLength),
		log:             log,
	}
}

type errorResponse struct {
	Error     string   `json:"error"`
	ProblemID *int64   `json:"problem_id,omitempty"`
	Details   []string `json:"details,omitempty"`
}

func (h *Handler) ListLessons(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	lessons, err := h.catalog.ListLessons(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, lessons)
}

func (h *Handler) GetLesson(w http.ResponseWriter, r *http.Request) {
	lessonID, ok := parsePositiveID(chi.URLParam(r, "lessonID"))
	if !ok {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid lesson id"})
		return
	}
	detail, err := h.catalog.GetLesson(r.Context(), lessonID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

func (h *Handler) SubmitLesson(w http.ResponseWriter, r *http.Request) {
	lessonID, ok := parsePositiveID(chi.URLParam(r, "lessonID"))
	if !ok {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid lesson id"})
		return
	}
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	req, ok := decodeSubmit(w, r, h.maxAnswerLength)
	if !ok {
		return
	}
	result, err := h.submissions.SubmitLesson(r.Context(), userID, lessonID, req.normalizedAttemptID(), req.domainAnswers())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	profile, err := h.catalog.Profile(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

func (h *Handler) AdaptivePractice(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	problems, err := h.catalog.SelectPractice(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"problems": problems})
}

func (h *Handler) SubmitPractice(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	req, ok := decodeSubmit(w, r, h.maxAnswerLength)
	if !ok {
		return
	}
	result, err := h.submissions.SubmitPractice(r.Context(), userID, req.normalizedAttemptID(), req.domainAnswers())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.Header.Get(UserHeader)
	if raw == "" {
		return h.defaultUserID, true
	}
	id, ok := parsePositiveID(raw)
	if !ok {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user id"})
		return 0, false
	}
	return id, true
}

func decodeSubmit(w http.ResponseWriter, r *http.Request, maxAnswerLength int) (submitRequest, bool) {
	var req submitRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return req, false
	}
	if issues := req.validate(maxAnswerLength); len(issues) > 0 {
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Details: issues})
		return req, false
	}
	return req, true
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorBody(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	respondJSON(w, status, body)
}

func errorBody(err error) (int, errorResponse) {
	var de *domain.Error
	if !errors.As(err, &de) {
		return http.StatusInternalServerError, errorResponse{Error: "internal error"}
	}
	body := errorResponse{Error: de.Message, ProblemID: de.ProblemID}
	switch de.Kind {
	case domain.KindNotFound:
		return http.StatusNotFound, body
	case domain.KindUnprocessable:
		return http.StatusUnprocessableEntity, body
	case domain.KindConflict:
		return http.StatusConflict, body
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal error"}
	}
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
