package http

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"progress-service/internal/app"
	"progress-service/internal/domain"
	"github.com/google/uuid"
)


type answerRequest struct {
	ProblemID int64   `json:"problem_id"`
	OptionID  *int64  `json:"option_id,omitempty"`
	Value     *string `json:"value,omitempty"`
}

type submitRequest struct {
	AttemptID string          `json:"attempt_id"`
	Answers   []answerRequest `json:"answers"`
}

// validate reports every shape problem at once so clients can fix a batch
// in one round trip.
func (r submitRequest) validate(maxValueLength int) []string {
	var issues []string
	if _, err := uuid.Parse(r.AttemptID); err != nil {
		issues = append(issues, "attempt_id: must be a UUID")
	}
	if len(r.Answers) == 0 {
		issues = append(issues, "answers: must contain at least one answer")
	}
	for i, a := range r.Answers {
		if a.ProblemID <= 0 {
			issues = append(issues, fmt.Sprintf("answers[%d].problem_id: must be a positive integer", i))
		}
		if a.OptionID != nil && *a.OptionID <= 0 {
			issues = append(issues, fmt.Sprintf("answers[%d].option_id: must be a positive integer", i))
		}
		if a.Value != nil && utf8.RuneCountInString(*a.Value) > maxValueLength {
			issues = append(issues, fmt.Sprintf("answers[%d].value: must be at most %d characters", i, maxValueLength))
		}
	}
	return issues
}

func (r submitRequest) domainAnswers() []domain.Answer {
	out := make([]domain.Answer, 0, len(r.Answers))
	for _, a := range r.Answers {
		out = append(out, domain.Answer{ProblemID: a.ProblemID, OptionID: a.OptionID, Value: a.Value})
	}
	return out
}

// normalizedAttemptID returns the canonical lower-case form so the same
// UUID typed differently maps to one idempotency key.
func (r submitRequest) normalizedAttemptID() string {
	id, err := uuid.Parse(r.AttemptID)
	if err != nil {
		return strings.TrimSpace(r.AttemptID)
	}
	return id.String()
}

// answerLimit is the edge bound on input values. It matches the engine's
// limit, which also counts the untrimmed value.
func answerLimit(configured int) int {
	if configured <= 0 {
		return app.DefaultMaxAnswerLength
	}
	return configured
}

func parsePositiveID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
