package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// ProblemType distinguishes how an answer is graded.
type ProblemType string

const (
	ProblemMCQ   ProblemType = "mcq"
	ProblemInput ProblemType = "input"
)

// StreakChange classifies how a submission moved the daily streak.
type StreakChange string

const (
	StreakIncremented StreakChange = "incremented"
	StreakNoChange    StreakChange = "no_change"
	StreakReset       StreakChange = "reset"
)

// Lesson is an ordered group of problems.
type Lesson struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	OrderIndex  int    `json:"-"`
}

// Option represents a possible answer for an MCQ problem.
type Option struct {
	ID        int64  `json:"id"`
	ProblemID int64  `json:"problem_id"`
	Label     string `json:"label"`
	IsCorrect bool   `json:"is_correct"`
}

// Problem is immutable content owned by authoring.
type Problem struct {
	ID          int64       `json:"id"`
	LessonID    int64       `json:"lesson_id"`
	Type        ProblemType `json:"type"`
	Prompt      string      `json:"prompt"`
	AnswerText  string      `json:"answer_text,omitempty"`
	Explanation string      `json:"explanation,omitempty"`
	Options     []Option    `json:"options,omitempty"`
}

// Answer is one entry of a submitted batch. Exactly one of OptionID / Value
// is expected, depending on the referenced problem's type.
type Answer struct {
	ProblemID int64   `json:"problem_id"`
	OptionID  *int64  `json:"option_id,omitempty"`
	Value     *string `json:"value,omitempty"`
}

// AnswerEcho is the user's answer as echoed back in results: an option id
// for mcq problems, the trimmed text for input problems.
type AnswerEcho struct {
	OptionID *int64
	Text     *string
}

func (e AnswerEcho) MarshalJSON() ([]byte, error) {
	switch {
	case e.OptionID != nil:
		return json.Marshal(*e.OptionID)
	case e.Text != nil:
		return json.Marshal(*e.Text)
	default:
		return []byte("null"), nil
	}
}

func (e *AnswerEcho) UnmarshalJSON(data []byte) error {
	*e = AnswerEcho{}
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		e.Text = &s
		return nil
	}
	var id int64
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("answer echo: %w", err)
	}
	e.OptionID = &id
	return nil
}

// GradedResult is the per-problem outcome embedded in a SubmissionResult.
type GradedResult struct {
	ProblemID   int64      `json:"problem_id"`
	LessonID    *int64     `json:"lesson_id,omitempty"`
	Correct     bool       `json:"correct"`
	YourAnswer  AnswerEcho `json:"your_answer"`
	Explanation *string    `json:"explanation"`
}

// ProgressRecord is the per-(user, lesson) tally of problems ever solved.
type ProgressRecord struct {
	UserID      int64
	LessonID    int64
	Solved      SolvedSet
	SolvedCount int
	TotalCount  int
	// Persisted reports whether the record already exists in storage.
	Persisted bool
}

// UserState holds XP and streak aggregates for one user.
type UserState struct {
	UserID        int64
	TotalXP       int64
	CurrentStreak int
	BestStreak    int
	LastActivity  *time.Time
}

// SubmissionScope identifies the idempotency dimension of a submission.
// Lesson submissions are scoped by lesson; practice submissions are not.
type SubmissionScope struct {
	LessonID int64
	Practice bool
}

func LessonScope(lessonID int64) SubmissionScope { return SubmissionScope{LessonID: lessonID} }

func PracticeScope() SubmissionScope { return SubmissionScope{Practice: true} }

func (s SubmissionScope) String() string {
	if s.Practice {
		return "practice"
	}
	return fmt.Sprintf("lesson:%d", s.LessonID)
}

// SubmissionRecord is the write-once idempotency ledger entry.
type SubmissionRecord struct {
	UserID       int64
	Scope        SubmissionScope
	Token        string
	Answers      []Answer
	Result       json.RawMessage
	XPAwarded    int64
	CorrectCount int
	CreatedAt    time.Time
}

// StreakSummary is the streak block of a SubmissionResult.
type StreakSummary struct {
	Current int          `json:"current"`
	Best    int          `json:"best"`
	Change  StreakChange `json:"change"`
}

// ProgressSummary reports solved/total counts for a lesson or a batch.
type ProgressSummary struct {
	SolvedCount int  `json:"solved_count"`
	TotalCount  int  `json:"total_count"`
	Percent     int  `json:"percent"`
	Completed   bool `json:"completed"`
}

// SubmissionResult is the payload returned to callers and stored verbatim
// as the idempotency record.
type SubmissionResult struct {
	AttemptID      string          `json:"attempt_id"`
	LessonID       *int64          `json:"lesson_id,omitempty"`
	XPGained       int64           `json:"xp_gained"`
	TotalXP        int64           `json:"total_xp"`
	Streak         StreakSummary   `json:"streak"`
	LessonProgress ProgressSummary `json:"lesson_progress"`
	Results        []GradedResult  `json:"results"`
}

// LessonOverview is a catalog entry with the user's progress.
type LessonOverview struct {
	Lesson
	Progress ProgressSummary `json:"progress"`
}

// PublicOption is an option without its correctness flag.
type PublicOption struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

// PublicProblem is a problem stripped of answer keys.
type PublicProblem struct {
	ID       int64          `json:"id"`
	LessonID int64          `json:"lesson_id"`
	Type     ProblemType    `json:"type"`
	Prompt   string         `json:"prompt"`
	Options  []PublicOption `json:"options"`
}

// LessonDetail is a lesson with its public problems.
type LessonDetail struct {
	Lesson
	Problems []PublicProblem `json:"problems"`
}

// Profile summarises a user's stats.
type Profile struct {
	TotalXP            int64 `json:"total_xp"`
	CurrentStreak      int   `json:"current_streak"`
	BestStreak         int   `json:"best_streak"`
	ProgressPercentage int   `json:"progress_percentage"`
}

// Public strips answer keys from a problem.
func (p Problem) Public() PublicProblem {
	opts := make([]PublicOption, 0, len(p.Options))
	for _, o := range p.Options {
		opts = append(opts, PublicOption{ID: o.ID, Label: o.Label})
	}
	sort.Slice(opts, func(i, j int) bool { return opts[i].ID < opts[j].ID })
	return PublicProblem{ID: p.ID, LessonID: p.LessonID, Type: p.Type, Prompt: p.Prompt, Options: opts}
}
