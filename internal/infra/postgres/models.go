package postgres

import (
	"time"

	"progress-service/internal/domain"
	"github.com/uptrace/bun"
)

type lessonRow struct {
	bun.BaseModel `bun:"table:lessons"`

	ID          int64  `bun:"id,pk,autoincrement"`
	Title       string `bun:"title"`
	Description string `bun:"description"`
	OrderIndex  int    `bun:"order_index"`
}

type problemRow struct {
	bun.BaseModel `bun:"table:problems"`

	ID              int64  `bun:"id,pk,autoincrement"`
	LessonID        int64  `bun:"lesson_id"`
	Type            string `bun:"type"`
	Prompt          string `bun:"prompt"`
	AnswerText      string `bun:"answer_text,nullzero"`
	ExplanationText string `bun:"explanation_text,nullzero"`
}

type optionRow struct {
	bun.BaseModel `bun:"table:problem_options"`

	ID        int64  `bun:"id,pk,autoincrement"`
	ProblemID int64  `bun:"problem_id"`
	Label     string `bun:"label"`
	IsCorrect bool   `bun:"is_correct"`
}

type userRow struct {
	bun.BaseModel `bun:"table:users"`

	ID               int64      `bun:"id,pk,autoincrement"`
	TotalXP          int64      `bun:"total_xp"`
	CurrentStreak    int        `bun:"current_streak"`
	BestStreak       int        `bun:"best_streak"`
	LastActivityDate *time.Time `bun:"last_activity_date"`
}

type progressRow struct {
	bun.BaseModel `bun:"table:user_progress"`

	UserID           int64   `bun:"user_id,pk"`
	LessonID         int64   `bun:"lesson_id,pk"`
	SolvedProblemIDs []int64 `bun:"solved_problem_ids,array"`
	SolvedCount      int     `bun:"solved_count"`
	TotalCount       int     `bun:"total_count"`
}

// submissionRow backs both ledgers: submissions (lesson scoped) and
// practice_submissions, which has no lesson_id column.
type submissionRow struct {
	UserID       int64     `bun:"user_id"`
	LessonID     int64     `bun:"lesson_id"`
	AttemptID    string    `bun:"attempt_id"`
	Answers      string    `bun:"answers"`
	Result       string    `bun:"result"`
	XPAwarded    int64     `bun:"xp_awarded"`
	CorrectCount int       `bun:"correct_count"`
	CreatedAt    time.Time `bun:"created_at"`
}

func (r problemRow) toDomain(options []optionRow) domain.Problem {
	p := domain.Problem{
		ID:          r.ID,
		LessonID:    r.LessonID,
		Type:        domain.ProblemType(r.Type),
		Prompt:      r.Prompt,
		AnswerText:  r.AnswerText,
		Explanation: r.ExplanationText,
	}
	for _, o := range options {
		p.Options = append(p.Options, domain.Option{ID: o.ID, ProblemID: o.ProblemID, Label: o.Label, IsCorrect: o.IsCorrect})
	}
	return p
}

func (r userRow) toDomain() domain.UserState {
	u := domain.UserState{
		UserID:        r.ID,
		TotalXP:       r.TotalXP,
		CurrentStreak: r.CurrentStreak,
		BestStreak:    r.BestStreak,
	}
	if r.LastActivityDate != nil {
		d := dateOnly(*r.LastActivityDate)
		u.LastActivity = &d
	}
	return u
}

func (r progressRow) toDomain() domain.ProgressRecord {
	return domain.ProgressRecord{
		UserID:      r.UserID,
		LessonID:    r.LessonID,
		Solved:      domain.NewSolvedSet(r.SolvedProblemIDs...),
		SolvedCount: r.SolvedCount,
		TotalCount:  r.TotalCount,
		Persisted:   true,
	}
}

// dateOnly keeps the calendar date as written, whatever zone the driver used.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const dateLayout = "2006-01-02"
