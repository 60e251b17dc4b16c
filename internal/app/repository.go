package app

import (
	"context"
	"time"

	"progress-service/internal/domain"
)

// Store abstracts the transactional relational store (Postgres, in-memory).
type Store interface {
	// WithinTx runs fn in a single transaction. Writes handed to Tx.Apply only
	// become visible if fn returns nil and the commit succeeds. A uniqueness
	// violation on a submission key surfaces as domain.ErrDuplicateSubmission.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// FindSubmission reads a committed submission outside any transaction.
	// It returns nil, nil when no record exists.
	FindSubmission(ctx context.Context, userID int64, scope domain.SubmissionScope, token string) (*domain.SubmissionRecord, error)
}

// Tx is the set of storage operations available inside a transaction.
// Lock* methods hold row-level exclusivity until the transaction ends.
type Tx interface {
	LockSubmission(ctx context.Context, userID int64, scope domain.SubmissionScope, token string) (*domain.SubmissionRecord, error)
	LessonExists(ctx context.Context, lessonID int64) (bool, error)
	// LessonProblems returns the lesson's problems ordered by id, options included.
	LessonProblems(ctx context.Context, lessonID int64) ([]domain.Problem, error)
	// ProblemsByIDs returns the problems that exist among ids, options included.
	ProblemsByIDs(ctx context.Context, ids []int64) ([]domain.Problem, error)
	CountLessonProblems(ctx context.Context, lessonIDs []int64) (map[int64]int, error)
	// LockProgress returns nil, nil when the (user, lesson) record does not exist.
	LockProgress(ctx context.Context, userID, lessonID int64) (*domain.ProgressRecord, error)
	// LockUser returns nil, nil when the user does not exist.
	LockUser(ctx context.Context, userID int64) (*domain.UserState, error)
	// Today reads the store clock once: the current UTC date and the day before.
	Today(ctx context.Context) (today, yesterday time.Time, err error)
	Apply(ctx context.Context, ws WriteSet) error
}

// WriteSet is everything a successful submission persists, applied as one unit.
type WriteSet struct {
	Progress   []domain.ProgressRecord
	User       domain.UserState
	Submission domain.SubmissionRecord
}

// CatalogReader serves the read side: lessons, progress, profile, practice.
type CatalogReader interface {
	// Lessons returns lessons ordered by display order with their problem counts.
	Lessons(ctx context.Context) ([]LessonCount, error)
	UserProgress(ctx context.Context, userID int64) ([]domain.ProgressRecord, error)
	// User returns nil, nil when the user does not exist.
	User(ctx context.Context, userID int64) (*domain.UserState, error)
	// PracticeCandidates returns every problem ordered by lesson display order
	// then problem id, flagged with whether userID has solved it.
	PracticeCandidates(ctx context.Context, userID int64) ([]PracticeCandidate, error)
}

// LessonRepository loads lesson details (from cache/backing store).
type LessonRepository interface {
	GetLesson(ctx context.Context, lessonID int64) (domain.LessonDetail, error)
}

// LessonCount pairs a lesson with the number of problems it holds.
type LessonCount struct {
	Lesson       domain.Lesson
	ProblemCount int
}

// PracticeCandidate is a problem eligible for an adaptive practice batch.
type PracticeCandidate struct {
	Problem domain.PublicProblem
	Solved  bool
}
