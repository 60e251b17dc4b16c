package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"progress-service/internal/app"
	"progress-service/internal/domain"
)

// Content is the authored material a Store starts with.
type Content struct {
	Lessons  []domain.Lesson
	Problems []domain.Problem
	UserIDs  []int64
}

type progressKey struct {
	userID   int64
	lessonID int64
}

type submissionKey struct {
	userID int64
	scope  domain.SubmissionScope
	token  string
}

// Store is an in-memory implementation of app.Store and app.CatalogReader.
// Transactions are serialized, which gives every Lock* call the exclusivity
// a row lock would; staged writes are applied only on commit.
type Store struct {
	txMu  sync.Mutex
	clock func() time.Time

	mu          sync.RWMutex
	lessons     map[int64]domain.Lesson
	problems    map[int64]domain.Problem
	users       map[int64]domain.UserState
	progress    map[progressKey]domain.ProgressRecord
	submissions map[submissionKey]domain.SubmissionRecord
}

func NewStore(content Content) *Store {
	return NewStoreWithClock(content, time.Now)
}

// NewStoreWithClock allows deterministic dates in tests.
func NewStoreWithClock(content Content, clock func() time.Time) *Store {
	s := &Store{
		clock:       clock,
		lessons:     make(map[int64]domain.Lesson),
		problems:    make(map[int64]domain.Problem),
		users:       make(map[int64]domain.UserState),
		progress:    make(map[progressKey]domain.ProgressRecord),
		submissions: make(map[submissionKey]domain.SubmissionRecord),
	}
	for _, l := range content.Lessons {
		s.lessons[l.ID] = l
	}
	for _, p := range content.Problems {
		s.problems[p.ID] = p
	}
	for _, id := range content.UserIDs {
		s.users[id] = domain.UserState{UserID: id}
	}
	return s
}

// PutUser replaces a user's state.
func (s *Store) PutUser(u domain.UserState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.UserID] = u
}

// PutProgress replaces a progress record.
func (s *Store) PutProgress(p domain.ProgressRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.Solved = p.Solved.Clone()
	p.Persisted = true
	s.progress[progressKey{p.UserID, p.LessonID}] = p
}

// Progress returns the committed record for (user, lesson), if any.
func (s *Store) Progress(userID, lessonID int64) (domain.ProgressRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.progress[progressKey{userID, lessonID}]
	if ok {
		p.Solved = p.Solved.Clone()
	}
	return p, ok
}

// SubmissionCount reports how many submission records are committed.
func (s *Store) SubmissionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.submissions)
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx app.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{store: s}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commit(tx.staged)
}

func (s *Store) commit(staged []app.WriteSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ws := range staged {
		key := submissionKey{ws.Submission.UserID, ws.Submission.Scope, ws.Submission.Token}
		if _, exists := s.submissions[key]; exists {
			return domain.ErrDuplicateSubmission
		}
	}
	for _, ws := range staged {
		for _, p := range ws.Progress {
			p.Solved = p.Solved.Clone()
			p.Persisted = true
			s.progress[progressKey{p.UserID, p.LessonID}] = p
		}
		s.users[ws.User.UserID] = ws.User
		sub := ws.Submission
		s.submissions[submissionKey{sub.UserID, sub.Scope, sub.Token}] = sub
	}
	return nil
}

func (s *Store) FindSubmission(_ context.Context, userID int64, scope domain.SubmissionScope, token string) (*domain.SubmissionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.submissions[submissionKey{userID, scope, token}]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

type memTx struct {
	store  *Store
	staged []app.WriteSet
}

func (t *memTx) LockSubmission(ctx context.Context, userID int64, scope domain.SubmissionScope, token string) (*domain.SubmissionRecord, error) {
	return t.store.FindSubmission(ctx, userID, scope, token)
}

func (t *memTx) LessonExists(_ context.Context, lessonID int64) (bool, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	_, ok := t.store.lessons[lessonID]
	return ok, nil
}

func (t *memTx) LessonProblems(_ context.Context, lessonID int64) ([]domain.Problem, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	return t.store.lessonProblemsLocked(lessonID), nil
}

func (t *memTx) ProblemsByIDs(_ context.Context, ids []int64) ([]domain.Problem, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	out := make([]domain.Problem, 0, len(ids))
	for _, id := range ids {
		if p, ok := t.store.problems[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (t *memTx) CountLessonProblems(_ context.Context, lessonIDs []int64) (map[int64]int, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	counts := make(map[int64]int, len(lessonIDs))
	for _, id := range lessonIDs {
		counts[id] = 0
	}
	for _, p := range t.store.problems {
		if _, ok := counts[p.LessonID]; ok {
			counts[p.LessonID]++
		}
	}
	return counts, nil
}

func (t *memTx) LockProgress(_ context.Context, userID, lessonID int64) (*domain.ProgressRecord, error) {
	p, ok := t.store.Progress(userID, lessonID)
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (t *memTx) LockUser(ctx context.Context, userID int64) (*domain.UserState, error) {
	return t.store.User(ctx, userID)
}

func (t *memTx) Today(context.Context) (time.Time, time.Time, error) {
	today, yesterday := app.UTCDates(t.store.clock())
	return today, yesterday, nil
}

func (t *memTx) Apply(_ context.Context, ws app.WriteSet) error {
	t.staged = append(t.staged, ws)
	return nil
}

// Lessons implements app.CatalogReader.
func (s *Store) Lessons(context.Context) ([]app.LessonCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[int64]int, len(s.lessons))
	for _, p := range s.problems {
		counts[p.LessonID]++
	}
	out := make([]app.LessonCount, 0, len(s.lessons))
	for _, l := range s.lessons {
		out = append(out, app.LessonCount{Lesson: l, ProblemCount: counts[l.ID]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Lesson.OrderIndex != out[j].Lesson.OrderIndex {
			return out[i].Lesson.OrderIndex < out[j].Lesson.OrderIndex
		}
		return out[i].Lesson.ID < out[j].Lesson.ID
	})
	return out, nil
}

func (s *Store) UserProgress(_ context.Context, userID int64) ([]domain.ProgressRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ProgressRecord
	for key, p := range s.progress {
		if key.userID == userID {
			p.Solved = p.Solved.Clone()
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LessonID < out[j].LessonID })
	return out, nil
}

func (s *Store) User(_ context.Context, userID int64) (*domain.UserState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *Store) PracticeCandidates(ctx context.Context, userID int64) ([]app.PracticeCandidate, error) {
	lessons, err := s.Lessons(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []app.PracticeCandidate
	for _, l := range lessons {
		solved := s.progress[progressKey{userID, l.Lesson.ID}].Solved
		for _, p := range s.lessonProblemsLocked(l.Lesson.ID) {
			out = append(out, app.PracticeCandidate{Problem: p.Public(), Solved: solved.Has(p.ID)})
		}
	}
	return out, nil
}

// LoadLesson implements LessonLoader.
func (s *Store) LoadLesson(_ context.Context, lessonID int64) (domain.LessonDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.lessons[lessonID]
	if !ok {
		return domain.LessonDetail{}, domain.ErrLessonNotFound
	}
	problems := s.lessonProblemsLocked(lessonID)
	detail := domain.LessonDetail{Lesson: l, Problems: make([]domain.PublicProblem, 0, len(problems))}
	for _, p := range problems {
		detail.Problems = append(detail.Problems, p.Public())
	}
	return detail, nil
}

func (s *Store) lessonProblemsLocked(lessonID int64) []domain.Problem {
	var out []domain.Problem
	for _, p := range s.problems {
		if p.LessonID == lessonID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
