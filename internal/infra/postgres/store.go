package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"progress-service/internal/app"
	"progress-service/internal/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

const uniqueViolation = "23505"

// Store implements app.Store on bun. Every submission runs in one
// transaction; row locks on the ledger, progress and user rows serialize
// writers that touch the same user.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx app.Tx) error) error {
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &pgTx{tx: tx})
	})
	if isDuplicateSubmission(err) {
		return domain.ErrDuplicateSubmission
	}
	return err
}

func (s *Store) FindSubmission(ctx context.Context, userID int64, scope domain.SubmissionScope, token string) (*domain.SubmissionRecord, error) {
	return findSubmission(ctx, s.db, userID, scope, token, false)
}

type pgTx struct {
	tx bun.Tx
}

func (t *pgTx) LockSubmission(ctx context.Context, userID int64, scope domain.SubmissionScope, token string) (*domain.SubmissionRecord, error) {
	return findSubmission(ctx, t.tx, userID, scope, token, true)
}

func (t *pgTx) LessonExists(ctx context.Context, lessonID int64) (bool, error) {
	exists, err := t.tx.NewSelect().
		Model((*lessonRow)(nil)).
		Where("id = ?", lessonID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("lesson exists: %w", err)
	}
	return exists, nil
}

func (t *pgTx) LessonProblems(ctx context.Context, lessonID int64) ([]domain.Problem, error) {
	var rows []problemRow
	err := t.tx.NewSelect().
		Model(&rows).
		Where("lesson_id = ?", lessonID).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("lesson problems: %w", err)
	}
	return t.withOptions(ctx, rows)
}

func (t *pgTx) ProblemsByIDs(ctx context.Context, ids []int64) ([]domain.Problem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []problemRow
	err := t.tx.NewSelect().
		Model(&rows).
		Where("id IN (?)", bun.In(ids)).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("problems by id: %w", err)
	}
	return t.withOptions(ctx, rows)
}

func (t *pgTx) withOptions(ctx context.Context, rows []problemRow) ([]domain.Problem, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	var opts []optionRow
	err := t.tx.NewSelect().
		Model(&opts).
		Where("problem_id IN (?)", bun.In(ids)).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("problem options: %w", err)
	}
	byProblem := make(map[int64][]optionRow, len(rows))
	for _, o := range opts {
		byProblem[o.ProblemID] = append(byProblem[o.ProblemID], o)
	}
	out := make([]domain.Problem, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain(byProblem[r.ID]))
	}
	return out, nil
}

func (t *pgTx) CountLessonProblems(ctx context.Context, lessonIDs []int64) (map[int64]int, error) {
	counts := make(map[int64]int, len(lessonIDs))
	if len(lessonIDs) == 0 {
		return counts, nil
	}
	for _, id := range lessonIDs {
		counts[id] = 0
	}
	var rows []struct {
		LessonID int64 `bun:"lesson_id"`
		Total    int   `bun:"total"`
	}
	err := t.tx.NewSelect().
		Model((*problemRow)(nil)).
		Column("lesson_id").
		ColumnExpr("count(*) AS total").
		Where("lesson_id IN (?)", bun.In(lessonIDs)).
		Group("lesson_id").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("count lesson problems: %w", err)
	}
	for _, r := range rows {
		counts[r.LessonID] = r.Total
	}
	return counts, nil
}

// LockProgress takes the row lock on (user, lesson). A placeholder row is
// inserted first so two writers racing on a brand new pair still queue on
// the same row; it is reported as absent and disappears on rollback.
func (t *pgTx) LockProgress(ctx context.Context, userID, lessonID int64) (*domain.ProgressRecord, error) {
	res, err := t.tx.NewInsert().
		Model(&progressRow{UserID: userID, LessonID: lessonID, SolvedProblemIDs: []int64{}}).
		On("CONFLICT (user_id, lesson_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("reserve progress: %w", err)
	}
	created, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("reserve progress: %w", err)
	}

	var row progressRow
	err = t.tx.NewSelect().
		Model(&row).
		Where("user_id = ? AND lesson_id = ?", userID, lessonID).
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("lock progress: %w", err)
	}
	if created > 0 {
		return nil, nil
	}
	rec := row.toDomain()
	return &rec, nil
}

func (t *pgTx) LockUser(ctx context.Context, userID int64) (*domain.UserState, error) {
	var row userRow
	err := t.tx.NewSelect().
		Model(&row).
		Where("id = ?", userID).
		For("UPDATE").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock user: %w", err)
	}
	u := row.toDomain()
	return &u, nil
}

// Today reads the calendar date from the database clock, in UTC, so every
// instance agrees on day boundaries.
func (t *pgTx) Today(ctx context.Context) (time.Time, time.Time, error) {
	var todayRaw, yesterdayRaw string
	err := t.tx.QueryRowContext(ctx, `SELECT
		to_char((now() AT TIME ZONE 'UTC')::date, 'YYYY-MM-DD'),
		to_char((now() AT TIME ZONE 'UTC')::date - 1, 'YYYY-MM-DD')`).
		Scan(&todayRaw, &yesterdayRaw)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("read today: %w", err)
	}
	today, err := time.ParseInLocation(dateLayout, todayRaw, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse today: %w", err)
	}
	yesterday, err := time.ParseInLocation(dateLayout, yesterdayRaw, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse yesterday: %w", err)
	}
	return today, yesterday, nil
}

func (t *pgTx) Apply(ctx context.Context, ws app.WriteSet) error {
	for _, p := range ws.Progress {
		row := &progressRow{
			UserID:           p.UserID,
			LessonID:         p.LessonID,
			SolvedProblemIDs: p.Solved.IDs(),
			SolvedCount:      p.SolvedCount,
			TotalCount:       p.TotalCount,
		}
		_, err := t.tx.NewInsert().
			Model(row).
			On("CONFLICT (user_id, lesson_id) DO UPDATE").
			Set("solved_problem_ids = EXCLUDED.solved_problem_ids").
			Set("solved_count = EXCLUDED.solved_count").
			Set("total_count = EXCLUDED.total_count").
			Set("updated_at = now()").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("save progress: %w", err)
		}
	}

	var lastActivity *string
	if ws.User.LastActivity != nil {
		d := ws.User.LastActivity.UTC().Format(dateLayout)
		lastActivity = &d
	}
	_, err := t.tx.NewUpdate().
		Model((*userRow)(nil)).
		Set("total_xp = ?", ws.User.TotalXP).
		Set("current_streak = ?", ws.User.CurrentStreak).
		Set("best_streak = ?", ws.User.BestStreak).
		Set("last_activity_date = ?::date", lastActivity).
		Set("updated_at = now()").
		Where("id = ?", ws.User.UserID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}

	return insertSubmission(ctx, t.tx, ws.Submission)
}

func insertSubmission(ctx context.Context, tx bun.Tx, rec domain.SubmissionRecord) error {
	answers, err := json.Marshal(rec.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	row := &submissionRow{
		UserID:       rec.UserID,
		LessonID:     rec.Scope.LessonID,
		AttemptID:    rec.Token,
		Answers:      string(answers),
		Result:       string(rec.Result),
		XPAwarded:    rec.XPAwarded,
		CorrectCount: rec.CorrectCount,
		CreatedAt:    rec.CreatedAt,
	}
	q := tx.NewInsert().Model(row).ModelTableExpr(submissionTable(rec.Scope))
	if rec.Scope.Practice {
		q = q.ExcludeColumn("lesson_id")
	}
	if _, err := q.Exec(ctx); err != nil {
		if isDuplicateSubmission(err) {
			return domain.ErrDuplicateSubmission
		}
		return fmt.Errorf("save submission: %w", err)
	}
	return nil
}

func findSubmission(ctx context.Context, db bun.IDB, userID int64, scope domain.SubmissionScope, token string, lock bool) (*domain.SubmissionRecord, error) {
	var row submissionRow
	q := db.NewSelect().
		Model(&row).
		ModelTableExpr(submissionTable(scope)).
		Where("user_id = ?", userID).
		Where("attempt_id = ?", token)
	if scope.Practice {
		q = q.ExcludeColumn("lesson_id")
	} else {
		q = q.Where("lesson_id = ?", scope.LessonID)
	}
	if lock {
		q = q.For("UPDATE")
	}
	err := q.Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find submission: %w", err)
	}

	var answers []domain.Answer
	if err := json.Unmarshal([]byte(row.Answers), &answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	return &domain.SubmissionRecord{
		UserID:       row.UserID,
		Scope:        scope,
		Token:        row.AttemptID,
		Answers:      answers,
		Result:       json.RawMessage(row.Result),
		XPAwarded:    row.XPAwarded,
		CorrectCount: row.CorrectCount,
		CreatedAt:    row.CreatedAt,
	}, nil
}

// submissionTable keeps the model alias so generated column references
// resolve against either ledger.
func submissionTable(scope domain.SubmissionScope) string {
	if scope.Practice {
		return "practice_submissions AS submission_row"
	}
	return "submissions AS submission_row"
}

// isDuplicateSubmission matches unique violations on either ledger's
// attempt key. Other unique violations are real errors.
func isDuplicateSubmission(err error) bool {
	var pgErr pgdriver.Error
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Field('C') == uniqueViolation &&
		strings.HasSuffix(pgErr.Field('n'), "submissions_attempt_key")
}
