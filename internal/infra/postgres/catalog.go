package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"progress-service/internal/app"
	"progress-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Catalog serves read-only queries from a pgx pool. It never takes locks.
type Catalog struct {
	pool *pgxpool.Pool
}

func NewCatalog(pool *pgxpool.Pool) *Catalog {
	return &Catalog{pool: pool}
}

func (c *Catalog) Lessons(ctx context.Context) ([]app.LessonCount, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT l.id, l.title, l.description, l.order_index, COUNT(p.id)
		FROM lessons l
		LEFT JOIN problems p ON p.lesson_id = l.id
		GROUP BY l.id
		ORDER BY l.order_index ASC, l.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	defer rows.Close()

	var out []app.LessonCount
	for rows.Next() {
		var lc app.LessonCount
		if err := rows.Scan(&lc.Lesson.ID, &lc.Lesson.Title, &lc.Lesson.Description, &lc.Lesson.OrderIndex, &lc.ProblemCount); err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		out = append(out, lc)
	}
	return out, rows.Err()
}

func (c *Catalog) UserProgress(ctx context.Context, userID int64) ([]domain.ProgressRecord, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT lesson_id, solved_problem_ids, solved_count, total_count
		FROM user_progress
		WHERE user_id = $1
		ORDER BY lesson_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("user progress: %w", err)
	}
	defer rows.Close()

	var out []domain.ProgressRecord
	for rows.Next() {
		var (
			rec    = domain.ProgressRecord{UserID: userID, Persisted: true}
			solved []int64
		)
		if err := rows.Scan(&rec.LessonID, &solved, &rec.SolvedCount, &rec.TotalCount); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		rec.Solved = domain.NewSolvedSet(solved...)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (c *Catalog) User(ctx context.Context, userID int64) (*domain.UserState, error) {
	var (
		u    = domain.UserState{UserID: userID}
		last *time.Time
	)
	err := c.pool.QueryRow(ctx, `
		SELECT total_xp, current_streak, best_streak, last_activity_date
		FROM users WHERE id = $1`, userID).
		Scan(&u.TotalXP, &u.CurrentStreak, &u.BestStreak, &last)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if last != nil {
		d := dateOnly(*last)
		u.LastActivity = &d
	}
	return &u, nil
}

func (c *Catalog) PracticeCandidates(ctx context.Context, userID int64) ([]app.PracticeCandidate, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT p.id, p.lesson_id, p.type, p.prompt,
		       COALESCE(p.id = ANY(up.solved_problem_ids), false)
		FROM problems p
		JOIN lessons l ON l.id = p.lesson_id
		LEFT JOIN user_progress up ON up.user_id = $1 AND up.lesson_id = p.lesson_id
		ORDER BY l.order_index ASC, l.id ASC, p.id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("practice candidates: %w", err)
	}
	defer rows.Close()

	var (
		out []app.PracticeCandidate
		ids []int64
	)
	for rows.Next() {
		var (
			cand app.PracticeCandidate
			typ  string
		)
		if err := rows.Scan(&cand.Problem.ID, &cand.Problem.LessonID, &typ, &cand.Problem.Prompt, &cand.Solved); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		cand.Problem.Type = domain.ProblemType(typ)
		cand.Problem.Options = []domain.PublicOption{}
		out = append(out, cand)
		ids = append(ids, cand.Problem.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	options, err := c.publicOptions(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		if opts, ok := options[out[i].Problem.ID]; ok {
			out[i].Problem.Options = opts
		}
	}
	return out, nil
}

// LoadLesson implements the lesson loader behind the detail cache.
func (c *Catalog) LoadLesson(ctx context.Context, lessonID int64) (domain.LessonDetail, error) {
	var detail domain.LessonDetail
	err := c.pool.QueryRow(ctx, `
		SELECT id, title, description, order_index FROM lessons WHERE id = $1`, lessonID).
		Scan(&detail.ID, &detail.Title, &detail.Description, &detail.OrderIndex)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LessonDetail{}, domain.ErrLessonNotFound
	}
	if err != nil {
		return domain.LessonDetail{}, fmt.Errorf("load lesson: %w", err)
	}

	rows, err := c.pool.Query(ctx, `
		SELECT id, lesson_id, type, prompt FROM problems
		WHERE lesson_id = $1 ORDER BY id`, lessonID)
	if err != nil {
		return domain.LessonDetail{}, fmt.Errorf("load lesson problems: %w", err)
	}
	defer rows.Close()

	detail.Problems = []domain.PublicProblem{}
	var ids []int64
	for rows.Next() {
		var (
			p   = domain.PublicProblem{Options: []domain.PublicOption{}}
			typ string
		)
		if err := rows.Scan(&p.ID, &p.LessonID, &typ, &p.Prompt); err != nil {
			return domain.LessonDetail{}, fmt.Errorf("scan problem: %w", err)
		}
		p.Type = domain.ProblemType(typ)
		detail.Problems = append(detail.Problems, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return domain.LessonDetail{}, err
	}

	options, err := c.publicOptions(ctx, ids)
	if err != nil {
		return domain.LessonDetail{}, err
	}
	for i := range detail.Problems {
		if opts, ok := options[detail.Problems[i].ID]; ok {
			detail.Problems[i].Options = opts
		}
	}
	return detail, nil
}

// publicOptions loads option labels only; correctness never leaves the store here.
func (c *Catalog) publicOptions(ctx context.Context, problemIDs []int64) (map[int64][]domain.PublicOption, error) {
	out := make(map[int64][]domain.PublicOption)
	if len(problemIDs) == 0 {
		return out, nil
	}
	rows, err := c.pool.Query(ctx, `
		SELECT id, problem_id, label FROM problem_options
		WHERE problem_id = ANY($1) ORDER BY id`, problemIDs)
	if err != nil {
		return nil, fmt.Errorf("load options: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			opt       domain.PublicOption
			problemID int64
		)
		if err := rows.Scan(&opt.ID, &problemID, &opt.Label); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		out[problemID] = append(out[problemID], opt)
	}
	return out, rows.Err()
}
