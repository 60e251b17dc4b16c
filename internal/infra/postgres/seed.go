package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"progress-service/internal/domain"
	"github.com/uptrace/bun"
)

// Seed inserts lessons, problems and users with their given ids. It is a
// no-op when any lesson already exists and reports whether it wrote anything.
func Seed(ctx context.Context, db *bun.DB, lessons []domain.Lesson, problems []domain.Problem, userIDs []int64) (bool, error) {
	seeded := false
	err := db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		count, err := tx.NewSelect().Model((*lessonRow)(nil)).Count(ctx)
		if err != nil {
			return fmt.Errorf("count lessons: %w", err)
		}
		if count > 0 {
			return nil
		}

		for _, id := range userIDs {
			_, err := tx.NewInsert().
				Model(&userRow{ID: id}).
				On("CONFLICT (id) DO NOTHING").
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("seed user %d: %w", id, err)
			}
		}
		for _, l := range lessons {
			row := &lessonRow{ID: l.ID, Title: l.Title, Description: l.Description, OrderIndex: l.OrderIndex}
			if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
				return fmt.Errorf("seed lesson %d: %w", l.ID, err)
			}
		}
		for _, p := range problems {
			row := &problemRow{
				ID:              p.ID,
				LessonID:        p.LessonID,
				Type:            string(p.Type),
				Prompt:          p.Prompt,
				AnswerText:      p.AnswerText,
				ExplanationText: p.Explanation,
			}
			if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
				return fmt.Errorf("seed problem %d: %w", p.ID, err)
			}
			for _, o := range p.Options {
				opt := &optionRow{ID: o.ID, ProblemID: p.ID, Label: o.Label, IsCorrect: o.IsCorrect}
				if _, err := tx.NewInsert().Model(opt).Exec(ctx); err != nil {
					return fmt.Errorf("seed option %d: %w", o.ID, err)
				}
			}
		}

		// Explicit ids leave the sequences behind.
		for _, table := range []string{"users", "lessons", "problems", "problem_options"} {
			_, err := tx.ExecContext(ctx,
				fmt.Sprintf(`SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 0) + 1, false)`, table, table))
			if err != nil {
				return fmt.Errorf("reset %s sequence: %w", table, err)
			}
		}
		seeded = true
		return nil
	})
	return seeded, err
}
