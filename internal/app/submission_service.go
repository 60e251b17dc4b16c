package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"progress-service/internal/domain"
	"progress-service/internal/logger"
)

// DefaultXPPerCorrect is the XP awarded per correct answer.
const DefaultXPPerCorrect = 10

// EngineConfig holds the scoring knobs of the submission engine.
type EngineConfig struct {
	XPPerCorrect    int64
	MaxAnswerLength int
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.XPPerCorrect <= 0 {
		c.XPPerCorrect = DefaultXPPerCorrect
	}
	if c.MaxAnswerLength <= 0 {
		c.MaxAnswerLength = DefaultMaxAnswerLength
	}
	return c
}

// SubmissionService grades answer batches and records progress, XP and
// streaks exactly once per idempotency token.
type SubmissionService struct {
	store Store
	cfg   EngineConfig
	log   *logger.Logger
	now   func() time.Time
}

func NewSubmissionService(store Store, cfg EngineConfig, log *logger.Logger) *SubmissionService {
	if log == nil {
		log = logger.Nop()
	}
	return &SubmissionService{store: store, cfg: cfg.withDefaults(), log: log, now: time.Now}
}

// batchLoader is the variant-specific part of the pipeline.
type batchLoader func(ctx context.Context, tx Tx, sub submission) (gradedBatch, error)

// SubmitLesson grades a batch of answers for one lesson.
func (s *SubmissionService) SubmitLesson(ctx context.Context, userID, lessonID int64, token string, answers []domain.Answer) (domain.SubmissionResult, error) {
	sub := submission{userID: userID, scope: domain.LessonScope(lessonID), token: token, answers: answers}
	return s.submit(ctx, sub, s.loadLessonBatch)
}

// SubmitPractice grades a batch that may span several lessons.
func (s *SubmissionService) SubmitPractice(ctx context.Context, userID int64, token string, answers []domain.Answer) (domain.SubmissionResult, error) {
	sub := submission{userID: userID, scope: domain.PracticeScope(), token: token, answers: answers}
	return s.submit(ctx, sub, s.loadPracticeBatch)
}

func (s *SubmissionService) submit(ctx context.Context, sub submission, load batchLoader) (domain.SubmissionResult, error) {
	if sub.token == "" {
		return domain.SubmissionResult{}, domain.Unprocessable("attempt_id is required")
	}
	if len(sub.answers) == 0 {
		return domain.SubmissionResult{}, domain.Unprocessable("no answers provided")
	}
	log := s.log.With("user_id", sub.userID, "scope", sub.scope.String(), "attempt_id", sub.token)

	var (
		result   domain.SubmissionResult
		replayed bool
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		existing, err := tx.LockSubmission(ctx, sub.userID, sub.scope, sub.token)
		if err != nil {
			return domain.Internal(fmt.Errorf("lock submission: %w", err))
		}
		if existing != nil {
			replayed = true
			result, err = decodeResult(existing.Result)
			return err
		}

		batch, err := load(ctx, tx, sub)
		if err != nil {
			return err
		}
		plan, err := s.planWrites(ctx, tx, sub, batch)
		if err != nil {
			return err
		}
		if err := tx.Apply(ctx, plan.writes); err != nil {
			return err
		}
		result = plan.result
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrDuplicateSubmission):
		return s.recoverDuplicate(ctx, sub, log)
	default:
		if domain.KindOf(err) == domain.KindInternal {
			log.Error("submission failed", "error", err)
		}
		return domain.SubmissionResult{}, domain.Internal(err)
	}

	if replayed {
		log.Info("submission replayed")
	} else {
		log.Info("submission committed", "xp_gained", result.XPGained, "streak", result.Streak.Current, "change", string(result.Streak.Change))
	}
	return result, nil
}

// recoverDuplicate handles a concurrent request that committed the same
// token first: the stored payload is returned when it can be read back.
func (s *SubmissionService) recoverDuplicate(ctx context.Context, sub submission, log *logger.Logger) (domain.SubmissionResult, error) {
	rec, err := s.store.FindSubmission(ctx, sub.userID, sub.scope, sub.token)
	if err != nil {
		log.Error("re-read duplicate submission", "error", err)
		return domain.SubmissionResult{}, domain.Conflict("duplicate attempt_id")
	}
	if rec == nil {
		log.Warn("duplicate submission without stored record")
		return domain.SubmissionResult{}, domain.Conflict("duplicate attempt_id")
	}
	log.Info("submission raced, returning stored result")
	return decodeResult(rec.Result)
}
