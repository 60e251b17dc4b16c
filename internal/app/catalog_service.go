package app

import (
	"context"
	"errors"
	"fmt"

	"progress-service/internal/domain"
)

// CatalogService serves the read side: lesson listing, lesson detail,
// profile and adaptive practice selection.
type CatalogService struct {
	catalog   CatalogReader
	lessons   LessonRepository
	batchSize int
}

func NewCatalogService(catalog CatalogReader, lessons LessonRepository, batchSize int) *CatalogService {
	if batchSize <= 0 {
		batchSize = DefaultPracticeBatchSize
	}
	return &CatalogService{catalog: catalog, lessons: lessons, batchSize: batchSize}
}

// ListLessons returns lessons in display order with the user's progress.
// Lessons never submitted report zero solved out of their problem count.
func (s *CatalogService) ListLessons(ctx context.Context, userID int64) ([]domain.LessonOverview, error) {
	lessons, err := s.catalog.Lessons(ctx)
	if err != nil {
		return nil, domain.Internal(fmt.Errorf("list lessons: %w", err))
	}
	progress, err := s.catalog.UserProgress(ctx, userID)
	if err != nil {
		return nil, domain.Internal(fmt.Errorf("load progress: %w", err))
	}
	byLesson := make(map[int64]domain.ProgressRecord, len(progress))
	for _, p := range progress {
		byLesson[p.LessonID] = p
	}

	out := make([]domain.LessonOverview, 0, len(lessons))
	for _, l := range lessons {
		solved, total := 0, l.ProblemCount
		if p, ok := byLesson[l.Lesson.ID]; ok {
			solved, total = p.SolvedCount, p.TotalCount
		}
		out = append(out, domain.LessonOverview{Lesson: l.Lesson, Progress: Summarize(solved, total)})
	}
	return out, nil
}

// GetLesson returns a lesson with its problems, answer keys stripped.
func (s *CatalogService) GetLesson(ctx context.Context, lessonID int64) (domain.LessonDetail, error) {
	detail, err := s.lessons.GetLesson(ctx, lessonID)
	if errors.Is(err, domain.ErrLessonNotFound) {
		return domain.LessonDetail{}, domain.NotFound("lesson not found")
	}
	if err != nil {
		return domain.LessonDetail{}, domain.Internal(fmt.Errorf("load lesson: %w", err))
	}
	return detail, nil
}

// Profile summarises XP, streaks and overall progress for a user.
func (s *CatalogService) Profile(ctx context.Context, userID int64) (domain.Profile, error) {
	user, err := s.catalog.User(ctx, userID)
	if err != nil {
		return domain.Profile{}, domain.Internal(fmt.Errorf("load user: %w", err))
	}
	if user == nil {
		return domain.Profile{}, domain.NotFound("user not found")
	}
	progress, err := s.catalog.UserProgress(ctx, userID)
	if err != nil {
		return domain.Profile{}, domain.Internal(fmt.Errorf("load progress: %w", err))
	}
	solved, total := 0, 0
	for _, p := range progress {
		solved += p.SolvedCount
		total += p.TotalCount
	}
	return domain.Profile{
		TotalXP:            user.TotalXP,
		CurrentStreak:      user.CurrentStreak,
		BestStreak:         user.BestStreak,
		ProgressPercentage: Percent(solved, total),
	}, nil
}

// SelectPractice returns the next adaptive practice batch for the user.
func (s *CatalogService) SelectPractice(ctx context.Context, userID int64) ([]domain.PublicProblem, error) {
	candidates, err := s.catalog.PracticeCandidates(ctx, userID)
	if err != nil {
		return nil, domain.Internal(fmt.Errorf("practice candidates: %w", err))
	}
	return SelectPractice(candidates, s.batchSize), nil
}
