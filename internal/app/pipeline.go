package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"progress-service/internal/domain"
)

// submission is one request travelling through the pipeline.
type submission struct {
	userID  int64
	scope   domain.SubmissionScope
	token   string
	answers []domain.Answer
}

// gradedBatch is the output of the load/validate/grade steps.
type gradedBatch struct {
	results         []domain.GradedResult
	correctCount    int
	correctByLesson map[int64][]int64
	lessonTotals    map[int64]int
}

// plannedWrite is the output of the merge/streak/record steps: everything to
// persist plus the payload to return.
type plannedWrite struct {
	writes WriteSet
	result domain.SubmissionResult
}

// loadLessonBatch covers lesson existence, problem-set load, validation and
// grading for the lesson-scoped variant.
func (s *SubmissionService) loadLessonBatch(ctx context.Context, tx Tx, sub submission) (gradedBatch, error) {
	lessonID := sub.scope.LessonID
	ok, err := tx.LessonExists(ctx, lessonID)
	if err != nil {
		return gradedBatch{}, domain.Internal(fmt.Errorf("lesson lookup: %w", err))
	}
	if !ok {
		return gradedBatch{}, domain.NotFound("lesson not found")
	}

	problems, err := tx.LessonProblems(ctx, lessonID)
	if err != nil {
		return gradedBatch{}, domain.Internal(fmt.Errorf("load problems: %w", err))
	}
	if len(problems) == 0 {
		return gradedBatch{}, domain.Unprocessable("lesson has no problems")
	}
	sort.Slice(problems, func(i, j int) bool { return problems[i].ID < problems[j].ID })

	byProblem, err := validateAnswers(newProblemIndex(problems), sub.answers, s.cfg.MaxAnswerLength, "answer references a problem not in lesson")
	if err != nil {
		return gradedBatch{}, err
	}

	batch := gradedBatch{
		correctByLesson: map[int64][]int64{},
		lessonTotals: map[int64]int{lessonID: len(problems)},
	}
	for _, p := range problems {
		a, answered := byProblem[p.ID]
		if !answered {
			continue
		}
		batch.add(p, a, false)
	}
	return batch, nil
}

// loadPracticeBatch is the cross-lesson counterpart: every referenced problem
// must resolve and progress totals are counted per touched lesson.
func (s *SubmissionService) loadPracticeBatch(ctx context.Context, tx Tx, sub submission) (gradedBatch, error) {
	ids := distinctProblemIDs(sub.answers)
	problems, err := tx.ProblemsByIDs(ctx, ids)
	if err != nil {
		return gradedBatch{}, domain.Internal(fmt.Errorf("load problems: %w", err))
	}
	idx := newProblemIndex(problems)
	for _, id := range ids {
		if _, ok := idx[id]; !ok {
			return gradedBatch{}, domain.UnprocessableProblem(id, "problem not found")
		}
	}

	byProblem, err := validateAnswers(idx, sub.answers, s.cfg.MaxAnswerLength, "problem not found")
	if err != nil {
		return gradedBatch{}, err
	}

	lessonSet := map[int64]struct{}{}
	for _, p := range problems {
		lessonSet[p.LessonID] = struct{}{}
	}
	lessonIDs := make([]int64, 0, len(lessonSet))
	for id := range lessonSet {
		lessonIDs = append(lessonIDs, id)
	}
	totals, err := tx.CountLessonProblems(ctx, lessonIDs)
	if err != nil {
		return gradedBatch{}, domain.Internal(fmt.Errorf("count problems: %w", err))
	}

	batch := gradedBatch{correctByLesson: map[int64][]int64{}, lessonTotals: totals}
	for _, id := range ids {
		batch.add(idx[id], byProblem[id], true)
	}
	return batch, nil
}

func (b *gradedBatch) add(p domain.Problem, a domain.Answer, withLesson bool) {
	correct, echo := Grade(p, a)
	res := domain.GradedResult{
		ProblemID:  p.ID,
		Correct:    correct,
		YourAnswer: echo,
	}
	if withLesson {
		lessonID := p.LessonID
		res.LessonID = &lessonID
	}
	if p.Explanation != "" {
		explanation := p.Explanation
		res.Explanation = &explanation
	}
	if correct {
		b.correctCount++
		b.correctByLesson[p.LessonID] = append(b.correctByLesson[p.LessonID], p.ID)
	}
	b.results = append(b.results, res)
}

// planWrites runs the XP, progress merge, streak and record steps. Progress
// rows are locked in ascending lesson order, then the user row.
func (s *SubmissionService) planWrites(ctx context.Context, tx Tx, sub submission, batch gradedBatch) (plannedWrite, error) {
	xpGained := int64(batch.correctCount) * s.cfg.XPPerCorrect

	lessonIDs := make([]int64, 0, len(batch.lessonTotals))
	for id := range batch.lessonTotals {
		lessonIDs = append(lessonIDs, id)
	}
	sort.Slice(lessonIDs, func(i, j int) bool { return lessonIDs[i] < lessonIDs[j] })

	progress := make([]domain.ProgressRecord, 0, len(lessonIDs))
	for _, lessonID := range lessonIDs {
		existing, err := tx.LockProgress(ctx, sub.userID, lessonID)
		if err != nil {
			return plannedWrite{}, domain.Internal(fmt.Errorf("lock progress: %w", err))
		}
		progress = append(progress, MergeProgress(existing, sub.userID, lessonID, batch.correctByLesson[lessonID], batch.lessonTotals[lessonID]))
	}

	user, err := tx.LockUser(ctx, sub.userID)
	if err != nil {
		return plannedWrite{}, domain.Internal(fmt.Errorf("lock user: %w", err))
	}
	if user == nil {
		return plannedWrite{}, domain.NotFound("user not found")
	}
	today, yesterday, err := tx.Today(ctx)
	if err != nil {
		return plannedWrite{}, domain.Internal(fmt.Errorf("read clock: %w", err))
	}
	streak := AdvanceStreak(user.LastActivity, today, yesterday, user.CurrentStreak, user.BestStreak)
	updated := domain.UserState{
		UserID:        user.UserID,
		TotalXP:       user.TotalXP + xpGained,
		CurrentStreak: streak.Current,
		BestStreak:    streak.Best,
		LastActivity:  &today,
	}

	result := domain.SubmissionResult{
		AttemptID: sub.token,
		XPGained:  xpGained,
		TotalXP:   updated.TotalXP,
		Streak:    domain.StreakSummary{Current: streak.Current, Best: streak.Best, Change: streak.Change},
		Results:   batch.results,
	}
	if sub.scope.Practice {
		// The batch itself, not lesson completion.
		result.LessonProgress = Summarize(batch.correctCount, len(batch.results))
		result.LessonProgress.Completed = false
	} else {
		lessonID := sub.scope.LessonID
		result.LessonID = &lessonID
		result.LessonProgress = Summarize(progress[0].SolvedCount, progress[0].TotalCount)
	}
	if result.Results == nil {
		result.Results = []domain.GradedResult{}
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return plannedWrite{}, domain.Internal(fmt.Errorf("encode result: %w", err))
	}

	return plannedWrite{
		writes: WriteSet{
			Progress: progress,
			User:     updated,
			Submission: domain.SubmissionRecord{
				UserID:       sub.userID,
				Scope:        sub.scope,
				Token:        sub.token,
				Answers:      sub.answers,
				Result:       payload,
				XPAwarded:    xpGained,
				CorrectCount: batch.correctCount,
				CreatedAt:    s.now().UTC(),
			},
		},
		result: result,
	}, nil
}

func distinctProblemIDs(answers []domain.Answer) []int64 {
	seen := make(map[int64]struct{}, len(answers))
	ids := make([]int64, 0, len(answers))
	for _, a := range answers {
		if _, ok := seen[a.ProblemID]; ok {
			continue
		}
		seen[a.ProblemID] = struct{}{}
		ids = append(ids, a.ProblemID)
	}
	return ids
}

func decodeResult(raw []byte) (domain.SubmissionResult, error) {
	var res domain.SubmissionResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return domain.SubmissionResult{}, domain.Internal(fmt.Errorf("decode stored result: %w", err))
	}
	return res, nil
}
