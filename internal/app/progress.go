package app

import (
	"math"

	"progress-service/internal/domain"
)

// MergeProgress unions newly correct problems into the existing record and
// recounts. A nil existing record starts from an empty set and is marked as
// not yet persisted, so the store inserts rather than updates it.
func MergeProgress(existing *domain.ProgressRecord, userID, lessonID int64, newlyCorrect []int64, totalCount int) domain.ProgressRecord {
	merged := domain.ProgressRecord{UserID: userID, LessonID: lessonID, TotalCount: totalCount}
	if existing != nil {
		merged.Solved = existing.Solved.Clone()
		merged.Persisted = existing.Persisted
	} else {
		merged.Solved = domain.SolvedSet{}
	}
	for _, id := range newlyCorrect {
		merged.Solved[id] = struct{}{}
	}
	merged.SolvedCount = len(merged.Solved)
	return merged
}

// Summarize computes the percent/completed view of solved and total counts.
func Summarize(solved, total int) domain.ProgressSummary {
	return domain.ProgressSummary{
		SolvedCount: solved,
		TotalCount:  total,
		Percent:     Percent(solved, total),
		Completed:   total > 0 && solved == total,
	}
}

// Percent rounds solved/total to a whole percentage; zero when total is zero.
func Percent(solved, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(solved) / float64(total) * 100))
}
