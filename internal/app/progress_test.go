package app

import (
	"testing"

	"progress-service/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestMergeProgressCreatesRecord(t *testing.T) {
	rec := MergeProgress(nil, 1, 5, []int64{2, 3}, 4)
	assert.False(t, rec.Persisted)
	assert.Equal(t, 2, rec.SolvedCount)
	assert.Equal(t, []int64{2, 3}, rec.Solved.IDs())
	assert.Equal(t, 4, rec.TotalCount)
}

func TestMergeProgressNeverLosesCredit(t *testing.T) {
	existing := &domain.ProgressRecord{UserID: 1, LessonID: 5, Solved: domain.NewSolvedSet(1, 2), SolvedCount: 2, TotalCount: 3, Persisted: true}

	rec := MergeProgress(existing, 1, 5, nil, 3)
	assert.Equal(t, 2, rec.SolvedCount)
	assert.True(t, rec.Persisted)

	rec = MergeProgress(existing, 1, 5, []int64{2, 3}, 3)
	assert.Equal(t, 3, rec.SolvedCount)
	assert.Equal(t, []int64{1, 2, 3}, rec.Solved.IDs())
	// existing record untouched
	assert.Equal(t, 2, len(existing.Solved))
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, domain.ProgressSummary{SolvedCount: 2, TotalCount: 2, Percent: 100, Completed: true}, Summarize(2, 2))
	assert.Equal(t, domain.ProgressSummary{SolvedCount: 1, TotalCount: 3, Percent: 33}, Summarize(1, 3))
	assert.Equal(t, domain.ProgressSummary{SolvedCount: 2, TotalCount: 3, Percent: 67}, Summarize(2, 3))
	assert.Equal(t, domain.ProgressSummary{}, Summarize(0, 0))
	assert.Equal(t, 50, Percent(1, 2))
}
