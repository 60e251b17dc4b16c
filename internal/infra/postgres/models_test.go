package postgres

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"progress-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRowKeepsCalendarDate(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	last := time.Date(2024, 3, 1, 0, 0, 0, 0, loc)
	u := userRow{ID: 3, TotalXP: 40, CurrentStreak: 2, BestStreak: 5, LastActivityDate: &last}.toDomain()

	require.NotNil(t, u.LastActivity)
	assert.True(t, u.LastActivity.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, int64(40), u.TotalXP)
	assert.Equal(t, 5, u.BestStreak)

	assert.Nil(t, userRow{ID: 4}.toDomain().LastActivity)
}

func TestProgressRowToDomain(t *testing.T) {
	rec := progressRow{UserID: 1, LessonID: 2, SolvedProblemIDs: []int64{7, 3}, SolvedCount: 2, TotalCount: 4}.toDomain()
	assert.True(t, rec.Persisted)
	assert.Equal(t, []int64{3, 7}, rec.Solved.IDs())
	assert.Equal(t, 4, rec.TotalCount)
}

func TestProblemRowToDomain(t *testing.T) {
	p := problemRow{ID: 5, LessonID: 1, Type: "mcq", Prompt: "2 + 2?"}.toDomain([]optionRow{
		{ID: 1, ProblemID: 5, Label: "4", IsCorrect: true},
		{ID: 2, ProblemID: 5, Label: "5"},
	})
	assert.Equal(t, domain.ProblemMCQ, p.Type)
	require.Len(t, p.Options, 2)
	assert.True(t, p.Options[0].IsCorrect)
}

func TestSubmissionTableByScope(t *testing.T) {
	assert.Equal(t, "submissions AS submission_row", submissionTable(domain.LessonScope(1)))
	assert.Equal(t, "practice_submissions AS submission_row", submissionTable(domain.PracticeScope()))
}

func TestIsDuplicateSubmissionIgnoresOtherErrors(t *testing.T) {
	assert.False(t, isDuplicateSubmission(nil))
	assert.False(t, isDuplicateSubmission(errors.New("boom")))
	assert.False(t, isDuplicateSubmission(fmt.Errorf("wrapped: %w", errors.New("23505"))))
}
