package app

import (
	"testing"

	"progress-service/internal/domain"
	"github.com/stretchr/testify/assert"
)

func candidates(solved ...bool) []PracticeCandidate {
	out := make([]PracticeCandidate, 0, len(solved))
	for i, s := range solved {
		out = append(out, PracticeCandidate{Problem: domain.PublicProblem{ID: int64(i + 1)}, Solved: s})
	}
	return out
}

func ids(problems []domain.PublicProblem) []int64 {
	out := make([]int64, 0, len(problems))
	for _, p := range problems {
		out = append(out, p.ID)
	}
	return out
}

func TestSelectPracticeUnsolvedFirst(t *testing.T) {
	got := SelectPractice(candidates(true, false, true, false, false, false, false), 5)
	assert.Equal(t, []int64{2, 4, 5, 6, 7}, ids(got))
}

func TestSelectPracticeFillsWithSolved(t *testing.T) {
	got := SelectPractice(candidates(true, false, true, true, false, true), 5)
	assert.Equal(t, []int64{2, 5, 1, 3, 4}, ids(got))
}

func TestSelectPracticeSmallBank(t *testing.T) {
	got := SelectPractice(candidates(true, false), 5)
	assert.Equal(t, []int64{2, 1}, ids(got))
	assert.Empty(t, SelectPractice(nil, 5))
}
