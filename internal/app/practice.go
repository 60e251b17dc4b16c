package app

import "progress-service/internal/domain"

// DefaultPracticeBatchSize is the number of problems offered per practice batch.
const DefaultPracticeBatchSize = 5

// SelectPractice picks up to size problems, unsolved first. When fewer
// unsolved problems remain, the batch is filled with solved ones. Candidates
// must already be ordered by lesson display order then problem id.
func SelectPractice(candidates []PracticeCandidate, size int) []domain.PublicProblem {
	if size <= 0 {
		size = DefaultPracticeBatchSize
	}
	picked := make([]domain.PublicProblem, 0, size)
	seen := make(map[int64]struct{}, size)
	take := func(wantSolved bool) {
		for _, c := range candidates {
			if len(picked) == size {
				return
			}
			if c.Solved != wantSolved {
				continue
			}
			if _, dup := seen[c.Problem.ID]; dup {
				continue
			}
			seen[c.Problem.ID] = struct{}{}
			picked = append(picked, c.Problem)
		}
	}
	take(false)
	take(true)
	return picked
}
