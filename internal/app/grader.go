package app

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"progress-service/internal/domain"
)

// DefaultMaxAnswerLength bounds free-text answers, in runes.
const DefaultMaxAnswerLength = 64

// Grade scores one answer against its problem. It is pure; validation is
// expected to have run first (see validateAnswers).
func Grade(problem domain.Problem, answer domain.Answer) (bool, domain.AnswerEcho) {
	switch problem.Type {
	case domain.ProblemMCQ:
		if answer.OptionID == nil {
			return false, domain.AnswerEcho{}
		}
		chosen := *answer.OptionID
		return isCorrectOption(problem, chosen), domain.AnswerEcho{OptionID: &chosen}
	default:
		if answer.Value == nil {
			return false, domain.AnswerEcho{}
		}
		got := strings.TrimSpace(*answer.Value)
		return matchInput(problem.AnswerText, got), domain.AnswerEcho{Text: &got}
	}
}

// isCorrectOption keys off the chosen option's own flag, so a problem with no
// correct option never grades correct.
func isCorrectOption(problem domain.Problem, optionID int64) bool {
	for _, opt := range problem.Options {
		if opt.ID == optionID {
			return opt.IsCorrect
		}
	}
	return false
}

// matchInput compares numerically when both sides parse as numbers,
// otherwise case-insensitively. Both sides are trimmed.
func matchInput(expected, got string) bool {
	expected = strings.TrimSpace(expected)
	got = strings.TrimSpace(got)
	ev, eok := parseNumber(expected)
	gv, gok := parseNumber(got)
	if eok && gok {
		return ev == gv
	}
	return strings.EqualFold(expected, got)
}

// parseNumber accepts finite decimal numbers and unsigned 0x/0o/0b
// integers. Infinity spellings, out-of-range values, hex floats and digit
// separators are left to the text comparison.
func parseNumber(s string) (float64, bool) {
	if s == "" || strings.ContainsRune(s, '_') {
		return 0, false
	}
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, err := strconv.ParseUint(s[2:], base, 64)
			if err != nil {
				return 0, false
			}
			return float64(n), true
		}
	}
	if strings.ContainsAny(s, "xX") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// problemIndex is the problem set a batch is validated and graded against.
type problemIndex map[int64]domain.Problem

func newProblemIndex(problems []domain.Problem) problemIndex {
	idx := make(problemIndex, len(problems))
	for _, p := range problems {
		idx[p.ID] = p
	}
	return idx
}

// validateAnswers checks every answer against the index and returns the
// answers keyed by problem, later duplicates overwriting earlier ones.
// The first violation fails the whole batch.
func validateAnswers(idx problemIndex, answers []domain.Answer, maxLen int, notFoundMsg string) (map[int64]domain.Answer, error) {
	if maxLen <= 0 {
		maxLen = DefaultMaxAnswerLength
	}
	byProblem := make(map[int64]domain.Answer, len(answers))
	for _, a := range answers {
		p, ok := idx[a.ProblemID]
		if !ok {
			return nil, domain.UnprocessableProblem(a.ProblemID, notFoundMsg)
		}
		switch p.Type {
		case domain.ProblemMCQ:
			if a.OptionID == nil {
				return nil, domain.UnprocessableProblem(p.ID, "mcq answer must include option_id")
			}
			if !hasOption(p, *a.OptionID) {
				return nil, domain.UnprocessableProblem(p.ID, "invalid option for problem")
			}
		case domain.ProblemInput:
			if a.Value == nil {
				return nil, domain.UnprocessableProblem(p.ID, "input answer must include value")
			}
			if strings.TrimSpace(*a.Value) == "" {
				return nil, domain.UnprocessableProblem(p.ID, "input answer must not be empty")
			}
			if utf8.RuneCountInString(*a.Value) > maxLen {
				return nil, domain.UnprocessableProblem(p.ID, "input answer too long")
			}
		default:
			return nil, domain.UnprocessableProblem(p.ID, "unsupported problem type")
		}
		byProblem[a.ProblemID] = a
	}
	return byProblem, nil
}

func hasOption(p domain.Problem, optionID int64) bool {
	for _, opt := range p.Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}
