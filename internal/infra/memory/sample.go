package memory

import "progress-service/internal/domain"

// DefaultUserID is the user seeded alongside the sample content.
const DefaultUserID int64 = 1

// SampleContent is a small arithmetic course used for local runs and seeding.
func SampleContent() Content {
	return Content{
		Lessons: []domain.Lesson{
			{ID: 1, Title: "Addition Basics", Description: "Add small whole numbers.", OrderIndex: 1},
			{ID: 2, Title: "Subtraction Basics", Description: "Take away and count what is left.", OrderIndex: 2},
			{ID: 3, Title: "Multiplication Intro", Description: "Repeated addition as multiplication.", OrderIndex: 3},
		},
		Problems: []domain.Problem{
			mcq(1, 1, "What is 2 + 3?", "2 + 3 = 5", []domain.Option{
				{ID: 1, Label: "4"}, {ID: 2, Label: "5", IsCorrect: true}, {ID: 3, Label: "6"},
			}),
			input(2, 1, "What is 7 + 8?", "15", "7 + 8 = 15"),
			mcq(3, 1, "Which sum equals 10?", "6 + 4 = 10", []domain.Option{
				{ID: 4, Label: "5 + 4"}, {ID: 5, Label: "6 + 4", IsCorrect: true}, {ID: 6, Label: "3 + 3"},
			}),
			input(4, 2, "What is 9 - 4?", "5", "9 - 4 = 5"),
			mcq(5, 2, "What is 12 - 5?", "12 - 5 = 7", []domain.Option{
				{ID: 7, Label: "6"}, {ID: 8, Label: "7", IsCorrect: true}, {ID: 9, Label: "8"},
			}),
			input(6, 2, "What is 20 - 13?", "7", "20 - 13 = 7"),
			mcq(7, 3, "What is 3 x 4?", "3 x 4 = 12", []domain.Option{
				{ID: 10, Label: "7"}, {ID: 11, Label: "12", IsCorrect: true}, {ID: 12, Label: "14"},
			}),
			input(8, 3, "What is 6 x 5?", "30", "6 x 5 = 30"),
			input(9, 3, "Half of 8 is?", "4", "8 / 2 = 4"),
		},
		UserIDs: []int64{DefaultUserID},
	}
}

func mcq(id, lessonID int64, prompt, explanation string, options []domain.Option) domain.Problem {
	for i := range options {
		options[i].ProblemID = id
	}
	return domain.Problem{ID: id, LessonID: lessonID, Type: domain.ProblemMCQ, Prompt: prompt, Explanation: explanation, Options: options}
}

func input(id, lessonID int64, prompt, answer, explanation string) domain.Problem {
	return domain.Problem{ID: id, LessonID: lessonID, Type: domain.ProblemInput, Prompt: prompt, AnswerText: answer, Explanation: explanation}
}
