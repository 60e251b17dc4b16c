package app_test

import (
	"context"
	"testing"
	"time"

	"progress-service/internal/app"
	"progress-service/internal/domain"
	"progress-service/internal/infra/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalogService(store *memory.Store) *app.CatalogService {
	return app.NewCatalogService(store, memory.NewLessonRepository(store, time.Minute), 0)
}

func TestListLessonsWithProgress(t *testing.T) {
	ctx := context.Background()
	service, store, _ := newTestService(t)
	catalog := newCatalogService(store)

	_, err := service.SubmitLesson(ctx, userID, 1, "a1", []domain.Answer{{ProblemID: 1, OptionID: idp(10)}})
	require.NoError(t, err)

	lessons, err := catalog.ListLessons(ctx, userID)
	require.NoError(t, err)
	require.Len(t, lessons, 3)
	assert.Equal(t, int64(1), lessons[0].ID)
	assert.Equal(t, domain.ProgressSummary{SolvedCount: 1, TotalCount: 2, Percent: 50}, lessons[0].Progress)
	assert.Equal(t, domain.ProgressSummary{SolvedCount: 0, TotalCount: 2}, lessons[1].Progress)
	assert.Equal(t, domain.ProgressSummary{}, lessons[2].Progress)
}

func TestGetLessonHidesAnswers(t *testing.T) {
	_, store, _ := newTestService(t)
	catalog := newCatalogService(store)

	detail, err := catalog.GetLesson(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Arithmetic", detail.Title)
	require.Len(t, detail.Problems, 2)
	assert.Equal(t, []domain.PublicOption{{ID: 10, Label: "4"}, {ID: 11, Label: "5"}}, detail.Problems[0].Options)
	assert.Empty(t, detail.Problems[1].Options)

	_, err = catalog.GetLesson(context.Background(), 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProfile(t *testing.T) {
	ctx := context.Background()
	service, store, _ := newTestService(t)
	catalog := newCatalogService(store)

	profile, err := catalog.Profile(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, domain.Profile{}, profile)

	_, err = service.SubmitPractice(ctx, userID, "p1", []domain.Answer{
		{ProblemID: 1, OptionID: idp(10)},
		{ProblemID: 3, Value: strp("paris")},
		{ProblemID: 4, OptionID: idp(40)},
	})
	require.NoError(t, err)

	profile, err = catalog.Profile(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, domain.Profile{TotalXP: 30, CurrentStreak: 1, BestStreak: 1, ProgressPercentage: 75}, profile)

	_, err = catalog.Profile(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSelectPracticePrefersUnsolved(t *testing.T) {
	ctx := context.Background()
	service, store, _ := newTestService(t)
	catalog := newCatalogService(store)

	_, err := service.SubmitLesson(ctx, userID, 1, "a1", []domain.Answer{{ProblemID: 1, OptionID: idp(10)}})
	require.NoError(t, err)

	batch, err := catalog.SelectPractice(ctx, userID)
	require.NoError(t, err)
	got := make([]int64, 0, len(batch))
	for _, p := range batch {
		got = append(got, p.ID)
	}
	// Only four problems exist, so the solved one fills the tail.
	assert.Equal(t, []int64{2, 3, 4, 1}, got)
}
