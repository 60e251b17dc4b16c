package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"progress-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// LessonLoader fetches lesson content from a backing store.
type LessonLoader interface {
	LoadLesson(ctx context.Context, lessonID int64) (domain.LessonDetail, error)
}

// LessonRepository caches public lesson details in Redis and falls back to a
// loader on cache miss. Details are stored as JSON under lesson:{id}:detail.
// Answer keys never reach the cache.
type LessonRepository struct {
	client *redis.Client
	loader LessonLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewLessonRepository(client *redis.Client, loader LessonLoader, ttl time.Duration) *LessonRepository {
	return &LessonRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *LessonRepository) GetLesson(ctx context.Context, lessonID int64) (domain.LessonDetail, error) {
	key := r.detailKey(lessonID)
	if lesson, ok := r.fromCache(ctx, key); ok {
		return lesson, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if lesson, ok := r.fromCache(ctx, key); ok {
			return lesson, nil
		}

		lesson, err := r.loader.LoadLesson(ctx, lessonID)
		if err != nil {
			return domain.LessonDetail{}, err
		}

		raw, err := json.Marshal(lesson)
		if err == nil {
			// best-effort: a failed write only costs a reload
			_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		}
		return lesson, nil
	})
	if err != nil {
		return domain.LessonDetail{}, err
	}
	return result.(domain.LessonDetail), nil
}

func (r *LessonRepository) fromCache(ctx context.Context, key string) (domain.LessonDetail, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.LessonDetail{}, false
	}
	var lesson domain.LessonDetail
	if err := json.Unmarshal(raw, &lesson); err != nil {
		return domain.LessonDetail{}, false
	}
	return lesson, true
}

func (r *LessonRepository) detailKey(lessonID int64) string {
	return "lesson:" + strconv.FormatInt(lessonID, 10) + ":detail"
}

func (r *LessonRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

