package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"progress-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// LessonLoader fetches lesson content from a backing store.
type LessonLoader interface {
	LoadLesson(ctx context.Context, lessonID int64) (domain.LessonDetail, error)
}

// LessonRepository caches lesson details with TTL to avoid repeated DB hits.
// Lesson content is immutable once authored, so stale entries only matter
// for newly added lessons.
type LessonRepository struct {
	loader LessonLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[int64]cachedLesson
}

type cachedLesson struct {
	lesson    domain.LessonDetail
	expiresAt time.Time
}

func NewLessonRepository(loader LessonLoader, ttl time.Duration) *LessonRepository {
	return &LessonRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[int64]cachedLesson),
	}
}

func (r *LessonRepository) GetLesson(ctx context.Context, lessonID int64) (domain.LessonDetail, error) {
	if lesson, ok := r.cached(lessonID); ok {
		return lesson, nil
	}

	result, err, _ := r.sf.Do(strconv.FormatInt(lessonID, 10), func() (interface{}, error) {
		if lesson, ok := r.cached(lessonID); ok {
			return lesson, nil
		}

		lesson, err := r.loader.LoadLesson(ctx, lessonID)
		if err != nil {
			return domain.LessonDetail{}, err
		}

		r.mu.Lock()
		r.cache[lessonID] = cachedLesson{
			lesson:    lesson,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return lesson, nil
	})
	if err != nil {
		return domain.LessonDetail{}, err
	}
	return result.(domain.LessonDetail), nil
}

func (r *LessonRepository) cached(lessonID int64) (domain.LessonDetail, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.cache[lessonID]; ok && entry.expiresAt.After(now) {
		return entry.lesson, true
	}
	return domain.LessonDetail{}, false
}

func (r *LessonRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
