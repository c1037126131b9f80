package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"metallvector_backend/pkg/apperrors"
)

// RateLimiter - лимитер с фиксированным окном и явной таблицей
// счетчиков в памяти. Ключ - ID пользователя для авторизованных
// запросов, иначе IP клиента.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	limit  int
	window time.Duration
}

type bucket struct {
	count       int
	windowStart time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  window,
	}
}

// Allow учитывает запрос и отвечает, помещается ли он в окно.
func (rl *RateLimiter) Allow(key string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok || now.Sub(b.windowStart) >= rl.window {
		rl.buckets[key] = &bucket{count: 1, windowStart: now}
		return true
	}
	if b.count >= rl.limit {
		return false
	}
	b.count++
	return true
}

// Sweep удаляет счетчики с истекшим окном. Запускается по расписанию,
// чтобы таблица не росла бесконечно на разовых клиентах.
func (rl *RateLimiter) Sweep() int {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for key, b := range rl.buckets {
		if now.Sub(b.windowStart) >= rl.window {
			delete(rl.buckets, key)
			removed++
		}
	}
	return removed
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if userID := c.GetString(CtxUserIDKey); userID != "" {
			key = userID
		}
		if !rl.Allow(key) {
			err := apperrors.New(apperrors.CodeRateLimited, "http",
				"Слишком много запросов, попробуйте позже", 429)
			c.AbortWithStatusJSON(err.HTTPCode, gin.H{"error": err})
			return
		}
		c.Next()
	}
}
