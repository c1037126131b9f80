package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRateLimiterWindow(t *testing.T) {
	rl := NewRateLimiter(3, 50*time.Millisecond)

	for i := 0; i < 3; i++ {
		if !rl.Allow("client-a") {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if rl.Allow("client-a") {
		t.Fatal("request over the limit should be rejected")
	}

	// Независимый ключ не разделяет лимит
	if !rl.Allow("client-b") {
		t.Fatal("different key should have its own counter")
	}

	// После окончания окна счетчик обнуляется
	time.Sleep(60 * time.Millisecond)
	if !rl.Allow("client-a") {
		t.Fatal("request after window expiry should be allowed")
	}
}

// Лимитер стоит после аутентификации: окно авторизованного запроса
// привязано к ID пользователя, и два пользователя с одного IP
// не разделяют лимит.
func TestRateLimiterMiddlewareKeyedByUser(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := NewRateLimiter(2, time.Minute)

	serve := func(userID string) int {
		engine := gin.New()
		engine.GET("/ping", func(c *gin.Context) {
			if userID != "" {
				c.Set(CtxUserIDKey, userID)
			}
			c.Next()
		}, rl.Middleware(), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		engine.ServeHTTP(w, req)
		return w.Code
	}

	// Первый пользователь выбирает свой лимит
	for i := 0; i < 2; i++ {
		if code := serve("user-1"); code != http.StatusOK {
			t.Fatalf("request %d of user-1 should pass, got %d", i, code)
		}
	}
	if code := serve("user-1"); code != http.StatusTooManyRequests {
		t.Fatalf("user-1 over the limit should get 429, got %d", code)
	}

	// Второй пользователь с того же IP не затронут
	if code := serve("user-2"); code != http.StatusOK {
		t.Fatalf("user-2 should have an independent window, got %d", code)
	}

	// Неавторизованный запрос с того же IP считается по IP
	if code := serve(""); code != http.StatusOK {
		t.Fatalf("anonymous request should be keyed by IP, got %d", code)
	}
}

func TestRateLimiterSweep(t *testing.T) {
	rl := NewRateLimiter(1, 10*time.Millisecond)

	rl.Allow("one")
	rl.Allow("two")

	if removed := rl.Sweep(); removed != 0 {
		t.Fatalf("fresh buckets should not be swept, removed %d", removed)
	}

	time.Sleep(20 * time.Millisecond)
	if removed := rl.Sweep(); removed != 2 {
		t.Fatalf("expected 2 expired buckets swept, got %d", removed)
	}
}
