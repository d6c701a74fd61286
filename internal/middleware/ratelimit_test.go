package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/eduwiki/internal/model"
)

// newLimitedRequest はidentityを注入したリクエストを返すヘルパー。
func newLimitedRequest(subjectID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/articles", nil)
	return req.WithContext(ContextWithIdentity(req.Context(), &model.Identity{SubjectID: subjectID}))
}

func TestRateLimiter_GeneralAllowsWithinLimit(t *testing.T) {
	rl := NewRateLimiter(NewRateLimiterConfig(120, 30))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, newLimitedRequest("uid-1"))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want %d", i+1, w.Code, http.StatusOK)
		}
	}
}

func TestRateLimiter_RejectsOverBurst(t *testing.T) {
	// バーストサイズ2の厳しい制限で3リクエスト目を拒否させる
	rl := NewRateLimiter(NewRateLimiterConfig(2, 2))
	defer rl.Stop()

	handler := rl.MutationMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, newLimitedRequest("uid-1"))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want %d", i+1, w.Code, http.StatusOK)
		}
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, newLimitedRequest("uid-1"))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if got := w.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want %q", got, "60")
	}
}

func TestRateLimiter_LimitsArePerUser(t *testing.T) {
	rl := NewRateLimiter(NewRateLimiterConfig(1, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// uid-1のバーストを使い切る
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, newLimitedRequest("uid-1"))
	if w.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want %d", w.Code, http.StatusOK)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, newLimitedRequest("uid-1"))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}

	// 別ユーザーには影響しない
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, newLimitedRequest("uid-2"))
	if w.Code != http.StatusOK {
		t.Errorf("other user status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRateLimiter_GeneralAndMutationAreIndependent(t *testing.T) {
	// 変更操作の制限を使い切っても全般の制限には影響しない
	rl := NewRateLimiter(NewRateLimiterConfig(10, 1))
	defer rl.Stop()

	mutation := rl.MutationMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	general := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	mutation.ServeHTTP(w, newLimitedRequest("uid-1"))
	if w.Code != http.StatusOK {
		t.Fatalf("mutation status = %d, want %d", w.Code, http.StatusOK)
	}

	w = httptest.NewRecorder()
	mutation.ServeHTTP(w, newLimitedRequest("uid-1"))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("mutation status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}

	w = httptest.NewRecorder()
	general.ServeHTTP(w, newLimitedRequest("uid-1"))
	if w.Code != http.StatusOK {
		t.Errorf("general status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRateLimiter_MissingIdentityIsUnauthorized(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/articles", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
