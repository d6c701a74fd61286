package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/eduwiki/internal/model"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	GeneralRate     rate.Limit    // API全般のレート（req/sec）
	GeneralBurst    int           // API全般のバーストサイズ
	MutationRate    rate.Limit    // 記事の作成・更新・削除のレート（req/sec）
	MutationBurst   int           // 記事変更操作のバーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// NewRateLimiterConfig はreq/min単位の設定からレート制限設定を生成する。
func NewRateLimiterConfig(generalPerMin, mutationPerMin int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(float64(generalPerMin) / 60.0),
		GeneralBurst:    generalPerMin,
		MutationRate:    rate.Limit(float64(mutationPerMin) / 60.0),
		MutationBurst:   mutationPerMin,
		CleanupInterval: 5 * time.Minute,
	}
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// API全般 120 req/min/user、記事変更 30 req/min/user。
func DefaultRateLimiterConfig() RateLimiterConfig {
	return NewRateLimiterConfig(120, 30)
}

// userLimiter はユーザーごとのレートリミッターとアクセス時刻を保持する。
type userLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter は認証済みユーザーごとのレート制限を管理する。
// API全般のレート制限と記事変更操作のレート制限の2種類を提供する。
type RateLimiter struct {
	config RateLimiterConfig

	generalMu       sync.Mutex
	generalLimiters map[string]*userLimiter

	mutationMu       sync.Mutex
	mutationLimiters map[string]*userLimiter

	stopCh chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:           config,
		generalLimiters:  make(map[string]*userLimiter),
		mutationLimiters: make(map[string]*userLimiter),
		stopCh:           make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// GeneralMiddleware はAPI全般のレート制限ミドルウェアを返す。
// リクエストコンテキストにidentityが含まれている必要がある（AuthMiddlewareの後に配置）。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.getOrCreateGeneralLimiter)
}

// MutationMiddleware は記事の作成・更新・削除のレート制限ミドルウェアを返す。
func (rl *RateLimiter) MutationMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.getOrCreateMutationLimiter)
}

// middleware は指定のリミッター取得関数を使うレート制限ミドルウェアを構成する。
func (rl *RateLimiter) middleware(get func(subjectID string) *rate.Limiter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := IdentityFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized,
					model.NewUnauthenticatedError("認証されていません"))
				return
			}

			if !get(identity.SubjectID).Allow() {
				w.Header().Set("Retry-After", "60")
				WriteErrorResponse(w, http.StatusTooManyRequests, &model.APIError{
					Code:     "RATE_LIMITED",
					Message:  "リクエスト数が上限に達しました。",
					Category: "system",
					Action:   "しばらく待ってから再度お試しください。",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getOrCreateGeneralLimiter はユーザーのAPI全般リミッターを取得・生成する。
func (rl *RateLimiter) getOrCreateGeneralLimiter(subjectID string) *rate.Limiter {
	rl.generalMu.Lock()
	defer rl.generalMu.Unlock()

	entry, ok := rl.generalLimiters[subjectID]
	if !ok {
		entry = &userLimiter{
			limiter: rate.NewLimiter(rl.config.GeneralRate, rl.config.GeneralBurst),
		}
		rl.generalLimiters[subjectID] = entry
	}
	entry.lastAccess = time.Now()
	return entry.limiter
}

// getOrCreateMutationLimiter はユーザーの記事変更リミッターを取得・生成する。
func (rl *RateLimiter) getOrCreateMutationLimiter(subjectID string) *rate.Limiter {
	rl.mutationMu.Lock()
	defer rl.mutationMu.Unlock()

	entry, ok := rl.mutationLimiters[subjectID]
	if !ok {
		entry = &userLimiter{
			limiter: rate.NewLimiter(rl.config.MutationRate, rl.config.MutationBurst),
		}
		rl.mutationLimiters[subjectID] = entry
	}
	entry.lastAccess = time.Now()
	return entry.limiter
}

// cleanupLoop は一定間隔で長時間アクセスのないエントリを削除する。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-rl.config.CleanupInterval * 2)

			rl.generalMu.Lock()
			for id, entry := range rl.generalLimiters {
				if entry.lastAccess.Before(cutoff) {
					delete(rl.generalLimiters, id)
				}
			}
			rl.generalMu.Unlock()

			rl.mutationMu.Lock()
			for id, entry := range rl.mutationLimiters {
				if entry.lastAccess.Before(cutoff) {
					delete(rl.mutationLimiters, id)
				}
			}
			rl.mutationMu.Unlock()
		}
	}
}
