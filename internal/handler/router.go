package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/eduwiki/internal/auth"
	"github.com/hitoshi/eduwiki/internal/metrics"
	"github.com/hitoshi/eduwiki/internal/middleware"
	"github.com/hitoshi/eduwiki/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	AuthService       *auth.Service
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	Metrics           *metrics.Collector
	MetricsGatherer   prometheus.Gatherer

	// 記事
	ArticleService ArticleServiceInterface

	// システム
	DB DBPinger
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Auth → RateLimit(General)
//
// 公開ルート（/、/health、/metrics）は認証ミドルウェアの外に配置する。
// 書き込み系ルートには管理者ロール確認と書き込み専用レート制限を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルートに効くミドルウェア
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Metrics))

	articleHandler := NewArticleHandler(deps.ArticleService)
	adminHandler := NewAdminHandler(deps.AuthService.Policy())
	systemHandler := NewSystemHandler(deps.DB, deps.AuthService)

	// --- 認証不要のルート ---

	r.Get("/", systemHandler.Root)
	r.Get("/health", systemHandler.Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.AuthService, deps.Metrics))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 書き込み系に適用するミドルウェア
		requireAdmin := middleware.NewRequireRoleMiddleware(deps.AuthService, model.RoleAdmin, deps.Metrics)
		mutationLimit := deps.RateLimiter.MutationMiddleware()

		r.Get("/profile", systemHandler.Profile)

		// 記事管理
		r.Route("/articles", func(r chi.Router) {
			r.Get("/", articleHandler.ListArticles)
			r.With(requireAdmin, mutationLimit).Post("/", articleHandler.CreateArticle)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", articleHandler.GetArticle)
				r.With(requireAdmin, mutationLimit).Put("/", articleHandler.UpdateArticle)
				r.With(requireAdmin, mutationLimit).Delete("/", articleHandler.DeleteArticle)

				// GET /articles/{id}/versions - バージョン履歴（新しい順）
				r.Get("/versions", articleHandler.ListVersions)
			})
		})

		// 許可リスト管理（管理者のみ）
		r.Route("/admin/allowlist", func(r chi.Router) {
			r.Use(requireAdmin)

			r.Get("/", adminHandler.GetAllowlist)
			r.Get("/check", adminHandler.CheckAuthorization)

			r.With(mutationLimit).Post("/domains", adminHandler.AddDomain)
			r.With(mutationLimit).Delete("/domains/{domain}", adminHandler.RemoveDomain)
			r.With(mutationLimit).Post("/emails", adminHandler.AddEmail)
			r.With(mutationLimit).Delete("/emails/{email}", adminHandler.RemoveEmail)
		})
	})

	return r
}
