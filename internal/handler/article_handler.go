package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/eduwiki/internal/middleware"
	"github.com/hitoshi/eduwiki/internal/model"
)

// 一覧取得のページネーション既定値と上限。
const (
	defaultListLimit = 10
	maxListLimit     = 100
)

// ArticleServiceInterface は記事ハンドラーが必要とするサービスインターフェース。
type ArticleServiceInterface interface {
	// Create は新規記事を作成し、記事IDを返す。
	Create(ctx context.Context, authorID string, input model.ArticleInput) (string, error)
	// Get は指定IDの記事を返す。
	Get(ctx context.Context, articleID string) (*model.Article, error)
	// List は公開記事の一覧をページネーション付きで返す。
	List(ctx context.Context, category string, limit, page int) ([]*model.Article, error)
	// Update は記事を部分更新し、新しいバージョン番号を返す。
	Update(ctx context.Context, articleID string, update model.ArticleUpdate) (int, error)
	// Delete は記事をソフトデリートする。
	Delete(ctx context.Context, articleID string) error
	// ListVersions は記事のバージョン履歴を新しい順で返す。
	ListVersions(ctx context.Context, articleID string) ([]*model.ArticleVersion, error)
}

// ArticleHandler は記事管理のHTTPハンドラー。
type ArticleHandler struct {
	service ArticleServiceInterface
}

// NewArticleHandler はArticleHandlerを生成する。
func NewArticleHandler(service ArticleServiceInterface) *ArticleHandler {
	return &ArticleHandler{service: service}
}

// CreateArticle は新規記事を作成する。
// POST /articles
// 管理者ロールが必要（ルーターのミドルウェアで確認済み）。
func (h *ArticleHandler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized,
			model.NewUnauthenticatedError("認証されていません"))
		return
	}

	var req createArticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationFailedError("リクエストボディの形式が不正です"))
		return
	}

	if err := req.Validate(); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationFailedError(err.Error()))
		return
	}

	articleID, err := h.service.Create(r.Context(), identity.SubjectID, req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, articleCreatedResponse{
		Message:   "記事を作成しました。",
		ArticleID: articleID,
		Status:    "success",
	})
}

// ListArticles は公開記事の一覧を取得する。
// GET /articles?category=xxx&limit=10&page=1
func (h *ArticleHandler) ListArticles(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")

	limit, err := parseQueryInt(r, "limit", defaultListLimit)
	if err != nil || limit < 1 || limit > maxListLimit {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationFailedError("limitは1〜100の整数で指定してください"))
		return
	}

	page, err := parseQueryInt(r, "page", 1)
	if err != nil || page < 1 {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationFailedError("pageは1以上の整数で指定してください"))
		return
	}

	articles, err := h.service.List(r.Context(), category, limit, page)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]articleResponse, len(articles))
	for i, a := range articles {
		results[i] = toArticleResponse(a)
	}

	writeJSON(w, http.StatusOK, articleListResponse{
		Articles: results,
		Total:    len(results),
		Page:     page,
		Limit:    limit,
	})
}

// GetArticle は記事をIDで取得する。
// GET /articles/{id}
func (h *ArticleHandler) GetArticle(w http.ResponseWriter, r *http.Request) {
	articleID := chi.URLParam(r, "id")

	article, err := h.service.Get(r.Context(), articleID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toArticleResponse(article))
}

// UpdateArticle は記事を部分更新する。新しいバージョンが自動的に記録される。
// PUT /articles/{id}
// 管理者ロールが必要（ルーターのミドルウェアで確認済み）。
func (h *ArticleHandler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	articleID := chi.URLParam(r, "id")

	var req updateArticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationFailedError("リクエストボディの形式が不正です"))
		return
	}

	if err := req.Validate(); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationFailedError(err.Error()))
		return
	}

	newVersion, err := h.service.Update(r.Context(), articleID, req.toUpdate())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, articleUpdatedResponse{
		Message:    "記事を更新しました。",
		ArticleID:  articleID,
		NewVersion: newVersion,
		Status:     "success",
	})
}

// DeleteArticle は記事をソフトデリートする。
// DELETE /articles/{id}
// 管理者ロールが必要（ルーターのミドルウェアで確認済み）。
func (h *ArticleHandler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	articleID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), articleID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, articleDeletedResponse{
		Message:   "記事をアーカイブしました。",
		ArticleID: articleID,
		Status:    "success",
	})
}

// ListVersions は記事のバージョン履歴を取得する。
// GET /articles/{id}/versions
func (h *ArticleHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	articleID := chi.URLParam(r, "id")

	versions, err := h.service.ListVersions(r.Context(), articleID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]versionResponse, len(versions))
	for i, v := range versions {
		results[i] = versionResponse{
			ID:        v.ID,
			ArticleID: v.ArticleID,
			Version:   v.Version,
			Data:      toArticleResponse(&v.Data),
			CreatedAt: v.CreatedAt,
		}
	}

	writeJSON(w, http.StatusOK, versionListResponse{
		ArticleID:     articleID,
		Versions:      results,
		TotalVersions: len(results),
	})
}

// --- 共通ヘルパー ---

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// parseQueryInt はクエリパラメータを整数として解析する。未指定の場合は既定値を返す。
func parseQueryInt(r *http.Request, key string, defaultVal int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

// handleServiceError はサービス層のエラーをHTTPレスポンスにマッピングする。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, middleware.MapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}
