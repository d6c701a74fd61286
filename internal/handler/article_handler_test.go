package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/eduwiki/internal/middleware"
	"github.com/hitoshi/eduwiki/internal/model"
)

// --- モック定義 ---

// mockArticleService はArticleServiceInterfaceのモック実装。
type mockArticleService struct {
	createFn       func(ctx context.Context, authorID string, input model.ArticleInput) (string, error)
	getFn          func(ctx context.Context, articleID string) (*model.Article, error)
	listFn         func(ctx context.Context, category string, limit, page int) ([]*model.Article, error)
	updateFn       func(ctx context.Context, articleID string, update model.ArticleUpdate) (int, error)
	deleteFn       func(ctx context.Context, articleID string) error
	listVersionsFn func(ctx context.Context, articleID string) ([]*model.ArticleVersion, error)
}

func (m *mockArticleService) Create(ctx context.Context, authorID string, input model.ArticleInput) (string, error) {
	if m.createFn != nil {
		return m.createFn(ctx, authorID, input)
	}
	return "", nil
}

func (m *mockArticleService) Get(ctx context.Context, articleID string) (*model.Article, error) {
	if m.getFn != nil {
		return m.getFn(ctx, articleID)
	}
	return nil, nil
}

func (m *mockArticleService) List(ctx context.Context, category string, limit, page int) ([]*model.Article, error) {
	if m.listFn != nil {
		return m.listFn(ctx, category, limit, page)
	}
	return nil, nil
}

func (m *mockArticleService) Update(ctx context.Context, articleID string, update model.ArticleUpdate) (int, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, articleID, update)
	}
	return 0, nil
}

func (m *mockArticleService) Delete(ctx context.Context, articleID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, articleID)
	}
	return nil
}

func (m *mockArticleService) ListVersions(ctx context.Context, articleID string) ([]*model.ArticleVersion, error) {
	if m.listVersionsFn != nil {
		return m.listVersionsFn(ctx, articleID)
	}
	return nil, nil
}

// --- テストヘルパー ---

// withIdentity はテスト用にリクエストコンテキストに認証済みidentityを注入するヘルパー。
func withIdentity(r *http.Request, identity *model.Identity) *http.Request {
	ctx := middleware.ContextWithIdentity(r.Context(), identity)
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// decodeJSONBody はレスポンスボディをJSONとしてパースするヘルパー。
func decodeJSONBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

// assertErrorCode はエラーレスポンスのcodeフィールドを検証するヘルパー。
func assertErrorCode(t *testing.T, w *httptest.ResponseRecorder, wantCode string) {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	decodeJSONBody(t, w, &body)
	if body.Code != wantCode {
		t.Errorf("error code = %q, want %q", body.Code, wantCode)
	}
}

var testIdentity = &model.Identity{
	SubjectID: "uid-1",
	Email:     "taro@example.ac.jp",
	Role:      model.RoleAdmin,
}

// --- POST /articles テスト ---

func TestArticleHandler_CreateArticle_Success(t *testing.T) {
	svc := &mockArticleService{
		createFn: func(ctx context.Context, authorID string, input model.ArticleInput) (string, error) {
			if authorID != "uid-1" {
				t.Errorf("authorID = %q, want %q", authorID, "uid-1")
			}
			if input.Title != "微分積分入門" {
				t.Errorf("Title = %q, want %q", input.Title, "微分積分入門")
			}
			return "article-id-1", nil
		},
	}
	h := NewArticleHandler(svc)

	body := `{"title": "微分積分入門", "content": "本文", "category": "math"}`
	req := httptest.NewRequest(http.MethodPost, "/articles", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = withIdentity(req, testIdentity)
	w := httptest.NewRecorder()

	h.CreateArticle(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}

	var resp articleCreatedResponse
	decodeJSONBody(t, w, &resp)
	if resp.ArticleID != "article-id-1" {
		t.Errorf("ArticleID = %q, want %q", resp.ArticleID, "article-id-1")
	}
	if resp.Status != "success" {
		t.Errorf("Status = %q, want %q", resp.Status, "success")
	}
}

func TestArticleHandler_CreateArticle_ValidationError(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"タイトルなし", `{"content": "本文"}`},
		{"本文なし", `{"title": "タイトル"}`},
		{"不正なvisibility", `{"title": "t", "content": "c", "visibility": "secret"}`},
		{"壊れたJSON", `{invalid`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewArticleHandler(&mockArticleService{})

			req := httptest.NewRequest(http.MethodPost, "/articles", bytes.NewBufferString(tt.body))
			req = withIdentity(req, testIdentity)
			w := httptest.NewRecorder()

			h.CreateArticle(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			assertErrorCode(t, w, model.ErrCodeValidationFailed)
		})
	}
}

func TestArticleHandler_CreateArticle_NoIdentity(t *testing.T) {
	h := NewArticleHandler(&mockArticleService{})

	body := `{"title": "t", "content": "c"}`
	req := httptest.NewRequest(http.MethodPost, "/articles", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.CreateArticle(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestArticleHandler_CreateArticle_StoreUnavailable(t *testing.T) {
	svc := &mockArticleService{
		createFn: func(ctx context.Context, authorID string, input model.ArticleInput) (string, error) {
			return "", model.NewStoreUnavailableError()
		},
	}
	h := NewArticleHandler(svc)

	body := `{"title": "t", "content": "c"}`
	req := httptest.NewRequest(http.MethodPost, "/articles", bytes.NewBufferString(body))
	req = withIdentity(req, testIdentity)
	w := httptest.NewRecorder()

	h.CreateArticle(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
	assertErrorCode(t, w, model.ErrCodeStoreUnavailable)
}

// --- GET /articles テスト ---

func TestArticleHandler_ListArticles_DefaultPagination(t *testing.T) {
	svc := &mockArticleService{
		listFn: func(ctx context.Context, category string, limit, page int) ([]*model.Article, error) {
			if limit != 10 {
				t.Errorf("limit = %d, want 10", limit)
			}
			if page != 1 {
				t.Errorf("page = %d, want 1", page)
			}
			return []*model.Article{{ID: "a-1"}, {ID: "a-2"}}, nil
		},
	}
	h := NewArticleHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/articles", nil)
	w := httptest.NewRecorder()

	h.ListArticles(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp articleListResponse
	decodeJSONBody(t, w, &resp)
	if resp.Total != 2 {
		t.Errorf("Total = %d, want 2", resp.Total)
	}
	if resp.Page != 1 || resp.Limit != 10 {
		t.Errorf("Page = %d, Limit = %d, want 1, 10", resp.Page, resp.Limit)
	}
}

func TestArticleHandler_ListArticles_QueryParams(t *testing.T) {
	svc := &mockArticleService{
		listFn: func(ctx context.Context, category string, limit, page int) ([]*model.Article, error) {
			if category != "math" {
				t.Errorf("category = %q, want %q", category, "math")
			}
			if limit != 5 || page != 3 {
				t.Errorf("limit = %d, page = %d, want 5, 3", limit, page)
			}
			return nil, nil
		},
	}
	h := NewArticleHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/articles?category=math&limit=5&page=3", nil)
	w := httptest.NewRecorder()

	h.ListArticles(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestArticleHandler_ListArticles_InvalidPagination(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"limitが0", "?limit=0"},
		{"limitが上限超過", "?limit=101"},
		{"limitが数値でない", "?limit=ten"},
		{"pageが0", "?page=0"},
		{"pageが負数", "?page=-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewArticleHandler(&mockArticleService{})

			req := httptest.NewRequest(http.MethodGet, "/articles"+tt.query, nil)
			w := httptest.NewRecorder()

			h.ListArticles(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

// --- GET /articles/{id} テスト ---

func TestArticleHandler_GetArticle_Success(t *testing.T) {
	svc := &mockArticleService{
		getFn: func(ctx context.Context, articleID string) (*model.Article, error) {
			if articleID != "a-1" {
				t.Errorf("articleID = %q, want %q", articleID, "a-1")
			}
			return &model.Article{ID: "a-1", Title: "title", Version: 2}, nil
		},
	}
	h := NewArticleHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/articles/a-1", nil)
	req = withChiURLParam(req, "id", "a-1")
	w := httptest.NewRecorder()

	h.GetArticle(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp articleResponse
	decodeJSONBody(t, w, &resp)
	if resp.ID != "a-1" || resp.Version != 2 {
		t.Errorf("response = %+v, want ID a-1 Version 2", resp)
	}
}

func TestArticleHandler_GetArticle_NotFound(t *testing.T) {
	svc := &mockArticleService{
		getFn: func(ctx context.Context, articleID string) (*model.Article, error) {
			return nil, model.NewArticleNotFoundError(articleID)
		},
	}
	h := NewArticleHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/articles/missing", nil)
	req = withChiURLParam(req, "id", "missing")
	w := httptest.NewRecorder()

	h.GetArticle(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	assertErrorCode(t, w, model.ErrCodeArticleNotFound)
}

// --- PUT /articles/{id} テスト ---

func TestArticleHandler_UpdateArticle_Success(t *testing.T) {
	svc := &mockArticleService{
		updateFn: func(ctx context.Context, articleID string, update model.ArticleUpdate) (int, error) {
			if articleID != "a-1" {
				t.Errorf("articleID = %q, want %q", articleID, "a-1")
			}
			if update.Title == nil || *update.Title != "改訂版" {
				t.Errorf("Title = %v, want 改訂版", update.Title)
			}
			if update.Content != nil {
				t.Error("Content should be nil for a partial update")
			}
			return 5, nil
		},
	}
	h := NewArticleHandler(svc)

	body := `{"title": "改訂版"}`
	req := httptest.NewRequest(http.MethodPut, "/articles/a-1", bytes.NewBufferString(body))
	req = withChiURLParam(req, "id", "a-1")
	w := httptest.NewRecorder()

	h.UpdateArticle(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp articleUpdatedResponse
	decodeJSONBody(t, w, &resp)
	if resp.NewVersion != 5 {
		t.Errorf("NewVersion = %d, want 5", resp.NewVersion)
	}
}

func TestArticleHandler_UpdateArticle_VersionConflict(t *testing.T) {
	svc := &mockArticleService{
		updateFn: func(ctx context.Context, articleID string, update model.ArticleUpdate) (int, error) {
			return 0, model.NewVersionConflictError(articleID)
		},
	}
	h := NewArticleHandler(svc)

	body := `{"title": "改訂版"}`
	req := httptest.NewRequest(http.MethodPut, "/articles/a-1", bytes.NewBufferString(body))
	req = withChiURLParam(req, "id", "a-1")
	w := httptest.NewRecorder()

	h.UpdateArticle(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
	assertErrorCode(t, w, model.ErrCodeVersionConflict)
}

func TestArticleHandler_UpdateArticle_EmptyBody(t *testing.T) {
	svc := &mockArticleService{
		updateFn: func(ctx context.Context, articleID string, update model.ArticleUpdate) (int, error) {
			// フィールドなしの更新はサービス層でValidationFailedになる
			return 0, model.NewValidationFailedError("更新するフィールドがありません")
		},
	}
	h := NewArticleHandler(svc)

	req := httptest.NewRequest(http.MethodPut, "/articles/a-1", bytes.NewBufferString(`{}`))
	req = withChiURLParam(req, "id", "a-1")
	w := httptest.NewRecorder()

	h.UpdateArticle(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// --- DELETE /articles/{id} テスト ---

func TestArticleHandler_DeleteArticle_Success(t *testing.T) {
	deleted := false
	svc := &mockArticleService{
		deleteFn: func(ctx context.Context, articleID string) error {
			deleted = true
			return nil
		},
	}
	h := NewArticleHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/articles/a-1", nil)
	req = withChiURLParam(req, "id", "a-1")
	w := httptest.NewRecorder()

	h.DeleteArticle(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !deleted {
		t.Error("service Delete should be called")
	}
}

func TestArticleHandler_DeleteArticle_NotFound(t *testing.T) {
	svc := &mockArticleService{
		deleteFn: func(ctx context.Context, articleID string) error {
			return model.NewArticleNotFoundError(articleID)
		},
	}
	h := NewArticleHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/articles/missing", nil)
	req = withChiURLParam(req, "id", "missing")
	w := httptest.NewRecorder()

	h.DeleteArticle(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// --- GET /articles/{id}/versions テスト ---

func TestArticleHandler_ListVersions_Success(t *testing.T) {
	svc := &mockArticleService{
		listVersionsFn: func(ctx context.Context, articleID string) ([]*model.ArticleVersion, error) {
			return []*model.ArticleVersion{
				{ID: "v-2", ArticleID: "a-1", Version: 2, Data: model.Article{ID: "a-1", Version: 2}},
				{ID: "v-1", ArticleID: "a-1", Version: 1, Data: model.Article{ID: "a-1", Version: 1}},
			}, nil
		},
	}
	h := NewArticleHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/articles/a-1/versions", nil)
	req = withChiURLParam(req, "id", "a-1")
	w := httptest.NewRecorder()

	h.ListVersions(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp versionListResponse
	decodeJSONBody(t, w, &resp)
	if resp.TotalVersions != 2 {
		t.Errorf("TotalVersions = %d, want 2", resp.TotalVersions)
	}
	if len(resp.Versions) != 2 || resp.Versions[0].Version != 2 {
		t.Errorf("Versions = %+v, want newest first", resp.Versions)
	}
}

func TestArticleHandler_ListVersions_ArticleNotFound(t *testing.T) {
	svc := &mockArticleService{
		listVersionsFn: func(ctx context.Context, articleID string) ([]*model.ArticleVersion, error) {
			return nil, model.NewArticleNotFoundError(articleID)
		},
	}
	h := NewArticleHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/articles/missing/versions", nil)
	req = withChiURLParam(req, "id", "missing")
	w := httptest.NewRecorder()

	h.ListVersions(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
