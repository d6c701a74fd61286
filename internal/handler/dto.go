package handler

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/hitoshi/eduwiki/internal/model"
)

// --- リクエスト型 ---

// createArticleRequest は記事作成リクエストのボディ。
type createArticleRequest struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Category   string   `json:"category"`
	Tags       []string `json:"tags"`
	Visibility string   `json:"visibility"`
}

// Validate は記事作成リクエストを検証する。
func (r createArticleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Content, validation.Required),
		validation.Field(&r.Category, validation.Length(0, 100)),
		validation.Field(&r.Visibility, validation.In("", "public", "private")),
	)
}

// toInput はリクエストをドメインの入力型に変換する。
func (r createArticleRequest) toInput() model.ArticleInput {
	return model.ArticleInput{
		Title:      r.Title,
		Content:    r.Content,
		Category:   r.Category,
		Tags:       r.Tags,
		Visibility: model.Visibility(r.Visibility),
	}
}

// updateArticleRequest は記事更新リクエストのボディ。
// nilフィールドは変更しない部分更新を表す。
type updateArticleRequest struct {
	Title      *string  `json:"title,omitempty"`
	Content    *string  `json:"content,omitempty"`
	Category   *string  `json:"category,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Visibility *string  `json:"visibility,omitempty"`
}

// Validate は記事更新リクエストを検証する。
// 指定されたフィールドのみを検証する（nilは未指定）。
func (r updateArticleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&r.Category, validation.Length(0, 100)),
		validation.Field(&r.Visibility, validation.In("public", "private")),
	)
}

// toUpdate はリクエストをドメインの部分更新型に変換する。
func (r updateArticleRequest) toUpdate() model.ArticleUpdate {
	update := model.ArticleUpdate{
		Title:    r.Title,
		Content:  r.Content,
		Category: r.Category,
		Tags:     r.Tags,
	}
	if r.Visibility != nil {
		v := model.Visibility(*r.Visibility)
		update.Visibility = &v
	}
	return update
}

// addDomainRequest は許可ドメイン追加リクエストのボディ。
type addDomainRequest struct {
	Domain string `json:"domain"`
}

// Validate は許可ドメイン追加リクエストを検証する。
func (r addDomainRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Domain, validation.Required, is.Domain),
	)
}

// addEmailRequest は許可メールアドレス追加リクエストのボディ。
type addEmailRequest struct {
	Email string `json:"email"`
}

// Validate は許可メールアドレス追加リクエストを検証する。
func (r addEmailRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

// --- レスポンス型 ---

// articleResponse は記事のレスポンス。
type articleResponse struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Category   string    `json:"category"`
	Tags       []string  `json:"tags"`
	Visibility string    `json:"visibility"`
	Author     string    `json:"author"`
	Version    int       `json:"version"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// toArticleResponse はドメインのArticleをレスポンス型に変換する。
func toArticleResponse(a *model.Article) articleResponse {
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	return articleResponse{
		ID:         a.ID,
		Title:      a.Title,
		Content:    a.Content,
		Category:   a.Category,
		Tags:       tags,
		Visibility: string(a.Visibility),
		Author:     a.Author,
		Version:    a.Version,
		Status:     string(a.Status),
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

// articleListResponse は記事一覧のレスポンス。
type articleListResponse struct {
	Articles []articleResponse `json:"articles"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

// articleCreatedResponse は記事作成のレスポンス。
type articleCreatedResponse struct {
	Message   string `json:"message"`
	ArticleID string `json:"article_id"`
	Status    string `json:"status"`
}

// articleUpdatedResponse は記事更新のレスポンス。
type articleUpdatedResponse struct {
	Message    string `json:"message"`
	ArticleID  string `json:"article_id"`
	NewVersion int    `json:"new_version"`
	Status     string `json:"status"`
}

// articleDeletedResponse は記事削除のレスポンス。
type articleDeletedResponse struct {
	Message   string `json:"message"`
	ArticleID string `json:"article_id"`
	Status    string `json:"status"`
}

// versionResponse は記事バージョンのレスポンス。
type versionResponse struct {
	ID        string          `json:"id"`
	ArticleID string          `json:"article_id"`
	Version   int             `json:"version"`
	Data      articleResponse `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}

// versionListResponse はバージョン履歴のレスポンス。
type versionListResponse struct {
	ArticleID     string            `json:"article_id"`
	Versions      []versionResponse `json:"versions"`
	TotalVersions int               `json:"total_versions"`
}

// allowlistResponse は許可リストの現在の内容。
type allowlistResponse struct {
	AllowedDomains []string `json:"allowed_domains"`
	AllowedEmails  []string `json:"allowed_emails"`
}

// authorizationStatusResponse はメールアドレスの認可状態。
type authorizationStatusResponse struct {
	Email        string `json:"email"`
	IsAuthorized bool   `json:"is_authorized"`
	Reason       string `json:"reason"`
}

// profileResponse は認証済みユーザーのプロフィール。
type profileResponse struct {
	SubjectID     string `json:"subject_id"`
	Email         string `json:"email"`
	DisplayName   string `json:"display_name"`
	EmailVerified bool   `json:"email_verified"`
	Role          string `json:"role"`
}

// messageResponse は汎用の成功レスポンス。
type messageResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}
