// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, article, validation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthenticated  = "UNAUTHENTICATED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeArticleNotFound  = "ARTICLE_NOT_FOUND"
	ErrCodeVersionConflict  = "VERSION_CONFLICT"
	ErrCodeStoreUnavailable = "STORE_UNAVAILABLE"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
)

// NewUnauthenticatedError は認証失敗エラーを生成する。
// クレデンシャルの欠落・無効・期限切れの場合に使用する。
func NewUnauthenticatedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  fmt.Sprintf("認証に失敗しました: %s", reason),
		Category: "auth",
		Action:   "有効なトークンで再度ログインしてください。",
	}
}

// NewForbiddenError は認可失敗エラーを生成する。
// クレデンシャルは有効だが、許可リスト外またはロール不足の場合に使用する。
func NewForbiddenError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  fmt.Sprintf("アクセスが拒否されました: %s", reason),
		Category: "auth",
		Action:   "アクセス権限について管理者に問い合わせてください。",
	}
}

// NewArticleNotFoundError は記事未検出エラーを生成する。
func NewArticleNotFoundError(articleID string) *APIError {
	return &APIError{
		Code:     ErrCodeArticleNotFound,
		Message:  fmt.Sprintf("指定された記事が見つかりません: %s", articleID),
		Category: "article",
		Action:   "記事IDを確認してください。",
	}
}

// NewVersionConflictError は楽観的排他制御のリトライ上限超過エラーを生成する。
func NewVersionConflictError(articleID string) *APIError {
	return &APIError{
		Code:     ErrCodeVersionConflict,
		Message:  fmt.Sprintf("記事の更新が競合しました: %s", articleID),
		Category: "article",
		Action:   "最新の記事を取得してから再度更新してください。",
	}
}

// NewStoreUnavailableError はデータストア利用不可エラーを生成する。
// 接続先の詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func NewStoreUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeStoreUnavailable,
		Message:  "データストアが利用できません。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewValidationFailedError は入力検証エラーを生成する。
func NewValidationFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力が不正です: %s", reason),
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}
