// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/hitoshi/eduwiki/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// identityContextKey はリクエストコンテキストに認証済みidentityを格納するためのキー。
var identityContextKey = contextKey("identity")

// Authenticator はベアラークレデンシャルの認証に必要なインターフェース。
// auth.Serviceの部分集合として定義する。
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (*model.Identity, error)
}

// RoleChecker はロール要件の確認に必要なインターフェース。
// auth.Serviceの部分集合として定義する。
type RoleChecker interface {
	RequireRole(ctx context.Context, identity *model.Identity, requiredRole string) error
}

// AuthRejectionRecorder は認証・認可の拒否メトリクスを記録するインターフェース。
type AuthRejectionRecorder interface {
	RecordAuthRejection(reason string)
}

// NewAuthMiddleware はAuthorizationヘッダーのベアラートークンを検証し、
// 認証済みidentityをリクエストコンテキストに注入するミドルウェアを返す。
// トークンが無効な場合は401、許可リスト外の場合は403を返す。
// recorderはnilでもよい。
func NewAuthMiddleware(authn Authenticator, recorder AuthRejectionRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := authn.Authenticate(r.Context(), bearerToken(r))
			if err != nil {
				writeAuthError(w, err, recorder)
				return
			}

			ctx := ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewRequireRoleMiddleware は認証済みidentityのロールを解決し、
// requiredRoleを満たすことを確認するミドルウェアを返す。
// AuthMiddlewareの後に配置する必要がある。
// ロール不足の場合は必要なロールを明示した403を返す。
func NewRequireRoleMiddleware(rc RoleChecker, requiredRole string, recorder AuthRejectionRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := IdentityFromContext(r.Context())
			if err != nil {
				writeAuthError(w, model.NewUnauthenticatedError("認証されていません"), recorder)
				return
			}

			if err := rc.RequireRole(r.Context(), identity, requiredRole); err != nil {
				writeAuthError(w, err, recorder)
				return
			}

			// RequireRoleで解決されたロールを含むidentityを伝播する
			ctx := ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext はリクエストコンテキストから認証済みidentityを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func IdentityFromContext(ctx context.Context) (*model.Identity, error) {
	identity, ok := ctx.Value(identityContextKey).(*model.Identity)
	if !ok || identity == nil {
		return nil, fmt.Errorf("identity not found in context")
	}
	return identity, nil
}

// ContextWithIdentity はコンテキストにidentityを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// bearerToken はAuthorizationヘッダーからベアラートークンを取り出す。
// ヘッダーが存在しない、または形式が不正な場合は空文字列を返す。
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// writeAuthError は認証・認可エラーをレスポンスに書き込み、メトリクスを記録する。
func writeAuthError(w http.ResponseWriter, err error, recorder AuthRejectionRecorder) {
	apiErr := asAPIError(err)

	if recorder != nil {
		switch apiErr.Code {
		case model.ErrCodeUnauthenticated:
			recorder.RecordAuthRejection("unauthenticated")
		case model.ErrCodeForbidden:
			recorder.RecordAuthRejection("forbidden")
		}
	}

	WriteErrorResponse(w, MapAPIErrorToHTTPStatus(apiErr), apiErr)
}
