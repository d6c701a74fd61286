// Package auth はトークン検証、許可リスト認可、ロール確認を提供する。
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hitoshi/eduwiki/internal/model"
)

const defaultLookupURL = "https://identitytoolkit.googleapis.com/v1/accounts:lookup"

// TokenVerifier は不透明なベアラートークンを検証し、識別クレームを抽出する。
// トークンの内部構造は解釈せず、外部発行者の検証エンドポイントに委譲する。
type TokenVerifier interface {
	// VerifyToken はIDトークンを検証し、識別情報を返す。
	// 構造が不正または期限切れのトークンにはエラーを返す。
	// Roleは設定されない（ロールは可変な認可属性であり、別途解決する）。
	VerifyToken(ctx context.Context, idToken string) (*model.Identity, error)
}

// RoleResolver はsubject IDからロールクレームを解決する。
type RoleResolver interface {
	// ResolveRole は指定ユーザーのロールクレームを取得する。
	// クレームが存在しない場合はmodel.RoleUserを返す。
	ResolveRole(ctx context.Context, subjectID string) (string, error)
}

// IssuerClientConfig は外部発行者クライアントの設定。
type IssuerClientConfig struct {
	APIKey string

	// テスト用にオーバーライド可能なURL
	LookupURL string
}

// IssuerClient は外部の識別トークン発行者に対するHTTPクライアント。
// トークン検証とロールクレームの取得をaccounts:lookupエンドポイントで行う。
type IssuerClient struct {
	config IssuerClientConfig
}

// NewIssuerClient はIssuerClientを生成する。
func NewIssuerClient(config IssuerClientConfig) *IssuerClient {
	if config.LookupURL == "" {
		config.LookupURL = defaultLookupURL
	}
	return &IssuerClient{config: config}
}

// lookupResponse はaccounts:lookupエンドポイントのレスポンス。
type lookupResponse struct {
	Users []lookupUser `json:"users"`
}

// lookupUser はaccounts:lookupが返すユーザー情報。
// CustomAttributesにはカスタムクレームのJSON文字列が入る。
type lookupUser struct {
	LocalID          string `json:"localId"`
	Email            string `json:"email"`
	DisplayName      string `json:"displayName"`
	EmailVerified    bool   `json:"emailVerified"`
	CustomAttributes string `json:"customAttributes"`
}

// VerifyToken はIDトークンを発行者のエンドポイントで検証する。
func (c *IssuerClient) VerifyToken(ctx context.Context, idToken string) (*model.Identity, error) {
	user, err := c.lookup(ctx, map[string]any{"idToken": idToken})
	if err != nil {
		return nil, err
	}

	return &model.Identity{
		SubjectID:     user.LocalID,
		Email:         user.Email,
		DisplayName:   user.DisplayName,
		EmailVerified: user.EmailVerified,
	}, nil
}

// customClaims はCustomAttributesに格納されるカスタムクレーム。
type customClaims struct {
	Role string `json:"role"`
}

// ResolveRole は指定ユーザーのロールカスタムクレームを取得する。
// クレームが未設定の場合はmodel.RoleUserを返す。
func (c *IssuerClient) ResolveRole(ctx context.Context, subjectID string) (string, error) {
	user, err := c.lookup(ctx, map[string]any{"localId": []string{subjectID}})
	if err != nil {
		return "", err
	}

	if user.CustomAttributes == "" {
		return model.RoleUser, nil
	}

	var claims customClaims
	if err := json.Unmarshal([]byte(user.CustomAttributes), &claims); err != nil {
		return "", fmt.Errorf("failed to parse custom claims: %w", err)
	}
	if claims.Role == "" {
		return model.RoleUser, nil
	}

	return claims.Role, nil
}

// lookup はaccounts:lookupエンドポイントを呼び出し、先頭のユーザーを返す。
func (c *IssuerClient) lookup(ctx context.Context, payload map[string]any) (*lookupUser, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode lookup request: %w", err)
	}

	url := c.config.LookupURL + "?key=" + c.config.APIKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create lookup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read lookup response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lookup failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var lookupResp lookupResponse
	if err := json.Unmarshal(respBody, &lookupResp); err != nil {
		return nil, fmt.Errorf("failed to parse lookup response: %w", err)
	}

	if len(lookupResp.Users) == 0 {
		return nil, fmt.Errorf("no user matched the credential")
	}

	return &lookupResp.Users[0], nil
}

// compile-time interface check
var (
	_ TokenVerifier = (*IssuerClient)(nil)
	_ RoleResolver  = (*IssuerClient)(nil)
)
