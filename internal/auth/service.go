package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/eduwiki/internal/model"
)

// Service はトークン検証と許可リスト認可を組み合わせた認可ゲート。
// 全ての書き込み操作はAuthenticateとRequireRoleの両方を、
// 読み取り操作はAuthenticateのみを通過する。
//
// verifierがnilの場合、認証は恒久的な縮退モードになり、
// Authenticateは常にUnauthenticatedを返す（プロセスはクラッシュさせない）。
// rolesがnilまたは到達不能の場合、ロールは常に最小権限のmodel.RoleUserに
// フォールバックする（アクセスを広げる方向には決して縮退しない）。
type Service struct {
	verifier TokenVerifier
	roles    RoleResolver
	policy   *AccessPolicy
}

// NewService はServiceを生成する。
// verifierとrolesにはnilを渡せる（縮退モード）。
func NewService(verifier TokenVerifier, roles RoleResolver, policy *AccessPolicy) *Service {
	return &Service{
		verifier: verifier,
		roles:    roles,
		policy:   policy,
	}
}

// Degraded は認証基盤が縮退モードかどうかを返す。
func (s *Service) Degraded() bool {
	return s.verifier == nil
}

// Policy は許可リストポリシーを返す。管理ツーリング用。
func (s *Service) Policy() *AccessPolicy {
	return s.policy
}

// Authenticate はベアラークレデンシャルを検証し、許可リストを確認する。
// トークンが無効な場合はUnauthenticated、トークンは有効だが
// 許可リスト外の場合はForbidden（診断理由付き）を返す。
func (s *Service) Authenticate(ctx context.Context, credential string) (*model.Identity, error) {
	if credential == "" {
		return nil, model.NewUnauthenticatedError("トークンが指定されていません")
	}

	if s.verifier == nil {
		// 発行者クレデンシャルなしで起動した縮退モード
		slog.Warn("authentication attempted in degraded mode")
		return nil, model.NewUnauthenticatedError("認証基盤が利用できません")
	}

	identity, err := s.verifier.VerifyToken(ctx, credential)
	if err != nil {
		slog.Warn("token verification failed", slog.String("error", err.Error()))
		return nil, model.NewUnauthenticatedError("トークンが無効または期限切れです")
	}

	if !s.policy.IsAuthorized(identity.Email) {
		reason := s.policy.AuthorizationReason(identity.Email)
		slog.Info("user not allowlisted",
			slog.String("email", identity.Email),
			slog.String("reason", reason),
		)
		return nil, model.NewForbiddenError(reason)
	}

	return identity, nil
}

// RequireRole はidentityの現在のロールを解決し、要求ロールを満たすか確認する。
// ロール解決の失敗はエラーにせず、最小権限のmodel.RoleUserに縮退する。
// 解決したロールはidentity.Roleに設定される。
func (s *Service) RequireRole(ctx context.Context, identity *model.Identity, requiredRole string) error {
	role := model.RoleUser

	if s.roles != nil {
		resolved, err := s.roles.ResolveRole(ctx, identity.SubjectID)
		if err != nil {
			slog.Warn("role resolution failed, defaulting to user role",
				slog.String("subject_id", identity.SubjectID),
				slog.String("error", err.Error()),
			)
		} else if resolved != "" {
			role = resolved
		}
	}

	identity.Role = role

	if !s.policy.RoleSatisfies(role, requiredRole) {
		return model.NewForbiddenError(fmt.Sprintf("権限が不足しています。必要なロール: %s", requiredRole))
	}

	return nil
}
