// Package model はドメインモデルを定義する。
package model

// ロール定数。adminは全てのロール要件を満たす。
const (
	// RoleUser は既定のロール。ロールクレームが存在しない場合もこの値になる。
	RoleUser = "user"
	// RoleAdmin は管理者ロール。記事の作成・更新・削除が可能。
	RoleAdmin = "admin"
)

// Identity は認証済みユーザーの識別情報を表す。
// リクエストごとに外部発行者の検証結果から再構築され、永続化されない。
// Roleは認可属性であり、クレームストアから別途解決される（未解決時は空文字列）。
type Identity struct {
	SubjectID     string
	Email         string
	DisplayName   string
	EmailVerified bool
	Role          string
}
