// Package model はドメインモデルを定義する。
package model

import "time"

// Visibility は記事の公開範囲を表す。
type Visibility string

const (
	// VisibilityPublic は全許可ユーザーに公開される記事。
	VisibilityPublic Visibility = "public"
	// VisibilityPrivate は一覧に表示されない記事。
	VisibilityPrivate Visibility = "private"
)

// ArticleStatus は記事のライフサイクル状態を表す。
type ArticleStatus string

const (
	// ArticleStatusPublished は公開中の記事。
	ArticleStatusPublished ArticleStatus = "published"
	// ArticleStatusArchived はソフトデリート済みの記事。
	// この状態は終端であり、復活も物理削除も行わない。
	ArticleStatusArchived ArticleStatus = "archived"
)

// Article は記事の「現在行」（最新状態の射影）を表す。
// versionは作成時に1から始まり、更新成功のたびに1ずつ増加する。
type Article struct {
	ID         string
	Title      string
	Content    string
	Category   string
	Tags       []string
	Visibility Visibility
	Author     string // 作成者のsubject ID
	Version    int
	Status     ArticleStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ArticleVersion は記事の不変なバージョンスナップショットを表す。
// 記事ごとにversion値は1..Nの連続した列を形成する（Nは現在行のversion）。
// バージョンレコードは追記専用であり、変更・削除されない。
type ArticleVersion struct {
	ID        string
	ArticleID string
	Version   int
	Data      Article // その時点のArticle全フィールドの完全なコピー
	CreatedAt time.Time
}

// ArticleInput は記事作成時の入力データ。
type ArticleInput struct {
	Title      string
	Content    string
	Category   string
	Tags       []string
	Visibility Visibility
}

// ArticleUpdate は記事更新時の部分更新データ。
// nilフィールドは変更せず、既存の値を維持する。
type ArticleUpdate struct {
	Title      *string
	Content    *string
	Category   *string
	Tags       []string
	Visibility *Visibility
}

// IsEmpty は更新対象のフィールドが1つも指定されていない場合にtrueを返す。
func (u *ArticleUpdate) IsEmpty() bool {
	return u.Title == nil && u.Content == nil && u.Category == nil &&
		u.Tags == nil && u.Visibility == nil
}
