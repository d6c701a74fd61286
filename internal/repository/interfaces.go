// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/eduwiki/internal/model"
)

// ArticleRepository は記事の現在行の永続化インターフェース。
// 現在行とバージョンログはarticleサービスのみが読み書きする。
type ArticleRepository interface {
	// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Article, error)

	// Create は記事の現在行を作成する。
	Create(ctx context.Context, article *model.Article) error

	// UpdateIfVersion は記事の現在行を条件付きで上書きする。
	// 格納済みのversionがexpectedVersionと一致する場合のみ書き込み、
	// 一致しない（競合した）場合はfalseを返す。
	UpdateIfVersion(ctx context.Context, article *model.Article, expectedVersion int) (bool, error)

	// Archive は記事をソフトデリートする（status = archived、updated_at更新）。
	// versionとバージョンログには触れない。記事が存在しない場合はfalseを返す。
	Archive(ctx context.Context, id string, archivedAt time.Time) (bool, error)

	// ListPublic はvisibility = publicの記事一覧を作成日時降順で返す。
	// categoryが空でない場合は追加でカテゴリフィルタを適用する。
	// ページ間のスナップショット分離は保証しない。
	ListPublic(ctx context.Context, category string, limit, offset int) ([]*model.Article, error)
}

// ArticleVersionRepository は記事バージョンログの永続化インターフェース。
// レコードは追記専用であり、更新・削除のメソッドは提供しない。
type ArticleVersionRepository interface {
	// Create はバージョンレコードを追記する。
	Create(ctx context.Context, version *model.ArticleVersion) error

	// ListByArticleID は指定記事のバージョン一覧をversion降順（新しい順）で返す。
	// レコードが存在しない場合は空スライスを返す。
	ListByArticleID(ctx context.Context, articleID string) ([]*model.ArticleVersion, error)
}
