package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hitoshi/eduwiki/internal/model"
)

// PostgresArticleVersionRepo はPostgreSQLを使用した記事バージョンログリポジトリ。
// dataカラムにはスナップショットをJSONBで格納する。
type PostgresArticleVersionRepo struct {
	db *sql.DB
}

// NewPostgresArticleVersionRepo はPostgresArticleVersionRepoを生成する。
func NewPostgresArticleVersionRepo(db *sql.DB) *PostgresArticleVersionRepo {
	return &PostgresArticleVersionRepo{db: db}
}

// versionSnapshot はdataカラムのJSON表現。
type versionSnapshot struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Category   string   `json:"category"`
	Tags       []string `json:"tags"`
	Visibility string   `json:"visibility"`
	Author     string   `json:"author"`
	Version    int      `json:"version"`
	Status     string   `json:"status"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at"`
}

const snapshotTimeFormat = time.RFC3339Nano

// parseSnapshotTime はスナップショット内の日時文字列をパースする。
func parseSnapshotTime(s string) (time.Time, error) {
	return time.Parse(snapshotTimeFormat, s)
}

// toSnapshot はArticleをJSONスナップショットに変換する。
func toSnapshot(a model.Article) versionSnapshot {
	return versionSnapshot{
		ID:         a.ID,
		Title:      a.Title,
		Content:    a.Content,
		Category:   a.Category,
		Tags:       a.Tags,
		Visibility: string(a.Visibility),
		Author:     a.Author,
		Version:    a.Version,
		Status:     string(a.Status),
		CreatedAt:  a.CreatedAt.UTC().Format(snapshotTimeFormat),
		UpdatedAt:  a.UpdatedAt.UTC().Format(snapshotTimeFormat),
	}
}

// fromSnapshot はJSONスナップショットをArticleに復元する。
// 日時のパース失敗はゼロ値にフォールバックする（スナップショットは診断用途）。
func fromSnapshot(s versionSnapshot) model.Article {
	a := model.Article{
		ID:         s.ID,
		Title:      s.Title,
		Content:    s.Content,
		Category:   s.Category,
		Tags:       s.Tags,
		Visibility: model.Visibility(s.Visibility),
		Author:     s.Author,
		Version:    s.Version,
		Status:     model.ArticleStatus(s.Status),
	}
	if t, err := parseSnapshotTime(s.CreatedAt); err == nil {
		a.CreatedAt = t
	}
	if t, err := parseSnapshotTime(s.UpdatedAt); err == nil {
		a.UpdatedAt = t
	}
	return a
}

// Create はバージョンレコードを追記する。
func (r *PostgresArticleVersionRepo) Create(ctx context.Context, version *model.ArticleVersion) error {
	data, err := json.Marshal(toSnapshot(version.Data))
	if err != nil {
		return fmt.Errorf("バージョンスナップショットのシリアライズに失敗しました: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO article_versions (id, article_id, version, data, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		version.ID, version.ArticleID, version.Version, data, version.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("バージョンレコードの追記に失敗しました: %w", err)
	}

	return nil
}

// ListByArticleID は指定記事のバージョン一覧をversion降順で返す。
func (r *PostgresArticleVersionRepo) ListByArticleID(ctx context.Context, articleID string) ([]*model.ArticleVersion, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, article_id, version, data, created_at
		 FROM article_versions
		 WHERE article_id = $1
		 ORDER BY version DESC`,
		articleID,
	)
	if err != nil {
		return nil, fmt.Errorf("バージョン一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	versions := []*model.ArticleVersion{}
	for rows.Next() {
		v := &model.ArticleVersion{}
		var data []byte

		if err := rows.Scan(&v.ID, &v.ArticleID, &v.Version, &data, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("バージョン一覧のスキャンに失敗しました: %w", err)
		}

		var snapshot versionSnapshot
		if err := json.Unmarshal(data, &snapshot); err != nil {
			return nil, fmt.Errorf("バージョンスナップショットの復元に失敗しました: %w", err)
		}
		v.Data = fromSnapshot(snapshot)

		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("バージョン一覧の読み取りに失敗しました: %w", err)
	}

	return versions, nil
}

// compile-time interface check
var _ ArticleVersionRepository = (*PostgresArticleVersionRepo)(nil)
