package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/eduwiki/internal/model"
)

// PostgresArticleRepo はPostgreSQLを使用した記事リポジトリ。
type PostgresArticleRepo struct {
	db *sql.DB
}

// NewPostgresArticleRepo はPostgresArticleRepoを生成する。
func NewPostgresArticleRepo(db *sql.DB) *PostgresArticleRepo {
	return &PostgresArticleRepo{db: db}
}

const articleColumns = `id, title, content, category, tags, visibility, author,
	        version, status, created_at, updated_at`

// scanArticle は1行分の記事をスキャンする。
func scanArticle(row interface{ Scan(dest ...any) error }) (*model.Article, error) {
	article := &model.Article{}
	var tags pq.StringArray

	err := row.Scan(
		&article.ID, &article.Title, &article.Content, &article.Category,
		&tags, &article.Visibility, &article.Author,
		&article.Version, &article.Status, &article.CreatedAt, &article.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	article.Tags = []string(tags)
	return article, nil
}

// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
func (r *PostgresArticleRepo) FindByID(ctx context.Context, id string) (*model.Article, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE id = $1`,
		id,
	)

	article, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}

	return article, nil
}

// Create は記事の現在行を作成する。
func (r *PostgresArticleRepo) Create(ctx context.Context, article *model.Article) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO articles (id, title, content, category, tags, visibility, author,
		                       version, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		article.ID, article.Title, article.Content, article.Category,
		pq.Array(article.Tags), article.Visibility, article.Author,
		article.Version, article.Status, article.CreatedAt, article.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("記事の作成に失敗しました: %w", err)
	}

	return nil
}

// UpdateIfVersion は記事の現在行を条件付きで上書きする。
// WHERE句でversionの一致を要求することで、読み取り後に別の更新が
// 割り込んだ場合の書き込みを拒否する（楽観的排他制御）。
func (r *PostgresArticleRepo) UpdateIfVersion(ctx context.Context, article *model.Article, expectedVersion int) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE articles
		 SET title = $1, content = $2, category = $3, tags = $4, visibility = $5,
		     version = $6, updated_at = $7
		 WHERE id = $8 AND version = $9`,
		article.Title, article.Content, article.Category, pq.Array(article.Tags),
		article.Visibility, article.Version, article.UpdatedAt,
		article.ID, expectedVersion,
	)
	if err != nil {
		return false, fmt.Errorf("記事の更新に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}

	return affected == 1, nil
}

// Archive は記事をソフトデリートする。
// すでにarchivedの記事に対しても成功する（冪等）。
func (r *PostgresArticleRepo) Archive(ctx context.Context, id string, archivedAt time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE articles SET status = $1, updated_at = $2 WHERE id = $3`,
		model.ArticleStatusArchived, archivedAt, id,
	)
	if err != nil {
		return false, fmt.Errorf("記事のアーカイブに失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("アーカイブ結果の取得に失敗しました: %w", err)
	}

	return affected == 1, nil
}

// ListPublic はvisibility = publicの記事一覧を作成日時降順で返す。
func (r *PostgresArticleRepo) ListPublic(ctx context.Context, category string, limit, offset int) ([]*model.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE visibility = $1`
	args := []any{model.VisibilityPublic}

	if category != "" {
		query += ` AND category = $2`
		args = append(args, category)
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("記事一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	articles := []*model.Article{}
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("記事一覧のスキャンに失敗しました: %w", err)
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("記事一覧の読み取りに失敗しました: %w", err)
	}

	return articles, nil
}

// compile-time interface check
var _ ArticleRepository = (*PostgresArticleRepo)(nil)
