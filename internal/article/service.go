// Package article は記事のバージョン管理付きストアを提供する。
//
// 記事は可変な「現在行」と追記専用のバージョンログの2つの表現を持ち、
// 両方の唯一の所有者・書き込み者はこのパッケージである。
// 作成および更新成功のたびに不変なバージョンスナップショットが追記される。
// 削除はソフトデリート（status = archived）であり、行の物理削除は行わない。
package article

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/eduwiki/internal/model"
	"github.com/hitoshi/eduwiki/internal/repository"
	"github.com/hitoshi/eduwiki/internal/security"
)

// maxUpdateAttempts は楽観的排他制御のリトライ上限。
// 上限に達した場合はVersionConflictを呼び出し元に返す。
const maxUpdateAttempts = 3

// defaultListLimit は一覧取得のデフォルト件数。
const defaultListLimit = 10

// MetricsCollector は記事操作のメトリクス収集インターフェース。
type MetricsCollector interface {
	RecordArticleCreated()
	RecordArticleUpdated()
	RecordArticleArchived()
	RecordVersionConflict()
	RecordVersionLogFailure()
}

// Service は記事のバージョン管理付きストア。
type Service struct {
	articles  repository.ArticleRepository
	versions  repository.ArticleVersionRepository
	sanitizer security.ContentSanitizerService
	metrics   MetricsCollector
}

// NewService はServiceを生成する。
func NewService(
	articles repository.ArticleRepository,
	versions repository.ArticleVersionRepository,
	sanitizer security.ContentSanitizerService,
	metrics MetricsCollector,
) *Service {
	return &Service{
		articles:  articles,
		versions:  versions,
		sanitizer: sanitizer,
		metrics:   metrics,
	}
}

// Create は新規記事を作成し、記事IDを返す。
// version = 1、status = publishedで現在行を書き込んだ後、
// バージョン1のスナップショットをベストエフォートで追記する。
func (s *Service) Create(ctx context.Context, authorID string, input model.ArticleInput) (string, error) {
	now := time.Now().UTC()

	visibility := input.Visibility
	if visibility == "" {
		visibility = model.VisibilityPublic
	}

	article := &model.Article{
		ID:         uuid.New().String(),
		Title:      input.Title,
		Content:    s.sanitizer.Sanitize(input.Content),
		Category:   input.Category,
		Tags:       input.Tags,
		Visibility: visibility,
		Author:     authorID,
		Version:    1,
		Status:     model.ArticleStatusPublished,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.articles.Create(ctx, article); err != nil {
		slog.Error("failed to create article", slog.String("error", err.Error()))
		return "", model.NewStoreUnavailableError()
	}

	s.appendVersion(ctx, article)
	s.metrics.RecordArticleCreated()

	slog.Info("article created",
		slog.String("article_id", article.ID),
		slog.String("author", authorID),
	)
	return article.ID, nil
}

// Get は指定IDの記事を取得する。
// 存在しない場合はArticleNotFoundを返す。
func (s *Service) Get(ctx context.Context, articleID string) (*model.Article, error) {
	article, err := s.articles.FindByID(ctx, articleID)
	if err != nil {
		slog.Error("failed to get article",
			slog.String("article_id", articleID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewStoreUnavailableError()
	}
	if article == nil {
		return nil, model.NewArticleNotFoundError(articleID)
	}

	return article, nil
}

// List はvisibility = publicの記事一覧を返す。
// categoryが空でない場合はカテゴリでさらに絞り込む。
// オフセットベースのページネーション: offset = (page - 1) * limit。
// ページ間のスナップショット分離は保証しない。
func (s *Service) List(ctx context.Context, category string, limit, page int) ([]*model.Article, error) {
	if limit < 1 {
		limit = defaultListLimit
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	articles, err := s.articles.ListPublic(ctx, category, limit, offset)
	if err != nil {
		slog.Error("failed to list articles", slog.String("error", err.Error()))
		return nil, model.NewStoreUnavailableError()
	}

	return articles, nil
}

// Update は記事を部分更新し、新しいバージョン番号を返す。
// 現在行の読み取り・マージ・条件付き書き込みを行い、
// 書き込みは読み取ったversionがまだ格納されている場合のみ成功する。
// 競合時は新しい読み取りからリトライし、上限超過でVersionConflictを返す。
// 更新するフィールドが1つもない場合はValidationFailedを返す。
func (s *Service) Update(ctx context.Context, articleID string, update model.ArticleUpdate) (int, error) {
	if update.IsEmpty() {
		return 0, model.NewValidationFailedError("更新するフィールドがありません")
	}

	if update.Content != nil {
		sanitized := s.sanitizer.Sanitize(*update.Content)
		update.Content = &sanitized
	}

	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		current, err := s.articles.FindByID(ctx, articleID)
		if err != nil {
			slog.Error("failed to read article for update",
				slog.String("article_id", articleID),
				slog.String("error", err.Error()),
			)
			return 0, model.NewStoreUnavailableError()
		}
		if current == nil {
			return 0, model.NewArticleNotFoundError(articleID)
		}

		merged := mergeUpdate(current, update)
		merged.Version = current.Version + 1
		merged.UpdatedAt = time.Now().UTC()

		ok, err := s.articles.UpdateIfVersion(ctx, merged, current.Version)
		if err != nil {
			slog.Error("failed to write article update",
				slog.String("article_id", articleID),
				slog.String("error", err.Error()),
			)
			return 0, model.NewStoreUnavailableError()
		}

		if ok {
			s.appendVersion(ctx, merged)
			s.metrics.RecordArticleUpdated()

			slog.Info("article updated",
				slog.String("article_id", articleID),
				slog.Int("new_version", merged.Version),
			)
			return merged.Version, nil
		}

		// 読み取り後に別の更新が割り込んだ。新しい読み取りからやり直す。
		s.metrics.RecordVersionConflict()
		slog.Warn("article update conflicted, retrying",
			slog.String("article_id", articleID),
			slog.Int("attempt", attempt),
		)
	}

	return 0, model.NewVersionConflictError(articleID)
}

// Delete は記事をソフトデリートする。
// status = archivedに変更しupdated_atを更新する。行の削除、バージョンログの
// 変更、versionの変更は行わない。archived済みの記事にも成功する（冪等）。
func (s *Service) Delete(ctx context.Context, articleID string) error {
	current, err := s.articles.FindByID(ctx, articleID)
	if err != nil {
		slog.Error("failed to read article for delete",
			slog.String("article_id", articleID),
			slog.String("error", err.Error()),
		)
		return model.NewStoreUnavailableError()
	}
	if current == nil {
		return model.NewArticleNotFoundError(articleID)
	}

	ok, err := s.articles.Archive(ctx, articleID, time.Now().UTC())
	if err != nil {
		slog.Error("failed to archive article",
			slog.String("article_id", articleID),
			slog.String("error", err.Error()),
		)
		return model.NewStoreUnavailableError()
	}
	if !ok {
		return model.NewArticleNotFoundError(articleID)
	}

	s.metrics.RecordArticleArchived()
	slog.Info("article archived", slog.String("article_id", articleID))
	return nil
}

// ListVersions は記事のバージョン履歴をversion降順（新しい順）で返す。
// 記事自体が存在しない場合はArticleNotFoundを返す。
// 記事は存在するがバージョンレコードがない場合は空スライスを返す。
func (s *Service) ListVersions(ctx context.Context, articleID string) ([]*model.ArticleVersion, error) {
	current, err := s.articles.FindByID(ctx, articleID)
	if err != nil {
		slog.Error("failed to read article for versions",
			slog.String("article_id", articleID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewStoreUnavailableError()
	}
	if current == nil {
		return nil, model.NewArticleNotFoundError(articleID)
	}

	versions, err := s.versions.ListByArticleID(ctx, articleID)
	if err != nil {
		slog.Error("failed to list article versions",
			slog.String("article_id", articleID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewStoreUnavailableError()
	}

	return versions, nil
}

// appendVersion はバージョンスナップショットをベストエフォートで追記する。
// 追記の失敗はログに記録して吸収する。現在行の書き込み成功を
// 二次書き込みの失敗で巻き戻さないための意図的なポリシー。
func (s *Service) appendVersion(ctx context.Context, article *model.Article) {
	record := &model.ArticleVersion{
		ID:        uuid.New().String(),
		ArticleID: article.ID,
		Version:   article.Version,
		Data:      *article,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.versions.Create(ctx, record); err != nil {
		s.metrics.RecordVersionLogFailure()
		slog.Error("failed to append version record",
			slog.String("article_id", article.ID),
			slog.Int("version", article.Version),
			slog.String("error", err.Error()),
		)
	}
}

// mergeUpdate は部分更新を現在のスナップショットにマージした新しいArticleを返す。
// nilフィールドは現在の値を維持する。
func mergeUpdate(current *model.Article, update model.ArticleUpdate) *model.Article {
	merged := *current

	if update.Title != nil {
		merged.Title = *update.Title
	}
	if update.Content != nil {
		merged.Content = *update.Content
	}
	if update.Category != nil {
		merged.Category = *update.Category
	}
	if update.Tags != nil {
		merged.Tags = update.Tags
	}
	if update.Visibility != nil {
		merged.Visibility = *update.Visibility
	}

	return &merged
}
