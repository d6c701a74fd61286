// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// article.MetricsCollectorおよびmiddlewareのHTTPメトリクス収集を満たす。
type Collector struct {
	articlesCreated    prometheus.Counter
	articlesUpdated    prometheus.Counter
	articlesArchived   prometheus.Counter
	versionConflicts   prometheus.Counter
	versionLogFailures prometheus.Counter
	authRejections     *prometheus.CounterVec
	httpStatus         *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		articlesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eduwiki_articles_created_total",
			Help: "作成された記事の合計数",
		}),
		articlesUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eduwiki_articles_updated_total",
			Help: "更新された記事の合計数",
		}),
		articlesArchived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eduwiki_articles_archived_total",
			Help: "アーカイブされた記事の合計数",
		}),
		versionConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eduwiki_version_conflicts_total",
			Help: "楽観的排他制御で検出された更新競合の合計数",
		}),
		versionLogFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eduwiki_version_log_failures_total",
			Help: "吸収されたバージョンログ追記失敗の合計数",
		}),
		authRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eduwiki_auth_rejections_total",
			Help: "認証・認可の拒否数（理由別）",
		}, []string{"reason"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eduwiki_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.articlesCreated,
		c.articlesUpdated,
		c.articlesArchived,
		c.versionConflicts,
		c.versionLogFailures,
		c.authRejections,
		c.httpStatus,
	)

	return c
}

// RecordArticleCreated は記事作成を記録する。
func (c *Collector) RecordArticleCreated() {
	c.articlesCreated.Inc()
}

// RecordArticleUpdated は記事更新を記録する。
func (c *Collector) RecordArticleUpdated() {
	c.articlesUpdated.Inc()
}

// RecordArticleArchived は記事アーカイブを記録する。
func (c *Collector) RecordArticleArchived() {
	c.articlesArchived.Inc()
}

// RecordVersionConflict は更新競合の検出を記録する。
func (c *Collector) RecordVersionConflict() {
	c.versionConflicts.Inc()
}

// RecordVersionLogFailure はバージョンログ追記失敗の吸収を記録する。
func (c *Collector) RecordVersionLogFailure() {
	c.versionLogFailures.Inc()
}

// RecordAuthRejection は認証・認可の拒否を理由別に記録する。
// reasonには"unauthenticated"または"forbidden"を指定する。
func (c *Collector) RecordAuthRejection(reason string) {
	c.authRejections.WithLabelValues(reason).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
