package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/eduwiki/internal/middleware"
	"github.com/hitoshi/eduwiki/internal/model"
)

// DBPinger はヘルスチェックで使用するデータベース疎通確認のインターフェース。
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// DegradedReporter は認証基盤が縮退稼働中かどうかを報告するインターフェース。
type DegradedReporter interface {
	Degraded() bool
}

// SystemHandler はヘルスチェックなどシステム系のHTTPハンドラー。
type SystemHandler struct {
	db   DBPinger
	gate DegradedReporter
}

// NewSystemHandler はSystemHandlerを生成する。
func NewSystemHandler(db DBPinger, gate DegradedReporter) *SystemHandler {
	return &SystemHandler{db: db, gate: gate}
}

// healthResponse はヘルスチェックのレスポンス。
type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Auth     string `json:"auth"`
}

// rootResponse はルートエンドポイントのレスポンス。
type rootResponse struct {
	Message string `json:"message"`
}

// Root はサービスの案内メッセージを返す。
// GET /
func (h *SystemHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rootResponse{
		Message: "教育コンテンツ管理API / ドキュメントは /docs を参照してください",
	})
}

// Health はサービスの稼働状態を返す。
// データベースに疎通できない場合は503を返す。
// 認証基盤が縮退稼働中（クレデンシャル未設定）の場合もstatusはokのまま、
// authフィールドでdegradedを報告する。
// GET /health
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Database: "ok", Auth: "ok"}
	statusCode := http.StatusOK

	if err := h.db.PingContext(r.Context()); err != nil {
		resp.Status = "unavailable"
		resp.Database = "unreachable"
		statusCode = http.StatusServiceUnavailable
	}

	if h.gate != nil && h.gate.Degraded() {
		resp.Auth = "degraded"
	}

	writeJSON(w, statusCode, resp)
}

// Profile は認証済みユーザー自身の情報を返す。
// GET /profile
func (h *SystemHandler) Profile(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized,
			model.NewUnauthenticatedError("認証されていません"))
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{
		SubjectID:     identity.SubjectID,
		Email:         identity.Email,
		DisplayName:   identity.DisplayName,
		EmailVerified: identity.EmailVerified,
		Role:          identity.Role,
	})
}
