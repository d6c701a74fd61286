package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/eduwiki/internal/auth"
	"github.com/hitoshi/eduwiki/internal/middleware"
	"github.com/hitoshi/eduwiki/internal/model"
)

// AdminHandler は許可リスト管理のHTTPハンドラー。
// 全エンドポイントで管理者ロールが必要（ルーターのミドルウェアで確認済み）。
type AdminHandler struct {
	policy *auth.AccessPolicy
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(policy *auth.AccessPolicy) *AdminHandler {
	return &AdminHandler{policy: policy}
}

// GetAllowlist は現在の許可リストを取得する。
// GET /admin/allowlist
func (h *AdminHandler) GetAllowlist(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, allowlistResponse{
		AllowedDomains: h.policy.AllowedDomains(),
		AllowedEmails:  h.policy.AllowedEmails(),
	})
}

// CheckAuthorization は指定メールアドレスの認可状態を診断する。
// GET /admin/allowlist/check?email=xxx
func (h *AdminHandler) CheckAuthorization(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationFailedError("emailパラメータが必要です"))
		return
	}

	writeJSON(w, http.StatusOK, authorizationStatusResponse{
		Email:        email,
		IsAuthorized: h.policy.IsAuthorized(email),
		Reason:       h.policy.AuthorizationReason(email),
	})
}

// AddDomain は許可ドメインを追加する。冪等な操作。
// POST /admin/allowlist/domains
func (h *AdminHandler) AddDomain(w http.ResponseWriter, r *http.Request) {
	var req addDomainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationFailedError("リクエストボディの形式が不正です"))
		return
	}

	if err := req.Validate(); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationFailedError(err.Error()))
		return
	}

	h.policy.AddAllowedDomain(req.Domain)

	writeJSON(w, http.StatusOK, messageResponse{
		Message: "許可ドメインを追加しました。",
		Status:  "success",
	})
}

// RemoveDomain は許可ドメインを削除する。存在しない場合も成功を返す。
// DELETE /admin/allowlist/domains/{domain}
func (h *AdminHandler) RemoveDomain(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")

	h.policy.RemoveAllowedDomain(domain)

	writeJSON(w, http.StatusOK, messageResponse{
		Message: "許可ドメインを削除しました。",
		Status:  "success",
	})
}

// AddEmail は許可メールアドレスを追加する。冪等な操作。
// POST /admin/allowlist/emails
func (h *AdminHandler) AddEmail(w http.ResponseWriter, r *http.Request) {
	var req addEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationFailedError("リクエストボディの形式が不正です"))
		return
	}

	if err := req.Validate(); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationFailedError(err.Error()))
		return
	}

	h.policy.AddAllowedEmail(req.Email)

	writeJSON(w, http.StatusOK, messageResponse{
		Message: "許可メールアドレスを追加しました。",
		Status:  "success",
	})
}

// RemoveEmail は許可メールアドレスを削除する。存在しない場合も成功を返す。
// DELETE /admin/allowlist/emails/{email}
func (h *AdminHandler) RemoveEmail(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	h.policy.RemoveAllowedEmail(email)

	writeJSON(w, http.StatusOK, messageResponse{
		Message: "許可メールアドレスを削除しました。",
		Status:  "success",
	})
}
