package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/hetro/internal/middleware"
	"github.com/hitoshi/hetro/internal/model"
)

// AccountServiceInterface はアカウントハンドラーが必要とするサービスインターフェース。
type AccountServiceInterface interface {
	// Withdraw はアカウントの退会処理を実行する。
	// セッションとプロファイルを削除し、カート・注文はDBのカスケード削除に任せる。
	Withdraw(ctx context.Context, subjectID string) error
}

// UserHandler はアカウント管理のHTTPハンドラー。
type UserHandler struct {
	service AccountServiceInterface
	config  AuthHandlerConfig
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service AccountServiceInterface, config AuthHandlerConfig) *UserHandler {
	return &UserHandler{
		service: service,
		config:  config,
	}
}

// Withdraw はアカウントの退会処理を実行する。
// DELETE /api/users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	subjectID, err := middleware.SubjectIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	if err := h.service.Withdraw(r.Context(), subjectID); err != nil {
		handleServiceError(w, err)
		return
	}

	// 退会後はセッションCookieもクリアする
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusNoContent)
}
