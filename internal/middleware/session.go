// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/hetro/internal/model"
)

const sessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// subjectIDContextKey はリクエストコンテキストにサブジェクトIDを格納するためのキー。
var subjectIDContextKey = contextKey("subject_id")

// SessionFinder はセッションの検索に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// NewSessionMiddleware はHTTP Only Cookieからセッションを読み取り、
// 有効性を検証するミドルウェアを返す。
// 認証済みサブジェクトIDをリクエストコンテキストに注入する。
// 未認証リクエストには401 Unauthorizedを返す。
func NewSessionMiddleware(sessionFinder SessionFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. CookieからセッションIDを取得
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			// 2. セッションの有効性を検証
			session, err := sessionFinder.FindByID(r.Context(), cookie.Value)
			if err != nil {
				slog.Error("failed to find session",
					slog.String("error", err.Error()),
				)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if session == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			// 3. 認証済みサブジェクトIDをコンテキストに注入
			ctx := context.WithValue(r.Context(), subjectIDContextKey, session.SubjectID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SubjectIDFromContext はリクエストコンテキストからサブジェクトIDを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func SubjectIDFromContext(ctx context.Context) (string, error) {
	subjectID, ok := ctx.Value(subjectIDContextKey).(string)
	if !ok || subjectID == "" {
		return "", fmt.Errorf("subject ID not found in context")
	}
	return subjectID, nil
}

// ContextWithSubjectID はコンテキストにサブジェクトIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithSubjectID(ctx context.Context, subjectID string) context.Context {
	return context.WithValue(ctx, subjectIDContextKey, subjectID)
}
