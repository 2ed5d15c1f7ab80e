package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/hetro/internal/model"
)

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	getLoginURLFn    func(state string) string
	handleCallbackFn func(ctx context.Context, code string) (*model.Session, error)
	logoutFn         func(ctx context.Context, sessionID string) error
	getCurrentUserFn func(ctx context.Context, sessionID string) (*model.UserProfile, error)
}

func (m *mockAuthService) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return "https://idp.example.com/authorize?state=" + state
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, code)
	}
	return nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, sessionID string) (*model.UserProfile, error) {
	if m.getCurrentUserFn != nil {
		return m.getCurrentUserFn(ctx, sessionID)
	}
	return nil, nil
}

func testAuthConfig() AuthHandlerConfig {
	return AuthHandlerConfig{
		BaseURL:       "https://shop.example.com",
		CookieSecure:  true,
		SessionMaxAge: 86400,
	}
}

// findCookie はレスポンスから指定名のCookieを探すヘルパー。
func findCookie(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// --- GET /auth/login テスト ---

func TestAuthHandler_Login_RedirectsAndSetsStateCookie(t *testing.T) {
	var gotState string
	svc := &mockAuthService{
		getLoginURLFn: func(state string) string {
			gotState = state
			return "https://idp.example.com/authorize?state=" + state
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTemporaryRedirect)
	}
	if gotState == "" {
		t.Fatal("stateが生成されていない")
	}

	location := w.Header().Get("Location")
	if !strings.Contains(location, gotState) {
		t.Errorf("リダイレクト先にstateが含まれていない: %q", location)
	}

	cookie := findCookie(t, w, oauthStateCookie)
	if cookie == nil {
		t.Fatal("stateクッキーが設定されていない")
	}
	if cookie.Value != gotState {
		t.Errorf("stateクッキー = %q, want %q", cookie.Value, gotState)
	}
	if !cookie.HttpOnly {
		t.Error("stateクッキーはHttpOnlyであるべき")
	}
}

// --- GET /auth/callback テスト ---

func TestAuthHandler_Callback_Success(t *testing.T) {
	svc := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, code string) (*model.Session, error) {
			if code != "auth-code-1" {
				t.Errorf("code = %q, want %q", code, "auth-code-1")
			}
			return &model.Session{
				ID:        "session-abc",
				SubjectID: "sub-123",
				ExpiresAt: time.Now().Add(24 * time.Hour),
			}, nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=auth-code-1&state=state-xyz", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "state-xyz"})
	w := httptest.NewRecorder()

	h.Callback(w, req)

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTemporaryRedirect)
	}
	if loc := w.Header().Get("Location"); loc != "https://shop.example.com" {
		t.Errorf("Location = %q, want %q", loc, "https://shop.example.com")
	}

	cookie := findCookie(t, w, sessionCookieName)
	if cookie == nil {
		t.Fatal("セッションCookieが設定されていない")
	}
	if cookie.Value != "session-abc" {
		t.Errorf("セッションCookie = %q, want %q", cookie.Value, "session-abc")
	}
	if !cookie.HttpOnly {
		t.Error("セッションCookieはHttpOnlyであるべき")
	}
	if cookie.MaxAge != 86400 {
		t.Errorf("MaxAge = %d, want 86400", cookie.MaxAge)
	}
}

func TestAuthHandler_Callback_StateMismatch_ReturnsBadRequest(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=auth-code-1&state=evil", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "state-xyz"})
	w := httptest.NewRecorder()

	h.Callback(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestAuthHandler_Callback_MissingCode_ReturnsBadRequest(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?state=state-xyz", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "state-xyz"})
	w := httptest.NewRecorder()

	h.Callback(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestAuthHandler_Callback_AuthServiceError_ReturnsInternalError(t *testing.T) {
	svc := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, code string) (*model.Session, error) {
			return nil, errors.New("token exchange failed")
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=auth-code-1&state=state-xyz", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "state-xyz"})
	w := httptest.NewRecorder()

	h.Callback(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if findCookie(t, w, sessionCookieName) != nil {
		t.Error("認証失敗時にセッションCookieを設定すべきではない")
	}
}

// --- POST /auth/logout テスト ---

func TestAuthHandler_Logout_DeletesSessionAndClearsCookie(t *testing.T) {
	var gotSessionID string
	svc := &mockAuthService{
		logoutFn: func(ctx context.Context, sessionID string) error {
			gotSessionID = sessionID
			return nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "session-abc"})
	w := httptest.NewRecorder()

	h.Logout(w, req)

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTemporaryRedirect)
	}
	if gotSessionID != "session-abc" {
		t.Errorf("sessionID = %q, want %q", gotSessionID, "session-abc")
	}

	cookie := findCookie(t, w, sessionCookieName)
	if cookie == nil {
		t.Fatal("クリア用のセッションCookieが設定されていない")
	}
	if cookie.MaxAge != -1 {
		t.Errorf("MaxAge = %d, want -1", cookie.MaxAge)
	}
}

func TestAuthHandler_Logout_ClearsCookieEvenOnError(t *testing.T) {
	svc := &mockAuthService{
		logoutFn: func(ctx context.Context, sessionID string) error {
			return errors.New("session delete failed")
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "session-abc"})
	w := httptest.NewRecorder()

	h.Logout(w, req)

	cookie := findCookie(t, w, sessionCookieName)
	if cookie == nil || cookie.MaxAge != -1 {
		t.Error("削除失敗時でもセッションCookieをクリアすべき")
	}
}

// --- GET /auth/me テスト ---

func TestAuthHandler_Me_Success(t *testing.T) {
	svc := &mockAuthService{
		getCurrentUserFn: func(ctx context.Context, sessionID string) (*model.UserProfile, error) {
			if sessionID != "session-abc" {
				t.Errorf("sessionID = %q, want %q", sessionID, "session-abc")
			}
			return &model.UserProfile{
				SubjectID:     "sub-123",
				Email:         "shopper@example.com",
				EmailVerified: true,
				DisplayName:   "Shopper",
			}, nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "session-abc"})
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["subject_id"] != "sub-123" {
		t.Errorf("subject_id = %v, want %q", resp["subject_id"], "sub-123")
	}
	if resp["email"] != "shopper@example.com" {
		t.Errorf("email = %v, want %q", resp["email"], "shopper@example.com")
	}
	if resp["email_verified"] != true {
		t.Errorf("email_verified = %v, want true", resp["email_verified"])
	}
}

func TestAuthHandler_Me_NoCookie_ReturnsUnauthorized(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAuthHandler_Me_InvalidSession_ReturnsUnauthorized(t *testing.T) {
	svc := &mockAuthService{
		getCurrentUserFn: func(ctx context.Context, sessionID string) (*model.UserProfile, error) {
			return nil, errors.New("session not found")
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "expired"})
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
