// Package auth はOIDCログインフローとセッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/hetro/internal/identity"
	"github.com/hitoshi/hetro/internal/metrics"
	"github.com/hitoshi/hetro/internal/model"
	"github.com/hitoshi/hetro/internal/repository"
)

// OIDCProvider はOIDC認証プロバイダーのインターフェース。
// 将来的に複数IdP（Google, Azure AD等）に対応するための抽象化。
type OIDCProvider interface {
	// GetLoginURL はIDプロバイダーの認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、クレームセットを取得する。
	ExchangeCode(ctx context.Context, code string) (identity.ClaimSet, error)
}

// ProfileSyncer はクレームセットをローカルプロファイルへ反映する。
type ProfileSyncer interface {
	SyncProfile(ctx context.Context, claims identity.ClaimSet) (*model.UserProfile, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
// ログインイベントごとにプロファイル同期を行い、成功時のみセッションを発行する。
type Service struct {
	oidc        OIDCProvider
	syncer      ProfileSyncer
	profiles    repository.UserProfileRepository
	sessionRepo repository.SessionRepository
	metrics     metrics.MetricsCollector
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	oidc OIDCProvider,
	syncer ProfileSyncer,
	profiles repository.UserProfileRepository,
	sessionRepo repository.SessionRepository,
	collector metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	return &Service{
		oidc:        oidc,
		syncer:      syncer,
		profiles:    profiles,
		sessionRepo: sessionRepo,
		metrics:     collector,
		config:      config,
	}
}

// GetLoginURL はIDプロバイダーの認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oidc.GetLoginURL(state)
}

// HandleCallback はOIDCコールバックを処理し、セッションを発行する。
//
// 認可コードの交換で得たクレームセットをプロファイルへ同期し、
// 同期が失敗した場合はログインを中断する（セッションは発行しない）。
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	// 1. 認可コードをトークンに交換し、クレームセットを取得
	claims, err := s.oidc.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oidc code: %w", err)
	}

	// 2. クレームセットをローカルプロファイルへ同期
	profile, err := s.syncer.SyncProfile(ctx, claims)
	if err != nil {
		return nil, fmt.Errorf("failed to sync user profile: %w", err)
	}

	// 3. セッションを発行
	session, err := s.createSession(ctx, profile.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.metrics.RecordLogin()
	slog.Info("user logged in",
		slog.String("subject_id", profile.SubjectID),
	)
	return session, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// GetCurrentUser はセッションから現在のユーザープロファイルを取得する。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.UserProfile, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session not found or expired")
	}

	profile, err := s.profiles.FindBySubjectID(ctx, session.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user profile: %w", err)
	}
	if profile == nil {
		return nil, fmt.Errorf("user profile not found")
	}

	return profile, nil
}

// FindSession はセッションIDからセッションを取得する。
// ミドルウェアのセッション検証で使用する。
func (s *Service) FindSession(ctx context.Context, sessionID string) (*model.Session, error) {
	return s.sessionRepo.FindByID(ctx, sessionID)
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, subjectID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		SubjectID: subjectID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
