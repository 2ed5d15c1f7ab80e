// Package account はアカウント管理のドメインロジックを提供する。
package account

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/hetro/internal/model"
	"github.com/hitoshi/hetro/internal/repository"
)

// Service はアカウント管理のサービス層。
// 退会処理のビジネスロジックを提供する。
type Service struct {
	profiles repository.UserProfileRepository
	sessions repository.SessionRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	profiles repository.UserProfileRepository,
	sessions repository.SessionRepository,
) *Service {
	return &Service{
		profiles: profiles,
		sessions: sessions,
	}
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: sessions → user_profiles（+ CASCADE: carts, cart_items, orders, order_items）
func (s *Service) Withdraw(ctx context.Context, subjectID string) error {
	// ユーザー存在確認
	profile, err := s.profiles.FindBySubjectID(ctx, subjectID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if profile == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("退会処理を開始します",
		slog.String("subject_id", subjectID),
	)

	// 1. セッションを削除
	if err := s.sessions.DeleteBySubjectID(ctx, subjectID); err != nil {
		return fmt.Errorf("セッションの削除に失敗しました: %w", err)
	}

	// 2. プロファイルを削除（カート・注文はCASCADE削除）
	if err := s.profiles.DeleteBySubjectID(ctx, subjectID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("subject_id", subjectID),
	)

	return nil
}
