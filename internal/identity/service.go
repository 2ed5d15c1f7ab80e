package identity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/hetro/internal/model"
	"github.com/hitoshi/hetro/internal/repository"
)

// Service はクレームセットとローカルユーザープロファイルの同期を提供する。
// ログインイベントごとに1回呼び出されることを想定する。
type Service struct {
	profiles repository.UserProfileRepository
	now      func() time.Time
}

// NewService はServiceを生成する。
func NewService(profiles repository.UserProfileRepository) *Service {
	return &Service{
		profiles: profiles,
		now:      time.Now,
	}
}

// SyncProfile は検証済みクレームセットをローカルプロファイルへ反映する。
//
// サブジェクト識別子が見つからない場合はMissingSubjectErrorを返し、
// 部分的な同期は行わない。初回ログイン時はプロファイルを新規作成し、
// 2回目以降は非空かつ既存値と異なるクレームのみを上書きする。
// 空のクレームで既存データが消えることはない。
// ログイン時刻は毎回無条件で更新する。
// 永続化の失敗は呼び出し元へそのまま返す（ログインを中断するかは呼び出し元が決める）。
func (s *Service) SyncProfile(ctx context.Context, claims ClaimSet) (*model.UserProfile, error) {
	subjectID := claims.Subject()
	if subjectID == "" {
		slog.Error("subject identifier claim is missing from claim set")
		return nil, model.NewMissingSubjectError()
	}

	profile, err := s.profiles.FindBySubjectID(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user profile: %w", err)
	}

	now := s.now().UTC()

	if profile == nil {
		// 初回ログイン: 取得できたクレームを全て設定して新規作成
		verified, _ := claims.EmailVerified()
		profile = &model.UserProfile{
			SubjectID:     subjectID,
			Email:         claims.Email(),
			EmailVerified: verified,
			DisplayName:   claims.DisplayName(),
			LastLoginAt:   now,
		}
		if err := s.profiles.Create(ctx, profile); err != nil {
			return nil, fmt.Errorf("failed to create user profile: %w", err)
		}
		slog.Info("user profile created",
			slog.String("subject_id", subjectID),
			slog.String("email", profile.Email),
		)
		return profile, nil
	}

	updated := false

	if email := claims.Email(); email != "" && profile.Email != email {
		profile.Email = email
		updated = true
	}
	if name := claims.DisplayName(); name != "" && profile.DisplayName != name {
		profile.DisplayName = name
		updated = true
	}
	if verified, present := claims.EmailVerified(); present && profile.EmailVerified != verified {
		profile.EmailVerified = verified
		updated = true
	}

	// ログイン時刻はフィールドの変化に関わらず毎回更新する
	profile.LastLoginAt = now

	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to update user profile: %w", err)
	}

	slog.Info("user profile synced",
		slog.String("subject_id", subjectID),
		slog.Bool("fields_updated", updated),
	)

	return profile, nil
}
