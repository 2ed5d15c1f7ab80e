package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/hetro/internal/model"
)

// --- モック ---

type mockProfileRepo struct {
	findFn   func(ctx context.Context, subjectID string) (*model.UserProfile, error)
	createFn func(ctx context.Context, profile *model.UserProfile) error
	updateFn func(ctx context.Context, profile *model.UserProfile) error
}

func (m *mockProfileRepo) FindBySubjectID(ctx context.Context, subjectID string) (*model.UserProfile, error) {
	if m.findFn != nil {
		return m.findFn(ctx, subjectID)
	}
	return nil, nil
}
func (m *mockProfileRepo) Create(ctx context.Context, profile *model.UserProfile) error {
	if m.createFn != nil {
		return m.createFn(ctx, profile)
	}
	return nil
}
func (m *mockProfileRepo) Update(ctx context.Context, profile *model.UserProfile) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, profile)
	}
	return nil
}
func (m *mockProfileRepo) DeleteBySubjectID(ctx context.Context, subjectID string) error {
	return nil
}

// --- テスト ---

// 初回ログインでプロファイルが全フィールド付きで作成されることを検証
func TestService_SyncProfile_FirstLoginCreatesProfile(t *testing.T) {
	var created *model.UserProfile
	repo := &mockProfileRepo{
		createFn: func(ctx context.Context, profile *model.UserProfile) error {
			created = profile
			return nil
		},
	}
	svc := NewService(repo)

	claims := ClaimSet{
		"sub":            "sub-1",
		"email":          "taro@example.com",
		"email_verified": "true",
		"name":           "Taro Yamada",
	}

	profile, err := svc.SyncProfile(context.Background(), claims)
	if err != nil {
		t.Fatalf("SyncProfile returned error: %v", err)
	}
	if created == nil {
		t.Fatal("expected Create to be called")
	}
	if profile.SubjectID != "sub-1" {
		t.Errorf("SubjectID = %q, want %q", profile.SubjectID, "sub-1")
	}
	if profile.Email != "taro@example.com" {
		t.Errorf("Email = %q, want %q", profile.Email, "taro@example.com")
	}
	if !profile.EmailVerified {
		t.Error("EmailVerified = false, want true")
	}
	if profile.DisplayName != "Taro Yamada" {
		t.Errorf("DisplayName = %q, want %q", profile.DisplayName, "Taro Yamada")
	}
	if profile.LastLoginAt.IsZero() {
		t.Error("LastLoginAt is zero")
	}
}

// サブジェクト識別子が無い場合はMissingSubjectErrorで中断し、プロファイルを作成しない
func TestService_SyncProfile_MissingSubjectFails(t *testing.T) {
	createCalled := false
	repo := &mockProfileRepo{
		createFn: func(ctx context.Context, profile *model.UserProfile) error {
			createCalled = true
			return nil
		},
	}
	svc := NewService(repo)

	claims := ClaimSet{"email": "taro@example.com"}

	_, err := svc.SyncProfile(context.Background(), claims)
	if err == nil {
		t.Fatal("expected error for missing subject, got nil")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeMissingSubject {
		t.Errorf("error = %v, want MISSING_SUBJECT", err)
	}
	if createCalled {
		t.Error("profile should not be created when subject is missing")
	}
}

// 空のクレームで既存フィールドが消えないことを検証
func TestService_SyncProfile_EmptyClaimsDoNotEraseFields(t *testing.T) {
	existing := &model.UserProfile{
		SubjectID:     "sub-1",
		Email:         "taro@example.com",
		EmailVerified: true,
		DisplayName:   "Taro Yamada",
		LastLoginAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	var updated *model.UserProfile
	repo := &mockProfileRepo{
		findFn: func(ctx context.Context, subjectID string) (*model.UserProfile, error) {
			return existing, nil
		},
		updateFn: func(ctx context.Context, profile *model.UserProfile) error {
			updated = profile
			return nil
		},
	}
	svc := NewService(repo)

	// emailとnameのクレームが欠けた同期
	claims := ClaimSet{"sub": "sub-1"}

	profile, err := svc.SyncProfile(context.Background(), claims)
	if err != nil {
		t.Fatalf("SyncProfile returned error: %v", err)
	}
	if updated == nil {
		t.Fatal("expected Update to be called")
	}
	if profile.Email != "taro@example.com" {
		t.Errorf("Email = %q, 既存値が消されています", profile.Email)
	}
	if profile.DisplayName != "Taro Yamada" {
		t.Errorf("DisplayName = %q, 既存値が消されています", profile.DisplayName)
	}
	if !profile.EmailVerified {
		t.Error("EmailVerified = false, クレーム欠落で既存値が消されています")
	}
}

// 冪等性: 同一クレームでの2回目の同期はログイン時刻以外を変更しない
func TestService_SyncProfile_IdenticalClaimsAreIdempotent(t *testing.T) {
	claims := ClaimSet{
		"sub":            "sub-1",
		"email":          "taro@example.com",
		"email_verified": "true",
		"name":           "Taro Yamada",
	}

	var stored *model.UserProfile
	repo := &mockProfileRepo{
		findFn: func(ctx context.Context, subjectID string) (*model.UserProfile, error) {
			return stored, nil
		},
		createFn: func(ctx context.Context, profile *model.UserProfile) error {
			copied := *profile
			stored = &copied
			return nil
		},
		updateFn: func(ctx context.Context, profile *model.UserProfile) error {
			copied := *profile
			stored = &copied
			return nil
		},
	}
	svc := NewService(repo)

	first, err := svc.SyncProfile(context.Background(), claims)
	if err != nil {
		t.Fatalf("1回目のSyncProfileに失敗: %v", err)
	}

	second, err := svc.SyncProfile(context.Background(), claims)
	if err != nil {
		t.Fatalf("2回目のSyncProfileに失敗: %v", err)
	}

	if second.Email != first.Email ||
		second.DisplayName != first.DisplayName ||
		second.EmailVerified != first.EmailVerified ||
		second.SubjectID != first.SubjectID {
		t.Errorf("2回目の同期でフィールドが変化: first=%+v second=%+v", first, second)
	}
	if second.LastLoginAt.Before(first.LastLoginAt) {
		t.Error("LastLoginAtが単調非減少になっていません")
	}
}

// 新しい非空クレームは既存値を上書きする
func TestService_SyncProfile_NonEmptyClaimsOverwrite(t *testing.T) {
	existing := &model.UserProfile{
		SubjectID:   "sub-1",
		Email:       "old@example.com",
		DisplayName: "Old Name",
	}
	repo := &mockProfileRepo{
		findFn: func(ctx context.Context, subjectID string) (*model.UserProfile, error) {
			return existing, nil
		},
	}
	svc := NewService(repo)

	claims := ClaimSet{
		"sub":   "sub-1",
		"email": "new@example.com",
		"name":  "New Name",
	}

	profile, err := svc.SyncProfile(context.Background(), claims)
	if err != nil {
		t.Fatalf("SyncProfile returned error: %v", err)
	}
	if profile.Email != "new@example.com" {
		t.Errorf("Email = %q, want %q", profile.Email, "new@example.com")
	}
	if profile.DisplayName != "New Name" {
		t.Errorf("DisplayName = %q, want %q", profile.DisplayName, "New Name")
	}
}

// 永続化失敗はそのまま呼び出し元へ返る
func TestService_SyncProfile_PersistenceErrorPropagates(t *testing.T) {
	repo := &mockProfileRepo{
		createFn: func(ctx context.Context, profile *model.UserProfile) error {
			return errors.New("connection reset")
		},
	}
	svc := NewService(repo)

	_, err := svc.SyncProfile(context.Background(), ClaimSet{"sub": "sub-1"})
	if err == nil {
		t.Fatal("expected persistence error to propagate, got nil")
	}
}
