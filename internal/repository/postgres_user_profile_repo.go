package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/hetro/internal/model"
)

// PostgresUserProfileRepo はPostgreSQLを使用したユーザープロファイルリポジトリ。
type PostgresUserProfileRepo struct {
	db *sql.DB
}

// NewPostgresUserProfileRepo はPostgresUserProfileRepoを生成する。
func NewPostgresUserProfileRepo(db *sql.DB) *PostgresUserProfileRepo {
	return &PostgresUserProfileRepo{db: db}
}

// FindBySubjectID は指定サブジェクトのプロファイルを取得する。見つからない場合はnilを返す。
func (r *PostgresUserProfileRepo) FindBySubjectID(ctx context.Context, subjectID string) (*model.UserProfile, error) {
	profile := &model.UserProfile{}
	err := r.db.QueryRowContext(ctx,
		`SELECT subject_id, email, email_verified, display_name, last_login_at
		 FROM user_profiles WHERE subject_id = $1`,
		subjectID,
	).Scan(&profile.SubjectID, &profile.Email, &profile.EmailVerified, &profile.DisplayName, &profile.LastLoginAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user profile: %w", err)
	}

	return profile, nil
}

// Create はプロファイルを新規作成する。
func (r *PostgresUserProfileRepo) Create(ctx context.Context, profile *model.UserProfile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_profiles (subject_id, email, email_verified, display_name, last_login_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		profile.SubjectID, profile.Email, profile.EmailVerified, profile.DisplayName, profile.LastLoginAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user profile: %w", err)
	}
	return nil
}

// Update は既存プロファイルの全フィールドを上書き更新する。
// subject_idは主キーであり変更されない。
func (r *PostgresUserProfileRepo) Update(ctx context.Context, profile *model.UserProfile) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE user_profiles
		 SET email = $2, email_verified = $3, display_name = $4, last_login_at = $5
		 WHERE subject_id = $1`,
		profile.SubjectID, profile.Email, profile.EmailVerified, profile.DisplayName, profile.LastLoginAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update user profile: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user profile not found: %s", profile.SubjectID)
	}
	return nil
}

// DeleteBySubjectID は指定サブジェクトのプロファイルを削除する。
// 関連するカート・注文はCASCADE削除される。
func (r *PostgresUserProfileRepo) DeleteBySubjectID(ctx context.Context, subjectID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM user_profiles WHERE subject_id = $1`,
		subjectID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user profile: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user profile not found: %s", subjectID)
	}
	return nil
}

// compile-time interface check
var _ UserProfileRepository = (*PostgresUserProfileRepo)(nil)
