// Package model はドメインモデルを定義する。
package model

import "time"

// UserProfile は外部IdPのクレームから同期されるローカルユーザープロファイルを表す。
// SubjectIDはIdPが発行する安定した識別子で、作成後は不変。
// カートと注文はこのSubjectIDを唯一の相関キーとして紐付く。
type UserProfile struct {
	SubjectID     string
	Email         string
	EmailVerified bool
	DisplayName   string
	LastLoginAt   time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	SubjectID string
	ExpiresAt time.Time
	CreatedAt time.Time
}
