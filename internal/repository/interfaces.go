// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/hetro/internal/model"
)

// ErrCartModified はCreateWithLinesの明細検証で、渡されたカート明細と
// コミット済みのカート内容が一致しなかった場合に返される。
// 呼び出し元はカートを読み直して再試行できる。
var ErrCartModified = errors.New("cart was modified concurrently")

// UserProfileRepository はユーザープロファイルの永続化インターフェース。
type UserProfileRepository interface {
	// FindBySubjectID は指定サブジェクトのプロファイルを取得する。見つからない場合はnilを返す。
	FindBySubjectID(ctx context.Context, subjectID string) (*model.UserProfile, error)

	// Create はプロファイルを新規作成する。
	Create(ctx context.Context, profile *model.UserProfile) error

	// Update は既存プロファイルの全フィールドを上書き更新する。
	Update(ctx context.Context, profile *model.UserProfile) error

	// DeleteBySubjectID は指定サブジェクトのプロファイルを削除する。
	// 関連するカート・注文はCASCADE削除される。
	DeleteBySubjectID(ctx context.Context, subjectID string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteBySubjectID は指定サブジェクトの全セッションを削除する。
	DeleteBySubjectID(ctx context.Context, subjectID string) error
}

// ProductRepository は商品カタログの永続化インターフェース。
// カート・注文側からは読み取り専用のコラボレーターとして扱う。
type ProductRepository interface {
	// FindByID は指定IDの商品を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Product, error)

	// List は全商品を名前順で返す。
	List(ctx context.Context) ([]*model.Product, error)

	// Create は商品を作成する。
	Create(ctx context.Context, product *model.Product) error

	// Count は商品数を返す。
	Count(ctx context.Context) (int, error)
}

// CartRepository はカートデータの永続化インターフェース。
// 同一カートへの変更操作はカート行のロックで直列化され、
// 並行するAddLineで更新が失われることはない。
type CartRepository interface {
	// FindBySubjectID は指定サブジェクトのカートを明細付きで取得する。
	// 見つからない場合はnilを返す。
	FindBySubjectID(ctx context.Context, subjectID string) (*model.Cart, error)

	// Create はカートを作成する。同一サブジェクトのカートが既に存在する場合は何もしない
	// （並行作成の勝者をFindBySubjectIDで取り直すこと）。
	Create(ctx context.Context, cart *model.Cart) error

	// AddLine は明細を追加する。同一商品の明細が既に存在する場合は数量のみを加算し、
	// スナップショット（商品名・単価）は最初の追加時の値を維持する。
	AddLine(ctx context.Context, cartID string, line *model.CartLine) error

	// RemoveLine は指定明細を削除する。明細が存在した場合はtrueを返す。
	RemoveLine(ctx context.Context, cartID, lineID string) (bool, error)

	// ClearLines はカートの全明細を削除する。空のカートには何もしない。
	ClearLines(ctx context.Context, cartID string) error

	// ItemCount は指定サブジェクトのカートの数量合計を返す。カートが無い場合は0。
	ItemCount(ctx context.Context, subjectID string) (int, error)
}

// OrderRepository は注文データの永続化インターフェース。
type OrderRepository interface {
	// CreateWithLines は注文と注文明細を作成し、同一トランザクションで
	// 注文元のカート明細（consumed）を削除する。
	// トランザクション内でカートをロックした上でconsumedの各明細が
	// 同じ数量で存在することを検証し、一致しない場合はErrCartModifiedを返して
	// 何も書き込まない。他の読み手から注文とカート内の元明細が
	// 同時に見えることはない。
	CreateWithLines(ctx context.Context, order *model.Order, cartID string, consumed []model.CartLine) error

	// FindByIDAndSubject は注文IDとサブジェクトの組で注文を明細付きで取得する。
	// 他サブジェクトの注文IDを指定した場合も見つからない扱いでnilを返す。
	FindByIDAndSubject(ctx context.Context, orderID, subjectID string) (*model.Order, error)

	// ListBySubjectID は指定サブジェクトの注文一覧を明細付きで新しい順に返す。
	ListBySubjectID(ctx context.Context, subjectID string) ([]*model.Order, error)
}
