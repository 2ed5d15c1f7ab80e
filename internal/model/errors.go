// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, cart, order, catalog, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeMissingSubject  = "MISSING_SUBJECT"
	ErrCodeUnauthenticated = "UNAUTHENTICATED"
	ErrCodeProfileNotFound = "PROFILE_NOT_FOUND"
	ErrCodeEmptyCart       = "EMPTY_CART"
	ErrCodeCartConflict    = "CART_MODIFIED"
	ErrCodeValidation      = "VALIDATION_FAILED"
	ErrCodeProductNotFound = "PRODUCT_NOT_FOUND"
	ErrCodeOrderNotFound   = "ORDER_NOT_FOUND"
	ErrCodeUserNotFound    = "USER_NOT_FOUND"
	ErrCodeInvalidImageURL = "INVALID_IMAGE_URL"
)

// NewMissingSubjectError はクレームセットにサブジェクト識別子が無い場合のエラーを生成する。
// プロファイル同期はここで中断され、部分的な同期は行われない。
func NewMissingSubjectError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingSubject,
		Message:  "IDプロバイダーのクレームにサブジェクト識別子が含まれていません。",
		Category: "auth",
		Action:   "ログインし直してください。解決しない場合は管理者に連絡してください。",
	}
}

// NewUnauthenticatedError はサブジェクト識別子なしでカート・注文操作が行われた場合のエラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "この操作にはログインが必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewProfileNotFoundError はプロファイル同期より先にカート作成が走った場合のエラーを生成する。
func NewProfileNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeProfileNotFound,
		Message:  "ユーザープロファイルが見つかりません。",
		Category: "auth",
		Action:   "一度ログアウトして、ログインし直してください。",
	}
}

// NewEmptyCartError は空のカートに対するチェックアウト試行のエラーを生成する。
func NewEmptyCartError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyCart,
		Message:  "カートが空です。",
		Category: "cart",
		Action:   "商品をカートに追加してから注文してください。",
	}
}

// NewCartConflictError は注文確定の読み取り後にカートが並行変更されていた場合のエラーを生成する。
// 確定はスナップショットとコミット済みカートが一致した場合のみ成立する。
func NewCartConflictError() *APIError {
	return &APIError{
		Code:     ErrCodeCartConflict,
		Message:  "カートの内容が変更されたため、注文を確定できませんでした。",
		Category: "cart",
		Action:   "カートの内容を確認して、もう一度注文してください。",
	}
}

// NewValidationError は配送先・連絡先フィールドの形式エラーを生成する。
// fieldには対象フィールド名（shipping_address / contact_phone）を指定する。
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力内容に誤りがあります（%s）: %s", field, reason),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewProductNotFoundError は商品が見つからない場合のエラーを生成する。
func NewProductNotFoundError(productID string) *APIError {
	return &APIError{
		Code:     ErrCodeProductNotFound,
		Message:  fmt.Sprintf("指定された商品が見つかりません: %s", productID),
		Category: "catalog",
		Action:   "商品一覧から商品を選び直してください。",
	}
}

// NewOrderNotFoundError は注文が見つからない場合のエラーを生成する。
// 他ユーザーの注文IDを指定した場合も同じエラーを返し、存在の有無を漏らさない。
func NewOrderNotFoundError(orderID string) *APIError {
	return &APIError{
		Code:     ErrCodeOrderNotFound,
		Message:  fmt.Sprintf("指定された注文が見つかりません: %s", orderID),
		Category: "order",
		Action:   "注文履歴から注文を確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewInvalidImageURLError は商品画像URLが安全性検証に失敗した場合のエラーを生成する。
func NewInvalidImageURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidImageURL,
		Message:  fmt.Sprintf("商品画像URLが無効です: %s", reason),
		Category: "validation",
		Action:   "公開されているhttpsの画像URL、またはサイト内の相対パスを指定してください。",
	}
}
