package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatusPlacedPendingPayment は注文直後（支払い待ち）のステータス。
// 以降のステータス遷移はこのコアの対象外。
const OrderStatusPlacedPendingPayment = "placed_pending_payment"

// Order は確定済みの注文を表す。
// 作成後はStatus以外イミュータブルとして扱う。
type Order struct {
	ID              string
	SubjectID       string
	OrderedAt       time.Time
	Total           decimal.Decimal
	ShippingAddress string
	ContactPhone    string
	Status          string
	Items           []OrderLine
}

// OrderLine は注文内の1明細を表す。
// 注文確定時点のCartLineの値コピーであり、参照ではない。
// 以後のカートやカタログの変更が過去の注文に波及しないことを保証する。
type OrderLine struct {
	ID          string
	ProductID   string
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
}
