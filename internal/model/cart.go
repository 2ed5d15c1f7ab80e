package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart は1ユーザーの買い物カゴを表す。
// SubjectIDごとに最大1つ存在し、最初のカート操作時に遅延作成される。
// 空になっても削除されない。
type Cart struct {
	ID          string
	SubjectID   string
	LastUpdated time.Time
	Items       []CartLine
}

// CartLine はカート内の1明細を表す。
// ProductNameとUnitPriceは追加時点のスナップショットで、
// 以後カタログ側の変更には追随しない（価格安定性の契約）。
type CartLine struct {
	ID          string
	ProductID   string
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
}

// ItemCount は全明細の数量の合計を返す。
func (c *Cart) ItemCount() int {
	if c == nil {
		return 0
	}
	count := 0
	for _, line := range c.Items {
		count += line.Quantity
	}
	return count
}

// Subtotal は全明細の金額（単価×数量）の合計を返す。
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	if c == nil {
		return total
	}
	for _, line := range c.Items {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}
