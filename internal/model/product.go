package model

import "github.com/shopspring/decimal"

// Product は商品カタログの1商品を表す。
// カート・注文側はProductを参照せず、追加時点の名前と価格をスナップショットとして保持する。
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	ImageURL    string
}
