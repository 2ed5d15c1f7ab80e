// Package order は注文確定と注文参照のドメインロジックを提供する。
package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hitoshi/hetro/internal/metrics"
	"github.com/hitoshi/hetro/internal/model"
	"github.com/hitoshi/hetro/internal/repository"
)

// phonePattern は連絡先電話番号の形式。
// 任意の先頭+、数字始まり、以降は数字・ハイフン・空白・括弧を6文字以上。
var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9\-\s()]{5,}$`)

// Service は注文のサービス層。
// カートから注文への変換、注文確認、注文履歴のビジネスロジックを提供する。
type Service struct {
	orders  repository.OrderRepository
	carts   repository.CartRepository
	metrics metrics.MetricsCollector
	now     func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	orders repository.OrderRepository,
	carts repository.CartRepository,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		orders:  orders,
		carts:   carts,
		metrics: collector,
		now:     time.Now,
	}
}

// PlaceOrder はカートの内容から注文を確定する。
//
// 検査順序は固定で、まず空カートチェック、次に配送先・連絡先の検証を行う。
// 注文明細はカート明細の値コピーで、合計金額は確定時の単価×数量の総和。
// 注文の作成と元カート明細の削除は同一トランザクションで行われ、
// 注文だけ・カートクリアだけが単独で観測されることはない。
// 読み取り後にカートが並行変更されていた場合はCartConflictErrorを返す。
func (s *Service) PlaceOrder(ctx context.Context, subjectID, shippingAddress, contactPhone string) (*model.Order, error) {
	if subjectID == "" {
		return nil, model.NewUnauthenticatedError()
	}

	cart, err := s.carts.FindBySubjectID(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to find cart: %w", err)
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, model.NewEmptyCartError()
	}

	if err := validateShipping(shippingAddress, contactPhone); err != nil {
		return nil, err
	}

	total := decimal.Zero
	lines := make([]model.OrderLine, len(cart.Items))
	for i, item := range cart.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		lines[i] = model.OrderLine{
			ID:          uuid.New().String(),
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
		}
	}

	order := &model.Order{
		ID:              uuid.New().String(),
		SubjectID:       subjectID,
		OrderedAt:       s.now().UTC(),
		Total:           total,
		ShippingAddress: strings.TrimSpace(shippingAddress),
		ContactPhone:    strings.TrimSpace(contactPhone),
		Status:          model.OrderStatusPlacedPendingPayment,
		Items:           lines,
	}

	// 読み取ったカート明細をそのまま渡し、トランザクション内の検証で
	// 読み取り後の並行変更（数量マージ・削除）を検出する。
	if err := s.orders.CreateWithLines(ctx, order, cart.ID, cart.Items); err != nil {
		if errors.Is(err, repository.ErrCartModified) {
			slog.Warn("order placement aborted by concurrent cart change",
				"cart_id", cart.ID, "subject_id", subjectID)
			return nil, model.NewCartConflictError()
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.metrics.RecordOrderPlaced()
	totalValue, _ := total.Float64()
	s.metrics.RecordOrderValue(totalValue)
	slog.Info("order placed",
		"order_id", order.ID, "subject_id", subjectID,
		"total", total.String(), "line_count", len(lines))
	return order, nil
}

// validateShipping は配送先住所と連絡先電話番号を検証する。
func validateShipping(shippingAddress, contactPhone string) error {
	if strings.TrimSpace(shippingAddress) == "" {
		return model.NewValidationError("shipping_address", "配送先住所は必須です")
	}
	if !phonePattern.MatchString(strings.TrimSpace(contactPhone)) {
		return model.NewValidationError("contact_phone", "電話番号の形式が正しくありません")
	}
	return nil
}

// GetOrderForConfirmation は注文確認用に注文を取得する。
//
// 注文IDとサブジェクトの組で検索し、他サブジェクトの注文IDを指定した場合も
// 存在しない場合と同じOrderNotFoundErrorを返す（存在の有無を漏らさない）。
func (s *Service) GetOrderForConfirmation(ctx context.Context, subjectID, orderID string) (*model.Order, error) {
	if subjectID == "" {
		return nil, model.NewUnauthenticatedError()
	}

	order, err := s.orders.FindByIDAndSubject(ctx, orderID, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	if order == nil {
		return nil, model.NewOrderNotFoundError(orderID)
	}
	return order, nil
}

// ListOrders は指定サブジェクトの注文履歴を新しい順に返す。
func (s *Service) ListOrders(ctx context.Context, subjectID string) ([]*model.Order, error) {
	if subjectID == "" {
		return nil, model.NewUnauthenticatedError()
	}

	orders, err := s.orders.ListBySubjectID(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}
