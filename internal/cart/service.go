// Package cart はショッピングカートのドメインロジックを提供する。
package cart

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/hetro/internal/metrics"
	"github.com/hitoshi/hetro/internal/model"
	"github.com/hitoshi/hetro/internal/repository"
)

// Service はカート管理のサービス層。
// カートの取得・作成、明細の追加・削除・全削除のビジネスロジックを提供する。
//
// 変更系の操作は呼び出し元の誤りを障害に変えないポリシーをとる:
// 数量0以下・存在しない商品・存在しない明細はいずれもエラーにせず
// ログを残して何もしない。ログイン状態の欠如のみエラーとする。
type Service struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	profiles repository.UserProfileRepository
	metrics  metrics.MetricsCollector
	now      func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	carts repository.CartRepository,
	products repository.ProductRepository,
	profiles repository.UserProfileRepository,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		carts:    carts,
		products: products,
		profiles: profiles,
		metrics:  collector,
		now:      time.Now,
	}
}

// GetCart は指定サブジェクトのカートを返す。
// subjectIDが空の場合とカートが存在しない場合はnilを返す（エラーにしない）。
func (s *Service) GetCart(ctx context.Context, subjectID string) (*model.Cart, error) {
	if subjectID == "" {
		return nil, nil
	}

	cart, err := s.carts.FindBySubjectID(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to find cart: %w", err)
	}
	return cart, nil
}

// GetOrCreateCart は指定サブジェクトのカートを返し、無ければ作成する。
//
// subjectIDが空の場合はUnauthenticatedError、ユーザープロファイルが
// 未同期の場合はProfileNotFoundErrorを返す。
// 並行して同じサブジェクトのカート作成が走っても、作成はカートの
// 一意制約で片方のみ成功し、敗者は勝者のカートを取り直して返す。
func (s *Service) GetOrCreateCart(ctx context.Context, subjectID string) (*model.Cart, error) {
	if subjectID == "" {
		return nil, model.NewUnauthenticatedError()
	}

	cart, err := s.carts.FindBySubjectID(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to find cart: %w", err)
	}
	if cart != nil {
		return cart, nil
	}

	// カート作成より先にプロファイル同期が済んでいる必要がある
	profile, err := s.profiles.FindBySubjectID(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user profile: %w", err)
	}
	if profile == nil {
		slog.Warn("cart creation attempted before profile sync", "subject_id", subjectID)
		return nil, model.NewProfileNotFoundError()
	}

	cart = &model.Cart{
		ID:          uuid.New().String(),
		SubjectID:   subjectID,
		LastUpdated: s.now().UTC(),
	}
	if err := s.carts.Create(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}

	// 並行作成の敗者は勝者のカートを拾う
	created, err := s.carts.FindBySubjectID(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to find cart after create: %w", err)
	}
	if created == nil {
		return nil, fmt.Errorf("cart disappeared after create: subject_id=%s", subjectID)
	}

	slog.Info("cart ready", "cart_id", created.ID, "subject_id", subjectID)
	return created, nil
}

// AddItem はカートに商品を追加する。
//
// 追加時点の商品名と単価をスナップショットとして明細に保存する。
// 同一商品の明細が既にある場合は数量のみ加算し、スナップショットは
// 最初の追加時の値を保つ。
// 数量0以下と存在しない商品は警告ログを残して何もしない。
func (s *Service) AddItem(ctx context.Context, subjectID, productID string, quantity int) error {
	if quantity <= 0 {
		slog.Warn("ignoring cart add with non-positive quantity",
			"subject_id", subjectID, "product_id", productID, "quantity", quantity)
		return nil
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("failed to find product: %w", err)
	}
	if product == nil {
		slog.Warn("ignoring cart add for unknown product",
			"subject_id", subjectID, "product_id", productID)
		s.metrics.RecordCartUnknownProduct()
		return nil
	}

	cart, err := s.GetOrCreateCart(ctx, subjectID)
	if err != nil {
		return err
	}

	line := &model.CartLine{
		ID:          uuid.New().String(),
		ProductID:   product.ID,
		ProductName: product.Name,
		UnitPrice:   product.Price,
		Quantity:    quantity,
	}
	if err := s.carts.AddLine(ctx, cart.ID, line); err != nil {
		return fmt.Errorf("failed to add cart line: %w", err)
	}

	s.metrics.RecordCartAdd()
	slog.Info("item added to cart",
		"cart_id", cart.ID, "product_id", product.ID, "quantity", quantity)
	return nil
}

// RemoveItem はカートから明細を削除する。
// カートや明細が存在しない場合は警告ログを残して何もしない。
func (s *Service) RemoveItem(ctx context.Context, subjectID, lineID string) error {
	if subjectID == "" {
		return model.NewUnauthenticatedError()
	}

	cart, err := s.carts.FindBySubjectID(ctx, subjectID)
	if err != nil {
		return fmt.Errorf("failed to find cart: %w", err)
	}
	if cart == nil {
		slog.Warn("ignoring item removal for missing cart", "subject_id", subjectID)
		return nil
	}

	removed, err := s.carts.RemoveLine(ctx, cart.ID, lineID)
	if err != nil {
		return fmt.Errorf("failed to remove cart line: %w", err)
	}
	if !removed {
		slog.Warn("ignoring removal of missing cart line",
			"cart_id", cart.ID, "line_id", lineID)
		return nil
	}

	slog.Info("item removed from cart", "cart_id", cart.ID, "line_id", lineID)
	return nil
}

// ClearCart はカートの全明細を削除する。カートが存在しない場合は何もしない。
func (s *Service) ClearCart(ctx context.Context, subjectID string) error {
	if subjectID == "" {
		return model.NewUnauthenticatedError()
	}

	cart, err := s.carts.FindBySubjectID(ctx, subjectID)
	if err != nil {
		return fmt.Errorf("failed to find cart: %w", err)
	}
	if cart == nil {
		return nil
	}

	if err := s.carts.ClearLines(ctx, cart.ID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	slog.Info("cart cleared", "cart_id", cart.ID)
	return nil
}

// GetItemCount はカート内の数量合計を返す。
// subjectIDが空の場合とカートが無い場合は0を返す。
func (s *Service) GetItemCount(ctx context.Context, subjectID string) (int, error) {
	if subjectID == "" {
		return 0, nil
	}

	count, err := s.carts.ItemCount(ctx, subjectID)
	if err != nil {
		return 0, fmt.Errorf("failed to count cart items: %w", err)
	}
	return count, nil
}
