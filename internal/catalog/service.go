// Package catalog は商品カタログのドメインロジックを提供する。
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hitoshi/hetro/internal/model"
	"github.com/hitoshi/hetro/internal/repository"
	"github.com/hitoshi/hetro/internal/security"
)

// probeTimeout は画像URLの到達性確認に使うHEADリクエストのタイムアウト。
const probeTimeout = 5 * time.Second

// Service は商品カタログのサービス層。
// 商品一覧・取得・登録と初期データ投入のビジネスロジックを提供する。
type Service struct {
	products  repository.ProductRepository
	sanitizer security.DescriptionSanitizerService
	guard     security.ImageURLGuardService
	probe     *http.Client
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	products repository.ProductRepository,
	sanitizer security.DescriptionSanitizerService,
	guard security.ImageURLGuardService,
) *Service {
	return &Service{
		products:  products,
		sanitizer: sanitizer,
		guard:     guard,
		probe:     guard.NewSafeClient(probeTimeout),
	}
}

// ListProducts は商品一覧を返す。
func (s *Service) ListProducts(ctx context.Context) ([]*model.Product, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// GetProduct は商品IDで商品を取得する。
// 商品が存在しない場合はProductNotFoundErrorを返す。
func (s *Service) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	if product == nil {
		return nil, model.NewProductNotFoundError(productID)
	}
	return product, nil
}

// CreateProduct は商品を登録する。
//
// 説明文は保存前にサニタイズされ、画像URLは安全性検証に合格する必要がある。
// 外部URLの場合はSSRF防止クライアントでHEADプローブを行い到達性を確認する。
// サイト内の相対パス("/"始まり)はプローブをスキップする。
func (s *Service) CreateProduct(ctx context.Context, name, description string, price decimal.Decimal, imageURL string) (*model.Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.NewValidationError("name", "商品名は必須です")
	}
	if price.IsNegative() {
		return nil, model.NewValidationError("price", "価格は0以上である必要があります")
	}

	if imageURL != "" {
		if err := s.guard.ValidateURL(imageURL); err != nil {
			slog.Warn("rejected product image URL", "error", err)
			return nil, model.NewInvalidImageURLError(err.Error())
		}
		if err := s.probeImageURL(ctx, imageURL); err != nil {
			slog.Warn("product image URL probe failed", "error", err)
			return nil, model.NewInvalidImageURLError(err.Error())
		}
	}

	product := &model.Product{
		ID:          uuid.New().String(),
		Name:        name,
		Description: s.sanitizer.Sanitize(description),
		Price:       price,
		ImageURL:    imageURL,
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	slog.Info("product created", "product_id", product.ID, "name", product.Name)
	return product, nil
}

// probeImageURL は外部画像URLへHEADリクエストを送り到達性を確認する。
// 相対パスは外部リクエストを伴わないためスキップする。
func (s *Service) probeImageURL(ctx context.Context, imageURL string) error {
	if strings.HasPrefix(imageURL, "/") {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, imageURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build probe request: %w", err)
	}

	resp, err := s.probe.Do(req)
	if err != nil {
		return fmt.Errorf("image URL is unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("image URL returned status %d", resp.StatusCode)
	}
	return nil
}

// seedProducts は初期データとして投入する商品。
var seedProducts = []model.Product{
	{
		Name:        "Classic Tee",
		Description: "A wardrobe staple made from soft, breathable cotton.",
		Price:       decimal.RequireFromString("25.99"),
		ImageURL:    "/images/products/classic-tee.jpg",
	},
	{
		Name:        "Denim Jeans",
		Description: "Slim-fit jeans with a hint of stretch for all-day comfort.",
		Price:       decimal.RequireFromString("59.95"),
		ImageURL:    "/images/products/denim-jeans.jpg",
	},
	{
		Name:        "Hoodie Sweatshirt",
		Description: "A cozy fleece-lined hoodie with a front kangaroo pocket.",
		Price:       decimal.RequireFromString("45.00"),
		ImageURL:    "/images/products/hoodie-sweatshirt.jpg",
	},
	{
		Name:        "Summer Dress",
		Description: "A lightweight floral dress perfect for warm days.",
		Price:       decimal.RequireFromString("75.50"),
		ImageURL:    "/images/products/summer-dress.jpg",
	},
}

// Seed は商品テーブルが空の場合に初期データを投入する。
// 既に商品が存在する場合は何もしない（再実行しても安全）。
func (s *Service) Seed(ctx context.Context) error {
	count, err := s.products.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		slog.Info("products already seeded, skipping", "count", count)
		return nil
	}

	for _, seed := range seedProducts {
		product := seed
		product.ID = uuid.New().String()
		product.Description = s.sanitizer.Sanitize(product.Description)
		if err := s.products.Create(ctx, &product); err != nil {
			return fmt.Errorf("failed to seed product %q: %w", product.Name, err)
		}
	}

	slog.Info("seeded initial products", "count", len(seedProducts))
	return nil
}
