package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/hitoshi/hetro/internal/middleware"
	"github.com/hitoshi/hetro/internal/model"
)

// CartServiceInterface はカートハンドラーが必要とするサービスインターフェース。
type CartServiceInterface interface {
	// GetCart はサブジェクトのカートを返す。カートが無ければnil（作成しない）。
	GetCart(ctx context.Context, subjectID string) (*model.Cart, error)
	// GetOrCreateCart はサブジェクトのカートを返し、無ければ遅延作成する。
	GetOrCreateCart(ctx context.Context, subjectID string) (*model.Cart, error)
	// AddItem は商品をカートに追加する。スナップショット付き明細を作成するか数量をマージする。
	AddItem(ctx context.Context, subjectID, productID string, quantity int) error
	// RemoveItem は明細を1件削除する。
	RemoveItem(ctx context.Context, subjectID, lineID string) error
	// ClearCart は全明細を削除する。
	ClearCart(ctx context.Context, subjectID string) error
	// GetItemCount は全明細の数量合計を返す。
	GetItemCount(ctx context.Context, subjectID string) (int, error)
}

// CartHandler はカート管理のHTTPハンドラー。
type CartHandler struct {
	service CartServiceInterface
}

// NewCartHandler はCartHandlerを生成する。
func NewCartHandler(service CartServiceInterface) *CartHandler {
	return &CartHandler{
		service: service,
	}
}

// addCartItemRequest はカート追加リクエストのボディ。
type addCartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// cartLineResponse はカート明細のAPIレスポンス。
// 商品名と単価は追加時点のスナップショットをそのまま返す。
type cartLineResponse struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	LineTotal   string `json:"line_total"`
}

// cartResponse はカート全体のAPIレスポンス。
type cartResponse struct {
	ID          string             `json:"id"`
	LastUpdated time.Time          `json:"last_updated"`
	Items       []cartLineResponse `json:"items"`
	ItemCount   int                `json:"item_count"`
	Subtotal    string             `json:"subtotal"`
}

// GetCart はカートの内容を返す。読み取り専用で、カート未作成の場合は
// 作成せずに空のカートを返す。作成は変更系の操作に任せる。
// GET /api/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	subjectID, err := middleware.SubjectIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	cart, err := h.service.GetCart(r.Context(), subjectID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toCartResponse(cart))
}

// AddItem は商品をカートに追加する。
// POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	subjectID, err := middleware.SubjectIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req addCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	if req.ProductID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("product_id", "商品IDが空です"))
		return
	}

	// 数量は1以上に切り上げる。下位層は非正の数量を黙って無視するが、
	// API経由の追加は常に最低1個として扱う。
	quantity := req.Quantity
	if quantity < 1 {
		quantity = 1
	}

	if err := h.service.AddItem(r.Context(), subjectID, req.ProductID, quantity); err != nil {
		handleServiceError(w, err)
		return
	}

	cart, err := h.service.GetOrCreateCart(r.Context(), subjectID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toCartResponse(cart))
}

// RemoveItem はカートから明細を1件削除する。
// DELETE /api/cart/items/:lineID
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	subjectID, err := middleware.SubjectIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	lineID := chi.URLParam(r, "lineID")

	if err := h.service.RemoveItem(r.Context(), subjectID, lineID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClearCart はカートの全明細を削除する。
// DELETE /api/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	subjectID, err := middleware.SubjectIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	if err := h.service.ClearCart(r.Context(), subjectID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetItemCount はカート内の数量合計を返す。バッジ表示用の軽量エンドポイント。
// GET /api/cart/count
func (h *CartHandler) GetItemCount(w http.ResponseWriter, r *http.Request) {
	subjectID, err := middleware.SubjectIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	count, err := h.service.GetItemCount(r.Context(), subjectID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{
		"count": count,
	})
}

// --- ヘルパー関数 ---

// toCartResponse はmodel.CartからAPIレスポンスに変換する。
// nilのカートは空のカートとして表現する。
func toCartResponse(cart *model.Cart) cartResponse {
	if cart == nil {
		return cartResponse{
			Items:    []cartLineResponse{},
			Subtotal: decimal.Zero.String(),
		}
	}

	items := make([]cartLineResponse, len(cart.Items))
	for i, line := range cart.Items {
		items[i] = cartLineResponse{
			ID:          line.ID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			UnitPrice:   line.UnitPrice.String(),
			Quantity:    line.Quantity,
			LineTotal:   line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))).String(),
		}
	}
	return cartResponse{
		ID:          cart.ID,
		LastUpdated: cart.LastUpdated,
		Items:       items,
		ItemCount:   cart.ItemCount(),
		Subtotal:    cart.Subtotal().String(),
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthenticated, model.ErrCodeMissingSubject:
		return http.StatusUnauthorized
	case model.ErrCodeProfileNotFound:
		return http.StatusUnauthorized
	case model.ErrCodeEmptyCart, model.ErrCodeCartConflict:
		return http.StatusConflict
	case model.ErrCodeValidation, model.ErrCodeInvalidImageURL:
		return http.StatusBadRequest
	case model.ErrCodeProductNotFound, model.ErrCodeOrderNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
