package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/hitoshi/hetro/internal/middleware"
	"github.com/hitoshi/hetro/internal/model"
)

// OrderServiceInterface は注文ハンドラーが必要とするサービスインターフェース。
type OrderServiceInterface interface {
	// PlaceOrder はカートの内容から注文を確定し、同一トランザクションでカートを空にする。
	PlaceOrder(ctx context.Context, subjectID, shippingAddress, contactPhone string) (*model.Order, error)
	// GetOrderForConfirmation は注文を1件取得する。他人の注文はORDER_NOT_FOUND。
	GetOrderForConfirmation(ctx context.Context, subjectID, orderID string) (*model.Order, error)
	// ListOrders はサブジェクトの注文履歴を新しい順で返す。
	ListOrders(ctx context.Context, subjectID string) ([]*model.Order, error)
}

// OrderHandler は注文管理のHTTPハンドラー。
type OrderHandler struct {
	service OrderServiceInterface
}

// NewOrderHandler はOrderHandlerを生成する。
func NewOrderHandler(service OrderServiceInterface) *OrderHandler {
	return &OrderHandler{
		service: service,
	}
}

// placeOrderRequest は注文確定リクエストのボディ。
type placeOrderRequest struct {
	ShippingAddress string `json:"shipping_address"`
	ContactPhone    string `json:"contact_phone"`
}

// orderLineResponse は注文明細のAPIレスポンス。
type orderLineResponse struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	LineTotal   string `json:"line_total"`
}

// orderResponse は注文のAPIレスポンス。
type orderResponse struct {
	ID              string              `json:"id"`
	OrderedAt       time.Time           `json:"ordered_at"`
	Total           string              `json:"total"`
	ShippingAddress string              `json:"shipping_address"`
	ContactPhone    string              `json:"contact_phone"`
	Status          string              `json:"status"`
	Items           []orderLineResponse `json:"items"`
}

// PlaceOrder はカートから注文を確定する。
// POST /api/orders
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	subjectID, err := middleware.SubjectIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	order, err := h.service.PlaceOrder(r.Context(), subjectID, req.ShippingAddress, req.ContactPhone)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toOrderResponse(order))
}

// GetOrder は注文確認画面用に注文を1件返す。
// GET /api/orders/:id
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	subjectID, err := middleware.SubjectIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	orderID := chi.URLParam(r, "id")

	order, err := h.service.GetOrderForConfirmation(r.Context(), subjectID, orderID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toOrderResponse(order))
}

// ListOrders は注文履歴を返す。
// GET /api/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	subjectID, err := middleware.SubjectIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	orders, err := h.service.ListOrders(r.Context(), subjectID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]orderResponse, len(orders))
	for i, o := range orders {
		results[i] = toOrderResponse(o)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"orders": results,
	})
}

// toOrderResponse はmodel.OrderからAPIレスポンスに変換する。
func toOrderResponse(order *model.Order) orderResponse {
	items := make([]orderLineResponse, len(order.Items))
	for i, line := range order.Items {
		items[i] = orderLineResponse{
			ID:          line.ID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			UnitPrice:   line.UnitPrice.String(),
			Quantity:    line.Quantity,
			LineTotal:   line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))).String(),
		}
	}
	return orderResponse{
		ID:              order.ID,
		OrderedAt:       order.OrderedAt,
		Total:           order.Total.String(),
		ShippingAddress: order.ShippingAddress,
		ContactPhone:    order.ContactPhone,
		Status:          order.Status,
		Items:           items,
	}
}
