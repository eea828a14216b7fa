// Package handler содержит HTTP-обработчики API продуктового магазина.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/grocerymart/internal/middleware"
	"github.com/mmeshcher/grocerymart/internal/model"
	"github.com/mmeshcher/grocerymart/internal/repository"
	"github.com/mmeshcher/grocerymart/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	CreateProduct(ctx context.Context, in service.ProductInput) (*model.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, in service.ProductInput) (*model.Product, error)
	DeactivateProduct(ctx context.Context, id uuid.UUID) error
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	ListProducts(ctx context.Context, filter model.ProductFilter) ([]model.Product, error)
	ListNearExpiryProducts(ctx context.Context) ([]model.Product, error)
	ListFeaturedProducts(ctx context.Context) ([]model.Product, error)

	GetCart(ctx context.Context, userID uuid.UUID) (*model.CartView, error)
	AddToCart(ctx context.Context, userID, productID uuid.UUID, quantity int) (*model.CartItem, error)
	UpdateCartItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*model.CartItem, error)
	RemoveFromCart(ctx context.Context, userID, productID uuid.UUID) error
	ClearCart(ctx context.Context, userID uuid.UUID) error

	CreateOrder(ctx context.Context, caller model.Caller, req service.CheckoutRequest) (*service.CheckoutResult, error)
	ListOrders(ctx context.Context, caller model.Caller) ([]model.Order, error)
	GetOrder(ctx context.Context, caller model.Caller, id uuid.UUID) (*model.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (*model.Order, error)

	SetPaymentStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus) (*model.Order, error)
	ConfirmUPI(ctx context.Context, caller model.Caller, id uuid.UUID, payerVPA string) (*model.Order, error)
	VerifyGatewayPayment(ctx context.Context, caller model.Caller, v service.GatewayVerification) (*model.Order, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) error
}

// Handler реализует HTTP-обработчики API магазина.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

// writeError переводит ошибку бизнес-логики в HTTP-ответ. Подробности внутренних ошибок остаются в логе.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidSignature):
		writeMessage(w, http.StatusBadRequest, "Invalid signature")
	case errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrMissingParameters),
		errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, repository.ErrValueOutOfRange):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrProductNotFound):
		writeMessage(w, http.StatusNotFound, "Product not found")
	case errors.Is(err, repository.ErrOrderNotFound):
		writeMessage(w, http.StatusNotFound, "Order not found")
	case errors.Is(err, repository.ErrCartItemNotFound):
		writeMessage(w, http.StatusNotFound, "Item not found in cart")
	case errors.Is(err, service.ErrForbidden):
		writeMessage(w, http.StatusForbidden, "Access denied")
	case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, service.ErrCartMismatch):
		writeMessage(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (model.Caller, bool) {
	c, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Authentication required")
	}
	return c, ok
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, name+" must be a valid id")
		return uuid.Nil, false
	}
	return id, true
}
