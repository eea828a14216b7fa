// Package service реализует бизнес-логику продуктового магазина: каталог, корзину, заказы и подтверждение оплаты.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/grocerymart/internal/expiry"
	"github.com/mmeshcher/grocerymart/internal/gateway"
	"github.com/mmeshcher/grocerymart/internal/model"
	"github.com/mmeshcher/grocerymart/internal/notify"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, mutate func(p *model.Product) error) (*model.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	ListProducts(ctx context.Context, filter model.ProductFilter) ([]model.Product, error)
	ListNearExpiryProducts(ctx context.Context) ([]model.Product, error)
	ListFeaturedProducts(ctx context.Context, limit int) ([]model.Product, error)
	DeactivateProduct(ctx context.Context, id uuid.UUID) error

	GetOrCreateCart(ctx context.Context, userID uuid.UUID) (*model.Cart, error)
	AddCartItem(ctx context.Context, cartID, productID uuid.UUID, quantity int, price decimal.Decimal) (*model.CartItem, error)
	SetCartItemQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*model.CartItem, error)
	RemoveCartItem(ctx context.Context, cartID, productID uuid.UUID) (bool, error)
	ClearCart(ctx context.Context, cartID uuid.UUID) error
	RemoveCartItems(ctx context.Context, cartID uuid.UUID, productIDs []uuid.UUID) error
	ListCartLines(ctx context.Context, cartID uuid.UUID) ([]model.CartLine, error)

	CreateOrder(ctx context.Context, o *model.Order) (*model.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ListOrders(ctx context.Context, userID *uuid.UUID) ([]model.Order, error)
	SetGatewayOrderID(ctx context.Context, id uuid.UUID, gatewayOrderID string) error
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, to model.OrderStatus) (*model.Order, bool, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, to model.PaymentStatus) (*model.Order, bool, error)
	MarkOrderPaid(ctx context.Context, id uuid.UUID) (model.MarkPaidResult, *model.Order, error)
}

// Notifier принимает уведомления без ожидания доставки.
type Notifier interface {
	Notify(msg notify.Message)
}

// PaymentGateway описывает используемую часть клиента платёжного шлюза.
type PaymentGateway interface {
	Configured() bool
	KeyID() string
	KeySecret() string
	CreateOrder(ctx context.Context, req gateway.CreateOrderRequest) (*gateway.Order, error)
}

// Options содержит настройки бизнес-правил сервиса.
type Options struct {
	Expiry        expiry.Policy
	MerchantVPA   string
	MerchantName  string
	WebhookSecret string
}

// Service содержит бизнес-логику магазина.
type Service struct {
	repo          Repository
	notifier      Notifier
	gateway       PaymentGateway
	policy        expiry.Policy
	merchantVPA   string
	merchantName  string
	webhookSecret string
	logger        *zap.Logger
	now           func() time.Time
}

// NewService создаёт новый сервис. gateway может быть nil: тогда UPI-заказы получают только QR-код.
func NewService(repo Repository, notifier Notifier, gw PaymentGateway, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		repo:          repo,
		notifier:      notifier,
		gateway:       gw,
		policy:        opts.Expiry,
		merchantVPA:   opts.MerchantVPA,
		merchantName:  opts.MerchantName,
		webhookSecret: opts.WebhookSecret,
		logger:        logger,
		now:           time.Now,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

func (s *Service) notify(msg notify.Message) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(msg)
}

func (s *Service) gatewayConfigured() bool {
	return s.gateway != nil && s.gateway.Configured()
}
