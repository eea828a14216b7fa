package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/grocerymart/internal/gateway"
	"github.com/mmeshcher/grocerymart/internal/model"
	"github.com/mmeshcher/grocerymart/internal/notify"
	"github.com/mmeshcher/grocerymart/internal/repository"
)

// CheckoutItem описывает позицию, которую клиент ожидает увидеть в заказе.
type CheckoutItem struct {
	ProductID uuid.UUID
	Quantity  int
}

// CheckoutRequest описывает оформление заказа из корзины.
type CheckoutRequest struct {
	Items           []CheckoutItem
	ShippingAddress model.ShippingAddress
	PaymentMethod   model.PaymentMethod
	Totals          model.OrderTotals
}

// GatewayCheckout содержит данные для оплаты через виджет шлюза.
type GatewayCheckout struct {
	KeyID    string `json:"key_id"`
	OrderID  string `json:"razorpay_order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// CheckoutResult описывает созданный заказ и, для UPI, данные для оплаты.
type CheckoutResult struct {
	Order    *model.Order        `json:"order"`
	UPI      *gateway.UPIPayment `json:"upi,omitempty"`
	Razorpay *GatewayCheckout    `json:"razorpay,omitempty"`
}

// CreateOrder оформляет заказ из текущей корзины пользователя. Позиции и цены берутся из корзины.
// Очистка корзины и уведомление выполняются после сохранения заказа и не влияют на результат.
func (s *Service) CreateOrder(ctx context.Context, caller model.Caller, req CheckoutRequest) (*CheckoutResult, error) {
	cart, err := s.repo.GetOrCreateCart(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}

	lines, err := s.repo.ListCartLines(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	if len(req.Items) > 0 && !matchesCart(req.Items, lines) {
		return nil, ErrCartMismatch
	}

	items, subtotal := snapshotItems(lines)

	if req.Totals.DiscountAmount.IsNegative() || req.Totals.ShippingAmount.IsNegative() {
		return nil, fmt.Errorf("%w: amounts must not be negative", ErrInvalidInput)
	}
	if req.Totals.DiscountAmount.GreaterThan(subtotal) {
		return nil, fmt.Errorf("%w: discount exceeds subtotal", ErrInvalidInput)
	}

	order, err := s.repo.CreateOrder(ctx, &model.Order{
		UserID:          caller.UserID,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		Status:          model.OrderStatusPending,
		PaymentStatus:   model.PaymentStatusPending,
		PaymentMethod:   req.PaymentMethod,
		TotalAmount:     subtotal.Sub(req.Totals.DiscountAmount).Add(req.Totals.ShippingAmount),
		DiscountAmount:  req.Totals.DiscountAmount,
		ShippingAmount:  req.Totals.ShippingAmount,
		CustomerEmail:   caller.Email,
		CustomerName:    caller.Name,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", caller.UserID.String()),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)

	ordered := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ordered = append(ordered, l.ProductID)
	}
	if err := s.repo.RemoveCartItems(ctx, cart.ID, ordered); err != nil {
		s.logger.Error("clear cart after order failed",
			zap.String("order_id", order.ID.String()),
			zap.String("user_id", caller.UserID.String()),
			zap.Error(err),
		)
	}

	s.notify(orderMessage(notify.KindOrderConfirmed, order))

	res := &CheckoutResult{Order: order}
	if order.PaymentMethod == model.PaymentMethodUPI {
		s.attachUPIPayment(ctx, res)
	}

	return res, nil
}

// attachUPIPayment создаёт заказ в шлюзе, а при любой ошибке шлюза отдаёт QR-код для оплаты по UPI.
func (s *Service) attachUPIPayment(ctx context.Context, res *CheckoutResult) {
	order := res.Order

	if s.gatewayConfigured() {
		amount := gateway.ToMinorUnits(order.TotalAmount)
		gwOrder, err := s.gateway.CreateOrder(ctx, gateway.CreateOrderRequest{
			Amount:   amount,
			Currency: gateway.CurrencyINR,
			Receipt:  order.ID.String(),
			Notes:    map[string]string{"order_id": order.ID.String()},
		})
		if err == nil {
			if err := s.repo.SetGatewayOrderID(ctx, order.ID, gwOrder.ID); err != nil {
				s.logger.Error("store gateway order id failed",
					zap.String("order_id", order.ID.String()),
					zap.Error(err),
				)
			} else {
				order.GatewayOrderID = gwOrder.ID
			}

			res.Razorpay = &GatewayCheckout{
				KeyID:    s.gateway.KeyID(),
				OrderID:  gwOrder.ID,
				Amount:   amount,
				Currency: gateway.CurrencyINR,
			}
			return
		}

		s.logger.Error("create gateway order failed, falling back to UPI QR",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}

	upi := gateway.BuildUPIPayment(s.merchantVPA, s.merchantName, order.TotalAmount, order.ID.String())
	res.UPI = &upi
}

func matchesCart(items []CheckoutItem, lines []model.CartLine) bool {
	want := make(map[uuid.UUID]int, len(lines))
	for _, l := range lines {
		want[l.ProductID] = l.Quantity
	}

	got := make(map[uuid.UUID]int, len(items))
	for _, it := range items {
		got[it.ProductID] += it.Quantity
	}

	if len(got) != len(want) {
		return false
	}
	for id, q := range want {
		if got[id] != q {
			return false
		}
	}
	return true
}

func snapshotItems(lines []model.CartLine) ([]model.OrderItem, decimal.Decimal) {
	items := make([]model.OrderItem, 0, len(lines))
	subtotal := decimal.Zero

	for _, l := range lines {
		total := l.PriceAtAdd.Mul(decimal.NewFromInt(int64(l.Quantity)))
		items = append(items, model.OrderItem{
			ProductID:    l.ProductID,
			ProductName:  l.Product.Name,
			Quantity:     l.Quantity,
			PriceAtOrder: l.PriceAtAdd,
			TotalPrice:   total,
		})
		subtotal = subtotal.Add(total)
	}

	return items, subtotal
}

func orderMessage(kind notify.Kind, o *model.Order) notify.Message {
	return notify.Message{
		Kind:        kind,
		OrderID:     o.ID,
		Email:       o.CustomerEmail,
		Name:        o.CustomerName,
		Phone:       o.ShippingAddress.Phone,
		TotalAmount: o.TotalAmount,
		CreatedAt:   o.CreatedAt,
	}
}

// ListOrders возвращает все заказы для администратора и сотрудника и собственные заказы для покупателя.
func (s *Service) ListOrders(ctx context.Context, caller model.Caller) ([]model.Order, error) {
	var userID *uuid.UUID
	if !caller.IsBackOffice() {
		userID = &caller.UserID
	}

	orders, err := s.repo.ListOrders(ctx, userID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return orders, nil
}

// GetOrder возвращает заказ владельцу или сотруднику.
func (s *Service) GetOrder(ctx context.Context, caller model.Caller, id uuid.UUID) (*model.Order, error) {
	o, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccess(caller, o) {
		return nil, ErrForbidden
	}
	return o, nil
}

// UpdateOrderStatus меняет статус исполнения заказа.
func (s *Service) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	o, changed, err := s.repo.UpdateOrderStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.Info("order status changed",
			zap.String("order_id", id.String()),
			zap.String("status", string(status)),
		)
	}

	return o, nil
}

func canAccess(caller model.Caller, o *model.Order) bool {
	return caller.IsBackOffice() || o.UserID == caller.UserID
}

func orderNotFound(id uuid.UUID) error {
	return fmt.Errorf("order %s: %w", id, repository.ErrOrderNotFound)
}
