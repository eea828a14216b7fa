// Package model содержит доменные сущности сервиса продуктовой дистрибуции.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxItemQuantity ограничивает количество одного товара в корзине и заказе.
const MaxItemQuantity = 10000

// Role описывает роль вызывающего пользователя.
type Role string

const (
	RoleAdmin    Role = "agency_admin"
	RoleStaff    Role = "staff"
	RoleCustomer Role = "customer"
)

// Caller описывает аутентифицированного пользователя, выполняющего запрос.
type Caller struct {
	UserID uuid.UUID
	Role   Role
	Email  string
	Name   string
}

// HasRole сообщает, входит ли роль пользователя в перечисленные.
func (c Caller) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}

// IsBackOffice сообщает, является ли пользователь администратором или сотрудником.
func (c Caller) IsBackOffice() bool {
	return c.HasRole(RoleAdmin, RoleStaff)
}

var hundred = decimal.NewFromInt(100)

// Product описывает товар каталога.
type Product struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	Stock           int             `json:"stock"`
	CategoryID      *uuid.UUID      `json:"categoryId"`
	ImageURL        string          `json:"imageUrl"`
	ExpiryDate      *time.Time      `json:"expiryDate"`
	NearExpiry      bool            `json:"nearExpiry"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	IsActive        bool            `json:"isActive"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// EffectivePrice возвращает цену товара с учётом действующей скидки, округлённую до копеек.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.NearExpiry && p.DiscountPercent.IsPositive() {
		factor := hundred.Sub(p.DiscountPercent).Div(hundred)
		return p.Price.Mul(factor).Round(2)
	}
	return p.Price
}

// ProductFilter задаёт условия выборки товаров каталога.
type ProductFilter struct {
	CategoryID *uuid.UUID
	NearExpiry bool
	Search     string
}

// Cart описывает корзину пользователя.
type Cart struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// CartItem описывает позицию корзины с зафиксированной ценой.
type CartItem struct {
	ID         uuid.UUID       `json:"id"`
	CartID     uuid.UUID       `json:"cartId"`
	ProductID  uuid.UUID       `json:"productId"`
	Quantity   int             `json:"quantity"`
	PriceAtAdd decimal.Decimal `json:"priceAtAdd"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// CartLine объединяет позицию корзины и текущее состояние товара.
type CartLine struct {
	CartItem
	Product Product `json:"product"`
}

// CartView описывает корзину вместе с позициями.
type CartView struct {
	Cart  Cart       `json:"cart"`
	Items []CartLine `json:"items"`
}

// OrderStatus описывает статус исполнения заказа.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// IsTerminal сообщает, является ли статус конечным.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Valid сообщает, известен ли статус.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

var nextOrderStatus = map[OrderStatus]OrderStatus{
	OrderStatusPending:   OrderStatusConfirmed,
	OrderStatusConfirmed: OrderStatusShipped,
	OrderStatusShipped:   OrderStatusDelivered,
}

// CanTransitionTo сообщает, допустим ли переход статуса исполнения.
func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if to == OrderStatusCancelled {
		return true
	}
	return nextOrderStatus[s] == to
}

// PaymentStatus описывает статус оплаты заказа.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// Valid сообщает, известен ли статус оплаты.
func (s PaymentStatus) Valid() bool {
	return s == PaymentStatusPending || s == PaymentStatusPaid || s == PaymentStatusFailed
}

// CanTransitionTo сообщает, допустим ли переход статуса оплаты. Из paid и failed выхода нет.
func (s PaymentStatus) CanTransitionTo(to PaymentStatus) bool {
	return s == PaymentStatusPending && (to == PaymentStatusPaid || to == PaymentStatusFailed)
}

// PaymentMethod описывает способ оплаты.
type PaymentMethod string

const (
	PaymentMethodCOD  PaymentMethod = "cod"
	PaymentMethodUPI  PaymentMethod = "upi"
	PaymentMethodCard PaymentMethod = "card"
)

// ShippingAddress описывает адрес доставки.
type ShippingAddress struct {
	FullName     string `json:"fullName" validate:"required"`
	Phone        string `json:"phone" validate:"required,min=7,max=20"`
	AddressLine1 string `json:"addressLine1" validate:"required"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state" validate:"required"`
	Pincode      string `json:"pincode" validate:"required,numeric,len=6"`
}

// OrderItem описывает снимок позиции заказа на момент оформления.
type OrderItem struct {
	ProductID    uuid.UUID       `json:"productId"`
	ProductName  string          `json:"productName"`
	Quantity     int             `json:"quantity"`
	PriceAtOrder decimal.Decimal `json:"priceAtOrder"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
}

// Order описывает заказ пользователя.
type Order struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"userId"`
	Items           []OrderItem     `json:"items"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	Status          OrderStatus     `json:"status"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	DiscountAmount  decimal.Decimal `json:"discountAmount"`
	ShippingAmount  decimal.Decimal `json:"shippingAmount"`
	GatewayOrderID  string          `json:"gatewayOrderId,omitempty"`
	CustomerEmail   string          `json:"-"`
	CustomerName    string          `json:"-"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// OrderTotals содержит суммы, переданные клиентом при оформлении.
type OrderTotals struct {
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	ShippingAmount decimal.Decimal `json:"shippingAmount"`
}

// MarkPaidResult описывает исход попытки отметить заказ оплаченным.
type MarkPaidResult int

const (
	MarkPaidNotFound MarkPaidResult = iota
	MarkPaidNowPaid
	MarkPaidAlreadyPaid
)
