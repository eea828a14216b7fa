package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/grocerymart/internal/gateway"
	"github.com/mmeshcher/grocerymart/internal/model"
	"github.com/mmeshcher/grocerymart/internal/notify"
	"github.com/mmeshcher/grocerymart/internal/repository"
)

// memRepo повторяет семантику PostgresRepository в памяти.
type memRepo struct {
	mu       sync.Mutex
	products map[uuid.UUID]model.Product
	carts    map[uuid.UUID]model.Cart
	items    map[uuid.UUID][]model.CartItem
	orders   map[uuid.UUID]model.Order

	clearErr error
	// beforeOrder вызывается перед сохранением заказа, когда корзина уже прочитана.
	beforeOrder func()
}

func newMemRepo() *memRepo {
	return &memRepo{
		products: make(map[uuid.UUID]model.Product),
		carts:    make(map[uuid.UUID]model.Cart),
		items:    make(map[uuid.UUID][]model.CartItem),
		orders:   make(map[uuid.UUID]model.Order),
	}
}

func (r *memRepo) Close() error { return nil }

func (r *memRepo) CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *p
	cp.ID = uuid.New()
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.products[cp.ID] = cp
	return &cp, nil
}

func (r *memRepo) UpdateProduct(ctx context.Context, id uuid.UUID, mutate func(p *model.Product) error) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	if err := mutate(&p); err != nil {
		return nil, err
	}
	p.UpdatedAt = time.Now()
	r.products[id] = p
	return &p, nil
}

// setDiscount меняет скидку товара в обход сервиса, как это делает обход по расписанию.
func (r *memRepo) setDiscount(id uuid.UUID, nearExpiry bool, discount decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.products[id]
	p.NearExpiry = nearExpiry
	p.DiscountPercent = discount
	r.products[id] = p
}

func (r *memRepo) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return &p, nil
}

func (r *memRepo) ListProducts(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res []model.Product
	for _, p := range r.products {
		if !p.IsActive {
			continue
		}
		if filter.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *filter.CategoryID) {
			continue
		}
		if filter.NearExpiry && !p.NearExpiry {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}
		res = append(res, p)
	}
	return res, nil
}

func (r *memRepo) ListNearExpiryProducts(ctx context.Context) ([]model.Product, error) {
	res, _ := r.ListProducts(ctx, model.ProductFilter{NearExpiry: true})
	sort.Slice(res, func(i, j int) bool { return res[i].ExpiryDate.Before(*res[j].ExpiryDate) })
	return res, nil
}

func (r *memRepo) ListFeaturedProducts(ctx context.Context, limit int) ([]model.Product, error) {
	all, _ := r.ListProducts(ctx, model.ProductFilter{})
	var res []model.Product
	for _, p := range all {
		if p.Stock > 0 {
			res = append(res, p)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (r *memRepo) DeactivateProduct(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	p.IsActive = false
	r.products[id] = p
	return nil
}

func (r *memRepo) GetOrCreateCart(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.carts[userID]
	if !ok {
		c = model.Cart{ID: uuid.New(), UserID: userID, CreatedAt: time.Now()}
		r.carts[userID] = c
	}
	return &c, nil
}

func (r *memRepo) AddCartItem(ctx context.Context, cartID, productID uuid.UUID, quantity int, price decimal.Decimal) (*model.CartItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := r.items[cartID]
	for i := range items {
		if items[i].ProductID == productID {
			items[i].Quantity += quantity
			it := items[i]
			return &it, nil
		}
	}

	it := model.CartItem{
		ID:         uuid.New(),
		CartID:     cartID,
		ProductID:  productID,
		Quantity:   quantity,
		PriceAtAdd: price,
		CreatedAt:  time.Now(),
	}
	r.items[cartID] = append(items, it)
	return &it, nil
}

func (r *memRepo) SetCartItemQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*model.CartItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := r.items[cartID]
	for i := range items {
		if items[i].ProductID == productID {
			items[i].Quantity = quantity
			it := items[i]
			return &it, nil
		}
	}
	return nil, repository.ErrCartItemNotFound
}

func (r *memRepo) RemoveCartItem(ctx context.Context, cartID, productID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := r.items[cartID]
	for i := range items {
		if items[i].ProductID == productID {
			r.items[cartID] = append(items[:i], items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) ClearCart(ctx context.Context, cartID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.clearErr != nil {
		return r.clearErr
	}
	delete(r.items, cartID)
	return nil
}

func (r *memRepo) RemoveCartItems(ctx context.Context, cartID uuid.UUID, productIDs []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.clearErr != nil {
		return r.clearErr
	}
	drop := make(map[uuid.UUID]bool, len(productIDs))
	for _, id := range productIDs {
		drop[id] = true
	}
	var kept []model.CartItem
	for _, it := range r.items[cartID] {
		if !drop[it.ProductID] {
			kept = append(kept, it)
		}
	}
	r.items[cartID] = kept
	return nil
}

func (r *memRepo) ListCartLines(ctx context.Context, cartID uuid.UUID) ([]model.CartLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var lines []model.CartLine
	for _, it := range r.items[cartID] {
		lines = append(lines, model.CartLine{CartItem: it, Product: r.products[it.ProductID]})
	}
	return lines, nil
}

func (r *memRepo) CreateOrder(ctx context.Context, o *model.Order) (*model.Order, error) {
	if r.beforeOrder != nil {
		r.beforeOrder()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *o
	cp.ID = uuid.New()
	cp.Items = append([]model.OrderItem(nil), o.Items...)
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.orders[cp.ID] = cp
	return &cp, nil
}

func (r *memRepo) GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return &o, nil
}

func (r *memRepo) ListOrders(ctx context.Context, userID *uuid.UUID) ([]model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res []model.Order
	for _, o := range r.orders {
		if userID == nil || o.UserID == *userID {
			res = append(res, o)
		}
	}
	return res, nil
}

func (r *memRepo) SetGatewayOrderID(ctx context.Context, id uuid.UUID, gatewayOrderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	o.GatewayOrderID = gatewayOrderID
	r.orders[id] = o
	return nil
}

func (r *memRepo) UpdateOrderStatus(ctx context.Context, id uuid.UUID, to model.OrderStatus) (*model.Order, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, false, repository.ErrOrderNotFound
	}
	if o.Status == to {
		return &o, false, nil
	}
	if !o.Status.CanTransitionTo(to) {
		return nil, false, fmt.Errorf("%w: status %s -> %s", repository.ErrInvalidTransition, o.Status, to)
	}
	o.Status = to
	r.orders[id] = o
	return &o, true, nil
}

func (r *memRepo) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, to model.PaymentStatus) (*model.Order, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, false, repository.ErrOrderNotFound
	}
	if o.PaymentStatus == to {
		return &o, false, nil
	}
	if !o.PaymentStatus.CanTransitionTo(to) {
		return nil, false, fmt.Errorf("%w: payment %s -> %s", repository.ErrInvalidTransition, o.PaymentStatus, to)
	}
	o.PaymentStatus = to
	r.orders[id] = o
	return &o, true, nil
}

func (r *memRepo) MarkOrderPaid(ctx context.Context, id uuid.UUID) (model.MarkPaidResult, *model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return model.MarkPaidNotFound, nil, nil
	}
	switch o.PaymentStatus {
	case model.PaymentStatusPending:
		o.PaymentStatus = model.PaymentStatusPaid
		r.orders[id] = o
		return model.MarkPaidNowPaid, &o, nil
	case model.PaymentStatusPaid:
		return model.MarkPaidAlreadyPaid, &o, nil
	default:
		return model.MarkPaidNotFound, nil, fmt.Errorf("%w: payment %s -> paid", repository.ErrInvalidTransition, o.PaymentStatus)
	}
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (n *recordingNotifier) Notify(msg notify.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *recordingNotifier) count(kind notify.Kind) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	c := 0
	for _, m := range n.msgs {
		if m.Kind == kind {
			c++
		}
	}
	return c
}

type stubGateway struct {
	keyID     string
	keySecret string
	orderID   string
	err       error
	requests  []gateway.CreateOrderRequest
}

func (g *stubGateway) Configured() bool  { return g.keyID != "" && g.keySecret != "" }
func (g *stubGateway) KeyID() string     { return g.keyID }
func (g *stubGateway) KeySecret() string { return g.keySecret }

func (g *stubGateway) CreateOrder(ctx context.Context, req gateway.CreateOrderRequest) (*gateway.Order, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	return &gateway.Order{ID: g.orderID, Amount: req.Amount, Currency: req.Currency, Receipt: req.Receipt}, nil
}

var errGatewayDown = errors.New("gateway unavailable")
