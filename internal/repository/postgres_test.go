package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/grocerymart/internal/model"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "serialization failure", err: &pgconn.PgError{Code: pgerrcode.SerializationFailure}, want: true},
		{name: "deadlock", err: fmt.Errorf("update: %w", &pgconn.PgError{Code: pgerrcode.DeadlockDetected}), want: true},
		{name: "unique violation", err: &pgconn.PgError{Code: pgerrcode.UniqueViolation}},
		{name: "connection reset", err: errors.New("read tcp: connection reset by peer"), want: true},
		{name: "context canceled", err: fmt.Errorf("query: %w", context.Canceled)},
		{name: "not found", err: ErrOrderNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryable(tt.err))
		})
	}
}

func TestWithRetry_StopsOnContextCancel(t *testing.T) {
	r := &PostgresRepository{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := r.withRetry(ctx, func() error {
		calls++
		return &pgconn.PgError{Code: pgerrcode.SerializationFailure}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_NonRetryableReturnsImmediately(t *testing.T) {
	r := &PostgresRepository{}

	calls := 0
	err := r.withRetry(context.Background(), func() error {
		calls++
		return ErrInvalidTransition
	})

	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 1, calls)
}

// newTestRepository подключается к базе из TEST_DATABASE_URI. Без неё интеграционные тесты пропускаются.
func TestOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "numeric overflow", err: &pgconn.PgError{Code: pgerrcode.NumericValueOutOfRange, Message: "integer out of range"}, want: true},
		{name: "int4 encode", err: errors.New("unable to encode 3000000000 into binary format for int4 (OID 23): 3000000000 is greater than maximum value for int4"), want: true},
		{name: "other pg error", err: &pgconn.PgError{Code: pgerrcode.UniqueViolation}, want: false},
		{name: "plain", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(outOfRange(tt.err), ErrValueOutOfRange))
		})
	}
}

func newTestRepository(t *testing.T) *PostgresRepository {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URI")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URI is not set")
	}

	repo, err := NewPostgresRepository(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func TestPostgres_CartSnapshotAndMerge(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	p, err := repo.CreateProduct(ctx, &model.Product{
		Name:            "Milk",
		Price:           decimal.NewFromInt(100),
		Stock:           10,
		NearExpiry:      true,
		DiscountPercent: decimal.NewFromInt(20),
		IsActive:        true,
	})
	require.NoError(t, err)

	cart, err := repo.GetOrCreateCart(ctx, uuid.New())
	require.NoError(t, err)

	_, err = repo.AddCartItem(ctx, cart.ID, p.ID, 2, p.EffectivePrice())
	require.NoError(t, err)
	item, err := repo.AddCartItem(ctx, cart.ID, p.ID, 2, p.Price)
	require.NoError(t, err)

	assert.Equal(t, 4, item.Quantity)
	assert.Equal(t, "80.00", item.PriceAtAdd.StringFixed(2))

	lines, err := repo.ListCartLines(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, p.ID, lines[0].Product.ID)

	require.NoError(t, repo.ClearCart(ctx, cart.ID))
	lines, err = repo.ListCartLines(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestPostgres_FlagNearExpiryIsOneDirectional(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	today := time.Now().UTC().Truncate(24 * time.Hour)
	soon := today.AddDate(0, 0, 3)
	later := today.AddDate(0, 0, 30)

	near, err := repo.CreateProduct(ctx, &model.Product{Name: "Bread", Price: decimal.NewFromInt(40), ExpiryDate: &soon, IsActive: true})
	require.NoError(t, err)
	far, err := repo.CreateProduct(ctx, &model.Product{Name: "Rice", Price: decimal.NewFromInt(90), ExpiryDate: &later, IsActive: true})
	require.NoError(t, err)

	before := today.AddDate(0, 0, 8)
	_, err = repo.FlagNearExpiry(ctx, before, decimal.NewFromInt(20))
	require.NoError(t, err)

	got, err := repo.GetProduct(ctx, near.ID)
	require.NoError(t, err)
	assert.True(t, got.NearExpiry)
	assert.True(t, got.DiscountPercent.Equal(decimal.NewFromInt(20)))

	got, err = repo.GetProduct(ctx, far.ID)
	require.NoError(t, err)
	assert.False(t, got.NearExpiry)

	n, err := repo.FlagNearExpiry(ctx, before, decimal.NewFromInt(20))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPostgres_MarkOrderPaid(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	o, err := repo.CreateOrder(ctx, &model.Order{
		UserID:          uuid.New(),
		Items:           []model.OrderItem{{ProductID: uuid.New(), ProductName: "Milk", Quantity: 1, PriceAtOrder: decimal.NewFromInt(80), TotalPrice: decimal.NewFromInt(80)}},
		ShippingAddress: model.ShippingAddress{FullName: "Buyer", Phone: "9876543210", AddressLine1: "1 Road", City: "Pune", State: "MH", Pincode: "411001"},
		Status:          model.OrderStatusPending,
		PaymentStatus:   model.PaymentStatusPending,
		PaymentMethod:   model.PaymentMethodUPI,
		TotalAmount:     decimal.NewFromInt(80),
	})
	require.NoError(t, err)

	res, paid, err := repo.MarkOrderPaid(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MarkPaidNowPaid, res)
	assert.Equal(t, model.PaymentStatusPaid, paid.PaymentStatus)
	assert.Equal(t, "80.00", paid.Items[0].PriceAtOrder.StringFixed(2))

	res, _, err = repo.MarkOrderPaid(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MarkPaidAlreadyPaid, res)

	res, _, err = repo.MarkOrderPaid(ctx, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, model.MarkPaidNotFound, res)

	_, _, err = repo.UpdatePaymentStatus(ctx, o.ID, model.PaymentStatusFailed)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPostgres_CartQuantityOverflow(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	p, err := repo.CreateProduct(ctx, &model.Product{Name: "Sugar", Price: decimal.NewFromInt(50), Stock: 5, IsActive: true})
	require.NoError(t, err)
	cart, err := repo.GetOrCreateCart(ctx, uuid.New())
	require.NoError(t, err)

	_, err = repo.AddCartItem(ctx, cart.ID, p.ID, 2000000000, p.Price)
	require.NoError(t, err)
	_, err = repo.AddCartItem(ctx, cart.ID, p.ID, 2000000000, p.Price)
	assert.ErrorIs(t, err, ErrValueOutOfRange)

	_, err = repo.SetCartItemQuantity(ctx, cart.ID, p.ID, 3000000000)
	assert.ErrorIs(t, err, ErrValueOutOfRange)

	lines, err := repo.ListCartLines(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 2000000000, lines[0].Quantity)
}

func TestPostgres_OrderAmountOverflow(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.CreateOrder(context.Background(), &model.Order{
		UserID:          uuid.New(),
		Items:           []model.OrderItem{{ProductID: uuid.New(), ProductName: "Milk", Quantity: 1, PriceAtOrder: decimal.NewFromInt(80), TotalPrice: decimal.NewFromInt(80)}},
		ShippingAddress: model.ShippingAddress{FullName: "Buyer", Phone: "9876543210", AddressLine1: "1 Road", City: "Pune", State: "MH", Pincode: "411001"},
		PaymentMethod:   model.PaymentMethodCOD,
		TotalAmount:     decimal.RequireFromString("10000000000000"),
	})
	assert.ErrorIs(t, err, ErrValueOutOfRange)
}

func TestPostgres_RemoveCartItemsKeepsOthers(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	ordered, err := repo.CreateProduct(ctx, &model.Product{Name: "Eggs", Price: decimal.NewFromInt(60), Stock: 5, IsActive: true})
	require.NoError(t, err)
	later, err := repo.CreateProduct(ctx, &model.Product{Name: "Butter", Price: decimal.NewFromInt(55), Stock: 5, IsActive: true})
	require.NoError(t, err)
	cart, err := repo.GetOrCreateCart(ctx, uuid.New())
	require.NoError(t, err)

	_, err = repo.AddCartItem(ctx, cart.ID, ordered.ID, 1, ordered.Price)
	require.NoError(t, err)
	_, err = repo.AddCartItem(ctx, cart.ID, later.ID, 1, later.Price)
	require.NoError(t, err)

	require.NoError(t, repo.RemoveCartItems(ctx, cart.ID, []uuid.UUID{ordered.ID}))

	lines, err := repo.ListCartLines(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, later.ID, lines[0].ProductID)
}

func TestPostgres_ListFeaturedProducts(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	inStock, err := repo.CreateProduct(ctx, &model.Product{Name: "Tea", Price: decimal.NewFromInt(120), Stock: 3, IsActive: true})
	require.NoError(t, err)
	soldOut, err := repo.CreateProduct(ctx, &model.Product{Name: "Coffee", Price: decimal.NewFromInt(300), Stock: 0, IsActive: true})
	require.NoError(t, err)

	got, err := repo.ListFeaturedProducts(ctx, 1000)
	require.NoError(t, err)

	ids := make(map[uuid.UUID]bool, len(got))
	for _, p := range got {
		ids[p.ID] = true
		assert.Positive(t, p.Stock)
		assert.True(t, p.IsActive)
	}
	assert.True(t, ids[inStock.ID])
	assert.False(t, ids[soldOut.ID])

	got, err = repo.ListFeaturedProducts(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
