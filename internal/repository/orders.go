package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/grocerymart/internal/model"
)

const orderColumns = `id, user_id, items, shipping_address, status, payment_status, payment_method,
	total_amount, discount_amount, shipping_amount, COALESCE(gateway_order_id, ''),
	customer_email, customer_name, created_at, updated_at`

func scanOrder(row scanner) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.Items, &o.ShippingAddress, &o.Status, &o.PaymentStatus, &o.PaymentMethod,
		&o.TotalAmount, &o.DiscountAmount, &o.ShippingAmount, &o.GatewayOrderID,
		&o.CustomerEmail, &o.CustomerName, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOrder сохраняет заказ со снимком позиций в статусах pending.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o *model.Order) (*model.Order, error) {
	created, err := scanOrder(r.pool.QueryRow(ctx,
		`INSERT INTO orders (user_id, items, shipping_address, status, payment_status, payment_method,
		                     total_amount, discount_amount, shipping_amount, customer_email, customer_name)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING `+orderColumns,
		o.UserID, o.Items, o.ShippingAddress, model.OrderStatusPending, model.PaymentStatusPending, o.PaymentMethod,
		o.TotalAmount, o.DiscountAmount, o.ShippingAmount, o.CustomerEmail, o.CustomerName,
	))
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", outOfRange(err))
	}

	return created, nil
}

// GetOrder возвращает заказ по идентификатору.
func (r *PostgresRepository) GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	return o, nil
}

// ListOrders возвращает заказы пользователя или все заказы, если userID не задан.
func (r *PostgresRepository) ListOrders(ctx context.Context, userID *uuid.UUID) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+`
		 FROM orders
		 WHERE $1::uuid IS NULL OR user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

// SetGatewayOrderID сохраняет идентификатор заказа, выданный платёжным шлюзом.
func (r *PostgresRepository) SetGatewayOrderID(ctx context.Context, id uuid.UUID, gatewayOrderID string) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE orders SET gateway_order_id = $2, updated_at = NOW() WHERE id = $1`,
		id, gatewayOrderID,
	)
	if err != nil {
		return fmt.Errorf("set gateway order id: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// UpdateOrderStatus меняет статус исполнения под блокировкой строки. Повторная установка текущего
// статуса не является ошибкой и возвращает changed = false.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, to model.OrderStatus) (*model.Order, bool, error) {
	var (
		res     *model.Order
		changed bool
	)

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		current, err := lockOrder(ctx, tx, id)
		if err != nil {
			return err
		}

		if current.Status == to {
			res = current
			return nil
		}

		if !current.Status.CanTransitionTo(to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, to)
		}

		res, err = scanOrder(tx.QueryRow(ctx,
			`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING `+orderColumns,
			id, to,
		))
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}

		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return res, changed, nil
}

// UpdatePaymentStatus меняет статус оплаты под блокировкой строки по тем же правилам, что и UpdateOrderStatus.
func (r *PostgresRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, to model.PaymentStatus) (*model.Order, bool, error) {
	var (
		res     *model.Order
		changed bool
	)

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		current, err := lockOrder(ctx, tx, id)
		if err != nil {
			return err
		}

		if current.PaymentStatus == to {
			res = current
			return nil
		}

		if !current.PaymentStatus.CanTransitionTo(to) {
			return fmt.Errorf("%w: payment %s -> %s", ErrInvalidTransition, current.PaymentStatus, to)
		}

		res, err = scanOrder(tx.QueryRow(ctx,
			`UPDATE orders SET payment_status = $2, updated_at = NOW() WHERE id = $1 RETURNING `+orderColumns,
			id, to,
		))
		if err != nil {
			return fmt.Errorf("update payment status: %w", err)
		}

		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return res, changed, nil
}

// MarkOrderPaid атомарно переводит заказ из pending в paid. Для уже оплаченного заказа возвращает
// MarkPaidAlreadyPaid без изменений, для отклонённого возвращает ErrInvalidTransition.
func (r *PostgresRepository) MarkOrderPaid(ctx context.Context, id uuid.UUID) (model.MarkPaidResult, *model.Order, error) {
	var (
		result model.MarkPaidResult
		order  *model.Order
	)

	err := r.withRetry(ctx, func() error {
		o, err := scanOrder(r.pool.QueryRow(ctx,
			`UPDATE orders SET payment_status = $2, updated_at = NOW()
			 WHERE id = $1 AND payment_status = $3
			 RETURNING `+orderColumns,
			id, model.PaymentStatusPaid, model.PaymentStatusPending,
		))
		if err == nil {
			result, order = model.MarkPaidNowPaid, o
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("mark order paid: %w", err)
		}

		o, err = r.GetOrder(ctx, id)
		if err != nil {
			if errors.Is(err, ErrOrderNotFound) {
				result, order = model.MarkPaidNotFound, nil
				return nil
			}
			return err
		}

		if o.PaymentStatus == model.PaymentStatusPaid {
			result, order = model.MarkPaidAlreadyPaid, o
			return nil
		}

		return fmt.Errorf("%w: payment %s -> %s", ErrInvalidTransition, o.PaymentStatus, model.PaymentStatusPaid)
	})
	if err != nil {
		return model.MarkPaidNotFound, nil, err
	}

	return result, order, nil
}

func lockOrder(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	o, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}
	return o, nil
}
