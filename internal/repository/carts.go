package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/grocerymart/internal/model"
)

const cartItemColumns = `id, cart_id, product_id, quantity, price_at_add, created_at`

func scanCartItem(row scanner) (*model.CartItem, error) {
	var it model.CartItem
	if err := row.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity, &it.PriceAtAdd, &it.CreatedAt); err != nil {
		return nil, err
	}
	return &it, nil
}

// GetOrCreateCart возвращает корзину пользователя, создавая её при первом обращении.
func (r *PostgresRepository) GetOrCreateCart(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	var c model.Cart
	err := r.pool.QueryRow(ctx,
		`INSERT INTO carts (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		 RETURNING id, user_id, created_at`,
		userID,
	).Scan(&c.ID, &c.UserID, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get or create cart: %w", err)
	}

	return &c, nil
}

// AddCartItem добавляет товар в корзину. Если товар уже есть, увеличивает количество,
// не меняя зафиксированную цену.
func (r *PostgresRepository) AddCartItem(ctx context.Context, cartID, productID uuid.UUID, quantity int, price decimal.Decimal) (*model.CartItem, error) {
	it, err := scanCartItem(r.pool.QueryRow(ctx,
		`INSERT INTO cart_items (cart_id, product_id, quantity, price_at_add)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (cart_id, product_id)
		 DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		 RETURNING `+cartItemColumns,
		cartID, productID, quantity, price,
	))
	if err != nil {
		return nil, fmt.Errorf("upsert cart item: %w", outOfRange(err))
	}

	return it, nil
}

// SetCartItemQuantity устанавливает количество товара в корзине.
func (r *PostgresRepository) SetCartItemQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*model.CartItem, error) {
	it, err := scanCartItem(r.pool.QueryRow(ctx,
		`UPDATE cart_items SET quantity = $3
		 WHERE cart_id = $1 AND product_id = $2
		 RETURNING `+cartItemColumns,
		cartID, productID, quantity,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("update cart item: %w", outOfRange(err))
	}

	return it, nil
}

// RemoveCartItem удаляет товар из корзины и сообщает, был ли он там.
func (r *PostgresRepository) RemoveCartItem(ctx context.Context, cartID, productID uuid.UUID) (bool, error) {
	cmdTag, err := r.pool.Exec(ctx,
		`DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`,
		cartID, productID,
	)
	if err != nil {
		return false, fmt.Errorf("delete cart item: %w", err)
	}

	return cmdTag.RowsAffected() > 0, nil
}

// ClearCart удаляет все позиции корзины.
func (r *PostgresRepository) ClearCart(ctx context.Context, cartID uuid.UUID) error {
	return r.withRetry(ctx, func() error {
		if _, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		return nil
	})
}

// RemoveCartItems удаляет из корзины перечисленные товары. Остальные позиции остаются.
func (r *PostgresRepository) RemoveCartItems(ctx context.Context, cartID uuid.UUID, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}

	return r.withRetry(ctx, func() error {
		if _, err := r.pool.Exec(ctx,
			`DELETE FROM cart_items WHERE cart_id = $1 AND product_id = ANY($2)`,
			cartID, productIDs,
		); err != nil {
			return fmt.Errorf("delete ordered cart items: %w", err)
		}
		return nil
	})
}

// ListCartLines возвращает позиции корзины вместе с текущим состоянием товаров.
func (r *PostgresRepository) ListCartLines(ctx context.Context, cartID uuid.UUID) ([]model.CartLine, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.price_at_add, ci.created_at,
		        p.id, p.name, p.description, p.price, p.stock, p.category_id, p.image_url,
		        p.expiry_date, p.near_expiry, p.discount_percent, p.is_active, p.created_at, p.updated_at
		 FROM cart_items ci
		 JOIN products p ON p.id = ci.product_id
		 WHERE ci.cart_id = $1
		 ORDER BY ci.created_at`,
		cartID,
	)
	if err != nil {
		return nil, fmt.Errorf("select cart items: %w", err)
	}
	defer rows.Close()

	var lines []model.CartLine
	for rows.Next() {
		var l model.CartLine
		p := &l.Product
		err := rows.Scan(
			&l.ID, &l.CartID, &l.ProductID, &l.Quantity, &l.PriceAtAdd, &l.CreatedAt,
			&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CategoryID, &p.ImageURL,
			&p.ExpiryDate, &p.NearExpiry, &p.DiscountPercent, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		lines = append(lines, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return lines, nil
}
