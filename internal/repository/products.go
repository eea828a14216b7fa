package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/grocerymart/internal/model"
)

const productColumns = `id, name, description, price, stock, category_id, image_url,
	expiry_date, near_expiry, discount_percent, is_active, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (*model.Product, error) {
	var p model.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CategoryID, &p.ImageURL,
		&p.ExpiryDate, &p.NearExpiry, &p.DiscountPercent, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectProducts(rows pgx.Rows) ([]model.Product, error) {
	defer rows.Close()

	var res []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		res = append(res, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateProduct сохраняет новый товар вместе с рассчитанными флагами истечения срока.
func (r *PostgresRepository) CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO products (name, description, price, stock, category_id, image_url,
		                       expiry_date, near_expiry, discount_percent, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+productColumns,
		p.Name, p.Description, p.Price, p.Stock, p.CategoryID, p.ImageURL,
		p.ExpiryDate, p.NearExpiry, p.DiscountPercent, p.IsActive,
	)

	created, err := scanProduct(row)
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}

	return created, nil
}

// UpdateProduct блокирует строку товара, применяет к ней mutate и сохраняет результат.
func (r *PostgresRepository) UpdateProduct(ctx context.Context, id uuid.UUID, mutate func(p *model.Product) error) (*model.Product, error) {
	var updated *model.Product

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		p, err := scanProduct(tx.QueryRow(ctx,
			`SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id,
		))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrProductNotFound
			}
			return fmt.Errorf("lock product: %w", err)
		}

		if err := mutate(p); err != nil {
			return err
		}

		updated, err = scanProduct(tx.QueryRow(ctx,
			`UPDATE products
			 SET name = $2, description = $3, price = $4, stock = $5, category_id = $6, image_url = $7,
			     expiry_date = $8, near_expiry = $9, discount_percent = $10, is_active = $11, updated_at = NOW()
			 WHERE id = $1
			 RETURNING `+productColumns,
			id, p.Name, p.Description, p.Price, p.Stock, p.CategoryID, p.ImageURL,
			p.ExpiryDate, p.NearExpiry, p.DiscountPercent, p.IsActive,
		))
		if err != nil {
			return fmt.Errorf("update product: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// GetProduct возвращает товар по идентификатору, включая деактивированные.
func (r *PostgresRepository) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return p, nil
}

// ListProducts возвращает активные товары, удовлетворяющие фильтру, начиная с новых.
func (r *PostgresRepository) ListProducts(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+`
		 FROM products
		 WHERE is_active
		   AND ($1::uuid IS NULL OR category_id = $1)
		   AND (NOT $2 OR near_expiry)
		   AND ($3 = '' OR name ILIKE '%' || $3 || '%')
		 ORDER BY created_at DESC`,
		filter.CategoryID, filter.NearExpiry, filter.Search,
	)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}

	return collectProducts(rows)
}

// ListNearExpiryProducts возвращает активные товары с истекающим сроком, начиная с ближайших.
func (r *PostgresRepository) ListNearExpiryProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+`
		 FROM products
		 WHERE is_active AND near_expiry
		 ORDER BY expiry_date`,
	)
	if err != nil {
		return nil, fmt.Errorf("select near-expiry products: %w", err)
	}

	return collectProducts(rows)
}

// ListFeaturedProducts возвращает самые новые активные товары в наличии.
func (r *PostgresRepository) ListFeaturedProducts(ctx context.Context, limit int) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+`
		 FROM products
		 WHERE is_active AND stock > 0
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select featured products: %w", err)
	}

	return collectProducts(rows)
}

// DeactivateProduct снимает товар с продажи без физического удаления.
func (r *PostgresRepository) DeactivateProduct(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE products SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("deactivate product: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FlagNearExpiry одним запросом помечает активные товары со сроком раньше before, ещё не помеченные.
// Повторный запуск безопасен: уже помеченные строки не попадают под условие.
func (r *PostgresRepository) FlagNearExpiry(ctx context.Context, before time.Time, discountPercent decimal.Decimal) (int64, error) {
	var affected int64

	err := r.withRetry(ctx, func() error {
		cmdTag, err := r.pool.Exec(ctx,
			`UPDATE products
			 SET near_expiry = TRUE, discount_percent = $2, updated_at = NOW()
			 WHERE is_active AND expiry_date < $1 AND NOT near_expiry`,
			before, discountPercent,
		)
		if err != nil {
			return err
		}
		affected = cmdTag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("flag near-expiry products: %w", err)
	}

	return affected, nil
}
