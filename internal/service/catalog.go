package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/grocerymart/internal/model"
	"github.com/mmeshcher/grocerymart/internal/repository"
)

// ProductInput содержит редактируемые пользователем поля товара.
// Флаги истечения срока сюда не входят: их выставляет только классификатор.
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	CategoryID  *uuid.UUID
	ImageURL    string
	ExpiryDate  *time.Time
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	if in.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidInput)
	}
	return nil
}

func (in ProductInput) apply(p *model.Product) {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Price = in.Price
	p.Stock = in.Stock
	p.CategoryID = in.CategoryID
	p.ImageURL = in.ImageURL
	p.ExpiryDate = in.ExpiryDate
}

func (s *Service) classify(p *model.Product) {
	c := s.policy.Classify(p.ExpiryDate, s.now())
	p.NearExpiry = c.NearExpiry
	p.DiscountPercent = c.DiscountPercent
}

// CreateProduct создаёт товар и сразу классифицирует его по сроку годности.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*model.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	p := &model.Product{IsActive: true}
	in.apply(p)
	s.classify(p)

	created, err := s.repo.CreateProduct(ctx, p)
	if err != nil {
		return nil, err
	}

	s.logger.Info("product created",
		zap.String("product_id", created.ID.String()),
		zap.Bool("near_expiry", created.NearExpiry),
	)

	return created, nil
}

// UpdateProduct заменяет редактируемые поля товара и переклассифицирует его в обе стороны.
func (s *Service) UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*model.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	return s.repo.UpdateProduct(ctx, id, func(p *model.Product) error {
		if !p.IsActive {
			return repository.ErrProductNotFound
		}
		in.apply(p)
		s.classify(p)
		return nil
	})
}

// DeactivateProduct снимает товар с продажи.
func (s *Service) DeactivateProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeactivateProduct(ctx, id); err != nil {
		return err
	}

	s.logger.Info("product deactivated", zap.String("product_id", id.String()))
	return nil
}

// GetProduct возвращает активный товар.
func (s *Service) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, repository.ErrProductNotFound
	}
	return p, nil
}

// ListProducts возвращает активные товары по фильтру.
func (s *Service) ListProducts(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	return s.repo.ListProducts(ctx, filter)
}

// FeaturedLimit задаёт размер витрины новинок.
const FeaturedLimit = 8

// ListFeaturedProducts возвращает витрину: новые активные товары в наличии.
func (s *Service) ListFeaturedProducts(ctx context.Context) ([]model.Product, error) {
	return s.repo.ListFeaturedProducts(ctx, FeaturedLimit)
}

// ListNearExpiryProducts возвращает товары с истекающим сроком годности.
func (s *Service) ListNearExpiryProducts(ctx context.Context) ([]model.Product, error) {
	return s.repo.ListNearExpiryProducts(ctx)
}
