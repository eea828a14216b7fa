package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmeshcher/grocerymart/internal/model"
	"github.com/mmeshcher/grocerymart/internal/repository"
)

// GetCart возвращает корзину пользователя вместе с позициями, создавая её при первом обращении.
func (s *Service) GetCart(ctx context.Context, userID uuid.UUID) (*model.CartView, error) {
	cart, err := s.repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	lines, err := s.repo.ListCartLines(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	if lines == nil {
		lines = []model.CartLine{}
	}

	return &model.CartView{Cart: *cart, Items: lines}, nil
}

// AddToCart добавляет товар в корзину по действующей цене. Если товар уже есть в корзине,
// увеличивается только количество, зафиксированная цена остаётся прежней.
func (s *Service) AddToCart(ctx context.Context, userID, productID uuid.UUID, quantity int) (*model.CartItem, error) {
	if quantity < 1 || quantity > model.MaxItemQuantity {
		return nil, ErrInvalidQuantity
	}

	p, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, repository.ErrProductNotFound
	}

	cart, err := s.repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.repo.AddCartItem(ctx, cart.ID, productID, quantity, p.EffectivePrice())
}

// UpdateCartItem устанавливает количество позиции без пересчёта цены.
// Количество меньше единицы удаляет позицию, тогда возвращается nil.
func (s *Service) UpdateCartItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*model.CartItem, error) {
	if quantity > model.MaxItemQuantity {
		return nil, ErrInvalidQuantity
	}

	cart, err := s.repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if quantity <= 0 {
		if _, err := s.repo.RemoveCartItem(ctx, cart.ID, productID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return s.repo.SetCartItemQuantity(ctx, cart.ID, productID, quantity)
}

// RemoveFromCart удаляет позицию из корзины.
func (s *Service) RemoveFromCart(ctx context.Context, userID, productID uuid.UUID) error {
	cart, err := s.repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return err
	}

	removed, err := s.repo.RemoveCartItem(ctx, cart.ID, productID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("remove %s: %w", productID, repository.ErrCartItemNotFound)
	}

	return nil
}

// ClearCart удаляет все позиции корзины.
func (s *Service) ClearCart(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return err
	}
	return s.repo.ClearCart(ctx, cart.ID)
}
