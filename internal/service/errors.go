package service

import (
	"errors"

	"github.com/mmeshcher/grocerymart/internal/repository"
)

var (
	// ErrInvalidQuantity возвращается, если количество товара вне допустимого диапазона.
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 10000")
	// ErrEmptyCart возвращается при оформлении заказа из пустой корзины.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrCartMismatch возвращается, если позиции заказа не совпадают с корзиной.
	ErrCartMismatch = errors.New("order items do not match cart")
	// ErrInvalidSignature возвращается при неверной подписи шлюза.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrMissingParameters возвращается, если в запросе подтверждения не хватает параметров.
	ErrMissingParameters = errors.New("missing required parameters")
	// ErrForbidden возвращается, если заказ принадлежит другому пользователю.
	ErrForbidden = errors.New("access denied")
	// ErrInvalidInput возвращается при нарушении бизнес-правил входных данных.
	ErrInvalidInput = errors.New("invalid input")

	ErrInvalidTransition = repository.ErrInvalidTransition
)
