package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/grocerymart/internal/gateway"
	"github.com/mmeshcher/grocerymart/internal/model"
	"github.com/mmeshcher/grocerymart/internal/notify"
	"github.com/mmeshcher/grocerymart/internal/repository"
)

// GatewayVerification содержит идентификаторы, переданные клиентом после оплаты в виджете шлюза.
type GatewayVerification struct {
	OrderID         uuid.UUID
	ProviderOrderID string
	PaymentID       string
	Signature       string
}

// TryMarkPaid переводит заказ в paid. Все способы подтверждения оплаты сходятся здесь.
// Уведомление об оплате отправляется только при фактическом переходе pending -> paid.
func (s *Service) TryMarkPaid(ctx context.Context, id uuid.UUID) (model.MarkPaidResult, *model.Order, error) {
	result, order, err := s.repo.MarkOrderPaid(ctx, id)
	if err != nil {
		return result, nil, err
	}

	switch result {
	case model.MarkPaidNowPaid:
		s.logger.Info("order marked paid", zap.String("order_id", id.String()))
		s.notify(orderMessage(notify.KindPaymentConfirmed, order))
	case model.MarkPaidAlreadyPaid:
		s.logger.Debug("order already paid", zap.String("order_id", id.String()))
	}

	return result, order, nil
}

func (s *Service) markPaid(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	result, order, err := s.TryMarkPaid(ctx, id)
	if err != nil {
		return nil, err
	}
	if result == model.MarkPaidNotFound {
		return nil, orderNotFound(id)
	}
	return order, nil
}

// SetPaymentStatus вручную меняет статус оплаты заказа. Повторная установка paid ничего не меняет.
func (s *Service) SetPaymentStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown payment status %q", ErrInvalidInput, status)
	}

	if status == model.PaymentStatusPaid {
		return s.markPaid(ctx, id)
	}

	o, changed, err := s.repo.UpdatePaymentStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.Info("payment status changed",
			zap.String("order_id", id.String()),
			zap.String("payment_status", string(status)),
		)
	}

	return o, nil
}

// ConfirmUPI отмечает UPI-заказ оплаченным со слов плательщика.
func (s *Service) ConfirmUPI(ctx context.Context, caller model.Caller, id uuid.UUID, payerVPA string) (*model.Order, error) {
	o, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != caller.UserID {
		return nil, ErrForbidden
	}
	if o.PaymentMethod != model.PaymentMethodUPI {
		return nil, fmt.Errorf("%w: order is not paid by UPI", ErrInvalidInput)
	}

	s.logger.Info("UPI payment confirmed by payer",
		zap.String("order_id", id.String()),
		zap.String("user_id", caller.UserID.String()),
		zap.String("payer_vpa", payerVPA),
	)

	return s.markPaid(ctx, id)
}

// VerifyGatewayPayment проверяет подпись платежа, переданную клиентом, и отмечает заказ оплаченным.
func (s *Service) VerifyGatewayPayment(ctx context.Context, caller model.Caller, v GatewayVerification) (*model.Order, error) {
	if v.OrderID == uuid.Nil || v.ProviderOrderID == "" || v.PaymentID == "" || v.Signature == "" {
		return nil, ErrMissingParameters
	}

	var secret string
	if s.gateway != nil {
		secret = s.gateway.KeySecret()
	}

	if err := gateway.VerifyPayment(secret, v.ProviderOrderID, v.PaymentID, v.Signature); err != nil {
		s.logger.Warn("gateway payment signature rejected",
			zap.String("order_id", v.OrderID.String()),
			zap.String("user_id", caller.UserID.String()),
			zap.Error(err),
		)
		return nil, ErrInvalidSignature
	}

	o, err := s.repo.GetOrder(ctx, v.OrderID)
	if err != nil {
		return nil, err
	}
	if !canAccess(caller, o) {
		return nil, ErrForbidden
	}

	if o.GatewayOrderID != "" && o.GatewayOrderID != v.ProviderOrderID {
		s.logger.Warn("gateway order id does not match order",
			zap.String("order_id", v.OrderID.String()),
			zap.String("provider_order_id", v.ProviderOrderID),
		)
		return nil, ErrInvalidSignature
	}

	return s.markPaid(ctx, v.OrderID)
}

// HandleWebhook проверяет подпись события шлюза по сырому телу и отмечает заказ оплаченным.
// События без подтверждения оплаты и события о неизвестных заказах подтверждаются без изменений.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if err := gateway.VerifyWebhook(s.webhookSecret, body, signature); err != nil {
		s.logger.Warn("webhook signature rejected", zap.Error(err))
		return ErrInvalidSignature
	}

	event, err := gateway.ParseEvent(body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if !event.IsPaymentConfirmation() {
		s.logger.Debug("webhook event ignored", zap.String("event", event.Event))
		return nil
	}

	ref, ok := event.OrderReference()
	if !ok {
		s.logger.Warn("webhook event without order reference", zap.String("event", event.Event))
		return nil
	}

	id, err := uuid.Parse(ref)
	if err != nil {
		s.logger.Warn("webhook order reference is not an order id",
			zap.String("event", event.Event),
			zap.String("reference", ref),
		)
		return nil
	}

	result, _, err := s.TryMarkPaid(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			s.logger.Error("payment captured for order that cannot be paid",
				zap.String("order_id", id.String()),
				zap.Error(err),
			)
			return nil
		}
		return err
	}

	if result == model.MarkPaidNotFound {
		s.logger.Warn("webhook references unknown order", zap.String("order_id", id.String()))
	}

	return nil
}
