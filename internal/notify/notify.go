// Package notify доставляет уведомления о заказах по принципу «отправил и забыл».
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Kind описывает тип уведомления.
type Kind string

const (
	KindOrderConfirmed   Kind = "order_confirmed"
	KindPaymentConfirmed Kind = "payment_confirmed"
)

// Message описывает уведомление покупателю о заказе.
type Message struct {
	Kind        Kind            `json:"kind"`
	OrderID     uuid.UUID       `json:"orderId"`
	Email       string          `json:"email,omitempty"`
	Name        string          `json:"name,omitempty"`
	Phone       string          `json:"phone,omitempty"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Sink доставляет уведомление во внешний канал.
type Sink interface {
	Send(ctx context.Context, msg Message) error
}

const sendTimeout = 10 * time.Second

// Dispatcher принимает уведомления без ожидания и доставляет их в фоне.
// Ошибки доставки только логируются.
type Dispatcher struct {
	sink   Sink
	logger *zap.Logger
	queue  chan Message
}

// NewDispatcher создаёт диспетчер с очередью указанного размера.
func NewDispatcher(sink Sink, logger *zap.Logger, size int) *Dispatcher {
	if size <= 0 {
		size = 256
	}
	return &Dispatcher{
		sink:   sink,
		logger: logger,
		queue:  make(chan Message, size),
	}
}

// Notify ставит уведомление в очередь. При переполнении очереди уведомление отбрасывается.
func (d *Dispatcher) Notify(msg Message) {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	select {
	case d.queue <- msg:
	default:
		d.logger.Warn("notification queue full, dropping message",
			zap.String("kind", string(msg.Kind)), zap.String("order_id", msg.OrderID.String()))
	}
}

// Run доставляет уведомления до отмены ctx, после чего отправляет уже накопленные.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return
		case msg := <-d.queue:
			d.deliver(ctx, msg)
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case msg := <-d.queue:
			d.deliver(context.Background(), msg)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, msg Message) {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := d.sink.Send(ctx, msg); err != nil {
		d.logger.Error("send notification failed",
			zap.Error(err), zap.String("kind", string(msg.Kind)), zap.String("order_id", msg.OrderID.String()))
	}
}

// LogSink пишет уведомления в лог. Используется, когда внешний канал не настроен.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink создаёт LogSink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Send записывает уведомление в лог.
func (s *LogSink) Send(ctx context.Context, msg Message) error {
	s.logger.Info("notification",
		zap.String("kind", string(msg.Kind)),
		zap.String("order_id", msg.OrderID.String()),
		zap.String("email", msg.Email),
		zap.String("phone", msg.Phone),
		zap.String("total", msg.TotalAmount.StringFixed(2)),
	)
	return nil
}
