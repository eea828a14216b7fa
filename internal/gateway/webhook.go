package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	EventPaymentCaptured = "payment.captured"
	EventOrderPaid       = "order.paid"
)

// orderRefKeys перечисляет ключи notes, в которых шлюз возвращает наш идентификатор заказа, в порядке приоритета.
var orderRefKeys = []string{"order_id", "orderId", "order"}

// Notes содержит произвольные метки сущности шлюза. Пустые notes шлюз присылает массивом.
type Notes map[string]string

// UnmarshalJSON принимает как объект, так и пустой массив.
func (n *Notes) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		*n = Notes{}
		return nil
	}

	var raw map[string]any
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}

	out := make(Notes, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[k] = val
		case nil:
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	*n = out
	return nil
}

// Entity описывает платёж или заказ внутри события шлюза.
type Entity struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Notes   Notes  `json:"notes"`
}

type entityWrapper struct {
	Entity Entity `json:"entity"`
}

// Event описывает конверт события вебхука.
type Event struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *entityWrapper `json:"payment"`
		Order   *entityWrapper `json:"order"`
	} `json:"payload"`
}

// ParseEvent разбирает тело вебхука.
func ParseEvent(body []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(body, &e); err != nil {
		return nil, fmt.Errorf("decode webhook event: %w", err)
	}
	return &e, nil
}

// IsPaymentConfirmation сообщает, подтверждает ли событие получение денег.
func (e *Event) IsPaymentConfirmation() bool {
	return e.Event == EventPaymentCaptured || e.Event == EventOrderPaid
}

// OrderReference возвращает наш идентификатор заказа из notes события.
func (e *Event) OrderReference() (string, bool) {
	var candidates []*entityWrapper
	switch e.Event {
	case EventOrderPaid:
		candidates = []*entityWrapper{e.Payload.Order, e.Payload.Payment}
	default:
		candidates = []*entityWrapper{e.Payload.Payment, e.Payload.Order}
	}

	for _, c := range candidates {
		if c == nil {
			continue
		}
		for _, key := range orderRefKeys {
			if ref := c.Entity.Notes[key]; ref != "" {
				return ref, true
			}
		}
	}

	return "", false
}
