package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultQueue задаёт ключ списка Redis, из которого внешний отправщик писем и SMS забирает уведомления.
const DefaultQueue = "notifications"

// RedisSink публикует уведомления в список Redis.
type RedisSink struct {
	client *redis.Client
	key    string
}

// NewRedisSink подключается к Redis и проверяет соединение.
func NewRedisSink(addr, password, key string) (*RedisSink, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address is empty")
	}
	if key == "" {
		key = DefaultQueue
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisSink{client: client, key: key}, nil
}

// Send добавляет уведомление в конец очереди.
func (s *RedisSink) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	if err := s.client.RPush(ctx, s.key, payload).Err(); err != nil {
		return fmt.Errorf("push notification: %w", err)
	}

	return nil
}

// Close закрывает соединение с Redis.
func (s *RedisSink) Close() error {
	return s.client.Close()
}
