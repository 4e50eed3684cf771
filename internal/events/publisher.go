package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"avoska/internal/service"
)

// Publisher отправляет события stock.changed в очередь через пул каналов
type Publisher struct {
	pool      *ChannelPool
	queueName string
}

func NewPublisher(pool *ChannelPool, queueName string) *Publisher {
	return &Publisher{pool: pool, queueName: queueName}
}

var _ service.EventPublisher = (*Publisher)(nil)

// PublishStockChanged публикует изменение остатка как persistent JSON-сообщение
func (p *Publisher) PublishStockChanged(ctx context.Context, ev service.StockChange) error {
	ch, err := p.pool.GetChannel()
	if err != nil {
		return fmt.Errorf("failed to get channel from pool: %w", err)
	}
	defer p.pool.ReturnChannel(ch)

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal stock change: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = ch.PublishWithContext(ctx,
		"",          // exchange
		p.queueName, // routing key (queue name)
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish stock change: %w", err)
	}
	return nil
}
