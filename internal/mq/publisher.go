package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shaiso/Conveyor/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeExecutionPending MessageType = "execution.pending"
	MessageTypeExecutionCancel  MessageType = "execution.cancel"
)

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// ExecutionPendingPayload — payload события о новом execution.
type ExecutionPendingPayload struct {
	ExecutionID uuid.UUID     `json:"execution_id"`
	WorkflowID  uuid.UUID     `json:"workflow_id"`
	Principal   string        `json:"principal,omitempty"`
	Seed        []domain.Item `json:"seed,omitempty"`
}

// ExecutionCancelPayload — payload запроса отмены execution.
type ExecutionCancelPayload struct {
	ExecutionID uuid.UUID `json:"execution_id"`
}

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),
			string(routingKey),
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishExecutionPending публикует событие о новом execution,
// ожидающем выполнения. Потребитель: движок выполнения.
func (p *Publisher) PublishExecutionPending(ctx context.Context, payload ExecutionPendingPayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeExecutionPending,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	return p.Publish(ctx, ExchangeExecutions, RoutingKeyPending, msg)
}

// PublishExecutionCancel рассылает запрос отмены всем экземплярам движка.
func (p *Publisher) PublishExecutionCancel(ctx context.Context, executionID uuid.UUID) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeExecutionCancel,
		Payload:   ExecutionCancelPayload{ExecutionID: executionID},
		Timestamp: time.Now(),
	}
	return p.Publish(ctx, ExchangeCancel, "", msg)
}
