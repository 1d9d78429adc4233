package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	// ExchangeExecutions — события executions (direct).
	ExchangeExecutions Exchange = "conveyor.executions"

	// ExchangeCancel — запросы отмены (fanout: отмену должен увидеть
	// каждый экземпляр движка, execution может жить в любом из них).
	ExchangeCancel Exchange = "conveyor.cancel"

	// ExchangeDLQ — dead letter queue.
	ExchangeDLQ Exchange = "conveyor.dlq"
)

// Queues — имена очередей.
const (
	// QueueExecutionsPending — executions, ожидающие выполнения.
	QueueExecutionsPending Queue = "executions.pending"

	// QueueDLQExecutions — необработанные сообщения executions.
	QueueDLQExecutions Queue = "dlq.executions"
)

// Routing keys.
const (
	RoutingKeyPending       RoutingKey = "pending"
	RoutingKeyDLQExecutions RoutingKey = "executions"
)

// SetupTopology объявляет обменники, очереди и привязки.
// Идемпотентна: повторный вызов на готовой топологии безопасен.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareExchanges(ch); err != nil {
			return err
		}
		if err := declareQueues(ch); err != nil {
			return err
		}
		return bindQueues(ch)
	})
}

// DeclareCancelQueue создаёт эксклюзивную очередь текущего экземпляра
// движка и привязывает её к fanout-обменнику отмен. Очередь живёт,
// пока живо соединение.
func DeclareCancelQueue(ctx context.Context, conn *Connection) (string, error) {
	var name string
	err := conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		q, err := ch.QueueDeclare(
			"",    // auto-generated name
			false, // durable
			true,  // delete when unused
			true,  // exclusive
			false, // no-wait
			nil,
		)
		if err != nil {
			return fmt.Errorf("declare cancel queue: %w", err)
		}
		if err := ch.QueueBind(q.Name, "", string(ExchangeCancel), false, nil); err != nil {
			return fmt.Errorf("bind cancel queue: %w", err)
		}
		name = q.Name
		return nil
	})
	return name, err
}

// declareExchanges создаёт обменники.
func declareExchanges(ch *amqp.Channel) error {
	exchanges := []struct {
		name Exchange
		kind string
	}{
		{ExchangeExecutions, "direct"},
		{ExchangeCancel, "fanout"},
		{ExchangeDLQ, "direct"},
	}

	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name),
			ex.kind,
			true,  // durable
			false, // auto-deleted
			false, // internal
			false, // no-wait
			nil,
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}
	return nil
}

// declareQueues создаёт очереди.
func declareQueues(ch *amqp.Channel) error {
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQExecutions),
	}

	queues := []struct {
		name Queue
		args amqp.Table
	}{
		// Исполнение запускается один раз; битые сообщения уходят в DLQ.
		{QueueExecutionsPending, dlqArgs},
		{QueueDLQExecutions, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name),
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			q.args,
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}
	return nil
}

// bindQueues привязывает очереди к обменникам.
func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueueExecutionsPending, RoutingKeyPending, ExchangeExecutions},
		{QueueDLQExecutions, RoutingKeyDLQExecutions, ExchangeDLQ},
	}

	for _, b := range bindings {
		err := ch.QueueBind(
			string(b.queue),
			string(b.routingKey),
			string(b.exchange),
			false,
			nil,
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}
	return nil
}
