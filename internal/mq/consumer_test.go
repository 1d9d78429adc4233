package mq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAcknowledger считает подтверждения доставки.
type fakeAcknowledger struct {
	acks     int
	nacks    int
	requeues []bool
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.acks++
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.nacks++
	a.requeues = append(a.requeues, requeue)
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	a.nacks++
	a.requeues = append(a.requeues, requeue)
	return nil
}

func (a *fakeAcknowledger) settlements() int {
	return a.acks + a.nacks
}

func rawDelivery(ack *fakeAcknowledger, body string) amqp.Delivery {
	return amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  1,
		Body:         []byte(body),
	}
}

const validBody = `{"id":"m1","type":"execution.cancel","payload":{}}`

func TestConsumer_SuccessSettlesExactlyOnce(t *testing.T) {
	ack := &fakeAcknowledger{}
	c := NewConsumer(nil, testLogger(), ConsumerConfig{
		Queue: "q",
		Handler: func(context.Context, *Delivery) error {
			return nil
		},
	})

	c.handleDelivery(context.Background(), rawDelivery(ack, validBody))

	if ack.acks != 1 || ack.nacks != 0 {
		t.Errorf("acks=%d nacks=%d, want single ack", ack.acks, ack.nacks)
	}
}

func TestConsumer_DeadLetterErrorSettlesOnceWithoutRequeue(t *testing.T) {
	ack := &fakeAcknowledger{}
	c := NewConsumer(nil, testLogger(), ConsumerConfig{
		Queue: "q",
		Handler: func(context.Context, *Delivery) error {
			return fmt.Errorf("%w: bad payload", ErrDeadLetter)
		},
	})

	c.handleDelivery(context.Background(), rawDelivery(ack, validBody))

	if got := ack.settlements(); got != 1 {
		t.Fatalf("delivery settled %d times (acks=%d nacks=%d), want exactly once",
			got, ack.acks, ack.nacks)
	}
	if ack.nacks != 1 || ack.requeues[0] {
		t.Errorf("dead letter must be nacked without requeue, got acks=%d requeues=%v",
			ack.acks, ack.requeues)
	}
}

func TestConsumer_HandlerErrorRequeues(t *testing.T) {
	ack := &fakeAcknowledger{}
	c := NewConsumer(nil, testLogger(), ConsumerConfig{
		Queue: "q",
		Handler: func(context.Context, *Delivery) error {
			return errors.New("transient")
		},
	})

	c.handleDelivery(context.Background(), rawDelivery(ack, validBody))

	if ack.nacks != 1 || !ack.requeues[0] {
		t.Errorf("transient failure must requeue, got nacks=%d requeues=%v",
			ack.nacks, ack.requeues)
	}
	if got := ack.settlements(); got != 1 {
		t.Errorf("delivery settled %d times, want exactly once", got)
	}
}

func TestConsumer_MalformedBodyGoesToDLQ(t *testing.T) {
	ack := &fakeAcknowledger{}
	called := false
	c := NewConsumer(nil, testLogger(), ConsumerConfig{
		Queue: "q",
		Handler: func(context.Context, *Delivery) error {
			called = true
			return nil
		},
	})

	c.handleDelivery(context.Background(), rawDelivery(ack, "{not json"))

	if called {
		t.Error("handler must not run for a malformed message")
	}
	if ack.nacks != 1 || ack.requeues[0] {
		t.Errorf("malformed message must be nacked without requeue, got nacks=%d requeues=%v",
			ack.nacks, ack.requeues)
	}
}

func TestConsumer_SetupRunsOnEverySubscribe(t *testing.T) {
	declared := 0
	c := NewConsumer(&Connection{}, testLogger(), ConsumerConfig{
		Setup: func(context.Context) (string, error) {
			declared++
			return fmt.Sprintf("cancel.auto.%d", declared), nil
		},
		Handler: func(context.Context, *Delivery) error { return nil },
	})

	// Соединение без канала: подписка не состоится, но очередь
	// должна быть объявлена заново при каждой попытке.
	for i := 0; i < 2; i++ {
		if _, err := c.setupConsume(context.Background()); err == nil {
			t.Fatal("expected setup to fail without a live channel")
		}
	}

	if declared != 2 {
		t.Errorf("queue declared %d times over 2 subscribes, want 2", declared)
	}
	if c.queue != "cancel.auto.2" {
		t.Errorf("consumer queue = %q, want the freshly declared name", c.queue)
	}
}

func TestConsumer_SetupErrorStopsSubscribe(t *testing.T) {
	c := NewConsumer(&Connection{}, testLogger(), ConsumerConfig{
		Setup: func(context.Context) (string, error) {
			return "", errors.New("broker gone")
		},
		Handler: func(context.Context, *Delivery) error { return nil },
	})

	_, err := c.setupConsume(context.Background())
	if err == nil || !strings.Contains(err.Error(), "broker gone") {
		t.Errorf("setup error must propagate, got %v", err)
	}
}
