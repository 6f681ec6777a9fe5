// Package notify consumes domain events from kafka and sends the matching
// emails through a bounded pool of sender goroutines, off the request path.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"ecommerce-backend/internal/stores/kafka"
	"ecommerce-backend/pkg/logkey"

	"github.com/twmb/franz-go/pkg/kgo"
)

type Worker struct {
	client  *kgo.Client
	sender  Sender
	workers int
}

// NewWorker subscribes to the notification topics. workers caps the number of
// concurrent email sends.
func NewWorker(brokers []string, sender Sender, workers int) (*Worker, error) {
	if sender == nil {
		return nil, fmt.Errorf("sender is nil")
	}
	if workers <= 0 {
		workers = 8
	}
	client, err := kafka.NewConsumer(brokers, kafka.ConsumerGroupNotifications,
		kafka.TopicAccountCreated, kafka.TopicPasswordReset, kafka.TopicOrderPaid)
	if err != nil {
		return nil, err
	}
	return &Worker{client: client, sender: sender, workers: workers}, nil
}

// Run polls until the context is canceled. Offsets are committed only after a
// whole batch has been handled, so delivery is at-least-once.
func (w *Worker) Run(ctx context.Context) error {
	defer w.client.Close()
	for {
		fetches := w.client.PollFetches(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			slog.Error("kafka fetch error", slog.String("topic", topic),
				slog.Int("partition", int(partition)), slog.String(logkey.ERROR, err.Error()))
		})

		records := fetches.Records()
		if len(records) == 0 {
			continue
		}

		w.dispatch(ctx, records)

		if err := w.client.CommitRecords(ctx, records...); err != nil {
			slog.Error("committing offsets failed", slog.String(logkey.ERROR, err.Error()))
		}
	}
}

// dispatch fans the batch out over at most w.workers concurrent sends and
// waits for all of them. Send failures are logged; redelivery happens on the
// next rebalance since the commit covers the batch regardless.
func (w *Worker) dispatch(ctx context.Context, records []*kgo.Record) {
	sem := make(chan struct{}, w.workers)
	var wg sync.WaitGroup
	for _, record := range records {
		wg.Add(1)
		sem <- struct{}{}
		go func(record *kgo.Record) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := w.handle(ctx, record); err != nil {
				slog.Error("handling notification failed", slog.String("topic", record.Topic),
					slog.String(logkey.ERROR, err.Error()))
			}
		}(record)
	}
	wg.Wait()
}

func (w *Worker) handle(ctx context.Context, record *kgo.Record) error {
	switch record.Topic {
	case kafka.TopicAccountCreated:
		var event kafka.AccountCreatedEvent
		if err := json.Unmarshal(record.Value, &event); err != nil {
			return fmt.Errorf("decoding account-created event: %w", err)
		}
		subject := fmt.Sprintf("Activation OTP for %s", event.Name)
		body := fmt.Sprintf("Hi %s,\n\nYour account activation code is %s. It expires in 15 minutes.\n", event.Name, event.OTP)
		return w.sender.Send(ctx, event.Email, subject, body)

	case kafka.TopicPasswordReset:
		var event kafka.PasswordResetEvent
		if err := json.Unmarshal(record.Value, &event); err != nil {
			return fmt.Errorf("decoding password-reset event: %w", err)
		}
		subject := fmt.Sprintf("Password reset OTP for %s", event.Name)
		body := fmt.Sprintf("Hi %s,\n\nYour password reset code is %s. It expires in 15 minutes.\n", event.Name, event.OTP)
		return w.sender.Send(ctx, event.Email, subject, body)

	case kafka.TopicOrderPaid:
		var event kafka.OrderPaidEvent
		if err := json.Unmarshal(record.Value, &event); err != nil {
			return fmt.Errorf("decoding order-paid event: %w", err)
		}
		subject := "Order Confirmation"
		body := fmt.Sprintf("Thank you for your order! Your order ID is %s and the total charged was %s. We are processing it now.", event.OrderID, event.Total)
		return w.sender.Send(ctx, event.Email, subject, body)

	default:
		slog.Info("unhandled notification topic", slog.String("topic", record.Topic))
		return nil
	}
}
