package notify

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ecommerce-backend/internal/stores/kafka"

	"github.com/twmb/franz-go/pkg/kgo"
)

type recordingSender struct {
	mu       sync.Mutex
	sent     []string
	inFlight atomic.Int64
	peak     atomic.Int64
	delay    time.Duration
}

func (s *recordingSender) Send(_ context.Context, to, subject, body string) error {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	s.sent = append(s.sent, to+"|"+subject+"|"+body)
	s.mu.Unlock()
	return nil
}

func orderPaidRecord(t *testing.T, orderID string) *kgo.Record {
	t.Helper()
	value, err := json.Marshal(kafka.OrderPaidEvent{
		OrderID:    orderID,
		UserID:     "u1",
		Email:      "u1@example.com",
		Total:      "25.50",
		PaymentRef: "pi_123",
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("marshaling event: %v", err)
	}
	return &kgo.Record{Topic: kafka.TopicOrderPaid, Value: value}
}

// dispatch must never run more sends at once than the worker cap.
func TestDispatch_BoundedConcurrency(t *testing.T) {
	sender := &recordingSender{delay: 5 * time.Millisecond}
	w := &Worker{sender: sender, workers: 3}

	var records []*kgo.Record
	for i := 0; i < 20; i++ {
		records = append(records, orderPaidRecord(t, "o1"))
	}

	w.dispatch(context.Background(), records)

	if got := len(sender.sent); got != 20 {
		t.Fatalf("expected 20 sends, got %d", got)
	}
	if peak := sender.peak.Load(); peak > 3 {
		t.Fatalf("concurrency cap breached: peak %d > 3", peak)
	}
}

func TestHandle_OrderPaid(t *testing.T) {
	sender := &recordingSender{}
	w := &Worker{sender: sender, workers: 1}

	if err := w.handle(context.Background(), orderPaidRecord(t, "o-77")); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one send, got %d", len(sender.sent))
	}
	mail := sender.sent[0]
	if !strings.HasPrefix(mail, "u1@example.com|") {
		t.Fatalf("unexpected recipient in %q", mail)
	}
	if !strings.Contains(mail, "o-77") || !strings.Contains(mail, "25.50") {
		t.Fatalf("confirmation must mention order and total, got %q", mail)
	}
}

func TestHandle_AccountCreated(t *testing.T) {
	sender := &recordingSender{}
	w := &Worker{sender: sender, workers: 1}

	value, err := json.Marshal(kafka.AccountCreatedEvent{
		UserID:    "u1",
		Name:      "Asha",
		Email:     "asha@example.com",
		OTP:       "123456",
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("marshaling event: %v", err)
	}

	record := &kgo.Record{Topic: kafka.TopicAccountCreated, Value: value}
	if err := w.handle(context.Background(), record); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if len(sender.sent) != 1 || !strings.Contains(sender.sent[0], "123456") {
		t.Fatalf("activation email must carry the OTP, got %v", sender.sent)
	}
}

func TestHandle_MalformedEvent(t *testing.T) {
	sender := &recordingSender{}
	w := &Worker{sender: sender, workers: 1}

	record := &kgo.Record{Topic: kafka.TopicOrderPaid, Value: []byte("{not json")}
	if err := w.handle(context.Background(), record); err == nil {
		t.Fatal("expected decode error for malformed event")
	}
	if len(sender.sent) != 0 {
		t.Fatalf("malformed event must not send mail, got %v", sender.sent)
	}
}

func TestHandle_UnknownTopicIgnored(t *testing.T) {
	sender := &recordingSender{}
	w := &Worker{sender: sender, workers: 1}

	record := &kgo.Record{Topic: "users.unrelated", Value: []byte("{}")}
	if err := w.handle(context.Background(), record); err != nil {
		t.Fatalf("unknown topic must be skipped without error, got %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("unknown topic must not send mail, got %v", sender.sent)
	}
}
