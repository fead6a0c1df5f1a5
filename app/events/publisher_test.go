package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/vibast-solutions/ms-go-sponsorships/app/entity"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func testOrder() *entity.Order {
	userID := "user-7"
	return &entity.Order{
		OrderID:     "JY260101000000ABCDEF",
		UserID:      &userID,
		PackageCode: "vip",
		Provider:    "ecpay",
		Method:      "credit",
		Amount:      decimal.RequireFromString("599"),
		Currency:    "TWD",
		Status:      entity.OrderStatusPending,
	}
}

func TestNewOrderEventPayload(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	providerTxnID := "2601010000001234"
	txn := &entity.Transaction{TransactionID: "TXN20260101000000ABCDEFGH", ProviderTxnID: &providerTxnID}

	event, err := NewOrderEvent("evt-1", entity.OrderEventSettled, testOrder(), entity.OrderStatusPending, entity.OrderStatusCompleted, txn, "", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.DispatchStatus != entity.DispatchStatusPending || event.NextDispatchAt == nil {
		t.Fatalf("expected event due for dispatch, got %+v", event)
	}
	if event.OldStatus == nil || *event.OldStatus != entity.OrderStatusPending {
		t.Fatalf("unexpected old status %v", event.OldStatus)
	}

	var body OrderChanged
	if err := json.Unmarshal([]byte(event.PayloadJSON), &body); err != nil {
		t.Fatalf("payload is not json: %v", err)
	}
	if body.Amount != "599.00" || body.NewStatus != "completed" || body.UserID != "user-7" {
		t.Fatalf("unexpected payload %+v", body)
	}
	if body.TransactionID != txn.TransactionID || body.ProviderTxnID != providerTxnID {
		t.Fatalf("expected transaction ids in payload, got %+v", body)
	}
}

func TestKafkaPublisherKeysByOrderID(t *testing.T) {
	writer := &fakeWriter{}
	publisher := &KafkaPublisher{writer: writer}

	event, err := NewOrderEvent("evt-2", entity.OrderEventStatusChanged, testOrder(), entity.OrderStatusPending, entity.OrderStatusExpired, nil, "expired", time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := publisher.Publish(context.Background(), event); err != nil {
		t.Fatalf("unexpected publish error: %v", err)
	}

	if len(writer.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(writer.messages))
	}
	msg := writer.messages[0]
	if string(msg.Key) != event.OrderID {
		t.Fatalf("expected key %s, got %s", event.OrderID, msg.Key)
	}
	if string(msg.Value) != event.PayloadJSON {
		t.Fatalf("unexpected value %s", msg.Value)
	}
	if len(msg.Headers) != 2 || string(msg.Headers[1].Value) != entity.OrderEventStatusChanged {
		t.Fatalf("unexpected headers %+v", msg.Headers)
	}

	if err := publisher.Close(); err != nil || !writer.closed {
		t.Fatalf("expected writer to be closed")
	}
}

func TestKafkaPublisherReturnsWriteError(t *testing.T) {
	writer := &fakeWriter{err: errors.New("broker down")}
	publisher := &KafkaPublisher{writer: writer}

	err := publisher.Publish(context.Background(), &entity.OrderEvent{OrderID: "JY1"})
	if err == nil {
		t.Fatal("expected write error")
	}
}

func TestLogPublisher(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	publisher := NewLogPublisher(logger.WithField("module", "events"))

	if err := publisher.Publish(context.Background(), &entity.OrderEvent{EventID: "evt-3", OrderID: "JY1", EventType: entity.OrderEventSettled}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Message != "order_event" || entry.Data["order_id"] != "JY1" {
		t.Fatalf("unexpected log entry %+v", entry)
	}
	if entry.Level != logrus.InfoLevel {
		t.Fatalf("expected info level, got %s", entry.Level)
	}
}
