package events

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	var received *Event
	var callCount int

	handler := func(event *Event) error {
		received = event
		callCount++
		return nil
	}

	bus.Subscribe("test_event", handler)

	payload := map[string]string{"foo": "bar"}
	err := bus.PublishJSON("test_event", payload)
	if err != nil {
		t.Fatalf("PublishJSON failed: %v", err)
	}

	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}

	if received.Type != "test_event" {
		t.Errorf("expected type test_event, got %s", received.Type)
	}

	var decoded map[string]string
	if err := json.Unmarshal(received.Payload, &decoded); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}

	if decoded["foo"] != "bar" {
		t.Errorf("expected foo=bar, got %s", decoded["foo"])
	}
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()
	var count1, count2 int

	bus.Subscribe("event", func(_ *Event) error { count1++; return nil })
	bus.Subscribe("event", func(_ *Event) error { count2++; return nil })

	bus.Publish(&Event{Type: "event"})

	if count1 != 1 || count2 != 1 {
		t.Errorf("expected both handlers to be called once, got %d and %d", count1, count2)
	}
}

func TestEventBusNoSubscribers(t *testing.T) {
	bus := NewEventBus()
	// Should not panic
	bus.Publish(&Event{Type: "unknown"})
	err := bus.PublishJSON("unknown", nil)
	if err != nil {
		t.Errorf("PublishJSON failed: %v", err)
	}
}

func TestNewJSONEvent(t *testing.T) {
	payload := AppointmentEventPayload{AppointmentID: "appt-123", Price: decimal.RequireFromString("45.5")}
	event, err := NewJSONEvent(AppointmentStatusEvent("confirmed"), payload)
	if err != nil {
		t.Fatalf("NewJSONEvent failed: %v", err)
	}

	if event.Type != "appointment_confirmed" {
		t.Errorf("expected appointment_confirmed, got %s", event.Type)
	}
	if event.ID == "" {
		t.Errorf("expected ID to be set")
	}
	if event.CreatedAt.IsZero() {
		t.Errorf("expected CreatedAt to be set")
	}

	var decoded AppointmentEventPayload
	if err := event.Decode(&decoded); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}

	if decoded.AppointmentID != "appt-123" {
		t.Errorf("expected appt-123, got %s", decoded.AppointmentID)
	}
	if !decoded.Price.Equal(payload.Price) {
		t.Errorf("expected price %s, got %s", payload.Price, decoded.Price)
	}
}

func TestEventBusHandlerErrors(t *testing.T) {
	bus := NewEventBus()
	var failed []string
	var reached bool

	bus.OnError(func(e *Event, err error) { failed = append(failed, e.Type+": "+err.Error()) })
	bus.Subscribe(EventPaymentConfirmed, func(_ *Event) error { return errors.New("boom") })
	bus.Subscribe(EventPaymentConfirmed, func(_ *Event) error { reached = true; return nil })

	if err := bus.PublishJSON(EventPaymentConfirmed, PaymentEventPayload{PaymentID: "p1"}); err != nil {
		t.Fatalf("PublishJSON failed: %v", err)
	}

	if !reached {
		t.Errorf("expected second handler to run after a failure")
	}
	if len(failed) != 1 || failed[0] != "payment_confirmed: boom" {
		t.Errorf("unexpected error reports: %v", failed)
	}
}

func TestNilBusPublishJSON(t *testing.T) {
	var bus *EventBus
	if err := bus.PublishJSON(EventSettingsUpdated, nil); err != nil {
		t.Errorf("expected nil bus to be a no-op, got %v", err)
	}
}
