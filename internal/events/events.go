package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTenantRegistered     = "tenant_registered"
	EventTenantActivityToggle = "tenant_active_changed"
	EventPaymentRequested     = "payment_requested"
	EventPaymentConfirmed     = "payment_confirmed"
	EventPaymentsExpired      = "payments_expired"
	EventAppointmentCreated   = "appointment_created"
	EventSettingsUpdated      = "settings_updated"
)

// AppointmentStatusEvent is the event type for an appointment moving to status,
// e.g. appointment_confirmed.
func AppointmentStatusEvent(status string) string {
	return "appointment_" + status
}

type TenantEventPayload struct {
	TenantID     string    `json:"tenant_id"`
	BusinessName string    `json:"business_name"`
	Email        string    `json:"email"`
	Plan         string    `json:"plan"`
	IsActive     bool      `json:"is_active"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type PaymentEventPayload struct {
	PaymentID    string          `json:"payment_id"`
	TenantID     string          `json:"tenant_id"`
	BusinessName string          `json:"business_name,omitempty"`
	Plan         string          `json:"plan"`
	Amount       decimal.Decimal `json:"amount"`
	Status       string          `json:"status"`
	ExpiresAt    time.Time       `json:"expires_at,omitempty"`
}

// AppointmentEventPayload describes the minimal appointment snapshot for event consumers.
type AppointmentEventPayload struct {
	AppointmentID string          `json:"appointment_id"`
	TenantID      string          `json:"tenant_id"`
	ClientName    string          `json:"client_name"`
	ClientPhone   string          `json:"client_phone"`
	ServiceName   string          `json:"service_name"`
	Price         decimal.Decimal `json:"price"`
	Date          string          `json:"date"`
	StartTime     string          `json:"start_time"`
	Status        string          `json:"status"`
}

type ExpiryEventPayload struct {
	Expired int64     `json:"expired"`
	Cutoff  time.Time `json:"cutoff"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        string
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the JSON payload into v.
func (e *Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	onError     func(event *Event, err error)
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// OnError sets a hook for handler failures. Publishing never fails because of a handler.
func (b *EventBus) OnError(fn func(event *Event, err error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onError = fn
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	onError := b.onError
	b.mu.RUnlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		if err := handler(event); err != nil && onError != nil {
			onError(event, err)
		}
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}

	b.Publish(&event)
	return nil
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{ID: uuid.NewString(), Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}
