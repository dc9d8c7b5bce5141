// Package queue mirrors realtime events to RabbitMQ and consumes them into
// an audit log.
package queue

import (
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/cafe-ordering/internal/realtime"
)

// Exchange is the durable topic exchange all cafe events go to.
const Exchange = "cafe.events"

// AuditQueue is the queue bound by the audit consumer.
const AuditQueue = "cafe.audit"

// Routing keys per event.
const (
    KeyNewOrder     = "order.new"
    KeyOrderStatus  = "order.status"
    KeyTableUpdated = "table.updated"
)

// RoutingKey maps an event name to its routing key.
func RoutingKey(event string) string {
    switch event {
    case realtime.EventNewOrder:
        return KeyNewOrder
    case realtime.EventOrderStatusUpdate:
        return KeyOrderStatus
    case realtime.EventTableUpdated:
        return KeyTableUpdated
    }
    return "misc." + event
}

// Envelope is the broker message body. It wraps the same frame pushed to
// websocket clients with an id and timestamp for downstream consumers.
type Envelope struct {
    ID         string `json:"id"`
    Event      string `json:"event"`
    Data       any    `json:"data"`
    OccurredAt string `json:"occurred_at"`
}

// NewEnvelope stamps ev for publishing.
func NewEnvelope(ev realtime.Event, now time.Time) Envelope {
    return Envelope{
        ID:         uuid.NewString(),
        Event:      ev.Name,
        Data:       ev.Data,
        OccurredAt: now.UTC().Format(time.RFC3339),
    }
}
