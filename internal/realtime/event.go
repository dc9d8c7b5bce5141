// Package realtime fans state-change events out to websocket observers.
package realtime

import "github.com/iliyamo/cafe-ordering/internal/model"

// Event names as seen by clients.
const (
	EventNewOrder          = "newOrder"
	EventOrderStatusUpdate = "orderStatusUpdate"
	EventTableUpdated      = "tableUpdated"
)

// Event is the wire frame pushed to every client.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// StatusUpdate is the payload of orderStatusUpdate.
type StatusUpdate struct {
	OrderID string            `json:"orderId"`
	Status  model.OrderStatus `json:"status"`
}

// TableUpdate is the payload of tableUpdated.
type TableUpdate struct {
	TableID   string           `json:"tableId"`
	Status    model.SeatStatus `json:"status"`
	OrderID   string           `json:"orderId,omitempty"`
	TableName string           `json:"tableName,omitempty"`
}

func NewOrder(o model.Order) Event {
	return Event{Name: EventNewOrder, Data: o}
}

func OrderStatusUpdate(orderID string, status model.OrderStatus) Event {
	return Event{Name: EventOrderStatusUpdate, Data: StatusUpdate{OrderID: orderID, Status: status}}
}

func TableUpdated(seat model.Seat) Event {
	u := TableUpdate{TableID: seat.ID, Status: seat.Status, TableName: seat.Name}
	if seat.CurrentOrderID != nil {
		u.OrderID = *seat.CurrentOrderID
	}
	return Event{Name: EventTableUpdated, Data: u}
}

// Notifier receives events after the writes they describe are committed.
// Implementations must not block the caller.
type Notifier interface {
	Notify(ev Event)
}

// Fanout forwards each event to every notifier in order.
type Fanout []Notifier

func (f Fanout) Notify(ev Event) {
	for _, n := range f {
		if n != nil {
			n.Notify(ev)
		}
	}
}

// Discard drops every event.
type Discard struct{}

func (Discard) Notify(Event) {}
