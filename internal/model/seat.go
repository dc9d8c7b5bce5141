package model

import "time"

// SeatStatus is the occupancy state of a seat.
type SeatStatus string

const (
    SeatAvailable SeatStatus = "available"
    SeatOccupied  SeatStatus = "occupied"
    SeatReserved  SeatStatus = "reserved"
)

// Valid reports whether s is one of the known seat statuses.
func (s SeatStatus) Valid() bool {
    switch s {
    case SeatAvailable, SeatOccupied, SeatReserved:
        return true
    }
    return false
}

// DefaultSeatCapacity is used when a seat is created without a capacity.
const DefaultSeatCapacity = 4

// Seat describes a physical table or cabin in the café.  Seats are
// identified by a generated ID and a human readable unique name such as
// "Table 1" or "Cabin 2".  Occupancy is only flipped by the order/seat
// coordinator; staff may overwrite it manually.
//
// Fields:
//  ID             – primary key identifier (uuid).
//  Name           – unique display name, compared case-insensitively.
//  Capacity       – number of guests the seat holds.
//  Status         – available, occupied or reserved.
//  CurrentOrderID – order currently holding the seat (nil when free).
//  QRCodeLink     – frontend link that preselects this seat.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Seat struct {
    ID             string     `json:"_id"`            // seats.id
    Name           string     `json:"name"`           // seats.name
    Capacity       int        `json:"capacity"`       // seats.capacity
    Status         SeatStatus `json:"status"`         // seats.status
    CurrentOrderID *string    `json:"currentOrderId"` // seats.current_order_id (nullable)
    QRCodeLink     string     `json:"qrCodeLink,omitempty"`
    CreatedAt      time.Time  `json:"createdAt"`
    UpdatedAt      time.Time  `json:"updatedAt"`
}

// HeldBy reports whether the seat is currently linked to orderID.
func (s *Seat) HeldBy(orderID string) bool {
    return s.CurrentOrderID != nil && *s.CurrentOrderID == orderID
}
