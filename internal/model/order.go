package model

import "time"

// OrderType tells whether an order needs a seat.
type OrderType string

const (
    OrderDineIn   OrderType = "dine-in"
    OrderTakeaway OrderType = "takeaway"
    OrderDelivery OrderType = "delivery"
)

// Valid reports whether t is a known order type.
func (t OrderType) Valid() bool {
    switch t {
    case OrderDineIn, OrderTakeaway, OrderDelivery:
        return true
    }
    return false
}

// OrderStatus is the lifecycle position of an order.
type OrderStatus string

const (
    StatusPreparing OrderStatus = "Preparing"
    StatusReady     OrderStatus = "Ready"
    StatusServed    OrderStatus = "Served"
    StatusPaid      OrderStatus = "Paid"
    StatusCompleted OrderStatus = "Completed"
    StatusCancelled OrderStatus = "Cancelled"
)

// transitions lists the statuses reachable from each status without a
// manual override.  Completed has no successors.
var transitions = map[OrderStatus][]OrderStatus{
    StatusPreparing: {StatusReady, StatusServed, StatusCancelled},
    StatusReady:     {StatusServed, StatusPaid, StatusCancelled},
    StatusServed:    {StatusPaid, StatusCancelled},
    StatusPaid:      {StatusCompleted},
    StatusCancelled: {StatusCompleted},
    StatusCompleted: nil,
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
    _, ok := transitions[s]
    return ok
}

// CanTransition reports whether moving from s to next follows the normal
// lifecycle.  Rewriting the same status is always allowed.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
    if s == next {
        return next.Valid()
    }
    for _, to := range transitions[s] {
        if to == next {
            return true
        }
    }
    return false
}

// ReleasesSeat reports whether reaching s frees the order's seat.
func (s OrderStatus) ReleasesSeat() bool {
    return s == StatusCompleted || s == StatusCancelled
}

// Deletable reports whether an order in status s may be deleted.
func (s OrderStatus) Deletable() bool {
    return s == StatusPaid || s == StatusCompleted || s == StatusCancelled
}

// GuestUserID marks orders placed without an authenticated user.
const GuestUserID = "guest"

// OrderItem is a snapshot of one cart line at checkout.  Name and price
// are copied so later menu edits do not rewrite order history.
type OrderItem struct {
    FoodID   string  `json:"foodId" validate:"required"`
    Name     string  `json:"name" validate:"required"`
    Quantity int     `json:"quantity" validate:"gt=0"`
    Price    float64 `json:"price" validate:"gte=0"`
}

// Address is the contact snapshot stored with an order.
type Address struct {
    FirstName string `json:"firstName"`
    LastName  string `json:"lastName"`
    Phone     string `json:"phone"`
    Email     string `json:"email"`
    Street    string `json:"address,omitempty"`
    City      string `json:"city,omitempty"`
}

// Order records a customer's checkout.
//
// Fields:
//  ID        – primary key identifier (uuid).
//  UserID    – owning user or GuestUserID.
//  Items     – line items captured at checkout.
//  Amount    – total amount in rupees.
//  Address   – contact snapshot.
//  OrderType – dine-in, takeaway or delivery.
//  Status    – lifecycle status.
//  TableID   – seat reserved for a dine-in order (nil otherwise).
//  TableName – seat name at reservation time.
//  Payment   – payment flag (payments themselves are out of scope).
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Order struct {
    ID        string      `json:"_id"`
    UserID    string      `json:"userId"`
    Items     []OrderItem `json:"items"`
    Amount    float64     `json:"amount"`
    Address   Address     `json:"address"`
    OrderType OrderType   `json:"orderType"`
    Status    OrderStatus `json:"status"`
    TableID   *string     `json:"tableId"`
    TableName *string     `json:"tableName"`
    Payment   bool        `json:"payment"`
    CreatedAt time.Time   `json:"createdAt"`
    UpdatedAt time.Time   `json:"updatedAt"`
}

// HoldsSeat reports whether the order is a dine-in order with a seat.
func (o *Order) HoldsSeat() bool {
    return o.OrderType == OrderDineIn && o.TableID != nil && *o.TableID != ""
}

// Stats aggregates the ledger for the staff dashboard.
type Stats struct {
    TotalOrders  int     `json:"totalOrders"`
    ActiveOrders int     `json:"activeOrders"`
    TotalSales   float64 `json:"totalSales"`
    TodaySales   float64 `json:"todaySales"`
}

// Accumulate folds one order into the stats.  dayStart is the local
// midnight used for TodaySales.
func (s *Stats) Accumulate(o Order, dayStart time.Time) {
    s.TotalOrders++
    if o.Status == StatusPreparing || o.Status == StatusServed {
        s.ActiveOrders++
    }
    if o.Status == StatusPaid {
        s.TotalSales += o.Amount
        if !o.CreatedAt.Before(dayStart) {
            s.TodaySales += o.Amount
        }
    }
}
