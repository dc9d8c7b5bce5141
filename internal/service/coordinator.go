// Package service holds the order/seat coordinator: the only code that
// changes seat occupancy as a consequence of order placement and status.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/cafe-ordering/internal/metrics"
	"github.com/iliyamo/cafe-ordering/internal/model"
	"github.com/iliyamo/cafe-ordering/internal/realtime"
	"github.com/iliyamo/cafe-ordering/internal/repository"
)

// DefaultSeats are created by Seed.
var DefaultSeats = []string{"Table 1", "Table 2", "Table 3", "Cabin 1", "Cabin 2"}

// Coordinator runs multi-step order and seat operations as single units of
// work on the Store and emits events once they are committed.
type Coordinator struct {
	store   repository.Store
	notify  realtime.Notifier
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	// emitMu is held from just before a unit of work commits until its
	// events are handed to the notifier.
	emitMu sync.Mutex
}

// NewCoordinator wires a coordinator. A nil notifier discards events and a
// nil logger uses slog.Default.
func NewCoordinator(store repository.Store, notifier realtime.Notifier, log *slog.Logger, m *metrics.Metrics) *Coordinator {
	if notifier == nil {
		notifier = realtime.Discard{}
	}
	if log == nil {
		log = slog.Default()
	}
	if m == nil {
		m = metrics.New(false)
	}
	return &Coordinator{store: store, notify: notifier, log: log, metrics: m, now: time.Now}
}

// outbox collects the events of one unit of work.
type outbox []realtime.Event

func (b *outbox) add(ev realtime.Event) { *b = append(*b, ev) }

// commit runs fn as one unit of work and emits the events it queued once
// the store has committed. emitMu is taken while the writes are still
// uncommitted, so a later unit of work on the same rows, which cannot
// commit before this one, also cannot emit before it. Rolled back work
// emits nothing.
func (c *Coordinator) commit(ctx context.Context, fn func(tx repository.Store, events *outbox) error) error {
	var (
		events outbox
		locked bool
	)
	err := c.store.InTx(ctx, func(tx repository.Store) error {
		if err := fn(tx, &events); err != nil {
			return err
		}
		c.emitMu.Lock()
		locked = true
		return nil
	})
	if !locked {
		return err
	}
	defer c.emitMu.Unlock()
	if err != nil {
		return err
	}
	for _, ev := range events {
		c.notify.Notify(ev)
	}
	return nil
}

// PlaceRequest is a checkout draft. UserID is empty for guests.
type PlaceRequest struct {
	UserID    string
	Items     []model.OrderItem
	Amount    float64
	Address   model.Address
	OrderType model.OrderType
	TableID   string
}

// Place validates the draft, reserves the seat for dine-in orders, stores
// the order and clears the user's cart in one unit of work.
func (c *Coordinator) Place(ctx context.Context, req PlaceRequest) (*model.Order, error) {
	if req.OrderType == "" {
		req.OrderType = model.OrderTakeaway
	}
	if err := validatePlace(req); err != nil {
		return nil, err
	}

	order := &model.Order{
		UserID:    model.GuestUserID,
		Items:     req.Items,
		Amount:    req.Amount,
		OrderType: req.OrderType,
		Status:    model.StatusPreparing,
		CreatedAt: c.now().UTC(),
	}
	order.Address = c.resolveAddress(ctx, req, order)

	err := c.commit(ctx, func(tx repository.Store, events *outbox) error {
		var seat *model.Seat
		if order.OrderType == model.OrderDineIn {
			order.ID = newOrderID()
			s, err := tx.Seats().Reserve(ctx, req.TableID, order.ID)
			if errors.Is(err, repository.ErrSeatOccupied) {
				return &SeatOccupiedError{Name: s.Name}
			}
			if err != nil {
				return err
			}
			seat = s
			order.TableID = &s.ID
			name := s.Name
			order.TableName = &name
		}
		if err := tx.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		if order.UserID != model.GuestUserID {
			if err := tx.Carts().Clear(ctx, order.UserID); err != nil {
				return fmt.Errorf("clear cart: %w", err)
			}
		}
		events.add(realtime.NewOrder(*order))
		if seat != nil {
			events.add(realtime.TableUpdated(*seat))
		}
		return nil
	})
	if err != nil {
		var occupied *SeatOccupiedError
		if errors.As(err, &occupied) {
			c.metrics.SeatConflicts.Inc()
			c.log.Info("order: seat not available", slog.String("table_id", req.TableID), slog.String("table", occupied.Name))
			return nil, err
		}
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("table %s: %w", req.TableID, ErrNotFound)
		}
		c.log.Error("order: place failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("place order: %w", err)
	}

	c.metrics.OrdersPlaced.WithLabelValues(string(order.OrderType)).Inc()
	c.log.Info("order: placed",
		slog.String("order_id", order.ID),
		slog.String("user_id", order.UserID),
		slog.String("order_type", string(order.OrderType)),
		slog.Float64("amount", order.Amount))
	return order, nil
}

func newOrderID() string { return uuid.NewString() }

func validatePlace(req PlaceRequest) error {
	if len(req.Items) == 0 {
		return invalid("order must contain at least one item")
	}
	for i, it := range req.Items {
		if strings.TrimSpace(it.FoodID) == "" {
			return invalid("item %d: foodId is required", i)
		}
		if it.Quantity <= 0 {
			return invalid("item %d: quantity must be positive", i)
		}
		if it.Price < 0 {
			return invalid("item %d: price must not be negative", i)
		}
	}
	if req.Amount < 0 {
		return invalid("amount must not be negative")
	}
	if !req.OrderType.Valid() {
		return invalid("unknown order type %q", req.OrderType)
	}
	if req.OrderType == model.OrderDineIn && strings.TrimSpace(req.TableID) == "" {
		return invalid("tableId is required for dine-in orders")
	}
	return nil
}

// resolveAddress builds the contact snapshot. A known user seeds it and
// non-empty request fields override single fields. Unknown users become
// guests.
func (c *Coordinator) resolveAddress(ctx context.Context, req PlaceRequest, order *model.Order) model.Address {
	var addr model.Address
	if req.UserID != "" {
		u, err := c.store.Users().GetByID(ctx, req.UserID)
		switch {
		case err == nil:
			order.UserID = u.ID
			addr = model.Address{FirstName: u.Name, Email: u.Email, Phone: u.Phone}
		default:
			c.log.Warn("order: token user not found, placing as guest",
				slog.String("user_id", req.UserID), slog.String("error", err.Error()))
		}
	}
	if order.UserID == model.GuestUserID {
		addr.FirstName = "Guest"
	}
	o := req.Address
	if o.FirstName != "" {
		addr.FirstName = o.FirstName
	}
	if o.LastName != "" {
		addr.LastName = o.LastName
	}
	if o.Email != "" {
		addr.Email = o.Email
	}
	if o.Phone != "" {
		addr.Phone = o.Phone
	}
	if o.Street != "" {
		addr.Street = o.Street
	}
	if o.City != "" {
		addr.City = o.City
	}
	return addr
}

// UpdateStatus moves an order along its lifecycle. Reaching Completed or
// Cancelled frees the order's seat in the same unit of work; if that write
// fails nothing is changed.
func (c *Coordinator) UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus, override bool) (*model.Order, error) {
	if !status.Valid() {
		return nil, invalid("unknown status %q", status)
	}

	var (
		updated       *model.Order
		previous      model.OrderStatus
		released      bool
		releaseFailed bool
	)
	err := c.commit(ctx, func(tx repository.Store, events *outbox) error {
		current, err := tx.Orders().GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		previous = current.Status
		if !previous.CanTransition(status) && !override {
			return &InvalidStateError{Msg: fmt.Sprintf("cannot move order from %s to %s", previous, status)}
		}
		updated, err = tx.Orders().UpdateStatus(ctx, orderID, status)
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		events.add(realtime.OrderStatusUpdate(updated.ID, updated.Status))
		if !updated.HoldsSeat() {
			return nil
		}
		switch {
		case status.ReleasesSeat():
			released, err = tx.Seats().Release(ctx, *updated.TableID, updated.ID)
			if err != nil {
				releaseFailed = true
				return fmt.Errorf("release seat %s: %w", *updated.TableID, err)
			}
			if !released {
				c.log.Warn("order: seat not linked to order, skipping release",
					slog.String("order_id", updated.ID), slog.String("table_id", *updated.TableID))
				return nil
			}
			events.add(realtime.TableUpdated(releasedSeat(updated)))
		case previous.ReleasesSeat():
			seat, err := c.reclaimSeat(ctx, tx, updated)
			if err != nil {
				return err
			}
			if seat != nil {
				events.add(realtime.TableUpdated(*seat))
			}
		}
		return nil
	})
	if err != nil {
		if releaseFailed {
			c.metrics.SeatReleaseFailures.Inc()
			c.log.Error("order: seat release failed, status update rolled back",
				slog.String("order_id", orderID),
				slog.String("status", string(status)),
				slog.String("error", err.Error()))
		}
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidState) || errors.Is(err, ErrSeatOccupied) {
			return nil, err
		}
		return nil, fmt.Errorf("update order %s: %w", orderID, err)
	}

	legal := previous.CanTransition(status)
	c.metrics.StatusTransitions.WithLabelValues(string(status), strconv.FormatBool(override && !legal)).Inc()
	if !legal {
		c.log.Warn("order: manual status override",
			slog.String("order_id", orderID),
			slog.String("from", string(previous)),
			slog.String("to", string(status)),
			slog.Bool("override", true))
	}
	return updated, nil
}

// reclaimSeat re-reserves the seat of an order that an override moved out
// of Completed or Cancelled. A seat taken by another order fails the
// update; a seat that no longer exists leaves the order without one.
func (c *Coordinator) reclaimSeat(ctx context.Context, tx repository.Store, o *model.Order) (*model.Seat, error) {
	seat, err := tx.Seats().Reserve(ctx, *o.TableID, o.ID)
	switch {
	case errors.Is(err, repository.ErrSeatOccupied):
		return nil, &SeatOccupiedError{Name: seat.Name}
	case errors.Is(err, repository.ErrNotFound):
		c.log.Warn("order: reopened order lost its seat",
			slog.String("order_id", o.ID), slog.String("table_id", *o.TableID))
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("reclaim seat %s: %w", *o.TableID, err)
	}
	c.log.Info("order: seat reclaimed by reopened order",
		slog.String("order_id", o.ID), slog.String("table", seat.Name))
	return seat, nil
}

func releasedSeat(o *model.Order) model.Seat {
	s := model.Seat{ID: *o.TableID, Status: model.SeatAvailable}
	if o.TableName != nil {
		s.Name = *o.TableName
	}
	return s
}

// DeleteOrder removes an order that reached Paid, Completed or Cancelled.
// A seat still linked to it is freed in the same unit of work.
func (c *Coordinator) DeleteOrder(ctx context.Context, orderID string) error {
	var released bool
	err := c.commit(ctx, func(tx repository.Store, events *outbox) error {
		order, err := tx.Orders().GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.Status.Deletable() {
			return &InvalidStateError{Msg: fmt.Sprintf("order in status %s cannot be deleted", order.Status)}
		}
		if order.HoldsSeat() {
			released, err = tx.Seats().Release(ctx, *order.TableID, order.ID)
			if err != nil {
				return fmt.Errorf("release seat: %w", err)
			}
		}
		if err := tx.Orders().Delete(ctx, orderID); err != nil {
			return err
		}
		if released {
			events.add(realtime.TableUpdated(releasedSeat(order)))
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidState) {
			return err
		}
		c.log.Error("order: delete failed", slog.String("order_id", orderID), slog.String("error", err.Error()))
		return fmt.Errorf("delete order %s: %w", orderID, err)
	}
	c.log.Info("order: deleted", slog.String("order_id", orderID), slog.Bool("released_seat", released))
	return nil
}

// Orders returns every order, newest first.
func (c *Coordinator) Orders(ctx context.Context) ([]model.Order, error) {
	return c.store.Orders().ListAll(ctx)
}

// UserOrders returns the user's orders, newest first.
func (c *Coordinator) UserOrders(ctx context.Context, userID string) ([]model.Order, error) {
	return c.store.Orders().ListByUser(ctx, userID)
}

// Stats aggregates the ledger; today starts at local midnight.
func (c *Coordinator) Stats(ctx context.Context) (model.Stats, error) {
	now := c.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return c.store.Orders().Stats(ctx, dayStart)
}

// CreateSeat adds an available seat.
func (c *Coordinator) CreateSeat(ctx context.Context, name string, capacity int) (*model.Seat, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("table name is required")
	}
	if capacity < 0 {
		return nil, invalid("capacity must not be negative")
	}
	seat, err := c.store.Seats().Create(ctx, name, capacity)
	if err != nil {
		return nil, err
	}
	c.log.Info("table: created", slog.String("table_id", seat.ID), slog.String("table", seat.Name))
	return seat, nil
}

// Seats lists every seat by name.
func (c *Coordinator) Seats(ctx context.Context) ([]model.Seat, error) {
	return c.store.Seats().List(ctx)
}

// ClearSeat forces a seat back to available without touching orders.
func (c *Coordinator) ClearSeat(ctx context.Context, seatID string) (*model.Seat, error) {
	if strings.TrimSpace(seatID) == "" {
		return nil, invalid("tableId is required")
	}
	var seat *model.Seat
	err := c.commit(ctx, func(tx repository.Store, events *outbox) error {
		var err error
		seat, err = tx.Seats().SetStatus(ctx, seatID, model.SeatAvailable)
		if err != nil {
			return err
		}
		events.add(realtime.TableUpdated(*seat))
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.log.Warn("table: cleared manually", slog.String("table_id", seat.ID), slog.String("table", seat.Name))
	return seat, nil
}

// SetSeatStatus overwrites a seat's status by name.
func (c *Coordinator) SetSeatStatus(ctx context.Context, name string, status model.SeatStatus) (*model.Seat, error) {
	if strings.TrimSpace(name) == "" {
		return nil, invalid("table name is required")
	}
	if !status.Valid() {
		return nil, invalid("unknown table status %q", status)
	}
	var seat *model.Seat
	err := c.commit(ctx, func(tx repository.Store, events *outbox) error {
		current, err := tx.Seats().GetByName(ctx, name)
		if err != nil {
			return err
		}
		seat, err = tx.Seats().SetStatus(ctx, current.ID, status)
		if err != nil {
			return err
		}
		events.add(realtime.TableUpdated(*seat))
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.log.Warn("table: manual status override",
		slog.String("table_id", seat.ID),
		slog.String("table", seat.Name),
		slog.String("status", string(status)),
		slog.Bool("override", true))
	return seat, nil
}

// RemoveSeat deletes a seat unless it is occupied.
func (c *Coordinator) RemoveSeat(ctx context.Context, seatID string) error {
	if strings.TrimSpace(seatID) == "" {
		return invalid("table id is required")
	}
	err := c.store.Seats().Delete(ctx, seatID)
	if errors.Is(err, repository.ErrSeatOccupied) {
		name := seatID
		if s, gerr := c.store.Seats().GetByID(ctx, seatID); gerr == nil {
			name = s.Name
		}
		return &SeatOccupiedError{Name: name}
	}
	if err != nil {
		return err
	}
	c.log.Info("table: removed", slog.String("table_id", seatID))
	return nil
}

// Seed creates the default seats that do not exist yet and returns how
// many were added.
func (c *Coordinator) Seed(ctx context.Context) (int, error) {
	added := 0
	for _, name := range DefaultSeats {
		_, err := c.store.Seats().Create(ctx, name, model.DefaultSeatCapacity)
		if errors.Is(err, ErrDuplicateName) {
			continue
		}
		if err != nil {
			return added, fmt.Errorf("seed %s: %w", name, err)
		}
		added++
	}
	c.log.Info("table: seeded defaults", slog.Int("added", added))
	return added, nil
}
