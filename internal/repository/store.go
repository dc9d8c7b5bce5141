package repository

import (
	"context"
	"database/sql"
	"net/url"
	"strings"
	"time"

	"github.com/iliyamo/cafe-ordering/internal/model"
)

// SeatStore is the seat registry. It stores occupancy state and knows
// nothing about orders beyond the weak current_order_id link.
type SeatStore interface {
	// Create inserts a new available seat. It returns ErrDuplicateName
	// when a seat with the same name exists, ignoring case.
	Create(ctx context.Context, name string, capacity int) (*model.Seat, error)
	// List returns all seats ordered by name ascending.
	List(ctx context.Context) ([]model.Seat, error)
	GetByID(ctx context.Context, id string) (*model.Seat, error)
	GetByName(ctx context.Context, name string) (*model.Seat, error)
	// SetStatus overwrites the status unconditionally. Setting available
	// clears the order link.
	SetStatus(ctx context.Context, id string, status model.SeatStatus) (*model.Seat, error)
	// Reserve flips the seat from available to occupied and links
	// orderID in one conditional write. When the seat is not available it
	// returns the current row together with ErrSeatOccupied.
	Reserve(ctx context.Context, id, orderID string) (*model.Seat, error)
	// Release frees the seat only while it is still linked to orderID and
	// reports whether a release happened.
	Release(ctx context.Context, id, orderID string) (bool, error)
	// Delete removes a seat that is not occupied. An occupied seat yields
	// ErrSeatOccupied.
	Delete(ctx context.Context, id string) error
}

// OrderStore is the order ledger. It holds no seat logic.
type OrderStore interface {
	// Create stores o. A blank ID is generated; a zero CreatedAt is set
	// to the current time.
	Create(ctx context.Context, o *model.Order) error
	GetByID(ctx context.Context, id string) (*model.Order, error)
	// ListByUser and ListAll return orders newest first.
	ListByUser(ctx context.Context, userID string) ([]model.Order, error)
	ListAll(ctx context.Context) ([]model.Order, error)
	// UpdateStatus overwrites status and updated_at and returns the row.
	UpdateStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error)
	Delete(ctx context.Context, id string) error
	// Stats aggregates all orders; dayStart bounds TodaySales.
	Stats(ctx context.Context, dayStart time.Time) (model.Stats, error)
}

// CartStore keeps each user's working cart in the canonical array shape.
type CartStore interface {
	Get(ctx context.Context, userID string) ([]model.CartItem, error)
	Replace(ctx context.Context, userID string, items []model.CartItem) error
	Clear(ctx context.Context, userID string) error
}

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, u *model.User, password string, cost int) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// Store groups the repositories and runs units of work across them.
type Store interface {
	Seats() SeatStore
	Orders() OrderStore
	Carts() CartStore
	Users() UserStore
	// InTx runs fn with a Store whose writes commit together when fn
	// returns nil and are discarded otherwise. Calling InTx on a Store
	// already inside a unit of work runs fn in that same unit.
	InTx(ctx context.Context, fn func(Store) error) error
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore is the MySQL backed Store.
type SQLStore struct {
	db          *sql.DB // nil inside a transaction
	q           dbtx
	frontendURL string
}

// NewSQLStore returns a Store bound to db. frontendURL is used to build
// the QR link printed on each seat.
func NewSQLStore(db *sql.DB, frontendURL string) *SQLStore {
	return &SQLStore{db: db, q: db, frontendURL: frontendURL}
}

func (s *SQLStore) Seats() SeatStore {
	return &SeatRepo{db: s.q, frontendURL: s.frontendURL}
}
func (s *SQLStore) Orders() OrderStore { return &OrderRepo{db: s.q} }
func (s *SQLStore) Carts() CartStore   { return &CartRepo{db: s.q} }
func (s *SQLStore) Users() UserStore   { return &UserRepo{db: s.q} }

// InTx begins a transaction, runs fn and commits. Any error from fn or a
// panic rolls the transaction back.
func (s *SQLStore) InTx(ctx context.Context, fn func(Store) error) error {
	if s.db == nil {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&SQLStore{q: tx, frontendURL: s.frontendURL}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// qrLink builds the link that opens the ordering page with the seat
// preselected.
func qrLink(frontendURL, name string) string {
	if frontendURL == "" {
		return ""
	}
	return strings.TrimRight(frontendURL, "/") + "?table=" + url.PathEscape(name)
}
