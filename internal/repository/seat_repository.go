package repository // repository defines data access for seats

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/cafe-ordering/internal/model"
)

// SeatRepo provides methods to work with seats in the database.
type SeatRepo struct {
	db          dbtx
	frontendURL string
}

const seatColumns = `id, name, capacity, status, current_order_id, qr_code_link, created_at, updated_at`

func scanSeat(row interface{ Scan(...any) error }) (*model.Seat, error) {
	var s model.Seat
	var current sql.NullString
	var qr sql.NullString
	if err := row.Scan(&s.ID, &s.Name, &s.Capacity, &s.Status, &current, &qr, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if current.Valid && current.String != "" {
		id := current.String
		s.CurrentOrderID = &id
	}
	s.QRCodeLink = qr.String
	return &s, nil
}

// Create inserts a single seat record. The unique index on name uses a
// case-insensitive collation so "table 1" collides with "Table 1".
func (r *SeatRepo) Create(ctx context.Context, name string, capacity int) (*model.Seat, error) {
	name = strings.TrimSpace(name)
	if capacity <= 0 {
		capacity = model.DefaultSeatCapacity
	}
	now := time.Now().UTC()
	s := &model.Seat{
		ID:         uuid.NewString(),
		Name:       name,
		Capacity:   capacity,
		Status:     model.SeatAvailable,
		QRCodeLink: qrLink(r.frontendURL, name),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	const q = `INSERT INTO seats (id, name, capacity, status, qr_code_link, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, s.ID, s.Name, s.Capacity, s.Status, s.QRCodeLink, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, ErrDuplicateName
		}
		return nil, err
	}
	return s, nil
}

// List retrieves all seats ordered by name.
func (r *SeatRepo) List(ctx context.Context) ([]model.Seat, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+seatColumns+` FROM seats ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.Seat, 0)
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetByID retrieves a seat by its id.
func (r *SeatRepo) GetByID(ctx context.Context, id string) (*model.Seat, error) {
	s, err := scanSeat(r.db.QueryRowContext(ctx, `SELECT `+seatColumns+` FROM seats WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// GetByName retrieves a seat by its name.
func (r *SeatRepo) GetByName(ctx context.Context, name string) (*model.Seat, error) {
	s, err := scanSeat(r.db.QueryRowContext(ctx, `SELECT `+seatColumns+` FROM seats WHERE name = ?`, strings.TrimSpace(name)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// SetStatus overwrites a seat's status. Used for manual correction and
// for clearing stuck seats.
func (r *SeatRepo) SetStatus(ctx context.Context, id string, status model.SeatStatus) (*model.Seat, error) {
	const q = `UPDATE seats
	           SET status = ?,
	               current_order_id = CASE WHEN ? = 'available' THEN NULL ELSE current_order_id END,
	               updated_at = ?
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, status, status, time.Now().UTC(), id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// Reserve performs the compare-and-set available -> occupied. The WHERE
// clause carries the status check so two concurrent callers cannot both
// win; InnoDB's row lock serialises them.
func (r *SeatRepo) Reserve(ctx context.Context, id, orderID string) (*model.Seat, error) {
	const q = `UPDATE seats
	           SET status = 'occupied', current_order_id = ?, updated_at = ?
	           WHERE id = ? AND status = 'available'`
	res, err := r.db.ExecContext(ctx, q, orderID, time.Now().UTC(), id)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	seat, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return seat, ErrSeatOccupied
	}
	return seat, nil
}

// Release frees a seat still linked to orderID.
func (r *SeatRepo) Release(ctx context.Context, id, orderID string) (bool, error) {
	const q = `UPDATE seats
	           SET status = 'available', current_order_id = NULL, updated_at = ?
	           WHERE id = ? AND current_order_id = ?`
	res, err := r.db.ExecContext(ctx, q, time.Now().UTC(), id, orderID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete removes a seat unless it is occupied.
func (r *SeatRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM seats WHERE id = ? AND status <> 'occupied'`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrSeatOccupied
}
