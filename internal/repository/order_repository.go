package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/cafe-ordering/internal/model"
)

// OrderRepo persists orders and their line items.
type OrderRepo struct {
	db dbtx
}

const orderColumns = `id, user_id, amount, address, order_type, status, table_id, table_name, payment, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*model.Order, error) {
	var (
		o         model.Order
		address   []byte
		tableID   sql.NullString
		tableName sql.NullString
	)
	if err := row.Scan(&o.ID, &o.UserID, &o.Amount, &address, &o.OrderType, &o.Status,
		&tableID, &tableName, &o.Payment, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	if len(address) > 0 {
		if err := json.Unmarshal(address, &o.Address); err != nil {
			return nil, err
		}
	}
	if tableID.Valid {
		v := tableID.String
		o.TableID = &v
	}
	if tableName.Valid {
		v := tableName.String
		o.TableName = &v
	}
	o.Items = []model.OrderItem{}
	return &o, nil
}

// Create inserts the order row and its items. Callers that need
// atomicity with a seat reservation run it inside Store.InTx.
func (r *OrderRepo) Create(ctx context.Context, o *model.Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = o.CreatedAt
	address, err := json.Marshal(o.Address)
	if err != nil {
		return err
	}
	const q = `INSERT INTO orders (id, user_id, amount, address, order_type, status, table_id, table_name, payment, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q, o.ID, o.UserID, o.Amount, string(address), o.OrderType, o.Status,
		o.TableID, o.TableName, o.Payment, o.CreatedAt, o.UpdatedAt); err != nil {
		return err
	}
	if len(o.Items) == 0 {
		return nil
	}

	// bulk insert the items in one statement
	var sb strings.Builder
	sb.WriteString(`INSERT INTO order_items (order_id, position, food_id, name, quantity, price) VALUES `)
	args := make([]any, 0, len(o.Items)*6)
	for i, it := range o.Items {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?)")
		args = append(args, o.ID, i, it.FoodID, it.Name, it.Quantity, it.Price)
	}
	_, err = r.db.ExecContext(ctx, sb.String(), args...)
	return err
}

// GetByID fetches one order with its items.
func (r *OrderRepo) GetByID(ctx context.Context, id string) (*model.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	orders := []model.Order{*o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// ListByUser returns the user's orders newest first.
func (r *OrderRepo) ListByUser(ctx context.Context, userID string) ([]model.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
}

// ListAll returns every order newest first.
func (r *OrderRepo) ListAll(ctx context.Context) ([]model.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id`)
}

func (r *OrderRepo) list(ctx context.Context, q string, args ...any) ([]model.Order, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// attachItems loads the items of all given orders with a single IN query.
func (r *OrderRepo) attachItems(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	index := make(map[string]int, len(orders))
	placeholders := make([]string, len(orders))
	args := make([]any, len(orders))
	for i := range orders {
		index[orders[i].ID] = i
		placeholders[i] = "?"
		args[i] = orders[i].ID
	}
	q := `SELECT order_id, food_id, name, quantity, price FROM order_items
	      WHERE order_id IN (` + strings.Join(placeholders, ",") + `) ORDER BY order_id, position`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var orderID string
		var it model.OrderItem
		if err := rows.Scan(&orderID, &it.FoodID, &it.Name, &it.Quantity, &it.Price); err != nil {
			return err
		}
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	return rows.Err()
}

// UpdateStatus overwrites the status and returns the updated order.
func (r *OrderRepo) UpdateStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete removes an order; items go with it through ON DELETE CASCADE.
func (r *OrderRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats aggregates the whole ledger in one pass.
func (r *OrderRepo) Stats(ctx context.Context, dayStart time.Time) (model.Stats, error) {
	const q = `SELECT COUNT(*),
	                  COALESCE(SUM(CASE WHEN status IN ('Preparing','Served') THEN 1 ELSE 0 END), 0),
	                  COALESCE(SUM(CASE WHEN status = 'Paid' THEN amount ELSE 0 END), 0),
	                  COALESCE(SUM(CASE WHEN status = 'Paid' AND created_at >= ? THEN amount ELSE 0 END), 0)
	           FROM orders`
	var s model.Stats
	err := r.db.QueryRowContext(ctx, q, dayStart.UTC()).Scan(&s.TotalOrders, &s.ActiveOrders, &s.TotalSales, &s.TodaySales)
	return s, err
}
