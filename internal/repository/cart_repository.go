package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/iliyamo/cafe-ordering/internal/model"
)

// CartRepo stores one JSON encoded cart per user.
type CartRepo struct {
	db dbtx
}

// Get returns the user's cart. A user without a cart row has an empty cart.
func (r *CartRepo) Get(ctx context.Context, userID string) ([]model.CartItem, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, `SELECT items FROM carts WHERE user_id = ?`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []model.CartItem{}, nil
	}
	if err != nil {
		return nil, err
	}
	items := []model.CartItem{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// Replace upserts the whole cart.
func (r *CartRepo) Replace(ctx context.Context, userID string, items []model.CartItem) error {
	if items == nil {
		items = []model.CartItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	const q = `INSERT INTO carts (user_id, items, updated_at) VALUES (?, ?, ?)
	           ON DUPLICATE KEY UPDATE items = VALUES(items), updated_at = VALUES(updated_at)`
	_, err = r.db.ExecContext(ctx, q, userID, string(raw), time.Now().UTC())
	return err
}

// Clear empties the cart. Clearing a missing cart is not an error.
func (r *CartRepo) Clear(ctx context.Context, userID string) error {
	return r.Replace(ctx, userID, nil)
}
