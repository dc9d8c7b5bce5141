package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/cafe-ordering/internal/model"
	"github.com/iliyamo/cafe-ordering/internal/utils"
)

type memData struct {
	seats  map[string]model.Seat
	orders map[string]model.Order
	carts  map[string][]model.CartItem
	users  map[string]model.User
}

func newMemData() *memData {
	return &memData{
		seats:  map[string]model.Seat{},
		orders: map[string]model.Order{},
		carts:  map[string][]model.CartItem{},
		users:  map[string]model.User{},
	}
}

func (d *memData) clone() *memData {
	c := newMemData()
	for k, v := range d.seats {
		c.seats[k] = v
	}
	for k, v := range d.orders {
		c.orders[k] = v
	}
	for k, v := range d.carts {
		c.carts[k] = append([]model.CartItem(nil), v...)
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	return c
}

// MemoryStore is a process local Store used for development and tests.
// One mutex guards all tables; InTx holds it for the whole unit of work
// and restores a snapshot when fn fails.
type MemoryStore struct {
	mu          *sync.Mutex
	data        *memData
	frontendURL string
	inTx        bool
}

// NewMemoryStore returns an empty in-memory Store.
func NewMemoryStore(frontendURL string) *MemoryStore {
	return &MemoryStore{mu: &sync.Mutex{}, data: newMemData(), frontendURL: frontendURL}
}

func (s *MemoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) Seats() SeatStore   { return memSeats{s} }
func (s *MemoryStore) Orders() OrderStore { return memOrders{s} }
func (s *MemoryStore) Carts() CartStore   { return memCarts{s} }
func (s *MemoryStore) Users() UserStore   { return memUsers{s} }

// InTx runs fn while holding the store lock.
func (s *MemoryStore) InTx(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.data.clone()
	ok := false
	defer func() {
		if !ok {
			*s.data = *snap
		}
	}()
	if err := fn(&MemoryStore{mu: s.mu, data: s.data, frontendURL: s.frontendURL, inTx: true}); err != nil {
		return err
	}
	ok = true
	return nil
}

type memSeats struct{ s *MemoryStore }

func (m memSeats) Create(_ context.Context, name string, capacity int) (*model.Seat, error) {
	defer m.s.lock()()
	name = strings.TrimSpace(name)
	for _, seat := range m.s.data.seats {
		if strings.EqualFold(seat.Name, name) {
			return nil, ErrDuplicateName
		}
	}
	if capacity <= 0 {
		capacity = model.DefaultSeatCapacity
	}
	now := time.Now().UTC()
	seat := model.Seat{
		ID:         uuid.NewString(),
		Name:       name,
		Capacity:   capacity,
		Status:     model.SeatAvailable,
		QRCodeLink: qrLink(m.s.frontendURL, name),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.s.data.seats[seat.ID] = seat
	return &seat, nil
}

func (m memSeats) List(_ context.Context) ([]model.Seat, error) {
	defer m.s.lock()()
	out := make([]model.Seat, 0, len(m.s.data.seats))
	for _, seat := range m.s.data.seats {
		out = append(out, seat)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (m memSeats) GetByID(_ context.Context, id string) (*model.Seat, error) {
	defer m.s.lock()()
	seat, ok := m.s.data.seats[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &seat, nil
}

func (m memSeats) GetByName(_ context.Context, name string) (*model.Seat, error) {
	defer m.s.lock()()
	name = strings.TrimSpace(name)
	for _, seat := range m.s.data.seats {
		if strings.EqualFold(seat.Name, name) {
			return &seat, nil
		}
	}
	return nil, ErrNotFound
}

func (m memSeats) SetStatus(_ context.Context, id string, status model.SeatStatus) (*model.Seat, error) {
	defer m.s.lock()()
	seat, ok := m.s.data.seats[id]
	if !ok {
		return nil, ErrNotFound
	}
	seat.Status = status
	if status == model.SeatAvailable {
		seat.CurrentOrderID = nil
	}
	seat.UpdatedAt = time.Now().UTC()
	m.s.data.seats[id] = seat
	return &seat, nil
}

func (m memSeats) Reserve(_ context.Context, id, orderID string) (*model.Seat, error) {
	defer m.s.lock()()
	seat, ok := m.s.data.seats[id]
	if !ok {
		return nil, ErrNotFound
	}
	if seat.Status != model.SeatAvailable {
		return &seat, ErrSeatOccupied
	}
	link := orderID
	seat.Status = model.SeatOccupied
	seat.CurrentOrderID = &link
	seat.UpdatedAt = time.Now().UTC()
	m.s.data.seats[id] = seat
	return &seat, nil
}

func (m memSeats) Release(_ context.Context, id, orderID string) (bool, error) {
	defer m.s.lock()()
	seat, ok := m.s.data.seats[id]
	if !ok || !seat.HeldBy(orderID) {
		return false, nil
	}
	seat.Status = model.SeatAvailable
	seat.CurrentOrderID = nil
	seat.UpdatedAt = time.Now().UTC()
	m.s.data.seats[id] = seat
	return true, nil
}

func (m memSeats) Delete(_ context.Context, id string) error {
	defer m.s.lock()()
	seat, ok := m.s.data.seats[id]
	if !ok {
		return ErrNotFound
	}
	if seat.Status == model.SeatOccupied {
		return ErrSeatOccupied
	}
	delete(m.s.data.seats, id)
	return nil
}

type memOrders struct{ s *MemoryStore }

func copyOrder(o model.Order) model.Order {
	o.Items = append([]model.OrderItem{}, o.Items...)
	return o
}

func (m memOrders) Create(_ context.Context, o *model.Order) error {
	defer m.s.lock()()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	o.UpdatedAt = o.CreatedAt
	m.s.data.orders[o.ID] = copyOrder(*o)
	return nil
}

func (m memOrders) GetByID(_ context.Context, id string) (*model.Order, error) {
	defer m.s.lock()()
	o, ok := m.s.data.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	o = copyOrder(o)
	return &o, nil
}

func (m memOrders) list(keep func(model.Order) bool) []model.Order {
	out := make([]model.Order, 0)
	for _, o := range m.s.data.orders {
		if keep(o) {
			out = append(out, copyOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m memOrders) ListByUser(_ context.Context, userID string) ([]model.Order, error) {
	defer m.s.lock()()
	return m.list(func(o model.Order) bool { return o.UserID == userID }), nil
}

func (m memOrders) ListAll(_ context.Context) ([]model.Order, error) {
	defer m.s.lock()()
	return m.list(func(model.Order) bool { return true }), nil
}

func (m memOrders) UpdateStatus(_ context.Context, id string, status model.OrderStatus) (*model.Order, error) {
	defer m.s.lock()()
	o, ok := m.s.data.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	m.s.data.orders[id] = o
	o = copyOrder(o)
	return &o, nil
}

func (m memOrders) Delete(_ context.Context, id string) error {
	defer m.s.lock()()
	if _, ok := m.s.data.orders[id]; !ok {
		return ErrNotFound
	}
	delete(m.s.data.orders, id)
	return nil
}

func (m memOrders) Stats(_ context.Context, dayStart time.Time) (model.Stats, error) {
	defer m.s.lock()()
	var st model.Stats
	for _, o := range m.s.data.orders {
		st.Accumulate(o, dayStart)
	}
	return st, nil
}

type memCarts struct{ s *MemoryStore }

func (m memCarts) Get(_ context.Context, userID string) ([]model.CartItem, error) {
	defer m.s.lock()()
	return append([]model.CartItem{}, m.s.data.carts[userID]...), nil
}

func (m memCarts) Replace(_ context.Context, userID string, items []model.CartItem) error {
	defer m.s.lock()()
	m.s.data.carts[userID] = append([]model.CartItem{}, items...)
	return nil
}

func (m memCarts) Clear(_ context.Context, userID string) error {
	defer m.s.lock()()
	m.s.data.carts[userID] = []model.CartItem{}
	return nil
}

type memUsers struct{ s *MemoryStore }

func (m memUsers) Create(_ context.Context, u *model.User, password string, cost int) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	defer m.s.lock()()
	for _, existing := range m.s.data.users {
		if existing.Email == u.Email {
			return ErrEmailExists
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	now := time.Now().UTC()
	u.PasswordHash = hash
	u.CreatedAt, u.UpdatedAt = now, now
	m.s.data.users[u.ID] = *u
	return nil
}

func (m memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	defer m.s.lock()()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.s.data.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m memUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	defer m.s.lock()()
	u, ok := m.s.data.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}
