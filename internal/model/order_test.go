package model

import (
	"testing"
	"time"
)

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		want     bool
	}{
		{StatusPreparing, StatusReady, true},
		{StatusPreparing, StatusServed, true},
		{StatusPreparing, StatusCancelled, true},
		{StatusPreparing, StatusPaid, false},
		{StatusPreparing, StatusCompleted, false},
		{StatusServed, StatusPaid, true},
		{StatusPaid, StatusCompleted, true},
		{StatusPaid, StatusPreparing, false},
		{StatusCompleted, StatusPreparing, false},
		{StatusCompleted, StatusCompleted, true},
		{OrderStatus("Lost"), OrderStatus("Lost"), false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Errorf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestReleaseAndDeleteRules(t *testing.T) {
	for _, s := range []OrderStatus{StatusPreparing, StatusReady, StatusServed, StatusPaid} {
		if s.ReleasesSeat() {
			t.Errorf("%s should keep the seat", s)
		}
	}
	for _, s := range []OrderStatus{StatusCompleted, StatusCancelled} {
		if !s.ReleasesSeat() || !s.Deletable() {
			t.Errorf("%s should release and be deletable", s)
		}
	}
	if StatusPreparing.Deletable() || StatusServed.Deletable() {
		t.Error("active orders must not be deletable")
	}
	if !StatusPaid.Deletable() {
		t.Error("paid orders are deletable")
	}
}

func TestHoldsSeat(t *testing.T) {
	id := "s1"
	empty := ""
	cases := map[string]struct {
		o    Order
		want bool
	}{
		"dine-in with seat": {Order{OrderType: OrderDineIn, TableID: &id}, true},
		"dine-in no seat":   {Order{OrderType: OrderDineIn}, false},
		"dine-in blank":     {Order{OrderType: OrderDineIn, TableID: &empty}, false},
		"takeaway":          {Order{OrderType: OrderTakeaway, TableID: &id}, false},
	}
	for name, tc := range cases {
		if got := tc.o.HoldsSeat(); got != tc.want {
			t.Errorf("%s: got %v", name, got)
		}
	}
}

func TestStatsAccumulate(t *testing.T) {
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	var s Stats
	for _, o := range []Order{
		{Status: StatusPreparing, Amount: 70, CreatedAt: day.Add(time.Hour)},
		{Status: StatusServed, Amount: 20, CreatedAt: day.Add(time.Hour)},
		{Status: StatusPaid, Amount: 100, CreatedAt: day.Add(-time.Hour)},
		{Status: StatusPaid, Amount: 50, CreatedAt: day},
		{Status: StatusCancelled, Amount: 999, CreatedAt: day},
	} {
		s.Accumulate(o, day)
	}
	want := Stats{TotalOrders: 5, ActiveOrders: 2, TotalSales: 150, TodaySales: 50}
	if s != want {
		t.Errorf("stats = %+v, want %+v", s, want)
	}
}

func TestCartFromLegacy(t *testing.T) {
	items := CartFromLegacy(map[string]int{"f1": 2, "f2": 0, "": 3, "f3": -1})
	if len(items) != 1 || items[0].FoodID != "f1" || items[0].Quantity != 2 {
		t.Fatalf("unexpected items %+v", items)
	}
	if got := CartFromLegacy(nil); got == nil || len(got) != 0 {
		t.Errorf("nil map should give an empty cart, got %#v", got)
	}
}

func TestAddAndRemoveCartItem(t *testing.T) {
	chai := CartItem{FoodID: "f1", Name: "Masala Chai", Price: 20}
	items := AddCartItem(nil, chai)
	items = AddCartItem(items, CartItem{FoodID: "f1"})
	items = AddCartItem(items, CartItem{FoodID: "f2", Name: "Vada", Price: 35})
	if len(items) != 2 || items[0].Quantity != 2 || items[0].Name != "Masala Chai" || items[1].Quantity != 1 {
		t.Fatalf("after adds: %+v", items)
	}

	before := append([]CartItem{}, items...)
	items = RemoveCartItem(items, "f2")
	if len(items) != 1 || items[0].FoodID != "f1" {
		t.Fatalf("line not dropped at zero: %+v", items)
	}
	if before[1].Quantity != 1 {
		t.Errorf("input cart modified: %+v", before)
	}
	items = RemoveCartItem(items, "f1")
	if len(items) != 1 || items[0].Quantity != 1 {
		t.Fatalf("decrement: %+v", items)
	}
	if got := RemoveCartItem(items, "missing"); len(got) != 1 || got[0].Quantity != 1 {
		t.Errorf("removing an absent item changed the cart: %+v", got)
	}
}

func TestEnumsValid(t *testing.T) {
	if !OrderDineIn.Valid() || OrderType("drone").Valid() {
		t.Error("order type validation broken")
	}
	if !SeatReserved.Valid() || SeatStatus("broken").Valid() {
		t.Error("seat status validation broken")
	}
}
