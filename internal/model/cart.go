package model

// CartItem is one line of a user's working cart.  The array of CartItem
// is the canonical cart shape; the older {foodId: quantity} map is only
// accepted at the HTTP boundary and converted with CartFromLegacy.
type CartItem struct {
    FoodID   string  `json:"_id" validate:"required"`
    Name     string  `json:"name"`
    Price    float64 `json:"price" validate:"gte=0"`
    Quantity int     `json:"quantity" validate:"gt=0"`
}

// CartFromLegacy converts the legacy map-shaped cart into cart items.
// Entries with a non-positive quantity are dropped.  Names and prices are
// unknown in the legacy shape and left empty.
func CartFromLegacy(legacy map[string]int) []CartItem {
    items := make([]CartItem, 0, len(legacy))
    for id, qty := range legacy {
        if id == "" || qty <= 0 {
            continue
        }
        items = append(items, CartItem{FoodID: id, Quantity: qty})
    }
    return items
}

// AddCartItem adds one unit of item.FoodID, appending a new line when the
// cart does not hold it yet.  A known line keeps its name and price unless
// they were empty.
func AddCartItem(items []CartItem, item CartItem) []CartItem {
    out := append([]CartItem{}, items...)
    for i := range out {
        if out[i].FoodID != item.FoodID {
            continue
        }
        out[i].Quantity++
        if out[i].Name == "" {
            out[i].Name = item.Name
        }
        if out[i].Price == 0 {
            out[i].Price = item.Price
        }
        return out
    }
    item.Quantity = 1
    return append(out, item)
}

// RemoveCartItem takes one unit of foodID off the cart and drops the line
// when its quantity reaches zero.  Removing an item the cart does not hold
// leaves it unchanged.
func RemoveCartItem(items []CartItem, foodID string) []CartItem {
    out := make([]CartItem, 0, len(items))
    for _, it := range items {
        if it.FoodID == foodID {
            it.Quantity--
            if it.Quantity <= 0 {
                continue
            }
        }
        out = append(out, it)
    }
    return out
}
