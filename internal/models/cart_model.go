package models

// CartItem is one line of a user's cart, stored under Cart/{uid}/items/{key}.
type CartItem struct {
	Key        string  `json:"key,omitempty"`
	ID         int     `json:"id"`
	ProductKey string  `json:"productKey,omitempty"`
	Title      string  `json:"title"`
	Price      float64 `json:"price"`
	Image      string  `json:"image,omitempty"`
	Quantity   int     `json:"quantity"`
	Selected   bool    `json:"selected"`
	MaxStock   int     `json:"maxStock,omitempty"` // 0 means unbounded
}

func (c CartItem) RemoteKey() string { return c.Key }

func (c CartItem) WithRemoteKey(key string) CartItem {
	c.Key = key
	return c
}

// LineTotal is price times quantity.
func (c CartItem) LineTotal() float64 { return c.Price * float64(c.Quantity) }

// Fits reports whether qty respects the line's stock bound.
func (c CartItem) Fits(qty int) bool {
	return c.MaxStock <= 0 || qty <= c.MaxStock
}
