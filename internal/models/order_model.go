package models

import "time"

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipping  OrderStatus = "shipping"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderShipping, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// CanTransition reports whether an order may move from s to next.
// Orders advance pending -> confirmed -> shipping -> delivered and may be
// cancelled from any non-terminal status.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	if !next.Valid() || s.Terminal() {
		return false
	}
	if next == OrderCancelled {
		return true
	}
	switch s {
	case OrderPending:
		return next == OrderConfirmed
	case OrderConfirmed:
		return next == OrderShipping
	case OrderShipping:
		return next == OrderDelivered
	}
	return false
}

// OrderItem is a snapshot of a cart line at checkout time.
type OrderItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Image    string  `json:"image,omitempty"`
}

// ShippingAddress is where an order is delivered.
type ShippingAddress struct {
	FullName   string `json:"fullName" binding:"required"`
	Phone      string `json:"phone,omitempty"`
	Street     string `json:"street" binding:"required"`
	City       string `json:"city" binding:"required"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
}

// Order is stored under orders/{uid}/{id}.
type Order struct {
	ID         string          `json:"id,omitempty"`
	UserID     string          `json:"userId"`
	Items      []OrderItem     `json:"items"`
	TotalPrice float64         `json:"totalPrice"`
	Status     OrderStatus     `json:"status"`
	CreatedAt  time.Time       `json:"createdAt"`
	Shipping   ShippingAddress `json:"shipping"`
}

func (o Order) RemoteKey() string { return o.ID }

func (o Order) WithRemoteKey(key string) Order {
	o.ID = key
	return o
}

// NewerFirst orders by creation time, most recent first.
func NewerFirst(a, b Order) bool {
	return a.CreatedAt.After(b.CreatedAt)
}
