package models

// AddToCartRequest represents the request body for putting a product in the cart.
type AddToCartRequest struct {
	ProductKey string `json:"productKey" binding:"required"`
	Quantity   int    `json:"quantity" binding:"omitempty,min=1"`
	MaxStock   int    `json:"maxStock" binding:"omitempty,min=0"`
}

// UpdateCartItemRequest represents the request body for changing a cart line.
// Pointers distinguish fields that were not provided from zero values; a
// quantity of 0 removes the line.
type UpdateCartItemRequest struct {
	Quantity *int  `json:"quantity,omitempty"`
	Selected *bool `json:"selected,omitempty"`
}

// CheckoutRequest represents the request body for placing an order from the
// selected cart lines.
type CheckoutRequest struct {
	Shipping ShippingAddress `json:"shipping"`
}

// UpdateOrderStatusRequest represents the admin request body for moving an order.
type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status" binding:"required"`
}

// UpdateRoleRequest represents the admin request body for changing a user's role.
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=user admin"`
}

// CategoryRequest represents the admin request body for creating or replacing a category.
type CategoryRequest struct {
	ID      int    `json:"id" binding:"required"`
	Title   string `json:"title" binding:"required"`
	Picture string `json:"picture,omitempty"`
}

// ProductRequest represents the admin request body for creating or replacing a product.
type ProductRequest struct {
	Title       string   `json:"title" binding:"required"`
	Price       float64  `json:"price" binding:"min=0"`
	Description string   `json:"description,omitempty"`
	Pictures    []string `json:"pictures,omitempty"`
	CategoryID  int      `json:"categoryId"`
	Rating      float64  `json:"rating" binding:"min=0,max=5"`
	Recommended bool     `json:"recommended"`
	Models      []string `json:"models,omitempty"`
}

// Product builds the model carried by the request.
func (r ProductRequest) Product() Product {
	return Product{
		Title:       r.Title,
		Price:       r.Price,
		Description: r.Description,
		Pictures:    r.Pictures,
		CategoryID:  r.CategoryID,
		Rating:      r.Rating,
		Recommended: r.Recommended,
		Models:      r.Models,
	}
}

// Category builds the model carried by the request.
func (r CategoryRequest) Category() Category {
	return Category{ID: r.ID, Title: r.Title, Picture: r.Picture}
}
