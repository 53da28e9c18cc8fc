package codec

import (
	"fmt"

	"github.com/example/storefront/internal/db"
	"github.com/example/storefront/internal/models"
)

// UserCodec maps users/{uid} records.
type UserCodec struct{}

func (UserCodec) Decode(key string, data interface{}) (models.User, error) {
	f, err := Read(data)
	if err != nil {
		return models.User{}, err
	}
	return models.User{
		UID:         key,
		DisplayName: f.String("name").Or(""),
		Email:       f.String("email").Or(""),
		Role:        f.String("role").Or(models.RoleUser),
		CreatedAt:   f.Time("createdAt").Or(zeroTime),
	}, nil
}

func (UserCodec) Encode(u models.User) db.Record {
	return db.Record{
		"uid":       u.UID,
		"name":      u.DisplayName,
		"email":     u.Email,
		"role":      u.Role,
		"createdAt": u.CreatedAt.UnixMilli(),
	}
}

// CategoryCodec maps Category/{key} records. The integer id is required.
type CategoryCodec struct{}

func (CategoryCodec) Decode(key string, data interface{}) (models.Category, error) {
	f, err := Read(data)
	if err != nil {
		return models.Category{}, err
	}
	id := f.Int("id")
	if !id.Valid {
		return models.Category{}, fmt.Errorf("%w: category has no integer id", ErrMalformed)
	}
	return models.Category{
		Key:     key,
		ID:      id.Value,
		Title:   f.String("title").Or(""),
		Picture: f.String("picture").Or(""),
	}, nil
}

func (CategoryCodec) Encode(c models.Category) db.Record {
	return db.Record{
		"id":      c.ID,
		"title":   c.Title,
		"picture": c.Picture,
	}
}

// ProductCodec maps Items/{key} records.
type ProductCodec struct{}

func (ProductCodec) Decode(key string, data interface{}) (models.Product, error) {
	f, err := Read(data)
	if err != nil {
		return models.Product{}, err
	}
	return models.Product{
		Key:         key,
		Title:       f.String("title").Or(""),
		Price:       f.Float("price").Or(0),
		Description: f.String("description").Or(""),
		Pictures:    f.Strings("pictures").Or(nil),
		CategoryID:  f.Int("categoryId").Or(0),
		Rating:      f.Float("rating").Or(0),
		Recommended: f.Bool("recommended").Or(false),
		Models:      f.Strings("models").Or(nil),
	}, nil
}

func (ProductCodec) Encode(p models.Product) db.Record {
	return db.Record{
		"title":       p.Title,
		"price":       p.Price,
		"description": p.Description,
		"pictures":    stringList(p.Pictures),
		"categoryId":  p.CategoryID,
		"rating":      p.Rating,
		"recommended": p.Recommended,
		"models":      stringList(p.Models),
	}
}

// CartItemCodec maps Cart/{uid}/items/{key} records. The integer id is
// required; quantity defaults to 1 and never decodes below 0.
type CartItemCodec struct{}

func (CartItemCodec) Decode(key string, data interface{}) (models.CartItem, error) {
	f, err := Read(data)
	if err != nil {
		return models.CartItem{}, err
	}
	id := f.Int("id")
	if !id.Valid {
		return models.CartItem{}, fmt.Errorf("%w: cart item has no integer id", ErrMalformed)
	}
	qty := f.Int("quantity").Or(1)
	if qty < 0 {
		qty = 0
	}
	return models.CartItem{
		Key:        key,
		ID:         id.Value,
		ProductKey: f.String("productKey").Or(""),
		Title:      f.String("title").Or(""),
		Price:      f.Float("price").Or(0),
		Image:      f.String("image").Or(""),
		Quantity:   qty,
		Selected:   f.Bool("selected").Or(false),
		MaxStock:   f.Int("maxStock").Or(0),
	}, nil
}

func (CartItemCodec) Encode(c models.CartItem) db.Record {
	rec := db.Record{
		"id":         c.ID,
		"productKey": c.ProductKey,
		"title":      c.Title,
		"price":      c.Price,
		"quantity":   c.Quantity,
		"selected":   c.Selected,
		"maxStock":   c.MaxStock,
	}
	if c.Image != "" {
		rec["image"] = c.Image
	}
	return rec
}

// OrderCodec maps orders/{uid}/{id} records. Unknown statuses decode
// as pending; order lines that are not objects are dropped.
type OrderCodec struct{}

func (OrderCodec) Decode(key string, data interface{}) (models.Order, error) {
	f, err := Read(data)
	if err != nil {
		return models.Order{}, err
	}

	status := models.OrderStatus(f.String("status").Or(string(models.OrderPending)))
	if !status.Valid() {
		status = models.OrderPending
	}

	order := models.Order{
		ID:         key,
		UserID:     f.String("userId").Or(""),
		TotalPrice: f.Float("totalPrice").Or(0),
		Status:     status,
		CreatedAt:  f.Time("createdAt").Or(zeroTime),
	}

	if raw, ok := f.List("items"); ok {
		order.Items = make([]models.OrderItem, 0, len(raw))
		for _, entry := range raw {
			item, err := Read(entry)
			if err != nil {
				continue
			}
			order.Items = append(order.Items, models.OrderItem{
				Name:     item.String("name").Or(""),
				Price:    item.Float("price").Or(0),
				Quantity: item.Int("quantity").Or(1),
				Image:    item.String("image").Or(""),
			})
		}
	}

	if ship, ok := f.Object("shipping"); ok {
		order.Shipping = models.ShippingAddress{
			FullName:   ship.String("fullName").Or(""),
			Phone:      ship.String("phone").Or(""),
			Street:     ship.String("street").Or(""),
			City:       ship.String("city").Or(""),
			PostalCode: ship.String("postalCode").Or(""),
			Country:    ship.String("country").Or(""),
		}
	}
	return order, nil
}

func (OrderCodec) Encode(o models.Order) db.Record {
	items := make([]interface{}, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, map[string]interface{}{
			"name":     it.Name,
			"price":    it.Price,
			"quantity": it.Quantity,
			"image":    it.Image,
		})
	}
	return db.Record{
		"userId":     o.UserID,
		"items":      items,
		"totalPrice": o.TotalPrice,
		"status":     string(o.Status),
		"createdAt":  o.CreatedAt.UnixMilli(),
		"shipping": map[string]interface{}{
			"fullName":   o.Shipping.FullName,
			"phone":      o.Shipping.Phone,
			"street":     o.Shipping.Street,
			"city":       o.Shipping.City,
			"postalCode": o.Shipping.PostalCode,
			"country":    o.Shipping.Country,
		},
	}
}

func stringList(in []string) []interface{} {
	out := make([]interface{}, 0, len(in))
	for _, s := range in {
		out = append(out, s)
	}
	return out
}
