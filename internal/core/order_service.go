package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/storefront/internal/db"
	"github.com/example/storefront/internal/events"
	"github.com/example/storefront/internal/mirror"
	"github.com/example/storefront/internal/models"
)

// orderService implements the OrderService interface.
type orderService struct {
	sessions  SessionSource
	stores    *Stores
	client    db.Client
	publisher events.Publisher
	logger    *zap.Logger
}

// NewOrderService creates a new OrderService instance. client is used to
// reach the orders of users who are not signed in on this instance.
func NewOrderService(sessions SessionSource, stores *Stores, client db.Client, publisher events.Publisher, logger *zap.Logger) OrderService {
	return &orderService{
		sessions:  sessions,
		stores:    stores,
		client:    client,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *orderService) List(uid string) ([]models.Order, error) {
	us, err := s.sessions.Get(uid)
	if err != nil {
		return nil, err
	}
	return us.orders.Items(), nil
}

// Checkout turns the selected cart lines into a pending order and then
// removes those lines from the cart. The cart stays locked throughout so a
// concurrent quantity change lands either before the order or after the
// lines are gone.
func (s *orderService) Checkout(ctx context.Context, uid string, shipping models.ShippingAddress) (models.Order, error) {
	us, err := s.sessions.Get(uid)
	if err != nil {
		return models.Order{}, err
	}
	defer us.LockCart()()

	var selected []models.CartItem
	for _, it := range us.cart.Items() {
		if it.Selected && it.Quantity > 0 {
			selected = append(selected, it)
		}
	}
	if len(selected) == 0 {
		return models.Order{}, ErrEmptySelection
	}

	order := models.Order{
		UserID:     uid,
		Items:      make([]models.OrderItem, 0, len(selected)),
		TotalPrice: totals(selected).Subtotal,
		Status:     models.OrderPending,
		CreatedAt:  time.Now().UTC().Truncate(time.Millisecond),
		Shipping:   shipping,
	}
	for _, it := range selected {
		order.Items = append(order.Items, models.OrderItem{
			Name:     it.Title,
			Price:    it.Price,
			Quantity: it.Quantity,
			Image:    it.Image,
		})
	}

	placed, err := us.AddOrder(ctx, order).Wait(ctx)
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to place order for user '%s': %w", uid, err)
	}
	s.logger.Info("Order placed",
		zap.String("uid", uid),
		zap.String("orderId", placed.ID),
		zap.Float64("total", placed.TotalPrice),
	)

	// Issue every removal before waiting so they proceed concurrently.
	var errs []error
	ops := make([]func() error, 0, len(selected))
	for _, it := range selected {
		op := us.RemoveCartItem(ctx, it.Key)
		ops = append(ops, func() error { _, err := op.Wait(ctx); return err })
	}
	for _, wait := range ops {
		if err := wait(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.Warn("Order placed but cart lines were not all removed", zap.String("orderId", placed.ID), zap.Error(err))
	}

	s.publish(ctx, events.OrderPlaced, placed)
	return placed, nil
}

// UpdateStatus moves an order to status. When the owner is not signed in
// here, a temporary mirror of their orders is used.
func (s *orderService) UpdateStatus(ctx context.Context, uid, orderID string, status models.OrderStatus) (models.Order, error) {
	if !status.Valid() {
		return models.Order{}, fmt.Errorf("%w: unknown status '%s'", ErrInvalidTransition, status)
	}

	var orders *mirror.Store[models.Order]
	if us, err := s.sessions.Get(uid); err == nil {
		orders = us.orders
	} else {
		orders = newOrdersStore(s.client, s.logger)
		if err := orders.SetScope(ctx, uid); err != nil {
			return models.Order{}, err
		}
		defer orders.Close()
		if err := orders.Ready(ctx); err != nil {
			return models.Order{}, fmt.Errorf("failed to load orders of user '%s': %w", uid, err)
		}
	}

	order, ok := orders.Find(orderID)
	if !ok {
		return models.Order{}, fmt.Errorf("%w: order '%s' of user '%s'", ErrNotFound, orderID, uid)
	}
	if order.Status == status {
		return order, nil
	}
	if !order.Status.CanTransition(status) {
		return models.Order{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, status)
	}

	order.Status = status
	updated, err := orders.Update(ctx, order).Wait(ctx)
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to update order '%s': %w", orderID, err)
	}
	s.logger.Info("Order status changed", zap.String("orderId", orderID), zap.String("status", string(status)))

	s.publish(ctx, events.OrderStatusChanged, updated)
	return updated, nil
}

// publish reports failures without failing the order operation that
// already succeeded.
func (s *orderService) publish(ctx context.Context, typ string, order models.Order) {
	var email, name string
	if u, ok := s.stores.users.Find(order.UserID); ok {
		email, name = u.Email, u.DisplayName
	}
	if err := s.publisher.Publish(ctx, events.NewOrderEvent(typ, order, email, name)); err != nil {
		s.logger.Error("Failed to publish order event",
			zap.String("type", typ),
			zap.String("orderId", order.ID),
			zap.Error(err),
		)
	}
}
