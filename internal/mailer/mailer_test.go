package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/events"
	"github.com/example/storefront/internal/models"
)

type sent struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  string
}

func capture(out *[]sent, err error) SendFunc {
	return func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		*out = append(*out, sent{addr, a, from, to, string(msg)})
		return err
	}
}

func placed() events.Event {
	return events.Event{
		ID: "e1", Type: events.OrderPlaced, OrderID: "o1", Email: "alice@example.com",
		Name: "Alice", Status: models.OrderPending, Total: 18, Items: 3,
	}
}

func TestNotify_OrderPlaced(t *testing.T) {
	var out []sent
	m := New(Config{Host: "smtp.local", Port: 2525, User: "u", Pass: "p", From: "shop@example.com"}, zap.NewNop()).
		WithSendFunc(capture(&out, nil))

	require.NoError(t, m.Notify(context.Background(), placed()))
	require.Len(t, out, 1)
	assert.Equal(t, "smtp.local:2525", out[0].addr)
	assert.NotNil(t, out[0].auth)
	assert.Equal(t, []string{"alice@example.com"}, out[0].to)
	assert.Contains(t, out[0].msg, "Subject: Order o1 received")
	assert.Contains(t, out[0].msg, "Hello Alice")
	assert.Contains(t, out[0].msg, "18.00")
}

func TestNotify_StatusChanged(t *testing.T) {
	var out []sent
	m := New(Config{Host: "smtp.local", Port: 25, From: "shop@example.com"}, zap.NewNop()).
		WithSendFunc(capture(&out, nil))

	e := placed()
	e.Type = events.OrderStatusChanged
	e.Status = models.OrderShipping
	require.NoError(t, m.Notify(context.Background(), e))
	require.Len(t, out, 1)
	assert.Nil(t, out[0].auth)
	assert.Contains(t, out[0].msg, "Subject: Order o1 is shipping")
	assert.Contains(t, out[0].msg, "<b>shipping</b>")
}

func TestNotify_SkipsAndFailures(t *testing.T) {
	var out []sent
	m := New(Config{Host: "smtp.local", Port: 25, From: "shop@example.com"}, zap.NewNop()).
		WithSendFunc(capture(&out, errors.New("421 busy")))

	e := placed()
	e.Email = ""
	require.NoError(t, m.Notify(context.Background(), e))
	assert.Empty(t, out)

	assert.Error(t, m.Notify(context.Background(), placed()))

	noSender := New(Config{Host: "smtp.local"}, zap.NewNop()).WithSendFunc(capture(&out, nil))
	assert.Error(t, noSender.Notify(context.Background(), placed()))
}
