package codec

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/example/storefront/internal/db"
	"github.com/example/storefront/internal/models"
)

type panicky struct{}

func (panicky) Decode(key string, data interface{}) (models.Category, error) {
	if key == "bad" {
		panic("boom")
	}
	return CategoryCodec{}.Decode(key, data)
}

func (panicky) Encode(c models.Category) db.Record { return nil }

func TestDecodeAll_SkipsMalformedRecords(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	children := []db.Child{
		{Key: "a", Data: map[string]interface{}{"id": float64(1), "title": "Hats"}},
		{Key: "b", Data: map[string]interface{}{"id": "one"}},
		{Key: "c", Data: map[string]interface{}{"id": json.Number("3")}},
	}

	got := DecodeAll[models.Category](zap.New(core), "categories", CategoryCodec{}, children)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Key)
	assert.Equal(t, 3, got[1].ID)
	assert.Equal(t, 1, logs.Len())
}

func TestDecodeAll_RecoversDecoderPanic(t *testing.T) {
	children := []db.Child{
		{Key: "bad", Data: map[string]interface{}{"id": 1}},
		{Key: "good", Data: map[string]interface{}{"id": 2}},
	}

	got := DecodeAll[models.Category](zap.NewNop(), "categories", panicky{}, children)
	require.Len(t, got, 1)
	assert.Equal(t, "good", got[0].Key)
}

func TestRead_RejectsNonObjects(t *testing.T) {
	for _, data := range []interface{}{nil, "text", 42, []interface{}{1}} {
		_, err := Read(data)
		assert.ErrorIs(t, err, ErrMalformed, "%v", data)
	}
}

func TestFields_DefaultsAndInvalid(t *testing.T) {
	f, err := Read(map[string]interface{}{
		"price":    "12",
		"quantity": 2.5,
		"title":    "Mug",
		"tags":     []interface{}{"a", 3},
	})
	require.NoError(t, err)

	assert.Equal(t, 0.0, f.Float("price").Or(0))
	assert.Equal(t, 1, f.Int("quantity").Or(1))
	assert.Equal(t, "Mug", f.String("title").Or(""))
	assert.False(t, f.Bool("missing").Valid)
	assert.Equal(t, []string{"a"}, f.Strings("tags").Value)
	assert.Equal(t, []string{"price", "quantity", "tags"}, f.Invalid())
}

func TestFields_Time(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	f, err := Read(map[string]interface{}{
		"millis": float64(at.UnixMilli()),
		"text":   at.Format(time.RFC3339),
		"native": at,
	})
	require.NoError(t, err)

	assert.True(t, at.Equal(f.Time("millis").Value))
	assert.True(t, at.Equal(f.Time("text").Value))
	assert.True(t, at.Equal(f.Time("native").Value))
}

func TestFields_ListFromIndexedObject(t *testing.T) {
	f, err := Read(map[string]interface{}{
		"items": map[string]interface{}{"1": "second", "0": "first"},
	})
	require.NoError(t, err)

	list, ok := f.List("items")
	require.True(t, ok)
	assert.Equal(t, []interface{}{"first", "second"}, list)
}

func TestCartItemCodec(t *testing.T) {
	c := CartItemCodec{}

	item, err := c.Decode("k1", map[string]interface{}{"id": 5, "title": "Mug", "price": 4.5})
	require.NoError(t, err)
	assert.Equal(t, 1, item.Quantity)
	assert.Equal(t, "k1", item.Key)

	item, err = c.Decode("k2", map[string]interface{}{"id": 5, "quantity": -3})
	require.NoError(t, err)
	assert.Equal(t, 0, item.Quantity)

	_, err = c.Decode("k3", map[string]interface{}{"title": "no id"})
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestOrderCodec_RoundTrip(t *testing.T) {
	c := OrderCodec{}
	in := models.Order{
		ID:         "o1",
		UserID:     "alice",
		Items:      []models.OrderItem{{Name: "Mug", Price: 4.5, Quantity: 2}},
		TotalPrice: 9,
		Status:     models.OrderShipping,
		CreatedAt:  time.UnixMilli(1700000000000).UTC(),
		Shipping:   models.ShippingAddress{FullName: "Alice", Street: "Main 1", City: "Lisbon"},
	}

	out, err := c.Decode("o1", map[string]interface{}(c.Encode(in)))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestOrderCodec_Defaults(t *testing.T) {
	out, err := OrderCodec{}.Decode("o2", map[string]interface{}{
		"status": "lost",
		"items":  []interface{}{"junk", map[string]interface{}{"name": "Cap"}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, out.Status)
	require.Len(t, out.Items, 1)
	assert.Equal(t, 1, out.Items[0].Quantity)
}

func TestUserCodec_DefaultRole(t *testing.T) {
	u, err := UserCodec{}.Decode("uid-1", map[string]interface{}{"email": "a@b.c"})
	require.NoError(t, err)
	assert.Equal(t, "uid-1", u.UID)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.False(t, u.IsAdmin())
}
