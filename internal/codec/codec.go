// Package codec converts raw remote records into storefront entities and
// back. Decoding is defensive field by field: a missing or malformed optional
// field takes its default, and only a record that cannot represent an entity
// at all is rejected.
package codec

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/storefront/internal/db"
	"github.com/example/storefront/internal/metrics"
)

// ErrMalformed marks a record that cannot be decoded into an entity.
var ErrMalformed = errors.New("malformed record")

// Codec converts between one entity type and its remote representation.
type Codec[T any] interface {
	Decode(key string, data interface{}) (T, error)
	Encode(v T) db.Record
}

// DecodeAll decodes every child of a snapshot. Children that fail to decode
// are logged and skipped; the rest of the batch is unaffected.
func DecodeAll[T any](logger *zap.Logger, store string, c Codec[T], children []db.Child) []T {
	out := make([]T, 0, len(children))
	for _, child := range children {
		v, err := decodeOne(c, child)
		if err != nil {
			logger.Warn("Skipping record that failed to decode",
				zap.String("store", store),
				zap.String("key", child.Key),
				zap.Error(err),
			)
			metrics.DecodeFailures.WithLabelValues(store).Inc()
			continue
		}
		out = append(out, v)
	}
	return out
}

func decodeOne[T any](c Codec[T], child db.Child) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: decoder panicked: %v", ErrMalformed, r)
		}
	}()
	return c.Decode(child.Key, child.Data)
}
