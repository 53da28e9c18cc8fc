package codec

// Opt is a decoded field value together with whether the remote record held
// a well-formed value for it.
type Opt[T any] struct {
	Value T
	Valid bool
}

// Some wraps a present value.
func Some[T any](v T) Opt[T] { return Opt[T]{Value: v, Valid: true} }

// None is an absent or malformed value.
func None[T any]() Opt[T] { return Opt[T]{} }

// Or returns the value, or def when the field was absent or malformed.
func (o Opt[T]) Or(def T) T {
	if o.Valid {
		return o.Value
	}
	return def
}
