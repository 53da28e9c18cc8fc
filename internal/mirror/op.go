package mirror

import "context"

// Result is the outcome of a write-through mutation.
type Result[T any] struct {
	Value T
	Err   error
}

// Op is a pending mutation. Key is known as soon as the Op is returned, so a
// caller can refer to a freshly added entity before the write is
// acknowledged.
type Op[T any] struct {
	Key    string
	done   chan struct{}
	result Result[T]
}

func newOp[T any](key string) *Op[T] {
	return &Op[T]{Key: key, done: make(chan struct{})}
}

func failedOp[T any](key string, err error) *Op[T] {
	op := newOp[T](key)
	var zero T
	op.resolve(zero, err)
	return op
}

func (o *Op[T]) resolve(v T, err error) {
	o.result = Result[T]{Value: v, Err: err}
	close(o.done)
}

// Done is closed once the mutation has completed.
func (o *Op[T]) Done() <-chan struct{} { return o.done }

// Result returns the outcome. It is only meaningful after Done is closed.
func (o *Op[T]) Result() Result[T] {
	select {
	case <-o.done:
		return o.result
	default:
		return Result[T]{Err: ErrPending}
	}
}

// Wait blocks until the mutation completes or ctx ends.
func (o *Op[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-o.done:
		return o.result.Value, o.result.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
