package codec

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/example/storefront/internal/db"
)

// Fields reads typed values out of one raw remote record. Each accessor
// returns an Opt and never fails; fields that are present but hold a value
// of the wrong shape are remembered and reported by Invalid.
type Fields struct {
	m       map[string]interface{}
	invalid []string
}

// Read wraps data, which must be a JSON-like object.
func Read(data interface{}) (*Fields, error) {
	switch m := data.(type) {
	case map[string]interface{}:
		return &Fields{m: m}, nil
	case db.Record:
		return &Fields{m: m}, nil
	case nil:
		return nil, fmt.Errorf("%w: record is empty", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: record is %T, not an object", ErrMalformed, data)
	}
}

// Invalid lists the fields that were present but malformed, in name order.
func (f *Fields) Invalid() []string {
	out := append([]string(nil), f.invalid...)
	sort.Strings(out)
	return out
}

func (f *Fields) lookup(name string) (interface{}, bool) {
	v, ok := f.m[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (f *Fields) bad(name string) {
	f.invalid = append(f.invalid, name)
}

// String reads a string field.
func (f *Fields) String(name string) Opt[string] {
	v, ok := f.lookup(name)
	if !ok {
		return None[string]()
	}
	s, ok := v.(string)
	if !ok {
		f.bad(name)
		return None[string]()
	}
	return Some(s)
}

// Float reads a numeric field.
func (f *Fields) Float(name string) Opt[float64] {
	v, ok := f.lookup(name)
	if !ok {
		return None[float64]()
	}
	n, ok := toFloat(v)
	if !ok {
		f.bad(name)
		return None[float64]()
	}
	return Some(n)
}

// Int reads an integral numeric field. Fractional values are malformed.
func (f *Fields) Int(name string) Opt[int] {
	v, ok := f.lookup(name)
	if !ok {
		return None[int]()
	}
	n, ok := toFloat(v)
	if !ok || n != math.Trunc(n) || math.Abs(n) > math.MaxInt32 {
		f.bad(name)
		return None[int]()
	}
	return Some(int(n))
}

// Bool reads a boolean field.
func (f *Fields) Bool(name string) Opt[bool] {
	v, ok := f.lookup(name)
	if !ok {
		return None[bool]()
	}
	b, ok := v.(bool)
	if !ok {
		f.bad(name)
		return None[bool]()
	}
	return Some(b)
}

// Strings reads a list of strings. Non-string elements are dropped and mark
// the field as malformed.
func (f *Fields) Strings(name string) Opt[[]string] {
	v, ok := f.lookup(name)
	if !ok {
		return None[[]string]()
	}
	switch list := v.(type) {
	case []string:
		return Some(append([]string(nil), list...))
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				f.bad(name)
				continue
			}
			out = append(out, s)
		}
		return Some(out)
	default:
		f.bad(name)
		return None[[]string]()
	}
}

// Time reads a timestamp stored as a native time, epoch milliseconds or an
// RFC 3339 string.
func (f *Fields) Time(name string) Opt[time.Time] {
	v, ok := f.lookup(name)
	if !ok {
		return None[time.Time]()
	}
	switch t := v.(type) {
	case time.Time:
		return Some(t.UTC())
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			f.bad(name)
			return None[time.Time]()
		}
		return Some(parsed.UTC())
	}
	ms, ok := toFloat(v)
	if !ok {
		f.bad(name)
		return None[time.Time]()
	}
	return Some(time.UnixMilli(int64(ms)).UTC())
}

// Object reads a nested object field.
func (f *Fields) Object(name string) (*Fields, bool) {
	v, ok := f.lookup(name)
	if !ok {
		return nil, false
	}
	nested, err := Read(v)
	if err != nil {
		f.bad(name)
		return nil, false
	}
	return nested, true
}

// List reads a list field. Realtime Database returns arrays with holes as
// objects keyed by index; those are accepted in index order.
func (f *Fields) List(name string) ([]interface{}, bool) {
	v, ok := f.lookup(name)
	if !ok {
		return nil, false
	}
	switch list := v.(type) {
	case []interface{}:
		return list, true
	case map[string]interface{}:
		type indexed struct {
			i int
			v interface{}
		}
		items := make([]indexed, 0, len(list))
		for k, item := range list {
			i, err := strconv.Atoi(k)
			if err != nil {
				f.bad(name)
				return nil, false
			}
			items = append(items, indexed{i, item})
		}
		sort.Slice(items, func(a, b int) bool { return items[a].i < items[b].i })
		out := make([]interface{}, 0, len(items))
		for _, it := range items {
			out = append(out, it.v)
		}
		return out, true
	default:
		f.bad(name)
		return nil, false
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

var zeroTime time.Time
