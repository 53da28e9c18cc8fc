package mirror

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubject_WatchReplaysCurrentValue(t *testing.T) {
	s := NewSubject[int]()
	_, ok := s.Value()
	assert.False(t, ok)

	s.Publish(1)
	w := s.Watch()
	defer w.Close()

	assert.Equal(t, 1, <-w.C())
	v, ok := s.Value()
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestSubject_SlowWatcherGetsLatest(t *testing.T) {
	s := NewSubject[int]()
	w := s.Watch()
	defer w.Close()

	for i := 1; i <= 10; i++ {
		s.Publish(i)
	}
	assert.Equal(t, 10, <-w.C())
	select {
	case v := <-w.C():
		t.Fatalf("unexpected extra value %d", v)
	default:
	}
}

func TestSubject_CloseUnregisters(t *testing.T) {
	s := NewSubject[string]()
	w := s.Watch()
	require.Equal(t, 1, s.Watchers())

	w.Close()
	w.Close()
	assert.Equal(t, 0, s.Watchers())

	_, open := <-w.C()
	assert.False(t, open)

	s.Publish("after close")
}

func TestSubject_CloseWatchersKeepsValue(t *testing.T) {
	s := NewSubject[int]()
	s.Publish(3)
	a, b := s.Watch(), s.Watch()

	s.CloseWatchers()
	assert.Equal(t, 0, s.Watchers())
	for _, w := range []*Watcher[int]{a, b} {
		v, open := <-w.C()
		assert.True(t, open)
		assert.Equal(t, 3, v)
		_, open = <-w.C()
		assert.False(t, open)
		w.Close()
	}

	late := s.Watch()
	defer late.Close()
	assert.Equal(t, 3, <-late.C())
}
