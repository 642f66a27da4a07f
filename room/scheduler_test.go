package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualScheduler(t *testing.T) {
	s := NewManualScheduler()
	var fired []string

	s.AfterFunc(2*time.Second, func() { fired = append(fired, "b") })
	s.AfterFunc(time.Second, func() {
		fired = append(fired, "a")
		s.AfterFunc(500*time.Millisecond, func() { fired = append(fired, "a2") })
	})
	stopped := s.AfterFunc(time.Second, func() { fired = append(fired, "never") })
	assert.True(t, stopped.Stop())
	assert.False(t, stopped.Stop())
	assert.Equal(t, 2, s.Pending())

	s.Advance(1500 * time.Millisecond)
	assert.Equal(t, []string{"a", "a2"}, fired)

	s.Advance(time.Second)
	assert.Equal(t, []string{"a", "a2", "b"}, fired)
	assert.Zero(t, s.Pending())
}
