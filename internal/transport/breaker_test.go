package transport

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newClockedBreaker(threshold int, reset time.Duration) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 5, 26, 0, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker(threshold, reset)
	cb.now = clock.Now
	return cb, clock
}

func TestCircuitState_String(t *testing.T) {
	tests := []struct {
		state    CircuitState
		expected string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half_open"},
		{CircuitState(999), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.state.String())
		})
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := newClockedBreaker(3, time.Minute)
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		cb.Record(boom)
		assert.Equal(t, StateClosed, cb.State())
		assert.NoError(t, cb.Allow())
	}

	cb.Record(boom)
	assert.Equal(t, StateOpen, cb.State())
	assert.Equal(t, 3, cb.Failures())
	assert.ErrorIs(t, cb.Allow(), ErrCircuitOpen)
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb, _ := newClockedBreaker(2, time.Minute)

	cb.Record(errors.New("boom"))
	cb.Record(nil)
	cb.Record(errors.New("boom"))

	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 1, cb.Failures())
}

func TestCircuitBreaker_HalfOpenAfterReset(t *testing.T) {
	cb, clock := newClockedBreaker(1, time.Minute)

	cb.Record(errors.New("boom"))
	assert.Equal(t, StateOpen, cb.State())

	clock.t = clock.t.Add(time.Minute)
	assert.Equal(t, StateHalfOpen, cb.State())
	assert.NoError(t, cb.Allow())

	// a failure while half-open reopens immediately
	cb.Record(errors.New("still down"))
	assert.Equal(t, StateOpen, cb.State())

	clock.t = clock.t.Add(time.Minute)
	assert.NoError(t, cb.Allow())
	cb.Record(nil)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_DisabledAndNil(t *testing.T) {
	cb := NewCircuitBreaker(0, time.Minute)
	for i := 0; i < 10; i++ {
		cb.Record(errors.New("boom"))
	}
	assert.NoError(t, cb.Allow())

	var nilBreaker *CircuitBreaker
	assert.NoError(t, nilBreaker.Allow())
	nilBreaker.Record(errors.New("boom"))
}
