package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := NewBreaker("test", BreakerSettings{FailureThreshold: 3, Timeout: time.Minute})
	fail := errors.New("boom")

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Do(func() error { return fail }), fail)
	}

	assert.Equal(t, BreakerOpen, b.State())
	assert.ErrorIs(t, b.Do(func() error { return nil }), ErrCircuitOpen)
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	b := NewBreaker("test", BreakerSettings{FailureThreshold: 2, Timeout: time.Minute})
	fail := errors.New("boom")

	b.Do(func() error { return fail })
	b.Do(func() error { return nil })
	b.Do(func() error { return fail })

	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	b := NewBreaker("test", BreakerSettings{FailureThreshold: 1, Timeout: 10 * time.Millisecond})
	fail := errors.New("boom")

	b.Do(func() error { return fail })
	require.Equal(t, BreakerOpen, b.State())

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, BreakerHalfOpen, b.State())

	// Failed probe reopens immediately.
	assert.ErrorIs(t, b.Do(func() error { return fail }), fail)
	assert.Equal(t, BreakerOpen, b.State())

	time.Sleep(20 * time.Millisecond)

	// Successful probe closes.
	require.NoError(t, b.Do(func() error { return nil }))
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreakerStateChangeCallback(t *testing.T) {
	var transitions []string
	b := NewBreaker("test", BreakerSettings{
		FailureThreshold: 1,
		Timeout:          time.Minute,
		OnStateChange: func(name string, from, to BreakerState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	b.Do(func() error { return errors.New("boom") })

	require.Len(t, transitions, 1)
	assert.Equal(t, "closed->open", transitions[0])
}
