package parser

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountdown_Fires(t *testing.T) {
	var calls atomic.Int32
	c := StartCountdown(10*time.Millisecond, func() { calls.Add(1) })

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("countdown never fired")
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, c.Fired())
	assert.False(t, c.Cancel())
	assert.Zero(t, c.Remaining())
}

func TestCountdown_CancelBeforeFire(t *testing.T) {
	var calls atomic.Int32
	c := StartCountdown(time.Hour, func() { calls.Add(1) })
	assert.Greater(t, c.Remaining(), 59*time.Minute)

	require.True(t, c.Cancel())
	assert.False(t, c.Cancel())
	<-c.Done()
	assert.False(t, c.Fired())
	assert.Zero(t, calls.Load())
	assert.Zero(t, c.Remaining())
}
