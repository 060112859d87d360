package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ohitsyle/jusq-sub002/internal/clock"
)

func TestResendCooldown_SixtyTicks(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	c := NewResendCooldown(fake)
	c.Start(60)

	for i := 1; i < 60; i++ {
		fake.Advance(time.Second)
		assert.Equal(t, 60-i, c.Remaining())
		assert.False(t, c.Available(), "available early at tick %d", i)
	}
	fake.Advance(time.Second)
	assert.Equal(t, 0, c.Remaining())
	assert.True(t, c.Available())

	fake.Advance(10 * time.Second)
	assert.Equal(t, 0, c.Remaining())
	assert.Equal(t, 0, fake.Pending())
}

func TestResendCooldown_TickNeverNegative(t *testing.T) {
	c := NewResendCooldown(clock.Fake(time.Now()))
	c.Tick()
	assert.Equal(t, 0, c.Remaining())

	c.Start(2)
	c.Tick()
	c.Tick()
	c.Tick()
	assert.Equal(t, 0, c.Remaining())
	assert.True(t, c.Available())
}

func TestResendCooldown_RestartAndStop(t *testing.T) {
	fake := clock.Fake(time.Now())
	c := NewResendCooldown(fake)

	c.Start(5)
	fake.Advance(3 * time.Second)
	assert.Equal(t, 2, c.Remaining())

	c.Start(5)
	assert.Equal(t, 1, fake.Pending(), "restart replaces the timer")
	fake.Advance(time.Second)
	assert.Equal(t, 4, c.Remaining())

	c.Stop()
	assert.Equal(t, 0, c.Remaining())
	assert.Equal(t, 0, fake.Pending())
	fake.Advance(time.Minute)
	assert.Equal(t, 0, c.Remaining())

	c.Start(-3)
	assert.True(t, c.Available())
}
