package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAnchoredDate(t *testing.T) {
	// 17:29 UTC is 23:59 at UTC+6:30, 17:30 UTC is midnight
	before := time.Date(2025, 12, 1, 17, 29, 59, 0, time.UTC)
	after := time.Date(2025, 12, 1, 17, 30, 0, 0, time.UTC)

	assert.Equal(t, "2025-12-01", AnchoredDate(before, DefaultAnchorOffset))
	assert.Equal(t, "2025-12-02", AnchoredDate(after, DefaultAnchorOffset))
}

func TestAnchoredDate_IgnoresLocation(t *testing.T) {
	loc := time.FixedZone("PST", -8*3600)
	ts := time.Date(2025, 12, 1, 9, 30, 0, 0, loc) // 17:30 UTC

	assert.Equal(t, "2025-12-02", AnchoredDate(ts, DefaultAnchorOffset))
}

func TestLoadOrReset(t *testing.T) {
	before := time.Date(2025, 12, 1, 17, 29, 0, 0, time.UTC)
	after := before.Add(2 * time.Minute)

	c, reset := LoadOrReset(nil, before, DefaultAnchorOffset)
	assert.True(t, reset)
	assert.Equal(t, DailyCounter{AnchoredDate: "2025-12-01"}, c)

	c.Count = 1
	same, reset := LoadOrReset(&c, before.Add(30*time.Second), DefaultAnchorOffset)
	assert.False(t, reset)
	assert.Equal(t, c, same)

	next, reset := LoadOrReset(&c, after, DefaultAnchorOffset)
	assert.True(t, reset)
	assert.Equal(t, DailyCounter{AnchoredDate: "2025-12-02"}, next)
}

func TestDailyLimits_For(t *testing.T) {
	l := DailyLimits{Base: 1, Pass: 4}
	assert.Equal(t, 1, l.For(false))
	assert.Equal(t, 4, l.For(true))
}

func TestDailyCounter_TryConsume(t *testing.T) {
	c := DailyCounter{AnchoredDate: "2025-12-01"}

	c, ok := c.TryConsume(1)
	assert.True(t, ok)
	assert.Equal(t, 1, c.Count)

	c, ok = c.TryConsume(1)
	assert.False(t, ok)
	assert.Equal(t, 1, c.Count)
	assert.Equal(t, 0, c.Remaining(1))
	assert.Equal(t, 3, c.Remaining(4))
}
