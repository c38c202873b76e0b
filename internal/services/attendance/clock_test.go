package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustClock(t *testing.T, rolloverHour int) *Clock {
	t.Helper()
	clock, err := NewClock("Asia/Kolkata", rolloverHour)
	require.NoError(t, err)
	return clock
}

func kolkata(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	return loc
}

func TestNewClock(t *testing.T) {
	t.Run("rejects unknown timezone", func(t *testing.T) {
		_, err := NewClock("Not/AZone", 4)
		assert.Error(t, err)
	})

	t.Run("rejects out of range rollover hour", func(t *testing.T) {
		_, err := NewClock("Asia/Kolkata", 24)
		assert.Error(t, err)

		_, err = NewClock("Asia/Kolkata", -1)
		assert.Error(t, err)
	})
}

func TestLogicalDate(t *testing.T) {
	clock := mustClock(t, 4)
	loc := kolkata(t)

	t.Run("daytime belongs to same date", func(t *testing.T) {
		at := time.Date(2024, 6, 14, 10, 30, 0, 0, loc)
		assert.Equal(t, "2024-06-14", clock.LogicalDate(at))
	})

	t.Run("before rollover belongs to previous date", func(t *testing.T) {
		at := time.Date(2024, 6, 15, 3, 45, 0, 0, loc)
		assert.Equal(t, "2024-06-14", clock.LogicalDate(at))
	})

	t.Run("exactly at rollover hour belongs to same date", func(t *testing.T) {
		at := time.Date(2024, 6, 15, 4, 0, 0, 0, loc)
		assert.Equal(t, "2024-06-15", clock.LogicalDate(at))
	})

	t.Run("one second before rollover belongs to previous date", func(t *testing.T) {
		at := time.Date(2024, 6, 15, 3, 59, 59, 0, loc)
		assert.Equal(t, "2024-06-14", clock.LogicalDate(at))
	})

	t.Run("converts from other zones before attributing", func(t *testing.T) {
		// 22:00 UTC on the 14th is 03:30 IST on the 15th, which rolls
		// back to the 14th.
		at := time.Date(2024, 6, 14, 22, 0, 0, 0, time.UTC)
		assert.Equal(t, "2024-06-14", clock.LogicalDate(at))
	})

	t.Run("idempotent for a fixed instant", func(t *testing.T) {
		at := time.Date(2024, 6, 15, 2, 0, 0, 0, loc)
		first := clock.LogicalDate(at)
		assert.Equal(t, first, clock.LogicalDate(at))
	})
}

func TestLogicalDateZeroRollover(t *testing.T) {
	clock := mustClock(t, 0)
	loc := kolkata(t)

	// With rollover 0 no instant ever rolls back.
	at := time.Date(2024, 6, 15, 0, 0, 1, 0, loc)
	assert.Equal(t, "2024-06-15", clock.LogicalDate(at))
}

func TestToday(t *testing.T) {
	clock := mustClock(t, 4)
	loc := kolkata(t)

	clock.WithNow(func() time.Time {
		return time.Date(2024, 6, 15, 3, 0, 0, 0, loc)
	})
	assert.Equal(t, "2024-06-14", clock.Today())
}

func TestPreviousDate(t *testing.T) {
	t.Run("simple", func(t *testing.T) {
		prev, err := PreviousDate("2024-06-15")
		require.NoError(t, err)
		assert.Equal(t, "2024-06-14", prev)
	})

	t.Run("across month boundary", func(t *testing.T) {
		prev, err := PreviousDate("2024-03-01")
		require.NoError(t, err)
		assert.Equal(t, "2024-02-29", prev)
	})

	t.Run("rejects malformed date", func(t *testing.T) {
		_, err := PreviousDate("15-06-2024")
		assert.Error(t, err)
	})
}
