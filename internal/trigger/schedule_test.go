package trigger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeliveryTime(t *testing.T) {
	noon := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	t.Run("immediate", func(t *testing.T) {
		at := deliveryTime(noon, DeliveryPolicy{Mode: DeliverImmediate}, nil)
		assert.Equal(t, noon, at)
	})

	t.Run("delayed", func(t *testing.T) {
		at := deliveryTime(noon, DeliveryPolicy{Mode: DeliverDelayed, Delay: 30 * time.Minute}, nil)
		assert.Equal(t, noon.Add(30*time.Minute), at)
	})

	t.Run("preferred window later today", func(t *testing.T) {
		at := deliveryTime(noon, DeliveryPolicy{
			Mode:        DeliverPreferred,
			WindowStart: "18:00",
			WindowEnd:   "20:00",
		}, nil)
		assert.Equal(t, time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC), at)
	})

	t.Run("preferred window already open", func(t *testing.T) {
		at := deliveryTime(noon, DeliveryPolicy{
			Mode:        DeliverPreferred,
			WindowStart: "11:00",
			WindowEnd:   "13:00",
		}, nil)
		assert.Equal(t, noon, at)
	})

	t.Run("preferred window wraps to tomorrow", func(t *testing.T) {
		at := deliveryTime(noon, DeliveryPolicy{
			Mode:        DeliverPreferred,
			WindowStart: "08:00",
			WindowEnd:   "10:00",
		}, nil)
		assert.Equal(t, time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC), at)
	})

	t.Run("dnd defers to window end", func(t *testing.T) {
		dnd := []Window{{Start: "11:00", End: "14:00"}}
		at := deliveryTime(noon, DeliveryPolicy{Mode: DeliverImmediate}, dnd)
		assert.Equal(t, time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC), at)
	})

	t.Run("overnight dnd", func(t *testing.T) {
		late := time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC)
		dnd := []Window{{Start: "22:00", End: "07:00"}}
		at := deliveryTime(late, DeliveryPolicy{Mode: DeliverImmediate}, dnd)
		assert.Equal(t, time.Date(2026, 3, 3, 7, 0, 0, 0, time.UTC), at)
	})

	t.Run("chained dnd windows", func(t *testing.T) {
		dnd := []Window{
			{Start: "11:00", End: "14:00"},
			{Start: "14:00", End: "15:00"},
		}
		at := deliveryTime(noon, DeliveryPolicy{Mode: DeliverImmediate}, dnd)
		assert.Equal(t, time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC), at)
	})
}

func TestInClockWindow(t *testing.T) {
	at := func(h, m int) time.Time {
		return time.Date(2026, 3, 2, h, m, 0, 0, time.UTC)
	}

	assert.True(t, inClockWindow(at(9, 0), "08:00", "10:00"))
	assert.False(t, inClockWindow(at(10, 0), "08:00", "10:00"), "end is exclusive")
	assert.True(t, inClockWindow(at(8, 0), "08:00", "10:00"), "start is inclusive")

	// Overnight wrap.
	assert.True(t, inClockWindow(at(23, 30), "22:00", "07:00"))
	assert.True(t, inClockWindow(at(3, 0), "22:00", "07:00"))
	assert.False(t, inClockWindow(at(12, 0), "22:00", "07:00"))

	assert.False(t, inClockWindow(at(9, 0), "not-a-time", "10:00"))
}
