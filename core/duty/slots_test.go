package duty

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/lineauction/core/model"
)

func TestGenerateSlots(t *testing.T) {
	slots, err := GenerateSlots(model.MustClock("08:00"), model.MustClock("10:00"), 30)
	require.NoError(t, err)
	assert.Equal(t, []string{"08:00", "08:30", "09:00", "09:30", "10:00"}, FormatSlots(slots))
}

func TestGenerateSlotsLength(t *testing.T) {
	cases := []struct {
		start, end string
		freq       int
	}{
		{"04:00", "08:00", 7},
		{"08:00", "12:00", 15},
		{"20:00", "24:00", 20},
		{"22:00", "02:00", 25},
		{"10:00", "10:00", 60},
	}
	for _, c := range cases {
		start, end := model.MustClock(c.start), model.MustClock(c.end)
		slots, err := GenerateSlots(start, end, c.freq)
		require.NoError(t, err)
		if end <= start {
			end += model.MinutesPerDay
		}
		want := int(end-start)/c.freq + 1
		assert.Len(t, slots, want, "%s-%s/%d", c.start, c.end, c.freq)
	}
}

func TestGenerateSlotsMidnightWrap(t *testing.T) {
	slots, err := GenerateSlots(model.MustClock("23:00"), model.MustClock("01:00"), 60)
	require.NoError(t, err)
	assert.Equal(t, []string{"23:00", "00:00", "01:00"}, FormatSlots(slots))
	assert.Equal(t, model.Clock(model.MinutesPerDay+60), slots[2])
}

func TestGenerateSlotsEndOfDay(t *testing.T) {
	slots, err := GenerateSlots(model.MustClock("20:00"), model.MustClock("24:00"), 120)
	require.NoError(t, err)
	assert.Equal(t, []string{"20:00", "22:00", "00:00"}, FormatSlots(slots))
}

func TestGenerateSlotsInvalidFrequency(t *testing.T) {
	_, err := GenerateSlots(0, 60, 0)
	assert.Error(t, err)
}
