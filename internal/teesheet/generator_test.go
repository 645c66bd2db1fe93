package teesheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFortyPlayersFoursomes(t *testing.T) {
	// 40 players in groups of 4 → exactly 10 groups, 9-minute spacing
	slots, err := Generate("08:00", 9, 4, 40)
	require.NoError(t, err)
	require.Len(t, slots, 10)

	for i, s := range slots {
		assert.Equal(t, i+1, s.GroupNumber)
	}
	assert.Equal(t, "08:00", slots[0].TeeTime)
	assert.Equal(t, "08:09", slots[1].TeeTime)
	assert.Equal(t, "09:21", slots[9].TeeTime)
}

func TestGenerateCeilingDivision(t *testing.T) {
	// 10 players in groups of 4 → ceil(10/4) = 3 groups (12 slots, 2 empty)
	slots, err := Generate("09:30", 10, 4, 10)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, "09:30", slots[0].TeeTime)
	assert.Equal(t, "09:40", slots[1].TeeTime)
	assert.Equal(t, "09:50", slots[2].TeeTime)
}

func TestGenerateHourRollover(t *testing.T) {
	// Interval pushes tee times across an hour boundary
	slots, err := Generate("08:50", 15, 2, 6)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, "08:50", slots[0].TeeTime)
	assert.Equal(t, "09:05", slots[1].TeeTime)
	assert.Equal(t, "09:20", slots[2].TeeTime)
}

func TestGenerateMidnightWrapGuard(t *testing.T) {
	// Pathological parameters that roll past midnight should wrap, not
	// produce an impossible clock value
	slots, err := Generate("23:30", 60, 2, 4)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "23:30", slots[0].TeeTime)
	assert.Equal(t, "00:30", slots[1].TeeTime)
}

func TestGenerateValidation(t *testing.T) {
	tests := []struct {
		name     string
		firstTee string
		interval int
		slots    int
		max      int
	}{
		{"bad clock format", "8am", 10, 4, 40},
		{"hour out of range", "25:00", 10, 4, 40},
		{"minute out of range", "08:75", 10, 4, 40},
		{"slots too small", "08:00", 10, 1, 40},
		{"slots too large", "08:00", 10, 5, 40},
		{"zero max players", "08:00", 10, 4, 0},
		{"zero interval", "08:00", 0, 4, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Generate(tt.firstTee, tt.interval, tt.slots, tt.max)
			assert.Error(t, err)
		})
	}
}

func TestParseClock(t *testing.T) {
	m, err := ParseClock("14:05")
	require.NoError(t, err)
	assert.Equal(t, 14*60+5, m)
	assert.Equal(t, "14:05", FormatClock(m))
}
