// Package teesheet derives an event's tee-time groups from its creation
// parameters. This is a pure computation — no database, no side effects —
// which makes it trivially testable and means the orchestrator decides when
// the result actually gets persisted.
//
// Generation happens exactly once, atomically with event creation. If the
// event's capacity parameters are edited later, the groups are NOT
// regenerated; that is a documented property of the system, not an oversight.
package teesheet

import (
	"fmt"
	"strconv"
	"strings"
)

// Slot describes one tee group to be created: its 1-based ordinal on the tee
// sheet and its derived "HH:MM" tee time.
type Slot struct {
	GroupNumber int
	TeeTime     string
}

// Generate computes the tee groups for an event.
//
// Group count is ceil(maxPlayers / slotsPerGroup): the last group may have
// empty slots, but every player has a seat. Tee times advance by
// intervalMinutes per group, computed in minute-of-day arithmetic. The total
// is wrapped modulo 24h as a guard — league days never actually cross
// midnight, but a wrapped time beats an impossible "25:10".
func Generate(firstTeeTime string, intervalMinutes, slotsPerGroup, maxPlayers int) ([]Slot, error) {
	start, err := ParseClock(firstTeeTime)
	if err != nil {
		return nil, err
	}
	if slotsPerGroup < 2 || slotsPerGroup > 4 {
		return nil, fmt.Errorf("slots per group must be between 2 and 4, got %d", slotsPerGroup)
	}
	if maxPlayers < 1 {
		return nil, fmt.Errorf("max players must be at least 1, got %d", maxPlayers)
	}
	if intervalMinutes < 1 {
		return nil, fmt.Errorf("tee interval must be at least 1 minute, got %d", intervalMinutes)
	}

	// Integer ceiling division: (a + b - 1) / b
	count := (maxPlayers + slotsPerGroup - 1) / slotsPerGroup

	slots := make([]Slot, 0, count)
	for i := 1; i <= count; i++ {
		minutes := (start + (i-1)*intervalMinutes) % (24 * 60)
		slots = append(slots, Slot{
			GroupNumber: i,
			TeeTime:     FormatClock(minutes),
		})
	}
	return slots, nil
}

// ParseClock converts an "HH:MM" 24-hour string into minutes past midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("tee time must be in HH:MM format, got %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("tee time must be in HH:MM format, got %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("tee time must be in HH:MM format, got %q", s)
	}
	return hour*60 + minute, nil
}

// FormatClock converts minutes past midnight back into an "HH:MM" string.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
