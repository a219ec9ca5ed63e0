// Package quota computes how long the pipeline pauses after the remote
// platform reports daily quota exhaustion.
package quota

import (
	"fmt"
	"time"
)

// Governor knows when the daily upload quota resets.
type Governor struct {
	location *time.Location
	hour     int
	minute   int
}

// New returns a Governor resetting daily at hour:minute in location.
func New(location *time.Location, hour, minute int) (*Governor, error) {
	if location == nil {
		return nil, fmt.Errorf("quota: nil location")
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return nil, fmt.Errorf("quota: invalid reset time %02d:%02d", hour, minute)
	}
	return &Governor{location: location, hour: hour, minute: minute}, nil
}

// NextReset returns the reset instant on the calendar day after now in the
// reference zone. The result is expressed in now's location.
func (g *Governor) NextReset(now time.Time) time.Time {
	local := now.In(g.location)
	year, month, day := local.Date()
	reset := time.Date(year, month, day+1, g.hour, g.minute, 0, 0, g.location)
	return reset.In(now.Location())
}

// SleepUntilReset returns the pause needed to reach NextReset.
func (g *Governor) SleepUntilReset(now time.Time) time.Duration {
	return g.NextReset(now).Sub(now)
}

// Location returns the reference zone.
func (g *Governor) Location() *time.Location {
	return g.location
}
