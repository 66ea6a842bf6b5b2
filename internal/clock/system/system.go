// Package system provides the wall clock used for archive timestamps.
package system

import "time"

// JST is Japan Standard Time. Archives are partitioned by the Japanese
// calendar date so a day's crawls land in one folder.
var JST = time.FixedZone("JST", 9*60*60)

// Clock reports the current time in a fixed location.
type Clock struct {
	loc *time.Location
}

// New creates a Clock for loc. A nil loc means UTC.
func New(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return Clock{loc: loc}
}

// Now returns the current time in the clock's location.
func (c Clock) Now() time.Time {
	if c.loc == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.loc)
}
