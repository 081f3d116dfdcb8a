package model

import "time"

// Ticks is a signed 64-bit tick count of a fixed UTC reference, the
// storage representation used for every timestamp in the data model.
// One tick equals 100 nanoseconds, matching the reference the remote
// service's own timestamps are normalized from.
type Ticks int64

// ticksPerSecond is the tick rate: one tick is 100 nanoseconds.
const ticksPerSecond = 10_000_000

// unixEpochTicks is the tick count of 1970-01-01 measured from the
// 0001-01-01 reference (matching the .NET DateTime.Ticks reference the
// original extension used internally — kept only as the numeric epoch,
// not as a behavioral tie to that runtime). Ticks are derived from
// time.Time via UnixNano rather than a Sub against a year-1 time.Time:
// that span (~2025 years) overflows time.Duration's int64-nanosecond
// range, which would make every FromTime call return the same saturated
// value.
const unixEpochTicks = 621355968000000000

// NowTicks returns the current wall-clock time as Ticks, UTC.
func NowTicks() Ticks { return FromTime(time.Now()) }

// FromTime converts a time.Time to Ticks.
func FromTime(t time.Time) Ticks {
	return Ticks(unixEpochTicks + t.UTC().UnixNano()/100)
}

// Time converts Ticks back to a UTC time.Time.
func (t Ticks) Time() time.Time {
	unixTicks := int64(t) - unixEpochTicks
	sec := unixTicks / ticksPerSecond
	nsec := (unixTicks % ticksPerSecond) * 100
	return time.Unix(sec, nsec).UTC()
}

// Before reports whether t occurred before o.
func (t Ticks) Before(o Ticks) bool { return t < o }

// Sub returns the duration between two Ticks values.
func (t Ticks) Sub(o Ticks) time.Duration {
	return time.Duration(int64(t-o)*100) * time.Nanosecond
}

// AddDuration returns t advanced by d.
func (t Ticks) AddDuration(d time.Duration) Ticks {
	return t + Ticks(d.Nanoseconds()/100)
}
