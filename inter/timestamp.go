// Package inter defines the core ledger data structures shared by every other
// package: positions, tier aggregates, scans, reset epochs and the events the
// ledger emits when it commits an operation.
//
// Key concepts:
//   - Position: one participant's stake record inside a single risk tier
//   - TierState: the mutable aggregates of one tier (total stake, reward index)
//   - Scan: one elimination attempt for a tier (seed, claims, finalization)
//   - ResetEpoch: one global penalty event applied lazily to positions
//
// The types here carry no behaviour beyond copying and small helpers; all
// state transitions live in the ledger package.

package inter

import "time"

// Timestamp is a point in time measured in nanoseconds since the Unix epoch.
// The execution environment assigns one monotonic Timestamp to every operation.
type Timestamp uint64

// FromUnix converts whole seconds since the Unix epoch into a Timestamp.
func FromUnix(sec int64) Timestamp {
	return Timestamp(sec) * Timestamp(time.Second)
}

// FromTime converts a wall-clock time into a Timestamp.
func FromTime(t time.Time) Timestamp {
	return Timestamp(t.UnixNano())
}

// Unix returns the Timestamp in whole seconds since the Unix epoch.
func (t Timestamp) Unix() int64 {
	return int64(t) / int64(time.Second)
}

// Time returns the Timestamp as a wall-clock time in UTC.
func (t Timestamp) Time() time.Time {
	return time.Unix(0, int64(t)).UTC()
}

// Add returns t shifted forward by d.
func (t Timestamp) Add(d Timestamp) Timestamp {
	return t + d
}

// Before reports whether t happens strictly before u.
func (t Timestamp) Before(u Timestamp) bool {
	return t < u
}

// Duration converts the Timestamp, read as an interval, into a time.Duration.
func (t Timestamp) Duration() time.Duration {
	return time.Duration(t)
}

// String renders the Timestamp in RFC3339 with nanoseconds.
func (t Timestamp) String() string {
	return t.Time().Format(time.RFC3339Nano)
}

// MinTimestamp returns the earlier of a and b.
func MinTimestamp(a, b Timestamp) Timestamp {
	if a < b {
		return a
	}
	return b
}

// MaxTimestamp returns the later of a and b.
func MaxTimestamp(a, b Timestamp) Timestamp {
	if a > b {
		return a
	}
	return b
}
