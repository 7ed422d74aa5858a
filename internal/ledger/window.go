package ledger

import (
	"fmt"
	"time"
)

// PolicyKind selects the submission/retention window behavior.
type PolicyKind string

const (
	// PolicyNone applies no time restriction and keeps all records.
	PolicyNone PolicyKind = "none"
	// PolicyFixed accepts submissions only inside a daily clock window.
	PolicyFixed PolicyKind = "fixed"
	// PolicyRolling keeps evening entries until the next morning reset:
	// before the reset hour the admin sees entries since yesterday's open
	// hour, after it only entries since today's open hour; older rows are
	// purged once the reset hour has passed.
	PolicyRolling PolicyKind = "rolling"
)

// Clock is a time of day taken from configuration, e.g. "19:00".
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (Clock, error) {
	var c Clock
	if _, err := fmt.Sscanf(s, "%d:%d", &c.Hour, &c.Minute); err != nil {
		return Clock{}, fmt.Errorf("invalid clock %q: %w", s, err)
	}
	if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 {
		return Clock{}, fmt.Errorf("invalid clock %q", s)
	}
	return c, nil
}

// On anchors the clock time to d's calendar date in d's location.
func (c Clock) On(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour, c.Minute, 0, 0, d.Location())
}

// Policy is the configured window variant. OpenAt/CloseAt bound the fixed
// submission window; OpenAt/ResetAt anchor the rolling retention (open hour
// and morning reset hour respectively).
type Policy struct {
	Kind    PolicyKind
	OpenAt  Clock
	CloseAt Clock
	ResetAt Clock
}

// DefaultRolling matches the observed deployment: entries open at 19:00,
// the view resets at 10:00 the next morning.
func DefaultRolling() Policy {
	return Policy{Kind: PolicyRolling, OpenAt: Clock{Hour: 19}, ResetAt: Clock{Hour: 10}}
}

// SubmitOpen reports whether submissions are accepted at now.
func (p Policy) SubmitOpen(now time.Time) bool {
	if p.Kind != PolicyFixed {
		return true
	}
	open := p.OpenAt.On(now)
	shut := p.CloseAt.On(now)
	return !now.Before(open) && !now.After(shut)
}

// RetentionCutoff returns the timestamp before which records are purged at
// now, and whether a purge applies at all. Rolling purges only once the
// morning reset hour has passed, dropping everything before today's open
// hour.
func (p Policy) RetentionCutoff(now time.Time) (time.Time, bool) {
	if p.Kind != PolicyRolling {
		return time.Time{}, false
	}
	if !now.After(p.ResetAt.On(now)) {
		return time.Time{}, false
	}
	return p.OpenAt.On(now), true
}

// AdminInterval returns the interval of records shown to the admin at now.
// Rolling: before the reset hour the window starts at yesterday's open hour,
// after it at today's. Other policies show everything.
func (p Policy) AdminInterval(now time.Time) Interval {
	if p.Kind != PolicyRolling {
		return Interval{}
	}
	open := p.OpenAt.On(now)
	if now.Before(p.ResetAt.On(now)) {
		open = open.AddDate(0, 0, -1)
	}
	return Interval{From: open}
}
