package ledger

import (
	"errors"
	"strings"
	"time"
)

const (
	// DateLayout and TimeLayout are the persisted timestamp formats, matching
	// the columns of the log spreadsheet.
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// Record is one row of the attendance log. Fields are copied at submission
// time; the log stays valid even if the roster later changes.
type Record struct {
	SubmittedKey string `json:"submitted_key"`
	Name         string `json:"name"`
	Date         string `json:"date"`
	Time         string `json:"time"`
}

// Timestamp parses the record's date and time in the local timezone.
func (r Record) Timestamp() (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, r.Date+" "+r.Time, time.Local)
}

// Log is the ordered sequence of records; insertion order is significant.
type Log []Record

// ErrDuplicate signals the once-per-person-per-day rule fired.
var ErrDuplicate = errors.New("already logged today")

// NewRecord builds a record for the given key and name at the given moment.
func NewRecord(key, name string, when time.Time) Record {
	return Record{
		SubmittedKey: key,
		Name:         strings.TrimSpace(name),
		Date:         when.Format(DateLayout),
		Time:         when.Format(TimeLayout),
	}
}

// HasEntryFor reports whether a record for the given name already exists on
// the given calendar date. Matching is on name, case-insensitive and
// whitespace-trimmed, not on the submitted key: the same person is recognized
// even when the key text varies between visits.
func (l Log) HasEntryFor(name, date string) bool {
	want := strings.ToLower(strings.TrimSpace(name))
	for _, r := range l {
		if r.Date == date && strings.ToLower(strings.TrimSpace(r.Name)) == want {
			return true
		}
	}
	return false
}

// Submit appends a record for the resolved person unless they are already
// logged on when's calendar date. On ErrDuplicate the log is returned
// unchanged and the returned record is zero.
func Submit(l Log, key, name string, when time.Time) (Log, Record, error) {
	rec := NewRecord(key, name, when)
	if l.HasEntryFor(rec.Name, rec.Date) {
		return l, Record{}, ErrDuplicate
	}
	out := make(Log, len(l)+1)
	copy(out, l)
	out[len(l)] = rec
	return out, rec, nil
}

// Interval is a half-open [From, To) time range. A zero From or To leaves
// that side unbounded.
type Interval struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the interval.
func (iv Interval) Contains(t time.Time) bool {
	if !iv.From.IsZero() && t.Before(iv.From) {
		return false
	}
	if !iv.To.IsZero() && !t.Before(iv.To) {
		return false
	}
	return true
}

// PurgeStale returns the subset of l whose timestamps fall inside iv.
// Records with unparseable timestamps are dropped. Pure filter: names and
// keys are never inspected.
func PurgeStale(l Log, iv Interval) Log {
	out := make(Log, 0, len(l))
	for _, r := range l {
		ts, err := r.Timestamp()
		if err != nil {
			continue
		}
		if iv.Contains(ts) {
			out = append(out, r)
		}
	}
	return out
}
