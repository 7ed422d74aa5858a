package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitAppendsExactlyOne(t *testing.T) {
	when := time.Date(2024, 1, 1, 9, 0, 0, 0, time.Local)

	l, rec, err := Submit(Log{}, "a1", "Jo Lee", when)
	require.NoError(t, err)
	require.Len(t, l, 1)
	assert.Equal(t, Record{SubmittedKey: "a1", Name: "Jo Lee", Date: "2024-01-01", Time: "09:00:00"}, rec)
	assert.Equal(t, rec, l[0])
}

func TestSubmitRejectsSameNameSameDay(t *testing.T) {
	morning := time.Date(2024, 1, 1, 9, 0, 0, 0, time.Local)
	evening := time.Date(2024, 1, 1, 18, 0, 0, 0, time.Local)

	l, _, err := Submit(Log{}, "a1", "Jo Lee", morning)
	require.NoError(t, err)

	tests := []struct {
		name string
		key  string
		who  string
	}{
		{"same key same name", "a1", "Jo Lee"},
		{"different key same name", "zz", "Jo Lee"},
		{"case and whitespace variant", "a1", "  jo lee "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := Submit(l, tt.key, tt.who, evening)
			assert.ErrorIs(t, err, ErrDuplicate)
			assert.Equal(t, l, got, "log unchanged on rejection")
		})
	}
}

func TestSubmitNextDayIsAllowed(t *testing.T) {
	day1 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.Local)
	day2 := time.Date(2024, 1, 2, 9, 0, 0, 0, time.Local)

	l, _, err := Submit(Log{}, "a1", "Jo Lee", day1)
	require.NoError(t, err)
	l, _, err = Submit(l, "a1", "Jo Lee", day2)
	require.NoError(t, err)
	assert.Len(t, l, 2)
}

func TestSubmitDoesNotMutateInput(t *testing.T) {
	when := time.Date(2024, 1, 1, 9, 0, 0, 0, time.Local)
	orig := Log{NewRecord("b2", "Sam Roy", when)}

	updated, _, err := Submit(orig, "a1", "Jo Lee", when)
	require.NoError(t, err)
	assert.Len(t, orig, 1)
	assert.Len(t, updated, 2)
}

func TestPurgeStale(t *testing.T) {
	mk := func(date, clock string) Record {
		return Record{Name: "x", Date: date, Time: clock}
	}
	l := Log{
		mk("2024-01-01", "18:59:59"),
		mk("2024-01-01", "19:00:00"),
		mk("2024-01-01", "21:30:00"),
		mk("2024-01-02", "08:00:00"),
		{Name: "junk", Date: "not-a-date", Time: "??"},
	}
	from := time.Date(2024, 1, 1, 19, 0, 0, 0, time.Local)
	to := time.Date(2024, 1, 2, 0, 0, 0, 0, time.Local)

	kept := PurgeStale(l, Interval{From: from, To: to})
	require.Len(t, kept, 2)
	assert.Equal(t, "19:00:00", kept[0].Time)
	assert.Equal(t, "21:30:00", kept[1].Time)

	for _, r := range kept {
		ts, err := r.Timestamp()
		require.NoError(t, err)
		assert.True(t, Interval{From: from, To: to}.Contains(ts))
	}
}

func TestPurgeStaleUnboundedKeepsParseable(t *testing.T) {
	l := Log{
		{Name: "ok", Date: "2024-01-01", Time: "09:00:00"},
		{Name: "junk", Date: "", Time: ""},
	}
	kept := PurgeStale(l, Interval{})
	require.Len(t, kept, 1)
	assert.Equal(t, "ok", kept[0].Name)
}

func TestIntervalContains(t *testing.T) {
	from := time.Date(2024, 1, 1, 19, 0, 0, 0, time.Local)
	to := time.Date(2024, 1, 2, 10, 0, 0, 0, time.Local)

	tests := []struct {
		name string
		iv   Interval
		t    time.Time
		want bool
	}{
		{"inside", Interval{From: from, To: to}, from.Add(time.Hour), true},
		{"at from", Interval{From: from, To: to}, from, true},
		{"at to is excluded", Interval{From: from, To: to}, to, false},
		{"before", Interval{From: from, To: to}, from.Add(-time.Second), false},
		{"unbounded", Interval{}, time.Date(1999, 1, 1, 0, 0, 0, 0, time.Local), true},
		{"from only", Interval{From: from}, to.AddDate(1, 0, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.iv.Contains(tt.t))
		})
	}
}
