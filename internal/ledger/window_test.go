package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, min int) time.Time {
	return time.Date(2024, 3, 15, hour, min, 0, 0, time.Local)
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("19:30")
	require.NoError(t, err)
	assert.Equal(t, Clock{Hour: 19, Minute: 30}, c)

	for _, bad := range []string{"25:00", "19:75", "late", ""} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestFixedWindowSubmitOpen(t *testing.T) {
	p := Policy{Kind: PolicyFixed, OpenAt: Clock{Hour: 20}, CloseAt: Clock{Hour: 21, Minute: 30}}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"before open", at(19, 59), false},
		{"at open", at(20, 0), true},
		{"inside", at(21, 0), true},
		{"at close", at(21, 30), true},
		{"after close", at(21, 31), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.SubmitOpen(tt.now))
		})
	}
}

func TestNoneAndRollingAlwaysOpen(t *testing.T) {
	assert.True(t, Policy{Kind: PolicyNone}.SubmitOpen(at(3, 0)))
	assert.True(t, DefaultRolling().SubmitOpen(at(3, 0)))
}

func TestRollingRetentionCutoff(t *testing.T) {
	p := DefaultRolling()

	_, ok := p.RetentionCutoff(at(9, 0))
	assert.False(t, ok, "no purge before the morning reset")

	_, ok = p.RetentionCutoff(at(10, 0))
	assert.False(t, ok, "reset hour itself does not purge yet")

	cutoff, ok := p.RetentionCutoff(at(10, 1))
	require.True(t, ok)
	assert.Equal(t, at(19, 0), cutoff, "everything before today's open hour goes")
}

func TestRollingAdminInterval(t *testing.T) {
	p := DefaultRolling()

	morning := p.AdminInterval(at(8, 0))
	assert.Equal(t, at(19, 0).AddDate(0, 0, -1), morning.From, "before reset: since yesterday's open")

	evening := p.AdminInterval(at(20, 0))
	assert.Equal(t, at(19, 0), evening.From, "after reset: since today's open")
}

func TestNonRollingAdminIntervalUnbounded(t *testing.T) {
	iv := Policy{Kind: PolicyNone}.AdminInterval(at(12, 0))
	assert.True(t, iv.From.IsZero())
	assert.True(t, iv.To.IsZero())
}
