package roster

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnDetection(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		mode    MatchMode
		wantErr bool
	}{
		{
			name:    "plain headers",
			headers: []string{"Name", "Phone"},
			mode:    MatchLast4,
		},
		{
			name:    "spaced and underscored",
			headers: []string{"Trainee_Name", "Contact Number"},
			mode:    MatchLast4,
		},
		{
			name:    "id mode roll number",
			headers: []string{"Full Name", "Roll No"},
			mode:    MatchID,
		},
		{
			name:    "unnamed artifact skipped",
			headers: []string{"Unnamed: 0", "Name", "Mobile"},
			mode:    MatchLast4,
		},
		{
			name:    "missing phone column",
			headers: []string{"Name", "Department"},
			mode:    MatchLast4,
			wantErr: true,
		},
		{
			name:    "missing name column",
			headers: []string{"Student ID", "Department"},
			mode:    MatchID,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New([][]string{tt.headers}, tt.mode)
			if tt.wantErr {
				var schemaErr *SchemaError
				require.ErrorAs(t, err, &schemaErr)
				assert.Equal(t, tt.headers, schemaErr.Headers)
				assert.NotEmpty(t, schemaErr.Missing)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestResolveTrichotomy(t *testing.T) {
	r, err := New([][]string{
		{"Name", "Phone"},
		{"Jo Lee", "+1 (555) 010-1234"},
		{"Sam Roy", "555-020-1234"},
		{"Ana Cruz", "555-030-9999"},
		{"No Phone", ""},
	}, MatchLast4)
	require.NoError(t, err)

	tests := []struct {
		key     string
		outcome Outcome
		names   []string
	}{
		{"1234", Ambiguous, []string{"Jo Lee", "Sam Roy"}},
		{"9999", Unique, []string{"Ana Cruz"}},
		{"0000", NotFound, nil},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			res := r.Resolve(tt.key)
			assert.Equal(t, tt.outcome, res.Outcome)
			var names []string
			for _, e := range res.Entries {
				names = append(names, e.Name)
			}
			assert.Equal(t, tt.names, names)
		})
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	r, err := New([][]string{
		{"Name", "Phone"},
		{"Ana Cruz", "555-030-9999"},
	}, MatchLast4)
	require.NoError(t, err)

	first := r.Resolve("9999")
	second := r.Resolve("9999")
	assert.Equal(t, first, second)
}

func TestNormalizeLast4(t *testing.T) {
	r, err := New([][]string{{"Name", "Phone"}, {"Ana Cruz", "555-030-9999"}}, MatchLast4)
	require.NoError(t, err)

	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"9999", "9999", false},
		{"  9999 ", "9999", false},
		{"12", "", true},
		{"12345", "", true},
		{"99a9", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := r.Normalize(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedInput)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestNormalizeID(t *testing.T) {
	r, err := New([][]string{{"Name", "Student ID"}, {"Jo Lee", "A1"}}, MatchID)
	require.NoError(t, err)

	got, err := r.Normalize("  a1 ")
	require.NoError(t, err)
	assert.Equal(t, "a1", got)
	assert.Equal(t, Unique, r.Resolve(got).Outcome)

	_, err = r.Normalize("   ")
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestShortPhoneNeverMatches(t *testing.T) {
	r, err := New([][]string{
		{"Name", "Phone"},
		{"Shorty", "123"},
	}, MatchLast4)
	require.NoError(t, err)
	assert.Equal(t, NotFound, r.Resolve("123").Outcome)
}

func TestLoadFileCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := csv.NewWriter(f)
	require.NoError(t, w.WriteAll([][]string{
		{"Trainee Name", "Mobile Number"},
		{" Jo Lee ", "555-010-1234"},
	}))
	require.NoError(t, f.Close())

	r, err := LoadFile(path, MatchLast4)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())

	res := r.Resolve("1234")
	require.Equal(t, Unique, res.Outcome)
	assert.Equal(t, "Jo Lee", res.Entries[0].Name, "names are trimmed at load")
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.xlsx"), MatchLast4)
	assert.ErrorIs(t, err, ErrSourceMissing)
}
