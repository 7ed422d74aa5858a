package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// Entry is one row of the master list.
type Entry struct {
	ID    string
	Name  string
	Phone string
}

// MatchMode selects how submitted identifiers are matched against entries.
type MatchMode string

const (
	// MatchID matches on the explicit identifier column, case-insensitive.
	MatchID MatchMode = "id"
	// MatchLast4 matches on the trailing four digits of the phone column.
	MatchLast4 MatchMode = "last4"
)

// ErrSourceMissing is returned when the roster file does not exist.
var ErrSourceMissing = errors.New("roster file missing")

// ErrMalformedInput is returned for identifiers that fail the format check
// before any lookup happens.
var ErrMalformedInput = errors.New("malformed identifier")

// SchemaError reports that required columns could not be auto-detected.
// Headers carries what was actually seen so the operator can fix the file.
type SchemaError struct {
	Headers []string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("roster schema unrecognized: missing %s (headers: %s)",
		strings.Join(e.Missing, ", "), strings.Join(e.Headers, ", "))
}

// Roster is an immutable snapshot of the master list with a match index
// precomputed at load time.
type Roster struct {
	mode    MatchMode
	entries []Entry
	index   map[string][]Entry
}

// Outcome classifies a resolution.
type Outcome int

const (
	NotFound Outcome = iota
	Unique
	Ambiguous
)

// Resolution is the result of matching a normalized key against the roster.
type Resolution struct {
	Outcome Outcome
	Entries []Entry
}

var (
	nameHeaders  = []string{"name", "studentname", "fullname", "traineename"}
	idHeaders    = []string{"studentid", "id", "rollno", "rollnumber"}
	phoneHeaders = []string{"phone", "phonenumber", "mobile", "mobilenumber", "contact", "contactnumber", "number"}
)

// LoadFile reads a roster from an .xlsx or .csv file and builds the index.
func LoadFile(path string, mode MatchMode) (*Roster, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	return New(rows, mode)
}

// New builds a roster from raw tabular rows. The first row is the header.
func New(rows [][]string, mode MatchMode) (*Roster, error) {
	if len(rows) == 0 {
		return nil, &SchemaError{Missing: []string{"name", keyColumnFor(mode)}}
	}
	headers := rows[0]
	nameCol := findColumn(headers, nameHeaders)
	var keyCol int
	if mode == MatchLast4 {
		keyCol = findColumn(headers, phoneHeaders)
	} else {
		keyCol = findColumn(headers, idHeaders)
	}

	var missing []string
	if nameCol < 0 {
		missing = append(missing, "name")
	}
	if keyCol < 0 {
		missing = append(missing, keyColumnFor(mode))
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Headers: headers, Missing: missing}
	}

	r := &Roster{mode: mode, index: make(map[string][]Entry)}
	for _, row := range rows[1:] {
		e := Entry{Name: strings.TrimSpace(cell(row, nameCol))}
		if e.Name == "" {
			continue
		}
		var key string
		if mode == MatchLast4 {
			e.Phone = cell(row, keyCol)
			d := digitsOnly(e.Phone)
			if len(d) >= 4 {
				key = d[len(d)-4:]
			}
		} else {
			e.ID = strings.TrimSpace(cell(row, keyCol))
			key = strings.ToLower(e.ID)
		}
		r.entries = append(r.entries, e)
		if key != "" {
			r.index[key] = append(r.index[key], e)
		}
	}
	return r, nil
}

// Normalize validates and canonicalizes a submitted identifier without
// touching the index. Last-4 mode requires exactly four digits.
func (r *Roster) Normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if r.mode == MatchLast4 {
		if len(s) != 4 || digitsOnly(s) != s {
			return "", ErrMalformedInput
		}
		return s, nil
	}
	if s == "" {
		return "", ErrMalformedInput
	}
	return strings.ToLower(s), nil
}

// Resolve looks up a normalized key and classifies the match.
func (r *Roster) Resolve(key string) Resolution {
	matches := r.index[key]
	switch len(matches) {
	case 0:
		return Resolution{Outcome: NotFound}
	case 1:
		return Resolution{Outcome: Unique, Entries: matches}
	default:
		return Resolution{Outcome: Ambiguous, Entries: matches}
	}
}

// Len reports the number of usable entries.
func (r *Roster) Len() int { return len(r.entries) }

// Mode reports the configured match mode.
func (r *Roster) Mode() MatchMode { return r.mode }

func keyColumnFor(mode MatchMode) string {
	if mode == MatchLast4 {
		return "phone"
	}
	return "id"
}

// findColumn locates the first header matching any candidate after
// normalization (lowercased, spaces and underscores removed). Columns whose
// header starts with "unnamed" are spreadsheet artifacts and skipped.
func findColumn(headers []string, candidates []string) int {
	for _, want := range candidates {
		for i, h := range headers {
			n := normHeader(h)
			if strings.HasPrefix(n, "unnamed") {
				continue
			}
			if n == want {
				return i
			}
		}
	}
	return -1
}

func normHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "")
	return strings.ReplaceAll(s, "_", "")
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func readRows(path string) ([][]string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrSourceMissing, path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readExcel(path)
	case ".xls":
		return readLegacyExcel(path)
	default:
		return readCSV(path)
	}
}

func readExcel(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	return rows, nil
}

// readLegacyExcel handles the pre-2007 binary format some rosters still
// arrive in.
func readLegacyExcel(path string) ([][]string, error) {
	workbook, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	if workbook.NumSheets() == 0 {
		return nil, nil
	}
	return workbook.ReadAllCells(100000), nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()
	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	return rows, nil
}
