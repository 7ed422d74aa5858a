package ledger

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"
)

const logSheet = "Sheet1"

// ExcelStore persists the log as a workbook with columns
// [key header, Name, Date, Time], rewritten wholesale on every save.
// A missing file loads as an empty log so a fresh deployment just works.
type ExcelStore struct {
	path      string
	keyHeader string

	mu  sync.Mutex
	ver Version
}

// NewExcelStore creates a store writing to path. keyHeader is the first
// column's header, "Last4" or "Student ID" depending on the match mode.
func NewExcelStore(path, keyHeader string) *ExcelStore {
	if keyHeader == "" {
		keyHeader = "Last4"
	}
	return &ExcelStore{path: path, keyHeader: keyHeader, ver: 1}
}

// Load reads the whole workbook.
func (s *ExcelStore) Load(ctx context.Context) (Log, Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return Log{}, s.ver, nil
	}
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, 0, fmt.Errorf("open log %s: %w", s.path, err)
	}
	defer f.Close()
	rows, err := f.GetRows(logSheet)
	if err != nil {
		return nil, 0, fmt.Errorf("read log %s: %w", s.path, err)
	}
	l := make(Log, 0, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		rec := Record{
			SubmittedKey: cellAt(row, 0),
			Name:         cellAt(row, 1),
			Date:         cellAt(row, 2),
			Time:         cellAt(row, 3),
		}
		if rec.Name == "" && rec.Date == "" {
			continue
		}
		l = append(l, rec)
	}
	return l, s.ver, nil
}

// Save rewrites the workbook and bumps the version stamp.
func (s *ExcelStore) Save(ctx context.Context, l Log) (Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := EncodeXLSX(l, s.keyHeader)
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return 0, fmt.Errorf("write log %s: %w", s.path, err)
	}
	s.ver++
	return s.ver, nil
}

// Version reports the in-process stamp. External writers are not detected;
// single-process deployments are the documented assumption.
func (s *ExcelStore) Version(ctx context.Context) (Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ver, nil
}

// EncodeXLSX renders a log in its native tabular format, used both for
// persistence and for the admin download.
func EncodeXLSX(l Log, keyHeader string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	header := []interface{}{keyHeader, "Name", "Date", "Time"}
	if err := f.SetSheetRow(logSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("encode log: %w", err)
	}
	for i, rec := range l {
		row := []interface{}{rec.SubmittedKey, rec.Name, rec.Date, rec.Time}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(logSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("encode log: %w", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("encode log: %w", err)
	}
	return buf.Bytes(), nil
}

func cellAt(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return row[i]
}
