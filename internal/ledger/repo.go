package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresStore persists the log in Postgres under the same contract as the
// spreadsheet store: whole-log loads, whole-log saves, one version stamp.
// Moving to row-level appends later changes nothing for callers.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store over an open connection.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Init creates the backing tables if absent.
func (s *PostgresStore) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS attendance_records (
			pos           BIGSERIAL PRIMARY KEY,
			submitted_key TEXT NOT NULL,
			name          TEXT NOT NULL,
			log_date      TEXT NOT NULL,
			log_time      TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("init attendance_records: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS attendance_log_version (
			id      INT PRIMARY KEY,
			version BIGINT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("init attendance_log_version: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO attendance_log_version (id, version)
		VALUES (1, 1)
		ON CONFLICT (id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("seed attendance_log_version: %w", err)
	}
	return nil
}

// Load reads the whole log in insertion order.
func (s *PostgresStore) Load(ctx context.Context) (Log, Version, error) {
	ver, err := s.Version(ctx)
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT submitted_key, name, log_date, log_time
		FROM attendance_records
		ORDER BY pos
	`)
	if err != nil {
		return nil, 0, fmt.Errorf("load log: %w", err)
	}
	defer rows.Close()
	l := Log{}
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.SubmittedKey, &rec.Name, &rec.Date, &rec.Time); err != nil {
			return nil, 0, err
		}
		l = append(l, rec)
	}
	return l, ver, rows.Err()
}

// Save rewrites the whole log in one transaction and bumps the version.
func (s *PostgresStore) Save(ctx context.Context, l Log) (Version, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("save log: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM attendance_records`); err != nil {
		return 0, fmt.Errorf("save log: %w", err)
	}
	for _, rec := range l {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO attendance_records (submitted_key, name, log_date, log_time)
			VALUES ($1, $2, $3, $4)
		`, rec.SubmittedKey, rec.Name, rec.Date, rec.Time)
		if err != nil {
			return 0, fmt.Errorf("save log: %w", err)
		}
	}
	var ver Version
	err = tx.QueryRowContext(ctx, `
		UPDATE attendance_log_version SET version = version + 1
		WHERE id = 1
		RETURNING version
	`).Scan(&ver)
	if err != nil {
		return 0, fmt.Errorf("save log: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("save log: %w", err)
	}
	return ver, nil
}

// Version reads the current stamp.
func (s *PostgresStore) Version(ctx context.Context) (Version, error) {
	var ver Version
	err := s.db.QueryRowContext(ctx, `
		SELECT version FROM attendance_log_version WHERE id = 1
	`).Scan(&ver)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, errors.New("attendance_log_version not seeded; run Init")
	}
	if err != nil {
		return 0, fmt.Errorf("read log version: %w", err)
	}
	return ver, nil
}
