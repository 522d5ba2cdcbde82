// Report Downloader
// Copyright (c) 2026 The Report Downloader Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Report Downloader.
//
// Report Downloader is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Report Downloader is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Report Downloader.  If not, see <http://www.gnu.org/licenses/>.

// Package historydb records every downloaded report in a small SQLite
// database so past runs can be listed without opening backup files.
package historydb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
	"github.com/safetylab/reportdl/pkg/database"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const sqliteConnParams = "?_journal_mode=WAL&_synchronous=FULL&_busy_timeout=5000"

var (
	ErrNullSQL  = errors.New("history database is not connected")
	ErrNotFound = errors.New("no report recorded for run")
)

// Entry is one downloaded report.
type Entry struct {
	TestedAt     time.Time
	DownloadedAt time.Time
	RunID        string
	PresetName   string
	BackupPath   string
	ExportPath   string
	ID           int64
	Steps        int
	FailedSteps  int
}

type HistoryDB struct {
	sql *sql.DB
}

// Open opens or creates the database at path and migrates it.
func Open(ctx context.Context, path string) (*HistoryDB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create directory for database: %w", err)
	}
	sqlDB, err := sql.Open("sqlite3", path+sqliteConnParams)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db, err := FromSQL(sqlDB)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	log.Debug().Str("path", path).Msg("opened history database")
	return db, nil
}

// FromSQL wraps an already open connection and migrates it.
func FromSQL(sqlDB *sql.DB) (*HistoryDB, error) {
	db := &HistoryDB{sql: sqlDB}
	if err := db.MigrateUp(); err != nil {
		return nil, err
	}
	return db, nil
}

func (db *HistoryDB) MigrateUp() error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if err := database.MigrateUp(db.sql, migrationFiles, "migrations"); err != nil {
		return fmt.Errorf("failed to run history database migrations: %w", err)
	}
	return nil
}

func (db *HistoryDB) Version() (int64, error) {
	if db.sql == nil {
		return 0, ErrNullSQL
	}
	v, err := database.Version(db.sql, migrationFiles, "migrations")
	if err != nil {
		return 0, fmt.Errorf("failed to get history database version: %w", err)
	}
	return v, nil
}

// AddReport inserts e and sets its ID.
func (db *HistoryDB) AddReport(ctx context.Context, e *Entry) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	res, err := db.sql.ExecContext(ctx, `
		INSERT INTO Reports (
			RunID, PresetName, TestedAt, DownloadedAt,
			Steps, FailedSteps, BackupPath, ExportPath
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?);`,
		e.RunID,
		e.PresetName,
		e.TestedAt.UnixMilli(),
		e.DownloadedAt.UnixMilli(),
		e.Steps,
		e.FailedSteps,
		e.BackupPath,
		e.ExportPath,
	)
	if err != nil {
		return fmt.Errorf("failed to insert report history: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get report history id: %w", err)
	}
	e.ID = id
	return nil
}

// SetExportPath records where the operator saved the report of a run. The
// most recent entry for the run is updated.
func (db *HistoryDB) SetExportPath(ctx context.Context, runID, path string) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	res, err := db.sql.ExecContext(ctx, `
		UPDATE Reports SET ExportPath = ?
		WHERE DBID = (SELECT MAX(DBID) FROM Reports WHERE RunID = ?);`,
		path, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to update report history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update report history: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return nil
}

// Recent returns up to n entries, newest first.
func (db *HistoryDB) Recent(ctx context.Context, n int) ([]Entry, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	if n <= 0 {
		return []Entry{}, nil
	}
	rows, err := db.sql.QueryContext(ctx, `
		SELECT DBID, RunID, PresetName, TestedAt, DownloadedAt,
			Steps, FailedSteps, BackupPath, ExportPath
		FROM Reports
		ORDER BY DownloadedAt DESC, DBID DESC
		LIMIT ?;`,
		n,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query report history: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close history rows")
		}
	}()

	entries := make([]Entry, 0, n)
	for rows.Next() {
		var e Entry
		var testedAt, downloadedAt int64
		err := rows.Scan(
			&e.ID, &e.RunID, &e.PresetName, &testedAt, &downloadedAt,
			&e.Steps, &e.FailedSteps, &e.BackupPath, &e.ExportPath,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report history: %w", err)
		}
		e.TestedAt = time.UnixMilli(testedAt).UTC()
		e.DownloadedAt = time.UnixMilli(downloadedAt).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate report history: %w", err)
	}
	return entries, nil
}

func (db *HistoryDB) Close() error {
	if db.sql == nil {
		return nil
	}
	err := db.sql.Close()
	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
