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

package historydb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *HistoryDB {
	t.Helper()

	sqlDB, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "history_test.db"))
	require.NoError(t, err)

	db, err := FromSQL(sqlDB)
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("failed to set up history db: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close history db: %v", err)
		}
	})
	return db
}

func entry(runID string, downloaded time.Time) *Entry {
	return &Entry{
		RunID:        runID,
		PresetName:   "ANSI 635V",
		TestedAt:     downloaded.Add(-time.Minute),
		DownloadedAt: downloaded,
		Steps:        12,
		FailedSteps:  1,
		BackupPath:   "/backups/" + runID + ".csv",
	}
}

func TestAddAndRecent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	first := entry("run-1", base)
	require.NoError(t, db.AddReport(ctx, first))
	assert.Positive(t, first.ID)

	second := entry("run-2", base.Add(time.Hour))
	require.NoError(t, db.AddReport(ctx, second))
	assert.Greater(t, second.ID, first.ID)

	entries, err := db.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "run-2", entries[0].RunID)
	assert.Equal(t, *first, entries[1])

	entries, err = db.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "run-2", entries[0].RunID)

	entries, err = db.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSetExportPath(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, db.AddReport(ctx, entry("run-1", base)))
	require.NoError(t, db.AddReport(ctx, entry("run-1", base.Add(time.Second))))

	require.NoError(t, db.SetExportPath(ctx, "run-1", "/home/op/report.csv"))

	entries, err := db.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "/home/op/report.csv", entries[0].ExportPath)
	assert.Empty(t, entries[1].ExportPath)

	err = db.SetExportPath(ctx, "missing", "/x.csv")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestVersion(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	v, err := db.Version()
	require.NoError(t, err)
	assert.Equal(t, int64(20260301120000), v)

	// migrating twice is a no-op
	require.NoError(t, db.MigrateUp())
}

func TestOpen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "history.db")
	db, err := Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, db.AddReport(context.Background(), entry("run-1", time.Now())))
	require.NoError(t, db.Close())

	db, err = Open(context.Background(), path)
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()
	entries, err := db.Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNullSQL(t *testing.T) {
	t.Parallel()

	db := &HistoryDB{}
	ctx := context.Background()
	require.ErrorIs(t, db.AddReport(ctx, &Entry{}), ErrNullSQL)
	require.ErrorIs(t, db.SetExportPath(ctx, "x", "y"), ErrNullSQL)
	_, err := db.Recent(ctx, 1)
	require.ErrorIs(t, err, ErrNullSQL)
	require.NoError(t, db.Close())
}
