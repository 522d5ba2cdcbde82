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

// Package backup keeps a size-capped folder of report copies so that a
// report is never lost when the operator declines to save it.
package backup

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/safetylab/reportdl/pkg/export"
	"github.com/safetylab/reportdl/pkg/helpers/syncutil"
	"github.com/safetylab/reportdl/pkg/report"
	"github.com/spf13/afero"
)

// DefaultMaxBytes is 50 MiB.
const DefaultMaxBytes int64 = 50 * 1024 * 1024

type Store struct {
	fs       afero.Fs
	exporter export.Exporter
	clock    clockwork.Clock
	dir      string
	maxBytes int64
	mu       syncutil.Mutex
}

// NewStore creates dir if needed. Backups are written with exporter, which
// must write to the same filesystem.
func NewStore(
	fs afero.Fs,
	dir string,
	maxBytes int64,
	exporter export.Exporter,
	clock clockwork.Clock,
) (*Store, error) {
	if maxBytes <= 0 {
		return nil, fmt.Errorf("invalid backup size cap: %d", maxBytes)
	}
	if err := fs.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create backup folder %s: %w", dir, err)
	}
	return &Store{
		fs:       fs,
		dir:      dir,
		maxBytes: maxBytes,
		exporter: exporter,
		clock:    clock,
	}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) MaxBytes() int64 {
	return s.maxBytes
}

// Save writes r as <dir>/<unix-millis>.csv and returns the path. An existing
// file is never overwritten; the stamp is bumped until the name is free.
func (s *Store) Save(r *report.TestReport) (string, error) {
	if r == nil {
		return "", errors.New("no report to back up")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stamp := s.clock.Now().UnixMilli()
	var name string
	for {
		name = filepath.Join(s.dir, strconv.FormatInt(stamp, 10)+export.Ext)
		exists, err := afero.Exists(s.fs, name)
		if err != nil {
			return "", fmt.Errorf("failed to check backup file: %w", err)
		}
		if !exists {
			break
		}
		stamp++
	}

	path, err := s.exporter.Export(r, name)
	if err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}
	log.Info().Str("path", path).Msg("stored report backup")
	return path, nil
}

type entry struct {
	name string
	size int64
}

func (s *Store) entries() ([]entry, int64, error) {
	infos, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read backup folder: %w", err)
	}

	var total int64
	files := make([]entry, 0, len(infos))
	for _, info := range infos {
		if !info.Mode().IsRegular() {
			continue
		}
		files = append(files, entry{name: info.Name(), size: info.Size()})
		total += info.Size()
	}
	return files, total, nil
}

// Size returns the total size of the regular files in the backup folder.
func (s *Store) Size() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, total, err := s.entries()
	return total, err
}

// EnforceCap deletes backups in ascending name order, which for millisecond
// stamps is oldest first, until the folder fits the cap again. It returns the
// names of the removed files.
func (s *Store) EnforceCap() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, total, err := s.entries()
	if err != nil {
		return nil, err
	}
	log.Debug().Int64("size", total).Int64("max", s.maxBytes).Msg("backup folder size")
	if total <= s.maxBytes {
		return nil, nil
	}

	log.Info().Msg("backup folder max size exceeded, purging backups starting from the oldest")
	sort.Slice(files, func(i, j int) bool {
		return files[i].name < files[j].name
	})

	var removed []string
	for _, f := range files {
		if total <= s.maxBytes {
			break
		}
		if err := s.fs.Remove(filepath.Join(s.dir, f.name)); err != nil {
			return removed, fmt.Errorf("failed to remove backup %s: %w", f.name, err)
		}
		total -= f.size
		removed = append(removed, f.name)
	}

	log.Info().Int("count", len(removed)).Msg("backup files deleted")
	return removed, nil
}
