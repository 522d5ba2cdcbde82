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

package service

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// MarkerFile is created when a test starts and removed when the run ends.
// Finding it at start-up means the previous process died mid-run.
const MarkerFile = "test_running"

// Marker is the on-disk run marker. Only its presence matters; the body
// records the run id and start time for diagnostics.
type Marker struct {
	fs   afero.Fs
	path string
}

func NewMarker(fs afero.Fs, dir string) (*Marker, error) {
	if err := fs.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create temp directory %s: %w", dir, err)
	}
	return &Marker{fs: fs, path: filepath.Join(dir, MarkerFile)}, nil
}

func (m *Marker) Path() string {
	return m.path
}

func (m *Marker) Exists() (bool, error) {
	ok, err := afero.Exists(m.fs, m.path)
	if err != nil {
		return false, fmt.Errorf("failed to check run marker: %w", err)
	}
	return ok, nil
}

func (m *Marker) Create(runID string, started time.Time) error {
	body := fmt.Sprintf("run_id=%s\nstarted=%s\n", runID, started.UTC().Format(time.RFC3339))
	if err := afero.WriteFile(m.fs, m.path, []byte(body), 0o600); err != nil {
		return fmt.Errorf("failed to create run marker: %w", err)
	}
	return nil
}

// RunID returns the run id recorded in the marker, or "" if the marker has
// none.
func (m *Marker) RunID() (string, error) {
	data, err := afero.ReadFile(m.fs, m.path)
	if err != nil {
		return "", fmt.Errorf("failed to read run marker: %w", err)
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if v, ok := strings.CutPrefix(scanner.Text(), "run_id="); ok {
			return strings.TrimSpace(v), nil
		}
	}
	return "", nil
}

// Remove deletes the marker. A missing marker is not an error.
func (m *Marker) Remove() error {
	err := m.fs.Remove(m.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove run marker: %w", err)
	}
	return nil
}
