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

package helpers

import (
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
)

func TestResolvePath(t *testing.T) {
	t.Parallel()

	base := filepath.Join(t.TempDir(), "cfg")
	abs := filepath.Join(t.TempDir(), "elsewhere", "..", "backups")

	assert.Equal(t, filepath.Join(base, "backups"), ResolvePath(base, "backups"))
	assert.Equal(t, filepath.Join(base, "a", "b"), ResolvePath(base, "a/./b"))
	assert.Equal(t, filepath.Clean(abs), ResolvePath(base, abs))
	assert.Equal(t, base, ResolvePath(base, ""))
}

func TestConfigDir(t *testing.T) {
	t.Parallel()

	dir := ConfigDir()
	assert.NotEmpty(t, dir)
	if _, ok := HasUserDir(); !ok {
		assert.Equal(t, filepath.Join(xdg.ConfigHome, AppName), dir)
	}
}
