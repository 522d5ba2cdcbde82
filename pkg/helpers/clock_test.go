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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsClockReliable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"epoch", time.Unix(0, 0), false},
		{"rtc default", time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), false},
		{"last year before cutoff", time.Date(MinReliableYear-1, 12, 31, 23, 59, 59, 0, time.UTC), false},
		{"cutoff", time.Date(MinReliableYear, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"today", time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsClockReliable(tt.t))
		})
	}
}
