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

package tui

import (
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/require"
)

// TestScreen is a simulation screen that widgets can be drawn onto directly.
type TestScreen struct {
	tcell.SimulationScreen
	finalized bool
}

func NewTestScreen(t *testing.T, width, height int) *TestScreen {
	t.Helper()
	sim := tcell.NewSimulationScreen("UTF-8")
	require.NotNil(t, sim)
	require.NoError(t, sim.Init())
	sim.SetSize(width, height)
	return &TestScreen{SimulationScreen: sim}
}

// Line returns row y with trailing blanks removed.
func (s *TestScreen) Line(y int) string {
	s.Show()
	cells, width, height := s.GetContents()
	if y < 0 || y >= height {
		return ""
	}
	var sb strings.Builder
	for x := range width {
		cell := cells[y*width+x]
		if len(cell.Runes) > 0 {
			sb.WriteRune(cell.Runes[0])
		} else {
			sb.WriteRune(' ')
		}
	}
	return strings.TrimRight(sb.String(), " ")
}

func (s *TestScreen) Text() string {
	_, _, height := s.GetContents()
	lines := make([]string, 0, height)
	for y := range height {
		lines = append(lines, s.Line(y))
	}
	return strings.Join(lines, "\n")
}

func (s *TestScreen) ContainsText(text string) bool {
	return strings.Contains(s.Text(), text)
}

// DumpScreen is meant as a failure message.
func (s *TestScreen) DumpScreen() string {
	return "screen:\n" + s.Text()
}

func (s *TestScreen) Cleanup() {
	if !s.finalized {
		s.finalized = true
		s.Fini()
	}
}
