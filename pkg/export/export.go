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

// Package export writes decoded reports as spreadsheet files.
package export

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
	"github.com/safetylab/reportdl/pkg/report"
	"github.com/spf13/afero"
)

// Ext is appended to destinations without it.
const Ext = ".csv"

// Exporter persists a report to a destination path and returns the path
// actually written.
type Exporter interface {
	Export(r *report.TestReport, dest string) (string, error)
}

// field order is column order
type stepRow struct {
	Number          int     `csv:"Step Number"`
	Method          string  `csv:"Method"`
	Name            string  `csv:"Step Name"`
	LimitValue      float64 `csv:"Limit Value (mA)"`
	ActualValue     float64 `csv:"Actual Value (mA)"`
	TestCondition   float64 `csv:"Test Condition (V)"`
	ActualCondition float64 `csv:"Actual Condition (V)"`
	Duration        float64 `csv:"Test Duration (s)"`
	Verdict         string  `csv:"Go"`
}

// CSVExporter writes a preset/date block followed by the step table.
type CSVExporter struct {
	fs afero.Fs
}

func NewCSVExporter(fs afero.Fs) *CSVExporter {
	return &CSVExporter{fs: fs}
}

// WithExt returns dest with the export extension appended if missing.
func WithExt(dest string) string {
	if strings.EqualFold(filepath.Ext(dest), Ext) {
		return dest
	}
	return dest + Ext
}

func rows(r *report.TestReport) []stepRow {
	steps := r.Steps()
	out := make([]stepRow, 0, len(steps))
	for i, s := range steps {
		out = append(out, stepRow{
			Number:          i + 1,
			Method:          s.Method,
			Name:            s.Name,
			LimitValue:      s.LimitValue,
			ActualValue:     s.ActualValue,
			TestCondition:   s.TestCondition,
			ActualCondition: s.ActualCondition,
			Duration:        s.Duration,
			Verdict:         string(s.Verdict()),
		})
	}
	return out
}

func (e *CSVExporter) Export(r *report.TestReport, dest string) (path string, err error) {
	if r == nil {
		return "", fmt.Errorf("nothing to export to %s", dest)
	}
	path = WithExt(dest)

	if dir := filepath.Dir(path); dir != "" {
		if err := e.fs.MkdirAll(dir, 0o750); err != nil {
			return "", fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	f, err := e.fs.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close export file: %w", closeErr)
		}
	}()

	bw := bufio.NewWriter(f)

	header := csv.NewWriter(bw)
	records := [][]string{
		{"Preset Name", "Date"},
		{r.PresetName, r.Timestamp.Format(report.TimestampFmt)},
		{},
	}
	if err := header.WriteAll(records); err != nil {
		return "", fmt.Errorf("failed to write report header: %w", err)
	}

	if err := gocsv.Marshal(rows(r), bw); err != nil {
		return "", fmt.Errorf("failed to write report steps: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	log.Debug().Str("path", path).Int("steps", r.Len()).Msg("exported report")
	return path, nil
}
