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

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/safetylab/reportdl/pkg/config"
	"github.com/safetylab/reportdl/pkg/database/historydb"
	"github.com/safetylab/reportdl/pkg/export"
	"github.com/safetylab/reportdl/pkg/helpers"
	"github.com/safetylab/reportdl/pkg/report"
	"github.com/safetylab/reportdl/pkg/tester"
	"github.com/spf13/afero"
)

const (
	fakeBusyPolls = 2
	historyFmt    = "%-19s  %-30s  %5s  %6s  %s\n"
)

// ListPorts prints one serial port per line.
func ListPorts(w io.Writer, list func() ([]helpers.SerialPortInfo, error)) error {
	ports, err := list()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		_, _ = fmt.Fprintln(w, "No serial ports found.")
		return nil
	}
	for _, p := range ports {
		_, _ = fmt.Fprintln(w, p.String())
	}
	return nil
}

// DecodeFile decodes a raw report capture, prints it and exports it when
// exportPath is set.
func DecodeFile(w io.Writer, path, exportPath string) error {
	return decodeFile(w, afero.NewOsFs(), path, exportPath)
}

func decodeFile(w io.Writer, fs afero.Fs, path, exportPath string) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("failed to read capture: %w", err)
	}

	r, err := report.Decode(string(data))
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	_, _ = fmt.Fprint(w, r.String())
	verdict := "PASSED"
	if !r.Passed() {
		verdict = fmt.Sprintf("FAILED (%d of %d steps)", r.FailedSteps(), r.Len())
	}
	_, _ = fmt.Fprintln(w, verdict)

	if exportPath == "" {
		return nil
	}
	out, err := export.NewCSVExporter(fs).Export(r, exportPath)
	if err != nil {
		return err //nolint:wrapcheck // already wrapped by the exporter
	}
	_, _ = fmt.Fprintf(w, "Exported to %s\n", out)
	return nil
}

// PrintHistory prints the newest n entries of the report history.
func PrintHistory(w io.Writer, cfg *config.Instance, n int) error {
	if !cfg.HistoryEnabled() {
		return fmt.Errorf("history is disabled in %s", cfg.Path())
	}

	ctx := context.Background()
	db, err := historydb.Open(ctx, cfg.HistoryDatabase())
	if err != nil {
		return err //nolint:wrapcheck // wrapped by historydb
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing history database")
		}
	}()

	entries, err := db.Recent(ctx, n)
	if err != nil {
		return err //nolint:wrapcheck // wrapped by historydb
	}
	writeHistory(w, entries)
	return nil
}

func writeHistory(w io.Writer, entries []historydb.Entry) {
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(w, "No reports downloaded yet.")
		return
	}
	_, _ = fmt.Fprintf(w, historyFmt, "DOWNLOADED", "PRESET", "STEPS", "FAILED", "SAVED TO")
	for i := range entries {
		e := &entries[i]
		saved := e.ExportPath
		if saved == "" {
			saved = "(backup only) " + e.BackupPath
		}
		_, _ = fmt.Fprintf(w, historyFmt,
			e.DownloadedAt.Local().Format(time.DateTime),
			e.PresetName,
			fmt.Sprint(e.Steps),
			fmt.Sprint(e.FailedSteps),
			saved,
		)
	}
}

// OpenDevice returns the simulated tester when enabled in cfg, otherwise the
// serial tester on the configured port.
func OpenDevice(cfg *config.Instance, fakeReport string) (tester.Device, error) {
	if cfg.FakeTester() {
		var payloads []string
		if fakeReport != "" {
			data, err := os.ReadFile(fakeReport)
			if err != nil {
				return nil, fmt.Errorf("failed to read fake report: %w", err)
			}
			payloads = append(payloads, string(data))
		}
		log.Info().Msg("using simulated tester")
		return tester.NewFake("fake", fakeBusyPolls, payloads...), nil
	}

	dev, err := tester.Open(cfg.TesterPort())
	if err != nil {
		return nil, err //nolint:wrapcheck // already wraps ErrCommunication
	}
	return dev, nil
}
