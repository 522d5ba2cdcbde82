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
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/safetylab/reportdl/pkg/config"
	"github.com/safetylab/reportdl/pkg/service"
	"github.com/safetylab/reportdl/pkg/ui/tui"
)

// exportDir is where the save form suggests reports go.
func exportDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}

// Run opens the tester, starts the test manager and shows the text ui until
// the operator exits.
func (f *Flags) Run(cfg *config.Instance) error {
	dev, err := OpenDevice(cfg, *f.FakeReport)
	if err != nil {
		log.Error().Err(err).Msg("error opening tester")
		return fmt.Errorf("error opening tester: %w", err)
	}
	defer func() {
		if err := dev.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing tester")
		}
	}()

	m, stopSvc, _, err := service.Start(cfg, dev)
	if err != nil {
		log.Error().Err(err).Msg("error starting service")
		return fmt.Errorf("error starting service: %w", err)
	}
	defer func() {
		if err := stopSvc(); err != nil {
			log.Error().Err(err).Msg("error stopping service")
		}
	}()

	if err := tui.Run(m, m.Events(), exportDir()); err != nil {
		log.Error().Err(err).Msg("error running UI")
		return fmt.Errorf("error running UI: %w", err)
	}
	return nil
}
