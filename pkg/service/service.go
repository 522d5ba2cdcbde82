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

// Package service runs the tester lifecycle: starting tests, polling for
// their end, downloading and backing up reports and asking where to save
// them.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/safetylab/reportdl/pkg/backup"
	"github.com/safetylab/reportdl/pkg/config"
	"github.com/safetylab/reportdl/pkg/database/historydb"
	"github.com/safetylab/reportdl/pkg/export"
	"github.com/safetylab/reportdl/pkg/tester"
	"github.com/spf13/afero"
)

// ErrConfiguration is returned by Start when a configured folder can't be
// used.
var ErrConfiguration = errors.New("configuration error")

func openHistory(ctx context.Context, cfg *config.Instance) *historydb.HistoryDB {
	if !cfg.HistoryEnabled() {
		return nil
	}
	db, err := historydb.Open(ctx, cfg.HistoryDatabase())
	if err != nil {
		log.Error().Err(err).Msg("error opening history database, history disabled")
		return nil
	}
	return db
}

// Start builds a Manager from cfg and runs it in the background. stop cancels
// the manager and waits for it to exit; done is closed once it has.
func Start(
	cfg *config.Instance,
	dev tester.Device,
) (m *Manager, stop func() error, done <-chan struct{}, err error) {
	log.Info().Msgf("version: %s", config.AppVersion)

	fs := afero.NewOsFs()

	marker, err := NewMarker(fs, cfg.TempDir())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	exporter := export.NewCSVExporter(fs)
	backups, err := backup.NewStore(
		fs,
		cfg.BackupFolder(),
		cfg.BackupMaxSize(),
		exporter,
		clockwork.NewRealClock(),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	opts := []Option{}
	history := openHistory(ctx, cfg)
	if history != nil {
		opts = append(opts, WithHistory(history))
	}

	m = NewManager(dev, backups, exporter, marker, opts...)

	exited := make(chan struct{})
	go func() {
		defer close(exited)
		if err := m.Run(ctx); err != nil {
			log.Error().Err(err).Msg("test manager exited with error")
		}
	}()

	stop = func() error {
		cancel()
		<-exited
		if history != nil {
			if err := history.Close(); err != nil {
				return fmt.Errorf("failed to close history database: %w", err)
			}
		}
		log.Info().Msg("service stopped")
		return nil
	}

	return m, stop, exited, nil
}
