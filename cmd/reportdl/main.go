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

package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/safetylab/reportdl/internal/telemetry"
	"github.com/safetylab/reportdl/pkg/cli"
	"github.com/safetylab/reportdl/pkg/config"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		telemetry.Flush()
		os.Exit(1)
	}
}

func run() error {
	flags := cli.SetupFlags()
	flags.Pre()

	// the text ui owns the terminal, logs only go to the file
	cfg := cli.Setup(config.BaseDefaults, nil)
	defer telemetry.Close()

	defer func() {
		if err := recover(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %s\n", err)
			log.Fatal().Msgf("panic: %v", err)
		}
	}()

	flags.Post(cfg)

	return flags.Run(cfg)
}
