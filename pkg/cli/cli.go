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
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/safetylab/reportdl/internal/telemetry"
	"github.com/safetylab/reportdl/pkg/config"
	"github.com/safetylab/reportdl/pkg/helpers"
)

type Flags struct {
	Version    *bool
	Config     *bool
	ListPorts  *bool
	Decode     *string
	Export     *string
	History    *int
	Fake       *bool
	FakeReport *string
	Debug      *bool
}

// SetupFlags defines all CLI flags.
func SetupFlags() *Flags {
	return &Flags{
		Version: flag.Bool(
			"version",
			false,
			"print version and exit",
		),
		Config: flag.Bool(
			"config",
			false,
			"print the config file path and exit",
		),
		ListPorts: flag.Bool(
			"list-ports",
			false,
			"list serial ports and exit",
		),
		Decode: flag.String(
			"decode",
			"",
			"decode a raw report capture file and print it",
		),
		Export: flag.String(
			"export",
			"",
			"with -decode, also export the report to this file",
		),
		History: flag.Int(
			"history",
			0,
			"print the last n downloaded reports and exit",
		),
		Fake: flag.Bool(
			"fake",
			false,
			"use a simulated tester instead of the serial port",
		),
		FakeReport: flag.String(
			"fake-report",
			"",
			"raw report capture returned by the simulated tester",
		),
		Debug: flag.Bool(
			"debug",
			false,
			"enable debug logging",
		),
	}
}

func isFlagPassed(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// Pre runs flag parsing and actions any immediate flags that don't
// require config or logging.
func (f *Flags) Pre() {
	flag.Parse()

	switch {
	case *f.Version:
		_, _ = fmt.Printf("Report Downloader v%s\n", config.AppVersion)
		os.Exit(0)
	case *f.ListPorts:
		if err := ListPorts(os.Stdout, helpers.ListSerialPorts); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	case isFlagPassed("decode"):
		if *f.Decode == "" {
			_, _ = fmt.Fprint(os.Stderr, "Error: decode flag requires a value\n")
			os.Exit(1)
		}
		if err := DecodeFile(os.Stdout, *f.Decode, *f.Export); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}
}

// Setup loads the user config and initializes logging and error reporting.
//
//nolint:gocritic // config struct copied for immutability
func Setup(defaultConfig config.Values, writers []io.Writer) *config.Instance {
	cfg, err := config.NewConfig(helpers.ConfigDir(), defaultConfig)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	err = helpers.InitLogging(cfg.LogSettings(), writers)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
		os.Exit(1)
	}

	// Initialize error reporting (opt-in)
	if err := telemetry.Init(telemetry.Options{
		DSN:        cfg.ErrorReportingDSN(),
		AppVersion: config.AppVersion,
	}); err != nil {
		log.Warn().Err(err).Msg("failed to initialize error reporting")
	}

	return cfg
}

// Post actions all remaining flags that need the config. Logging is
// allowed.
func (f *Flags) Post(cfg *config.Instance) {
	if *f.Debug {
		cfg.SetDebugLogging(true)
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if *f.Fake {
		cfg.SetFakeTester(true)
	}

	switch {
	case *f.Config:
		_, _ = fmt.Println(cfg.Path())
		os.Exit(0)
	case isFlagPassed("history"):
		if err := PrintHistory(os.Stdout, cfg, *f.History); err != nil {
			log.Error().Err(err).Msg("error reading history")
			_, _ = fmt.Fprintf(os.Stderr, "Error reading history: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}
}
