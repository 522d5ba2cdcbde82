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

// Package tester talks to the safety tester over its serial link.
//
// The tester speaks a simple command/response protocol: every command is a
// fixed byte sequence and the response has no terminator. A response is
// considered complete once the device has been quiet for one settle delay.
package tester

import (
	"errors"
	"time"

	"github.com/safetylab/reportdl/pkg/report"
)

const (
	// SettleDelay is the quiet period that ends a response.
	SettleDelay = 120 * time.Millisecond
	// BaudRate of the tester's serial interface, 8N1 without flow control.
	BaudRate = 9600
	// ProbeRange is how many numbered ports Reconnect tries.
	ProbeRange = 100

	identityMarker = "Conness."
	identityOffset = 3
	// hex encoding of the single byte the tester answers a beep with while a
	// test is running
	testingSentinel = "07"
)

var (
	cmdIdentify  = []byte{0x02, 0x81, 0xfd}
	cmdBeep      = []byte{0x02, 0x81, 0xfa, 0x62, 0x20, 0x33, 0x42, 0x03}
	cmdStartTest = []byte{0x02, 0x81, 0xfa, 0x73, 0x20, 0x32, 0x41, 0x03}
	cmdGetReport = []byte{0x02, 0x81, 0x06}
)

// ErrNoReport is returned when the tester has no stored report. It is routine
// control flow, not a failure.
var ErrNoReport = errors.New("no report available for download")

// ErrCommunication wraps every transport level failure.
var ErrCommunication = errors.New("communication failure")

// Device is the set of operations the test lifecycle needs from a tester.
type Device interface {
	// Identify asks the tester for its identity and caches it.
	Identify() (string, error)
	// ID returns the identity cached by the last Identify.
	ID() string
	// Port returns the name of the port currently in use.
	Port() string
	Beep() error
	// StartTest starts the currently selected preset.
	StartTest() error
	// IsTesting reports whether a test is still running.
	IsTesting() (bool, error)
	// FetchNextReport pops the oldest stored report. It returns ErrNoReport
	// when the tester memory is empty.
	FetchNextReport() (*report.TestReport, error)
	// DrainAllReports pops stored reports until none are left.
	DrainAllReports() ([]*report.TestReport, error)
	// Reconnect reopens the link, searching numbered ports for a tester with
	// the same identity when the current port is gone.
	Reconnect() error
	Close() error
}

// drain is shared by both Device implementations.
func drain(fetch func() (*report.TestReport, error)) ([]*report.TestReport, error) {
	var reports []*report.TestReport
	for {
		r, err := fetch()
		if errors.Is(err, ErrNoReport) {
			return reports, nil
		} else if err != nil {
			return reports, err
		}
		reports = append(reports, r)
	}
}
