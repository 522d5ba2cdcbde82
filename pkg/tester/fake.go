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

package tester

import (
	"github.com/rs/zerolog/log"
	"github.com/safetylab/reportdl/pkg/helpers/syncutil"
	"github.com/safetylab/reportdl/pkg/report"
)

// FakeID is the identity reported by Fake.
const FakeID = "DEBUG DEVICE"

// Fake stands in for a tester when none is attached. Raw payloads in its
// memory go through the same classification and decoding as real responses.
type Fake struct {
	path       string
	produce    []string
	memory     []string
	busyPolls  int
	remaining  int
	startCalls int
	mu         syncutil.Mutex
}

// NewFake returns a Fake that reports busyPolls running polls after every
// StartTest. Each test stores the next of payloads in the report memory; a
// test started with none left stores nothing, as if it was aborted.
func NewFake(path string, busyPolls int, payloads ...string) *Fake {
	return &Fake{
		path:      path,
		busyPolls: busyPolls,
		produce:   payloads,
	}
}

// Enqueue stores a raw payload directly in the report memory.
func (f *Fake) Enqueue(raw string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memory = append(f.memory, raw)
}

// StartCalls returns how many times StartTest was called.
func (f *Fake) StartCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startCalls
}

func (*Fake) Identify() (string, error) {
	return FakeID, nil
}

func (*Fake) ID() string {
	return FakeID
}

func (f *Fake) Port() string {
	return f.path
}

func (*Fake) Beep() error {
	return nil
}

func (f *Fake) StartTest() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	f.remaining = f.busyPolls
	if len(f.produce) > 0 {
		f.memory = append(f.memory, f.produce[0])
		f.produce = f.produce[1:]
	}
	log.Info().Msg("fake test started")
	return nil
}

func (f *Fake) IsTesting() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.remaining > 0 {
		f.remaining--
		return true, nil
	}
	return false, nil
}

func (f *Fake) fetch() (*report.TestReport, error) {
	if len(f.memory) == 0 {
		return nil, ErrNoReport
	}
	raw := f.memory[0]
	f.memory = f.memory[1:]
	return decodeResponse(raw)
}

func (f *Fake) FetchNextReport() (*report.TestReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetch()
}

func (f *Fake) DrainAllReports() ([]*report.TestReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return drain(f.fetch)
}

func (*Fake) Reconnect() error {
	return nil
}

func (*Fake) Close() error {
	return nil
}
