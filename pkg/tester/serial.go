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
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/safetylab/reportdl/pkg/helpers"
	"github.com/safetylab/reportdl/pkg/helpers/syncutil"
	"github.com/safetylab/reportdl/pkg/report"
)

// filler bytes the tester sends around an empty report answer
var fillerStripper = strings.NewReplacer(
	"\x07", "",
	"\x15", "",
	"4", "",
	"\x03", "",
	"2", "",
)

func isEmptyResponse(resp string) bool {
	return fillerStripper.Replace(strings.TrimSpace(resp)) == ""
}

func parseIdentity(resp string) string {
	resp, _, _ = strings.Cut(resp, identityMarker)
	runes := []rune(resp)
	if len(runes) <= identityOffset {
		return ""
	}
	return string(runes[identityOffset:])
}

func decodeResponse(resp string) (*report.TestReport, error) {
	if isEmptyResponse(resp) {
		return nil, ErrNoReport
	}
	r, err := report.Decode(resp)
	if err != nil {
		log.Error().Err(err).Str("raw", resp).Msg("failed to decode report")
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return r, nil
}

// Tester is the serial implementation of Device. All commands are serialized;
// each one writes, waits a settle delay and reads until the line is quiet.
type Tester struct {
	port    Port
	factory PortFactory
	path    string
	id      string
	settle  time.Duration
	mu      syncutil.Mutex
}

// Option customizes a Tester.
type Option func(*Tester)

// WithPortFactory replaces the function used to open ports.
func WithPortFactory(f PortFactory) Option {
	return func(t *Tester) {
		t.factory = f
	}
}

// WithSettleDelay overrides SettleDelay. Only useful in tests.
func WithSettleDelay(d time.Duration) Option {
	return func(t *Tester) {
		t.settle = d
	}
}

// Open connects to the tester on the given port.
func Open(path string, opts ...Option) (*Tester, error) {
	t := &Tester{
		path:    path,
		factory: DefaultPortFactory,
		settle:  SettleDelay,
	}
	for _, opt := range opts {
		opt(t)
	}

	port, err := t.openPort(path)
	if err != nil {
		return nil, err
	}
	t.port = port

	log.Info().Str("port", path).Msg("opened tester port")
	return t, nil
}

func (t *Tester) openPort(path string) (Port, error) {
	port, err := t.factory(path, Mode())
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrCommunication, path, err)
	}
	// the read timeout doubles as the quiescence detector
	if err := port.SetReadTimeout(t.settle); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("%w: set read timeout on %s: %w", ErrCommunication, path, err)
	}
	return port, nil
}

func (t *Tester) send(cmd []byte) error {
	if t.port == nil {
		return fmt.Errorf("%w: port %s is closed", ErrCommunication, t.path)
	}
	if _, err := t.port.Write(cmd); err != nil {
		log.Error().Err(err).Str("port", t.path).
			Msg("failed to write command, was the tester disconnected?")
		return fmt.Errorf("%w: write: %w", ErrCommunication, err)
	}
	time.Sleep(t.settle)
	return nil
}

// readAll collects bytes until a read returns nothing within the settle
// delay. Invalid UTF-8 is dropped.
func (t *Tester) readAll() (string, error) {
	if t.port == nil {
		return "", fmt.Errorf("%w: port %s is closed", ErrCommunication, t.path)
	}

	var data []byte
	buf := make([]byte, 1024)
	for {
		n, err := t.port.Read(buf)
		if err != nil {
			log.Error().Err(err).Str("port", t.path).
				Msg("failed to read from tester, was it disconnected?")
			return "", fmt.Errorf("%w: read: %w", ErrCommunication, err)
		}
		if n == 0 {
			break
		}
		data = append(data, buf[:n]...)
	}

	resp := strings.ToValidUTF8(string(data), "")
	if strings.TrimSpace(resp) != "" {
		log.Debug().
			Int("bytes", len(data)).
			Str("hex", hex.EncodeToString(data)).
			Msg("read from tester")
	}
	return resp, nil
}

func (t *Tester) exchange(cmd []byte) (string, error) {
	if err := t.send(cmd); err != nil {
		return "", err
	}
	return t.readAll()
}

func (t *Tester) identifyLocked() (string, error) {
	log.Debug().Msg("requesting identification")
	resp, err := t.exchange(cmdIdentify)
	if err != nil {
		return "", err
	}
	t.id = parseIdentity(resp)
	log.Debug().Str("id", t.id).Msg("tester identified")
	return t.id, nil
}

func (t *Tester) Identify() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.identifyLocked()
}

func (t *Tester) ID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.id
}

func (t *Tester) Port() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.path
}

func (t *Tester) Beep() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.send(cmdBeep)
}

// StartTest also flushes pending input so the command echo is never read as
// part of a later response.
func (t *Tester) StartTest() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.send(cmdStartTest); err != nil {
		return err
	}
	if err := t.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("%w: reset input buffer: %w", ErrCommunication, err)
	}
	log.Info().Msg("test started")
	return nil
}

func (t *Tester) IsTesting() (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.send(cmdBeep); err != nil {
		return false, err
	}
	time.Sleep(t.settle)
	resp, err := t.readAll()
	if err != nil {
		return false, err
	}
	return hex.EncodeToString([]byte(resp)) == testingSentinel, nil
}

func (t *Tester) fetchLocked() (*report.TestReport, error) {
	resp, err := t.exchange(cmdGetReport)
	if err != nil {
		return nil, err
	}
	return decodeResponse(resp)
}

func (t *Tester) FetchNextReport() (*report.TestReport, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fetchLocked()
}

func (t *Tester) DrainAllReports() ([]*report.TestReport, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return drain(t.fetchLocked)
}

func (t *Tester) closeLocked() error {
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	if err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	return nil
}

func (t *Tester) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeLocked()
}

// Reconnect never fails on its own: if no port answers with the cached
// identity the link stays closed and the next command reports the failure.
func (t *Tester) Reconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	log.Debug().Str("port", t.path).Msg("trying to reconnect")
	if err := t.closeLocked(); err != nil {
		log.Warn().Err(err).Msg("error closing tester port before reconnect")
	}

	port, err := t.openPort(t.path)
	if err == nil {
		t.port = port
		log.Info().Str("port", t.path).Msg("successfully reconnected")
		return nil
	}
	log.Warn().Err(err).Str("port", t.path).Msg("could not reopen tester port, searching")

	if t.id == "" {
		log.Warn().Msg("tester identity unknown, not probing other ports")
		return nil
	}

	for _, candidate := range helpers.CandidatePorts(t.path, ProbeRange) {
		probe := &Tester{
			factory: t.factory,
			path:    candidate,
			settle:  t.settle,
		}
		p, err := t.openPort(candidate)
		if err != nil {
			continue
		}
		probe.port = p

		id, err := probe.identifyLocked()
		if err == nil && id == t.id {
			t.port = p
			t.path = candidate
			log.Info().Str("port", candidate).Msg("successfully reconnected")
			return nil
		}
		if err != nil {
			log.Debug().Err(err).Str("port", candidate).Msg("probe failed")
		}
		_ = p.Close()
	}

	log.Warn().Str("id", t.id).Msg("tester not found on any port")
	return nil
}
