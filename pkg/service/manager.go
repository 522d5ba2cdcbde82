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

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/safetylab/reportdl/internal/telemetry"
	"github.com/safetylab/reportdl/pkg/backup"
	"github.com/safetylab/reportdl/pkg/database/historydb"
	"github.com/safetylab/reportdl/pkg/export"
	"github.com/safetylab/reportdl/pkg/helpers"
	"github.com/safetylab/reportdl/pkg/helpers/syncutil"
	"github.com/safetylab/reportdl/pkg/report"
	"github.com/safetylab/reportdl/pkg/tester"
)

const (
	// PollInterval between two IsTesting queries while a test runs.
	PollInterval = 5 * time.Second

	eventQueueSize   = 64
	commandQueueSize = 16
	// maxStaleDrains bounds how many unreadable stored reports are skipped
	// before a start is given up.
	maxStaleDrains = 32

	markerWarning = "the run marker could not be written, " +
		"a crash during this test cannot be recovered."
)

// HistoryRecorder stores a row per downloaded report. Failures are logged and
// never affect the run.
type HistoryRecorder interface {
	AddReport(ctx context.Context, e *historydb.Entry) error
	SetExportPath(ctx context.Context, runID, path string) error
}

// Manager drives the test lifecycle on a single worker goroutine. Only the
// worker talks to the device; the UI sends commands and receives events.
//
// LOCKING: mu only guards state and resumeState for readers on other
// goroutines. Events are always sent with the lock released.
type Manager struct {
	device      tester.Device
	backups     *backup.Store
	exporter    export.Exporter
	history     HistoryRecorder
	marker      *Marker
	clock       clockwork.Clock
	events      chan Event
	commands    chan Command
	lastReport  *report.TestReport
	runID       string
	lastBackup  string
	interval    time.Duration
	state       State
	resumeState State
	mu          syncutil.RWMutex
}

type Option func(*Manager)

func WithClock(clock clockwork.Clock) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// WithHistory enables report history. A nil recorder disables it.
func WithHistory(h HistoryRecorder) Option {
	return func(m *Manager) {
		m.history = h
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(m *Manager) {
		m.interval = d
	}
}

func NewManager(
	device tester.Device,
	backups *backup.Store,
	exporter export.Exporter,
	marker *Marker,
	opts ...Option,
) *Manager {
	m := &Manager{
		device:   device,
		backups:  backups,
		exporter: exporter,
		marker:   marker,
		clock:    clockwork.NewRealClock(),
		interval: PollInterval,
		events:   make(chan Event, eventQueueSize),
		commands: make(chan Command, commandQueueSize),
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Events returns the event stream. It is closed when Run returns.
func (m *Manager) Events() <-chan Event {
	return m.events
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) setState(ctx context.Context, s State) {
	m.mu.Lock()
	prev := m.state
	m.state = s
	m.mu.Unlock()

	log.Debug().Stringer("from", prev).Stringer("to", s).Msg("state changed")
	m.emit(ctx, Event{Method: EventStateChanged, State: s})
}

// Run processes commands until ctx is cancelled. Cancellation is only noticed
// between polls.
func (m *Manager) Run(ctx context.Context) error {
	defer close(m.events)

	m.startup(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("test manager stopped")
			return nil
		case cmd := <-m.commands:
			m.handle(ctx, cmd)
		}
	}
}

func (m *Manager) handle(ctx context.Context, cmd Command) {
	state := m.State()
	log.Debug().Str("command", cmd.Method).Stringer("state", state).Msg("handling command")

	switch {
	case cmd.Method == CommandStart && state == StateIdle:
		m.startTest(ctx)
	case cmd.Method == CommandResumeDecision && state == StateAwaitingResumeDecision:
		if cmd.Resume {
			m.resume(ctx)
		} else {
			m.discard(ctx)
		}
	case cmd.Method == CommandSaveLocation && state == StateAwaitingSaveLocation:
		m.saveReport(ctx, cmd.Path)
	case cmd.Method == CommandReconnectAck && state == StateCommunicationError:
		m.reconnect(ctx)
	default:
		log.Warn().Str("command", cmd.Method).Stringer("state", state).
			Msg("command not valid in current state, ignoring")
	}
}

func (m *Manager) markerPresent() bool {
	present, err := m.marker.Exists()
	if err != nil {
		log.Error().Err(err).Msg("error checking run marker")
		return false
	}
	return present
}

func (m *Manager) identify(ctx context.Context) error {
	id, err := m.device.Identify()
	if err != nil {
		return fmt.Errorf("failed to identify tester: %w", err)
	}
	log.Info().Str("id", id).Str("port", m.device.Port()).Msg("connected to tester")
	telemetry.SetTester(id)
	m.connectionStatus(ctx, "Connected to "+id)
	return nil
}

func (m *Manager) startup(ctx context.Context) {
	target := StateIdle
	if m.markerPresent() {
		target = StateAwaitingResumeDecision
	}

	if err := m.identify(ctx); err != nil {
		m.communicationFailure(ctx, target, err)
		return
	}

	if target == StateAwaitingResumeDecision {
		log.Warn().Msg("unexpected shutdown detected")
		m.awaitResumeDecision(ctx)
		return
	}
	m.enterIdle(ctx)
}

func (m *Manager) awaitResumeDecision(ctx context.Context) {
	m.setState(ctx, StateAwaitingResumeDecision)
	m.unexpectedShutdown(ctx)
}

func (m *Manager) enterIdle(ctx context.Context) {
	m.busy(ctx, false)
	m.controlsEnabled(ctx, true)
	m.setState(ctx, StateIdle)
}

func (m *Manager) communicationFailure(ctx context.Context, resume State, err error) {
	log.Error().Err(err).Stringer("resume", resume).Msg("communication error")

	m.mu.Lock()
	m.resumeState = resume
	m.mu.Unlock()

	m.setState(ctx, StateCommunicationError)
	m.communicationError(ctx, err)
}

// drainStale empties the tester memory before a new run. Unreadable stored
// reports are dropped one by one and shown as report errors; only transport
// failures are returned.
func (m *Manager) drainStale(ctx context.Context) (bool, error) {
	for range maxStaleDrains {
		stale, err := m.device.DrainAllReports()
		if len(stale) > 0 {
			log.Info().Int("count", len(stale)).Msg("discarded stale reports")
		}
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, tester.ErrCommunication):
			return false, err
		default:
			log.Warn().Err(err).Msg("discarded unreadable stale report")
			m.reportError(ctx, "A stored report could not be read and was discarded: "+err.Error())
		}
	}
	log.Error().Int("attempts", maxStaleDrains).Msg("tester memory still not empty")
	return false, nil
}

func (m *Manager) startTest(ctx context.Context) {
	drained, err := m.drainStale(ctx)
	if err != nil {
		m.communicationFailure(ctx, StateIdle, err)
		return
	}
	if !drained {
		m.statusText(ctx, "Could not clear the tester memory. Ready for new test.")
		m.enterIdle(ctx)
		return
	}

	if err := m.device.StartTest(); err != nil {
		m.communicationFailure(ctx, StateIdle, err)
		return
	}

	m.runID = uuid.New().String()
	markerErr := m.marker.Create(m.runID, m.clock.Now())
	if markerErr != nil {
		log.Error().Err(markerErr).Str("run_id", m.runID).Msg("error creating run marker")
	}
	log.Info().Str("run_id", m.runID).Msg("test started")

	m.controlsEnabled(ctx, false)
	m.busy(ctx, true)
	m.setState(ctx, StateTesting)
	m.resetStatusText(ctx, "Test started.")
	if markerErr != nil {
		m.statusText(ctx, "Warning: "+markerWarning)
	}
	m.statusText(ctx, "Waiting for report...")

	m.waitForReport(ctx)
}

func (m *Manager) resume(ctx context.Context) {
	runID, err := m.marker.RunID()
	if err != nil || runID == "" {
		log.Warn().Err(err).Msg("run marker has no run id, using a new one")
		runID = uuid.New().String()
	}
	m.runID = runID
	log.Info().Str("run_id", m.runID).Msg("resuming interrupted test")

	m.controlsEnabled(ctx, false)
	m.busy(ctx, true)
	m.statusText(ctx, "Unexpected shutdown detected. Waiting for report...")

	m.waitForReport(ctx)
}

func (m *Manager) discard(ctx context.Context) {
	log.Info().Msg("discarding interrupted test")
	if err := m.marker.Remove(); err != nil {
		log.Error().Err(err).Msg("error removing run marker")
	}
	m.enterIdle(ctx)
}

func (m *Manager) enforceBackupCap() {
	removed, err := m.backups.EnforceCap()
	if err != nil {
		log.Error().Err(err).Msg("error enforcing backup size cap")
	}
	if len(removed) > 0 {
		log.Info().Strs("files", removed).Msg("purged old backups")
	}
}

func (m *Manager) waitForReport(ctx context.Context) {
	m.setState(ctx, StateWaitingForReport)
	m.enforceBackupCap()

	for {
		running, err := m.device.IsTesting()
		if err != nil {
			m.communicationFailure(ctx, StateWaitingForReport, err)
			return
		}
		if !running {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-m.clock.After(m.interval):
		}
	}

	r, err := m.device.FetchNextReport()
	switch {
	case err == nil:
		m.reportReady(ctx, r)
	case errors.Is(err, tester.ErrNoReport):
		log.Debug().Msg("no report after test, test was stopped")
		m.statusText(ctx, "Test stopped. Ready for new test.")
		m.endTest(ctx)
	case errors.Is(err, tester.ErrCommunication):
		m.communicationFailure(ctx, StateWaitingForReport, err)
	default:
		log.Error().Err(err).Str("run_id", m.runID).Msg("error decoding report")
		m.reportError(ctx, "The report could not be read: "+err.Error())
		m.endTest(ctx)
	}
}

func (m *Manager) reportReady(ctx context.Context, r *report.TestReport) {
	m.lastReport = r
	m.statusText(ctx, "Report downloaded successfully.")
	log.Info().
		Str("run_id", m.runID).
		Str("preset", r.PresetName).
		Int("steps", r.Len()).
		Int("failed", r.FailedSteps()).
		Msg("report downloaded")

	if now := m.clock.Now(); !helpers.IsClockReliable(now) {
		log.Warn().Time("now", now).Msg("system clock looks unset, backup names will not sort by date")
	}

	path, err := m.backups.Save(r)
	if err != nil {
		log.Error().Err(err).Msg("error writing report backup")
		m.lastBackup = ""
	} else {
		m.lastBackup = path
	}

	if m.history != nil {
		err := m.history.AddReport(ctx, &historydb.Entry{
			RunID:        m.runID,
			PresetName:   r.PresetName,
			TestedAt:     r.Timestamp,
			DownloadedAt: m.clock.Now(),
			Steps:        r.Len(),
			FailedSteps:  r.FailedSteps(),
			BackupPath:   m.lastBackup,
		})
		if err != nil {
			log.Error().Err(err).Msg("error recording report history")
		}
	}

	m.setState(ctx, StateAwaitingSaveLocation)
	m.chooseSaveLocation(ctx, fmt.Sprintf("report-%d%s", m.clock.Now().UnixMilli(), export.Ext))
}

func (m *Manager) saveReport(ctx context.Context, dest string) {
	if dest == "" {
		log.Info().Msg("report was not saved by operator")
		m.statusText(ctx, "Report was NOT saved. A backup copy was stored in "+m.backups.Dir())
		m.endTest(ctx)
		return
	}

	path, err := m.exporter.Export(m.lastReport, dest)
	if err != nil {
		log.Error().Err(err).Str("path", dest).Msg("error saving report")
		m.reportError(ctx, fmt.Sprintf(
			"The report could not be saved to %s: %v. A backup copy was stored in %s",
			dest, err, m.backups.Dir(),
		))
		m.endTest(ctx)
		return
	}

	log.Info().Str("path", path).Msg("report saved")
	m.statusText(ctx, "Report was saved to "+path)

	if m.history != nil {
		if err := m.history.SetExportPath(ctx, m.runID, path); err != nil {
			log.Error().Err(err).Msg("error recording export path")
		}
	}
	m.endTest(ctx)
}

func (m *Manager) endTest(ctx context.Context) {
	if err := m.marker.Remove(); err != nil {
		log.Error().Err(err).Msg("error removing run marker")
	}
	m.lastReport = nil
	m.lastBackup = ""
	m.runID = ""
	m.enterIdle(ctx)
}

func (m *Manager) reconnect(ctx context.Context) {
	m.mu.RLock()
	target := m.resumeState
	m.mu.RUnlock()

	if err := m.device.Reconnect(); err != nil {
		m.communicationFailure(ctx, target, err)
		return
	}
	if err := m.identify(ctx); err != nil {
		m.communicationFailure(ctx, target, err)
		return
	}

	switch target {
	case StateTesting, StateWaitingForReport:
		m.statusText(ctx, "Waiting for report...")
		m.waitForReport(ctx)
	case StateAwaitingResumeDecision:
		m.awaitResumeDecision(ctx)
	default:
		m.enterIdle(ctx)
	}
}
