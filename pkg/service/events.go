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
	"fmt"

	"github.com/rs/zerolog/log"
)

// Event methods. The manager waits for an answer to EventSaveChoose
// (ChooseSaveLocation), EventUnexpectedShutdown (DecideResume) and
// EventCommunicationError (AcknowledgeReconnect).
const (
	EventStatusText         = "status.text"
	EventConnectionStatus   = "connection.status"
	EventBusy               = "busy"
	EventControlsEnabled    = "controls.enabled"
	EventSaveChoose         = "save.choose"
	EventUnexpectedShutdown = "shutdown.unexpected"
	EventCommunicationError = "communication.error"
	EventReportError        = "report.error"
	EventStateChanged       = "state.changed"
)

// Event is a notification from the manager to the UI. For EventStatusText a
// set Flag clears the feedback before Text is shown; for EventSaveChoose Text
// is the suggested file name.
type Event struct {
	Method string
	Text   string
	State  State
	Flag   bool
}

func (e Event) String() string {
	switch e.Method {
	case EventStateChanged:
		return fmt.Sprintf("%s(%s)", e.Method, e.State)
	case EventBusy, EventControlsEnabled:
		return fmt.Sprintf("%s(%t)", e.Method, e.Flag)
	default:
		return fmt.Sprintf("%s(%q)", e.Method, e.Text)
	}
}

// emit blocks until the UI has room for the event. Events are never dropped;
// only a cancelled context gives up.
func (m *Manager) emit(ctx context.Context, ev Event) {
	select {
	case m.events <- ev:
	case <-ctx.Done():
		log.Debug().Str("event", ev.String()).Msg("context done, event not delivered")
	}
}

func (m *Manager) statusText(ctx context.Context, text string) {
	m.emit(ctx, Event{Method: EventStatusText, Text: text})
}

func (m *Manager) resetStatusText(ctx context.Context, text string) {
	m.emit(ctx, Event{Method: EventStatusText, Text: text, Flag: true})
}

func (m *Manager) connectionStatus(ctx context.Context, text string) {
	m.emit(ctx, Event{Method: EventConnectionStatus, Text: text})
}

func (m *Manager) busy(ctx context.Context, on bool) {
	m.emit(ctx, Event{Method: EventBusy, Flag: on})
}

func (m *Manager) controlsEnabled(ctx context.Context, on bool) {
	m.emit(ctx, Event{Method: EventControlsEnabled, Flag: on})
}

func (m *Manager) chooseSaveLocation(ctx context.Context, suggested string) {
	m.emit(ctx, Event{Method: EventSaveChoose, Text: suggested})
}

func (m *Manager) unexpectedShutdown(ctx context.Context) {
	m.emit(ctx, Event{Method: EventUnexpectedShutdown})
}

func (m *Manager) communicationError(ctx context.Context, err error) {
	m.emit(ctx, Event{Method: EventCommunicationError, Text: err.Error()})
}

func (m *Manager) reportError(ctx context.Context, text string) {
	m.emit(ctx, Event{Method: EventReportError, Text: text})
}
