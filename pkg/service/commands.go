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
	"errors"

	"github.com/rs/zerolog/log"
)

const (
	CommandStart          = "start"
	CommandResumeDecision = "resume.decision"
	CommandSaveLocation   = "save.location"
	CommandReconnectAck   = "reconnect.ack"
)

// ErrQueueFull is returned when the manager is too far behind to accept
// another command.
var ErrQueueFull = errors.New("command queue is full")

// Command is a request from the UI to the manager.
type Command struct {
	Method string
	Path   string
	Resume bool
}

// Submit queues a command without blocking.
func (m *Manager) Submit(cmd Command) error {
	select {
	case m.commands <- cmd:
		return nil
	default:
		log.Warn().Str("command", cmd.Method).Msg("command queue full, dropping command")
		return ErrQueueFull
	}
}

// RequestStart asks for a new test run.
func (m *Manager) RequestStart() error {
	return m.Submit(Command{Method: CommandStart})
}

// DecideResume answers EventUnexpectedShutdown.
func (m *Manager) DecideResume(resume bool) error {
	return m.Submit(Command{Method: CommandResumeDecision, Resume: resume})
}

// ChooseSaveLocation answers EventSaveChoose. An empty path declines saving.
func (m *Manager) ChooseSaveLocation(path string) error {
	return m.Submit(Command{Method: CommandSaveLocation, Path: path})
}

// AcknowledgeReconnect answers EventCommunicationError.
func (m *Manager) AcknowledgeReconnect() error {
	return m.Submit(Command{Method: CommandReconnectAck})
}
