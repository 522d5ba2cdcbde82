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

// State is a phase of the test lifecycle.
type State int

const (
	StateIdle State = iota
	// StateAwaitingResumeDecision follows start-up when a run marker was
	// left behind by an unexpected shutdown.
	StateAwaitingResumeDecision
	StateTesting
	StateWaitingForReport
	StateAwaitingSaveLocation
	// StateCommunicationError holds until the operator asks to reconnect.
	StateCommunicationError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingResumeDecision:
		return "awaiting_resume_decision"
	case StateTesting:
		return "testing"
	case StateWaitingForReport:
		return "waiting_for_report"
	case StateAwaitingSaveLocation:
		return "awaiting_save_location"
	case StateCommunicationError:
		return "communication_error"
	default:
		return "unknown"
	}
}

// Busy reports whether a run is in progress in this state.
func (s State) Busy() bool {
	return s == StateTesting || s == StateWaitingForReport
}
