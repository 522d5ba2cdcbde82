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

// Package report holds the structured form of a tester report and the decoder
// for the tester's delimited text payload.
package report

import (
	"fmt"
	"strings"
	"time"
)

// Verdict is the pass/fail outcome of a single step.
type Verdict string

const (
	VerdictGo    Verdict = "GO"
	VerdictNoGo  Verdict = "NGO"
	MethodHV             = "HV"
	TimestampFmt         = "2006-01-02 15:04:05"
)

// TestStep is one measured step of a test run. Limits and actual values are
// in the tester's native units (mA for currents, V for conditions).
type TestStep struct {
	Name            string
	Method          string
	TestCondition   float64
	LimitValue      float64
	ActualCondition float64
	ActualValue     float64
	Duration        float64
}

// Verdict is GO when the measured value does not exceed the limit.
func (s TestStep) Verdict() Verdict {
	if s.ActualValue <= s.LimitValue {
		return VerdictGo
	}
	return VerdictNoGo
}

// TestReport is a decoded report. It is only built by Decode and exposes its
// steps as copies.
type TestReport struct {
	Timestamp  time.Time
	PresetName string
	steps      []TestStep
}

// Steps returns the steps in the order the tester sent them.
func (r *TestReport) Steps() []TestStep {
	out := make([]TestStep, len(r.steps))
	copy(out, r.steps)
	return out
}

// Len returns the number of steps.
func (r *TestReport) Len() int {
	return len(r.steps)
}

// FailedSteps counts steps with an NGO verdict.
func (r *TestReport) FailedSteps() int {
	failed := 0
	for _, s := range r.steps {
		if s.Verdict() == VerdictNoGo {
			failed++
		}
	}
	return failed
}

// Passed reports whether every step passed.
func (r *TestReport) Passed() bool {
	return r.FailedSteps() == 0
}

func (r *TestReport) String() string {
	var sb strings.Builder
	sb.WriteString(r.PresetName)
	sb.WriteString(" | ")
	sb.WriteString(r.Timestamp.Format(TimestampFmt))
	sb.WriteString("\n")
	for i, s := range r.steps {
		_, _ = fmt.Fprintf(&sb,
			"%03d %s %q cond=%g/%g value=%g/%g t=%gs %s\n",
			i+1, s.Method, s.Name,
			s.TestCondition, s.ActualCondition,
			s.ActualValue, s.LimitValue,
			s.Duration, s.Verdict(),
		)
	}
	return sb.String()
}
