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

package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	headerSentinel = "NUM_1"
	namePrefix     = "NAME_"
	datePrefix     = "DA_"
	groupSize      = 7
	// Day and month may arrive without zero padding, the year has two digits.
	dateLayout = "2.1.06 15:04:05"
)

// DecodeError reports a malformed payload. No partial report is ever returned
// alongside it.
type DecodeError struct {
	Err    error
	Reason string
	Token  string
}

func (e *DecodeError) Error() string {
	msg := "malformed report: " + e.Reason
	if e.Token != "" {
		msg += fmt.Sprintf(" (token %q)", e.Token)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func decodeErr(reason, token string, err error) *DecodeError {
	return &DecodeError{Reason: reason, Token: token, Err: err}
}

// Decode turns a raw tester payload into a TestReport.
//
// The payload is a space separated step block followed by the NUM_1 sentinel
// and a header with the preset name and the execution date. Steps come in
// groups of seven tokens: an index marker, the method, four measurements and
// a composite "prefix_duration_name" token.
func Decode(raw string) (*TestReport, error) {
	parts := strings.Split(raw, headerSentinel)
	if len(parts) < 2 {
		return nil, decodeErr("missing "+headerSentinel+" sentinel", "", nil)
	}

	name, ts, err := decodeHeader(parts[1])
	if err != nil {
		return nil, err
	}

	steps, err := decodeSteps(parts[0])
	if err != nil {
		return nil, err
	}

	return &TestReport{
		PresetName: name,
		Timestamp:  ts,
		steps:      steps,
	}, nil
}

func decodeHeader(block string) (string, time.Time, error) {
	tokens := strings.Split(block, " ")
	if len(tokens) < 3 {
		return "", time.Time{}, decodeErr("header too short", block, nil)
	}

	name := strings.ReplaceAll(tokens[1], namePrefix, "")
	name = strings.ReplaceAll(name, "*", " ")

	date := strings.ReplaceAll(tokens[2], datePrefix, "")
	date = strings.ReplaceAll(date, "_", " ")
	ts, err := time.Parse(dateLayout, date)
	if err != nil {
		return "", time.Time{}, decodeErr("invalid date", tokens[2], err)
	}

	return name, ts, nil
}

func decodeSteps(block string) ([]TestStep, error) {
	tokens := strings.Split(block, " ")
	steps := make([]TestStep, 0, len(tokens)/groupSize)

	for start := 0; start < len(tokens); start += groupSize {
		end := start + groupSize
		if end > len(tokens) {
			// trailing padding, usually the empty token before NUM_1
			log.Debug().
				Strs("tokens", tokens[start:]).
				Msg("discarding short trailing step group")
			break
		}

		step, err := decodeStep(tokens[start+1 : end])
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}

	return steps, nil
}

// decodeStep takes a group without its leading index marker.
func decodeStep(fields []string) (TestStep, error) {
	var nums [4]float64
	for i := range nums {
		v, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return TestStep{}, decodeErr("invalid number", fields[i+1], err)
		}
		nums[i] = v
	}

	info := strings.Split(fields[5], "_")
	if len(info) < 3 {
		return TestStep{}, decodeErr("invalid step info", fields[5], nil)
	}
	duration, err := strconv.ParseFloat(info[1], 64)
	if err != nil {
		return TestStep{}, decodeErr("invalid duration", fields[5], err)
	}

	return TestStep{
		Name:            strings.ReplaceAll(info[2], "*", " "),
		Method:          fields[0],
		TestCondition:   nums[0],
		LimitValue:      nums[1],
		ActualCondition: nums[2],
		ActualValue:     nums[3],
		Duration:        duration,
	}, nil
}
