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

package mocks

import (
	"fmt"

	"github.com/safetylab/reportdl/pkg/report"
	"github.com/stretchr/testify/mock"
)

// MockDevice is a mock implementation of tester.Device using testify/mock.
// Errors are returned unwrapped so callers can match sentinels with
// errors.Is.
type MockDevice struct {
	mock.Mock
}

func (m *MockDevice) Identify() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1) //nolint:wrapcheck // sentinels pass through
}

func (m *MockDevice) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockDevice) Port() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockDevice) Beep() error {
	args := m.Called()
	return args.Error(0) //nolint:wrapcheck // sentinels pass through
}

func (m *MockDevice) StartTest() error {
	args := m.Called()
	return args.Error(0) //nolint:wrapcheck // sentinels pass through
}

func (m *MockDevice) IsTesting() (bool, error) {
	args := m.Called()
	return args.Bool(0), args.Error(1) //nolint:wrapcheck // sentinels pass through
}

func (m *MockDevice) FetchNextReport() (*report.TestReport, error) {
	args := m.Called()
	if r, ok := args.Get(0).(*report.TestReport); ok {
		return r, args.Error(1) //nolint:wrapcheck // sentinels pass through
	}
	return nil, args.Error(1) //nolint:wrapcheck // sentinels pass through
}

func (m *MockDevice) DrainAllReports() ([]*report.TestReport, error) {
	args := m.Called()
	if rs, ok := args.Get(0).([]*report.TestReport); ok {
		return rs, args.Error(1) //nolint:wrapcheck // sentinels pass through
	}
	return nil, args.Error(1) //nolint:wrapcheck // sentinels pass through
}

func (m *MockDevice) Reconnect() error {
	args := m.Called()
	return args.Error(0) //nolint:wrapcheck // sentinels pass through
}

func (m *MockDevice) Close() error {
	args := m.Called()
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock operation failed: %w", err)
	}
	return nil
}

// NewMockDevice returns a connected device that identifies as id on path.
// Tests add expectations for the calls they exercise.
func NewMockDevice(id, path string) *MockDevice {
	m := &MockDevice{}
	m.On("Identify").Return(id, nil).Maybe()
	m.On("ID").Return(id).Maybe()
	m.On("Port").Return(path).Maybe()
	m.On("Close").Return(nil).Maybe()
	return m
}
