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
	"errors"
	"time"

	"github.com/safetylab/reportdl/pkg/helpers/syncutil"
	"go.bug.st/serial"
)

// mockPort is a scripted serial port. Each write looks up the next queued
// response for that command and makes it readable in chunks of chunkSize
// bytes. An empty buffer reads as a timeout.
type mockPort struct {
	readErr    error
	writeErr   error
	resetErr   error
	timeoutErr error
	closeErr   error
	responses  map[string][]string
	written    [][]byte
	pending    []byte
	chunkSize  int
	resets     int
	closed     bool
	mu         syncutil.Mutex
}

func newMockPort() *mockPort {
	return &mockPort{
		responses: make(map[string][]string),
		chunkSize: 4,
	}
}

// respond queues responses for a command, one per write.
func (m *mockPort) respond(cmd []byte, resp ...string) *mockPort {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := hex.EncodeToString(cmd)
	m.responses[key] = append(m.responses[key], resp...)
	return m
}

func (m *mockPort) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, errors.New("port closed")
	}
	if m.readErr != nil {
		return 0, m.readErr
	}
	if len(m.pending) == 0 {
		return 0, nil
	}

	n := min(m.chunkSize, len(m.pending))
	n = copy(p, m.pending[:n])
	m.pending = m.pending[n:]
	return n, nil
}

func (m *mockPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, errors.New("port closed")
	}
	if m.writeErr != nil {
		return 0, m.writeErr
	}

	m.written = append(m.written, append([]byte(nil), p...))
	key := hex.EncodeToString(p)
	if queue := m.responses[key]; len(queue) > 0 {
		m.pending = append(m.pending, queue[0]...)
		m.responses[key] = queue[1:]
	}
	return len(p), nil
}

func (m *mockPort) ResetInputBuffer() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
	m.pending = nil
	return m.resetErr
}

func (m *mockPort) SetReadTimeout(_ time.Duration) error {
	return m.timeoutErr
}

func (m *mockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.closeErr
}

func (m *mockPort) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mockPort) writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.written...)
}

// portSet is a PortFactory over named mock ports. Paths without a port fail
// to open; opens are counted per path.
type portSet struct {
	ports map[string]*mockPort
	opens map[string]int
	mu    syncutil.Mutex
}

func newPortSet() *portSet {
	return &portSet{
		ports: make(map[string]*mockPort),
		opens: make(map[string]int),
	}
}

func (s *portSet) add(path string, p *mockPort) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ports[path] = p
}

func (s *portSet) remove(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ports, path)
}

func (s *portSet) openCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens[path]
}

func (s *portSet) factory(path string, mode *serial.Mode) (Port, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mode.BaudRate != BaudRate {
		return nil, errors.New("unexpected baud rate")
	}
	s.opens[path]++
	p, ok := s.ports[path]
	if !ok {
		return nil, errors.New("no such port")
	}
	p.mu.Lock()
	p.closed = false
	p.mu.Unlock()
	return p, nil
}
