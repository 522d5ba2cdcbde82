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

package helpers

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial/enumerator"
)

// SerialPortInfo describes a serial port found on the system.
type SerialPortInfo struct {
	Name         string
	VID          string
	PID          string
	SerialNumber string
	IsUSB        bool
}

func (p SerialPortInfo) String() string {
	if !p.IsUSB {
		return p.Name
	}
	s := fmt.Sprintf("%s (USB %s:%s", p.Name, strings.ToLower(p.VID), strings.ToLower(p.PID))
	if p.SerialNumber != "" {
		s += " sn=" + p.SerialNumber
	}
	return s + ")"
}

// ListSerialPorts returns the serial ports currently present, sorted by name.
func ListSerialPorts() ([]SerialPortInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to get serial ports list: %w", err)
	}

	devices := make([]SerialPortInfo, 0, len(ports))
	for _, p := range ports {
		devices = append(devices, SerialPortInfo{
			Name:         p.Name,
			IsUSB:        p.IsUSB,
			VID:          p.VID,
			PID:          p.PID,
			SerialNumber: p.SerialNumber,
		})
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].Name < devices[j].Name
	})

	log.Debug().Int("count", len(devices)).Msg("enumerated serial ports")
	return devices, nil
}

// CandidatePorts returns the port names a tester may reappear on after a
// disconnect: the configured name with its trailing number replaced by
// 0 to n-1, e.g. /dev/ttyUSB0 ... /dev/ttyUSB99 or COM0 ... COM99.
func CandidatePorts(port string, n int) []string {
	prefix := strings.TrimRight(port, "0123456789")
	candidates := make([]string, 0, n)
	for i := range n {
		candidates = append(candidates, prefix+strconv.Itoa(i))
	}
	return candidates
}
