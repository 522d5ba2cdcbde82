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

package fixtures

import "strings"

// Raw tester payloads used across tests. They are plain strings so that any
// package, including the decoder itself, can use them without import cycles.

// SampleSteps is the step block of a twelve step HV run captured from a
// tester, including the leading control bytes and trailing separator.
var SampleSteps = strings.Join([]string{
	"\x06\x02001 HV 1320 100.00 1338 0.58 IO_61.0_Tutto*vs*Massa*CH",
	"002 HV 1320 100.00 1326 0.31 IO_61.0_Potenza*vs*Circ.Secondari*CH",
	"003 HV 1320 100.00 1337 0.41 IO_61.0_Nn*vs*altri*CH",
	"004 HV 1320 100.00 1328 0.40 IO_61.0_L1l1*vs*altri*CH",
	"005 HV 1320 100.00 1339 0.42 IO_61.0_L2l2*vs*altri*CH",
	"006 HV 1320 100.00 1328 0.44 IO_61.0_L3l3*vs*altri*CH",
	"007 HV 900 100.00 921 0.19 IO_61.0_Circ.Secondari*vs*Massa*CH",
	"008 HV 1320 100.00 1339 0.51 IO_61.0_Line*vs*Load*AP",
	"009 HV 1320 100.00 1335 0.55 IO_61.0_Tutto*vs*Massa*AP",
	"010 HV 1320 100.00 1325 0.31 IO_61.0_Potenza*vs*Circ.Secondari*AP",
	"011 HV 900 100.00 907 0.19 IO_61.0_Circ.Secondari*vs*Massa*AP",
	"012 HV 600 100.00 614 0.16 IO_61.0_Motore*vs*Massa",
}, " ") + " "

// SampleHeader is the header block that follows the steps.
const SampleHeader = "NUM_1 NAME_ANSI*635V*508V*252V*60% DA_15.04.19_12:21:10 xE2 END 73"

// SampleReport is a complete, well formed payload.
var SampleReport = SampleSteps + SampleHeader

// ShortHeaderReport has no steps and the minimal header from the protocol
// description.
const ShortHeaderReport = "NUM_1 NAME_ANSI*635V DA_15.04.19_12:21:10 xE2 END 73"

// FailingStepReport has a single step whose actual value exceeds its limit.
const FailingStepReport = "001 HV 1500 2.00 1502 2.75 IO_3.0_Rete*vs*Massa " +
	"NUM_1 NAME_IEC*1500V DA_02.11.21_08:05:59 xE2 END 73"

// NoReportResponses are answers the tester gives when its report memory is
// empty.
var NoReportResponses = []string{
	"",
	"\x15",
	"\x0242\x03",
	"\x07",
	" \x15\x03 ",
	"\x15\x15\x15",
}

// IdentifyResponse is the answer to the identify command. The three leading
// bytes and everything from "Conness." on are framing.
const IdentifyResponse = "\x06\x02\x1bGLP1-e 5.12 Conness. RS232"

// IdentifyName is the identity contained in IdentifyResponse once framing is
// removed.
const IdentifyName = "GLP1-e 5.12 "
