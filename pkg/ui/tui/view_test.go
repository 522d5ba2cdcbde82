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

package tui

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rivo/tview"
	"github.com/safetylab/reportdl/pkg/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	err       error
	saves     []string
	decisions []bool
	starts    int
	reconnect int
	mu        sync.Mutex
}

func (c *fakeController) RequestStart() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.starts++
	return c.err
}

func (c *fakeController) DecideResume(resume bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decisions = append(c.decisions, resume)
	return c.err
}

func (c *fakeController) ChooseSaveLocation(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saves = append(c.saves, path)
	return c.err
}

func (c *fakeController) AcknowledgeReconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconnect++
	return c.err
}

func newTestView(t *testing.T) (*View, *fakeController) {
	t.Helper()
	ctrl := &fakeController{}
	v := NewView(tview.NewApplication(), ctrl, "/exports")
	return v, ctrl
}

func TestView_StatusText(t *testing.T) {
	t.Parallel()

	v, _ := newTestView(t)
	v.Apply(service.Event{Method: service.EventStatusText, Text: "Test started.", Flag: true})
	v.Apply(service.Event{Method: service.EventStatusText, Text: "Waiting for report..."})
	assert.Equal(t, []string{"Test started.", "Waiting for report..."}, v.Feedback())

	v.Apply(service.Event{Method: service.EventStatusText, Text: "Test started.", Flag: true})
	assert.Equal(t, []string{"Test started."}, v.Feedback())
}

func TestView_StatusTextKeepsBrackets(t *testing.T) {
	t.Parallel()

	v, _ := newTestView(t)
	v.Apply(service.Event{Method: service.EventStatusText, Text: "saved to [red]x.csv"})
	assert.Equal(t, "saved to [red]x.csv", v.feedback.GetText(true))
}

func TestView_FeedbackIsBounded(t *testing.T) {
	t.Parallel()

	v, _ := newTestView(t)
	for range maxFeedbackLines + 10 {
		v.Apply(service.Event{Method: service.EventStatusText, Text: "line"})
	}
	assert.Len(t, v.Feedback(), maxFeedbackLines)
}

func TestView_ControlsAndBusy(t *testing.T) {
	t.Parallel()

	v, ctrl := newTestView(t)
	assert.True(t, v.start.IsDisabled())

	v.Apply(service.Event{Method: service.EventControlsEnabled, Flag: true})
	assert.False(t, v.start.IsDisabled())

	v.Apply(service.Event{Method: service.EventBusy, Flag: true})
	assert.Equal(t, "Test in progress...", v.busy.GetText(true))
	v.Apply(service.Event{Method: service.EventBusy, Flag: false})
	assert.Empty(t, v.busy.GetText(true))

	v.requestStart()
	assert.True(t, v.start.IsDisabled())
	assert.Equal(t, 1, ctrl.starts)
}

func TestView_ConnectionAndState(t *testing.T) {
	t.Parallel()

	v, _ := newTestView(t)
	v.Apply(service.Event{Method: service.EventConnectionStatus, Text: "Connected to GLP1-e 5.12"})
	v.Apply(service.Event{Method: service.EventStateChanged, State: service.StateWaitingForReport})

	assert.Equal(t, "Tester: Connected to GLP1-e 5.12", v.connection.GetText(true))
	assert.Equal(t, "State: waiting for report", v.stateText.GetText(true))
}

func TestView_SaveForm(t *testing.T) {
	t.Parallel()

	v, ctrl := newTestView(t)
	v.Apply(service.Event{Method: service.EventSaveChoose, Text: "report-1.csv"})

	require.True(t, v.pages.HasPage(PageSave))
	assert.Equal(t, filepath.Join("/exports", "report-1.csv"), v.saveInput.GetText())

	v.saveInput.SetText("  /tmp/out.csv ")
	v.saveReport(v.saveInput.GetText())
	assert.False(t, v.pages.HasPage(PageSave))
	assert.Equal(t, []string{"/tmp/out.csv"}, ctrl.saves)
}

func TestView_SaveDeclined(t *testing.T) {
	t.Parallel()

	v, ctrl := newTestView(t)
	v.Apply(service.Event{Method: service.EventSaveChoose, Text: "report-1.csv"})
	v.saveReport("")
	assert.Equal(t, []string{""}, ctrl.saves)
}

func TestView_ResumeModal(t *testing.T) {
	t.Parallel()

	v, ctrl := newTestView(t)
	v.Apply(service.Event{Method: service.EventUnexpectedShutdown})
	require.True(t, v.pages.HasPage(PageResume))

	v.decideResume(false)
	assert.False(t, v.pages.HasPage(PageResume))
	assert.Equal(t, []bool{false}, ctrl.decisions)
}

func TestView_CommunicationError(t *testing.T) {
	t.Parallel()

	v, ctrl := newTestView(t)
	v.Apply(service.Event{Method: service.EventCommunicationError, Text: "device unplugged"})
	require.True(t, v.pages.HasPage(PageCommError))

	v.reconnect()
	assert.False(t, v.pages.HasPage(PageCommError))
	assert.Equal(t, 1, ctrl.reconnect)
}

func TestView_ReportError(t *testing.T) {
	t.Parallel()

	v, _ := newTestView(t)
	v.Apply(service.Event{Method: service.EventReportError, Text: "The report could not be read"})
	require.True(t, v.pages.HasPage(PageReportError))

	v.closePage(PageReportError)
	assert.Equal(t, 1, v.pages.GetPageCount())
}

func TestView_CommandErrorShownAsFeedback(t *testing.T) {
	t.Parallel()

	v, ctrl := newTestView(t)
	ctrl.err = errors.New("command queue is full")

	v.requestStart()
	require.Len(t, v.Feedback(), 1)
	assert.Contains(t, v.Feedback()[0], "command queue is full")
}

func TestView_Renders(t *testing.T) {
	t.Parallel()

	screen := NewTestScreen(t, 80, 20)
	defer screen.Cleanup()

	v, _ := newTestView(t)
	v.Apply(service.Event{Method: service.EventConnectionStatus, Text: "Connected to DEBUG DEVICE"})
	v.Apply(service.Event{Method: service.EventStatusText, Text: "Ready."})

	root := v.Root()
	root.SetRect(0, 0, 80, 20)
	root.Draw(screen)
	screen.Show()

	assert.True(t, screen.ContainsText("Connected to DEBUG DEVICE"), screen.DumpScreen())
	assert.True(t, screen.ContainsText("Start test"))
	assert.True(t, screen.ContainsText("Ready."))
}

func TestSuggestedPath(t *testing.T) {
	t.Parallel()

	v := NewView(tview.NewApplication(), &fakeController{}, "")
	assert.Equal(t, "report-2.csv", v.SuggestedPath("report-2.csv"))
}
