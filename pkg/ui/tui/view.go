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

// Package tui is the terminal front end of the report downloader. It only
// renders manager events and forwards the operator's answers; it never talks
// to the tester.
package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
	"github.com/safetylab/reportdl/pkg/config"
	"github.com/safetylab/reportdl/pkg/service"
)

const (
	PageMain        = "main"
	PageSave        = "save"
	PageResume      = "resume"
	PageCommError   = "communication_error"
	PageReportError = "report_error"

	maxFeedbackLines = 50
)

// Controller is the command side of the test manager.
type Controller interface {
	RequestStart() error
	DecideResume(resume bool) error
	ChooseSaveLocation(path string) error
	AcknowledgeReconnect() error
}

// View holds the widgets updated by manager events. Apply must run on the
// tview event loop.
type View struct {
	app        *tview.Application
	ctrl       Controller
	pages      *tview.Pages
	main       *tview.Flex
	connection *tview.TextView
	feedback   *tview.TextView
	busy       *tview.TextView
	stateText  *tview.TextView
	start      *tview.Button
	exit       *tview.Button
	saveInput  *tview.InputField
	exportDir  string
	lines      []string
}

// NewView builds the main page. Suggested save locations are placed in
// exportDir.
func NewView(app *tview.Application, ctrl Controller, exportDir string) *View {
	v := &View{
		app:       app,
		ctrl:      ctrl,
		exportDir: exportDir,
		pages:     tview.NewPages(),
	}

	v.connection = tview.NewTextView().SetDynamicColors(true).
		SetText("[::b]Tester:[::-] connecting...")
	v.stateText = tview.NewTextView().SetDynamicColors(true)
	v.busy = tview.NewTextView().SetDynamicColors(true)
	v.feedback = tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	v.feedback.SetBorder(true).SetTitle("Feedback")

	v.start = tview.NewButton("Start test").SetSelectedFunc(v.requestStart)
	v.start.SetDisabled(true)
	v.exit = tview.NewButton("Exit").SetSelectedFunc(func() {
		v.app.Stop()
	})

	v.start.SetInputCapture(v.navigate(v.exit))
	v.exit.SetInputCapture(v.navigate(v.start))

	info := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(v.connection, 1, 1, false).
		AddItem(v.stateText, 1, 1, false).
		AddItem(v.busy, 1, 1, false).
		AddItem(v.feedback, 0, 1, false)

	buttons := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(tview.NewTextView(), 0, 1, false).
		AddItem(v.start, 1, 1, true).
		AddItem(tview.NewTextView(), 1, 1, false).
		AddItem(v.exit, 1, 1, false).
		AddItem(tview.NewTextView(), 0, 1, false)

	v.main = tview.NewFlex().
		AddItem(info, 0, 1, false).
		AddItem(tview.NewTextView(), 1, 1, false).
		AddItem(buttons, 16, 1, true)
	v.main.SetBorder(true).
		SetTitle("Report Downloader v" + config.AppVersion).
		SetTitleAlign(tview.AlignCenter)

	v.pages.AddPage(PageMain, v.main, true, true)
	return v
}

// Root is the primitive to set as the application root.
func (v *View) Root() tview.Primitive {
	return v.pages
}

func (v *View) Pages() *tview.Pages {
	return v.pages
}

func (v *View) navigate(other *tview.Button) func(*tcell.EventKey) *tcell.EventKey {
	return func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() { //nolint:exhaustive
		case tcell.KeyUp, tcell.KeyDown, tcell.KeyLeft, tcell.KeyRight, tcell.KeyTab:
			v.app.SetFocus(other)
			return nil
		case tcell.KeyEscape:
			v.app.Stop()
			return nil
		}
		return event
	}
}

// Feedback returns the feedback lines as shown, without color tags.
func (v *View) Feedback() []string {
	return append([]string(nil), v.lines...)
}

func (v *View) appendFeedback(text string) {
	v.lines = append(v.lines, text)
	if len(v.lines) > maxFeedbackLines {
		v.lines = v.lines[len(v.lines)-maxFeedbackLines:]
	}
	v.feedback.SetText(tview.Escape(strings.Join(v.lines, "\n")))
	v.feedback.ScrollToEnd()
}

func (v *View) clearFeedback() {
	v.lines = nil
	v.feedback.Clear()
}

// Apply updates the widgets for one manager event.
func (v *View) Apply(ev service.Event) {
	log.Debug().Str("event", ev.String()).Msg("ui event")

	switch ev.Method {
	case service.EventStatusText:
		if ev.Flag {
			v.clearFeedback()
		}
		v.appendFeedback(ev.Text)
	case service.EventConnectionStatus:
		v.connection.SetText("[::b]Tester:[::-] " + tview.Escape(ev.Text))
	case service.EventBusy:
		if ev.Flag {
			v.busy.SetText("[yellow::b]Test in progress...[-::-]")
		} else {
			v.busy.Clear()
		}
	case service.EventControlsEnabled:
		v.start.SetDisabled(!ev.Flag)
		if ev.Flag && v.pages.GetPageCount() == 1 {
			v.app.SetFocus(v.start)
		}
	case service.EventStateChanged:
		v.stateText.SetText("[::b]State:[::-] " + strings.ReplaceAll(ev.State.String(), "_", " "))
	case service.EventSaveChoose:
		v.showSaveForm(ev.Text)
	case service.EventUnexpectedShutdown:
		v.showResumeModal()
	case service.EventCommunicationError:
		v.showCommunicationError(ev.Text)
	case service.EventReportError:
		v.showReportError(ev.Text)
	default:
		log.Warn().Str("event", ev.Method).Msg("unknown ui event")
	}
}

func (v *View) showPage(name string, p tview.Primitive) {
	v.pages.AddPage(name, p, true, true)
	v.app.SetFocus(p)
}

func (v *View) closePage(name string) {
	v.pages.RemovePage(name)
	v.app.SetFocus(v.start)
}

func (v *View) submit(name string, err error) {
	if err != nil {
		log.Error().Err(err).Str("command", name).Msg("error sending command")
		v.appendFeedback(fmt.Sprintf("Could not send %s: %v", name, err))
	}
}

func (v *View) requestStart() {
	v.start.SetDisabled(true)
	v.submit("start", v.ctrl.RequestStart())
}

// SuggestedPath is where the save form points by default.
func (v *View) SuggestedPath(name string) string {
	if v.exportDir == "" {
		return name
	}
	return filepath.Join(v.exportDir, name)
}

func (v *View) showSaveForm(suggested string) {
	v.saveInput = tview.NewInputField().
		SetLabel("File: ").
		SetText(v.SuggestedPath(suggested))

	form := tview.NewForm().
		AddFormItem(v.saveInput).
		AddButton("Save", func() {
			v.saveReport(v.saveInput.GetText())
		}).
		AddButton("Don't save", func() {
			v.saveReport("")
		})
	form.SetCancelFunc(func() {
		v.saveReport("")
	})
	form.SetBorder(true).
		SetTitle("Save report").
		SetTitleAlign(tview.AlignCenter)

	v.showPage(PageSave, CenterWidget(70, 7, form))
}

func (v *View) saveReport(path string) {
	v.closePage(PageSave)
	v.submit("save location", v.ctrl.ChooseSaveLocation(strings.TrimSpace(path)))
}

func (v *View) showResumeModal() {
	modal := genericModal(
		"The previous test did not finish before the program closed.\n"+
			"Wait for its report or discard it?",
		"Unexpected shutdown",
		[]string{"Wait for report", "Discard"},
		func(buttonIndex int, _ string) {
			v.decideResume(buttonIndex == 0)
		},
	)
	v.showPage(PageResume, modal)
}

func (v *View) decideResume(resume bool) {
	v.closePage(PageResume)
	v.submit("resume decision", v.ctrl.DecideResume(resume))
}

func (v *View) showCommunicationError(text string) {
	modal := genericModal(
		"Communication with the tester failed:\n"+text+
			"\n\nCheck the cable and power, then reconnect.",
		"Communication error",
		[]string{"Reconnect"},
		func(int, string) {
			v.reconnect()
		},
	)
	v.showPage(PageCommError, modal)
}

func (v *View) reconnect() {
	v.closePage(PageCommError)
	v.submit("reconnect", v.ctrl.AcknowledgeReconnect())
}

func (v *View) showReportError(text string) {
	modal := genericModal(text, "Report error", []string{"OK"}, func(int, string) {
		v.closePage(PageReportError)
	})
	v.showPage(PageReportError, modal)
}

// Listen applies events on the UI goroutine until the stream closes, then
// stops the application.
func (v *View) Listen(events <-chan service.Event) {
	for ev := range events {
		v.app.QueueUpdateDraw(func() {
			v.Apply(ev)
		})
	}
	log.Debug().Msg("event stream closed, stopping ui")
	v.app.QueueUpdate(v.app.Stop)
}

// BuildMain creates the application and its view.
func BuildMain(ctrl Controller, exportDir string) (*tview.Application, *View) {
	app := tview.NewApplication()
	SetTheme(&tview.Styles)

	v := NewView(app, ctrl, exportDir)
	app.SetRoot(CenterWidget(80, 20, v.Root()), true)
	return app, v
}

// Run shows the UI until the operator exits or the event stream closes.
func Run(ctrl Controller, events <-chan service.Event, exportDir string) error {
	app, v := BuildMain(ctrl, exportDir)
	go v.Listen(events)
	if err := app.Run(); err != nil {
		return fmt.Errorf("failed to run ui: %w", err)
	}
	return nil
}
