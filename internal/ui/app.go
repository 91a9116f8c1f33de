// Package ui provides the interactive terminal form: four operator fields
// above a rolling view of the log.
package ui

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/term"

	"github.com/slimemax/keyboardsim/internal/journal"
	"github.com/slimemax/keyboardsim/internal/runner"
)

// ErrNotTerminal is returned when stdin or stdout is not a terminal
var ErrNotTerminal = errors.New("the operator form needs an interactive terminal")

// Field value columns, one past each label
var fieldColumns = [fieldCount]int{14, 18, 16, 6}

const (
	rowTitle  = 0
	rowFirst  = 1
	rowHelp   = 5
	rowLogs   = 6
	helpText  = "[Enter => Type, Tab => Switch, F1 => Reset, F2 => Stop]"
	titleText = "Keyboard Simulator (Ctrl+C to quit)"
)

var (
	styleTitle = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleField = [fieldCount]tcell.Style{
		tcell.StyleDefault.Foreground(tcell.ColorGreen),
		tcell.StyleDefault.Foreground(tcell.ColorTeal),
		tcell.StyleDefault.Foreground(tcell.ColorPurple),
		tcell.StyleDefault.Foreground(tcell.ColorBlue),
	}
	styleStatus = tcell.StyleDefault.Foreground(tcell.ColorSilver)
)

// Controller is the part of runner.Controller the form drives
type Controller interface {
	Start(cfg runner.RunConfig) error
	Stop()
	Status() runner.Status
	OnChange(fn func(runner.Status))
}

// App is the terminal operator form
type App struct {
	screen  tcell.Screen
	form    *Form
	ctrl    Controller
	journal *journal.Journal
	logger  *log.Logger
	keys    keyAggregator
}

// CheckTerminal reports ErrNotTerminal unless stdin and stdout are terminals
func CheckTerminal() error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return ErrNotTerminal
	}
	return nil
}

// New creates the form. The screen is initialized by Run.
func New(screen tcell.Screen, form *Form, ctrl Controller, j *journal.Journal, logger *log.Logger) *App {
	return &App{
		screen:  screen,
		form:    form,
		ctrl:    ctrl,
		journal: j,
		logger:  logger,
		keys:    keyAggregator{logger: logger},
	}
}

// Run shows the form until Ctrl+C
func (a *App) Run() error {
	if err := a.screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize terminal: %w", err)
	}
	defer a.screen.Fini()

	redraw := func() { a.screen.PostEvent(tcell.NewEventInterrupt(nil)) }
	cancel := a.journal.Subscribe(func(string) { redraw() })
	defer cancel()
	a.ctrl.OnChange(func(runner.Status) { redraw() })

	a.logger.Printf("UI: Program started")
	a.logger.Printf("TIP: [Tab] to switch fields, [Enter] to type, Ctrl+C to quit.")
	a.logger.Printf("TIP: F1 => Reset fields, F2 => Stop mid-run.")
	a.logger.Printf("TIP: e.g. {enter}, {space}, {up:2000}, {message3}, etc.")

	for {
		a.draw()
		switch ev := a.screen.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventResize:
			a.screen.Sync()
		case *tcell.EventKey:
			if a.HandleKey(ev) {
				a.keys.Flush()
				return nil
			}
		}
	}
}

// HandleKey applies one key event. It reports whether the form should close.
func (a *App) HandleKey(ev *tcell.EventKey) bool {
	a.keys.Press(keyName(ev))

	switch ev.Key() {
	case tcell.KeyCtrlC:
		return true
	case tcell.KeyF1:
		a.form.Reset()
		a.logger.Printf("F1: All fields reset to defaults.")
	case tcell.KeyF2:
		a.logger.Printf("F2: Stop requested => Will abort typing if in progress.")
		a.ctrl.Stop()
	case tcell.KeyTab:
		a.form.Next()
	case tcell.KeyBacktab:
		a.form.Prev()
	case tcell.KeyEnter:
		a.startRun()
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		a.form.Backspace()
	case tcell.KeyRune:
		a.form.Insert(ev.Rune())
	}
	return false
}

func (a *App) startRun() {
	err := a.ctrl.Start(a.form.RunConfig())
	switch {
	case errors.Is(err, runner.ErrBusy):
		a.logger.Printf("UI: A run is already in progress; press F2 to stop it.")
	case err != nil:
		a.logger.Printf("UI: Run rejected: %v", err)
	}
}

func keyName(ev *tcell.EventKey) string {
	if ev.Key() == tcell.KeyRune {
		r := ev.Rune()
		if r >= ' ' && r <= '~' {
			return fmt.Sprintf("%d ('%c')", r, r)
		}
		return fmt.Sprintf("%d ('?')", r)
	}
	return ev.Name()
}

func (a *App) draw() {
	s := a.screen
	s.Clear()
	width, height := s.Size()

	a.print(0, rowTitle, titleText, styleTitle)
	if status := statusText(a.ctrl.Status()); status != "" {
		a.print(max(len(titleText)+2, width-len(status)), rowTitle, status, styleStatus)
	}

	for f := Field(0); f < fieldCount; f++ {
		row := rowFirst + int(f)
		a.print(0, row, f.Label(), styleField[f])
		style := styleField[f]
		if f == a.form.Focus() {
			style = style.Reverse(true)
		}
		a.print(fieldColumns[f], row, a.form.Value(f), style)
	}
	a.print(0, rowHelp, helpText, tcell.StyleDefault)
	a.print(0, rowLogs, "Logs:", tcell.StyleDefault)

	// Newest line at the bottom
	if room := height - rowLogs - 1; room > 0 {
		lines := a.journal.Last(room)
		for i, line := range lines {
			a.print(0, height-len(lines)+i, line, tcell.StyleDefault)
		}
	}

	focus := a.form.Focus()
	s.ShowCursor(fieldColumns[focus]+len(a.form.Value(focus)), rowFirst+int(focus))
	s.Show()
}

func (a *App) print(x, y int, text string, style tcell.Style) {
	width, _ := a.screen.Size()
	for _, r := range text {
		if x >= width {
			return
		}
		a.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

func statusText(st runner.Status) string {
	switch {
	case st.Running && st.Phase == runner.Typing:
		return fmt.Sprintf("[typing %d/%d]", st.Iteration, st.Loops)
	case st.Running:
		return fmt.Sprintf("[%s]", st.Phase)
	case st.Last != nil:
		return fmt.Sprintf("[%s]", st.Last.Phase)
	}
	return ""
}
