// KeyboardSim - scripted keystroke injector
// Types a script with embedded key, hold and substitution tokens into the
// focused window, looped with delays and stoppable at any point.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"

	"github.com/slimemax/keyboardsim/internal/autostart"
	"github.com/slimemax/keyboardsim/internal/config"
	"github.com/slimemax/keyboardsim/internal/input"
	"github.com/slimemax/keyboardsim/internal/journal"
	"github.com/slimemax/keyboardsim/internal/lines"
	"github.com/slimemax/keyboardsim/internal/osutils"
	"github.com/slimemax/keyboardsim/internal/runner"
	"github.com/slimemax/keyboardsim/internal/script"
	"github.com/slimemax/keyboardsim/internal/stop"
	"github.com/slimemax/keyboardsim/internal/token"
	"github.com/slimemax/keyboardsim/internal/ui"
)

var (
	version    = "0.1.0"
	showUI     = flag.Bool("ui", false, "Open the interactive terminal form (default)")
	serve      = flag.Bool("serve", false, "Run as background service with tray, API and hotkeys")
	runScript  = flag.String("run", "", "Type this script and exit (with -remote: start it remotely)")
	startDelay = flag.Int("start-delay", -1, "Start delay in ms (default from config)")
	loopDelay  = flag.Int("loop-delay", -1, "Delay between loops in ms (default from config)")
	loops      = flag.Int("loops", 0, "Number of loops (default from config)")
	messages   = flag.String("messages", "", "Line source file for {messageN} (default from config)")
	dryRun     = flag.Bool("dry-run", false, "Log key events instead of injecting them")
	remote     = flag.String("remote", "", "Control a running instance at host:port")
	remoteStop = flag.Bool("stop", false, "With -remote: request a stop")
	tail       = flag.Bool("tail", false, "With -remote: stream the remote log")
	apiToken   = flag.String("token", "", "With -remote: API token (default from config)")
	autoStart  = flag.String("autostart", "", "Start the service on login: on, off or status")
	showVer    = flag.Bool("version", false, "Show version")
)

// engine is the assembled typing pipeline
type engine struct {
	cfgMgr   *config.Manager
	journal  *journal.Journal
	logger   *log.Logger
	injector input.InputInjector
	table    *lines.Table
	ctrl     *runner.Controller
}

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("keyboardsim version %s\n", version)
		return
	}

	if *autoStart != "" {
		os.Exit(runAutostart(*autoStart))
	}

	// Initialize config
	cfgMgr, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}
	if err := cfgMgr.Load(); err != nil {
		log.Printf("Warning: failed to load config: %v", err)
	}

	// Handle --remote flag
	if *remote != "" {
		os.Exit(runRemote(cfgMgr))
	}

	e := newEngine(cfgMgr)
	defer e.close()

	switch {
	case *runScript != "":
		code := runOnce(e)
		e.close()
		os.Exit(code)
	case *serve:
		runService(e)
	default:
		runUI(e)
	}
}

// newEngine opens the log, the keyboard device and the line source and wires
// the interpreter, scheduler and controller together.
func newEngine(cfgMgr *config.Manager) *engine {
	cfg := cfgMgr.Get()

	log.SetFlags(0)
	j, err := journal.Open(cfg.General.LogPath, journal.DefaultCapacity)
	j.Tee(os.Stderr)
	log.SetOutput(j)
	logger := log.New(j, "", 0)
	if err != nil {
		logger.Printf("Warning: %v", err)
	}

	var inj input.InputInjector
	if *dryRun {
		rec := input.NewRecorder()
		rec.OnInject(func(ev input.Event) {
			edge := "up"
			if ev.Pressed {
				edge = "down"
			}
			logger.Printf("DryRun: %s %s", ev.Key, edge)
		})
		inj = rec
	} else {
		native, err := input.NewInjector()
		if err != nil {
			log.Fatalf("Failed to open keyboard device: %v", err)
		}
		inj = native
		if w := osutils.InjectionWarning(); w != "" {
			logger.Printf("Warning: %s", w)
		}
	}

	path := cfg.General.MessagesPath
	if *messages != "" {
		path = *messages
	}
	table := loadLines(logger, path, cfg.Limits)

	sig := stop.New()
	emitter := input.NewEmitter(inj, sig, logger)
	lexer := token.NewLexer(table, logger)
	var opts []script.Option
	if cfg.Limits.MaxDepth > 0 {
		opts = append(opts, script.WithMaxDepth(cfg.Limits.MaxDepth))
	}
	interp := script.New(lexer, emitter, sig, logger, opts...)
	sched := runner.NewScheduler(interp, sig, logger)

	return &engine{
		cfgMgr:   cfgMgr,
		journal:  j,
		logger:   logger,
		injector: inj,
		table:    table,
		ctrl:     runner.NewController(sched, cfg.Limits.MaxScriptLength),
	}
}

func loadLines(logger *log.Logger, path string, limits config.Limits) *lines.Table {
	table, err := lines.Load(path, limits.MaxMessages)
	if err != nil {
		logger.Printf("Lines: Could not open %s: %v", path, err)
		return table
	}
	logger.Printf("Lines: Loaded %d lines from %s", table.Len(), path)
	if n := table.Dropped(); n > 0 {
		logger.Printf("Lines: WARN ignored %d lines beyond the limit of %d", n, limits.MaxMessages)
	}
	if n := table.Oversize(); n > 0 {
		logger.Printf("Lines: WARN %d lines exceeded the per-line size limit and were loaded empty", n)
	}
	for _, cycle := range table.Cycles() {
		logger.Printf("Lines: substitution cycle among lines %v; expansion stops at depth %d", cycle, limits.MaxDepth)
	}
	return table
}

// close stops any run and releases the device and log file
func (e *engine) close() {
	if e.ctrl == nil {
		return
	}
	e.ctrl.Stop()
	e.ctrl.Wait()
	e.ctrl = nil
	if err := e.injector.Close(); err != nil {
		log.Printf("Warning: failed to close keyboard device: %v", err)
	}
	e.journal.Close()
}

// runConfig overlays command line flags on the configured defaults
func runConfig(cfg *config.Config) runner.RunConfig {
	rc := cfg.Run.RunConfig()
	if *runScript != "" {
		rc.Script = *runScript
	}
	if *startDelay >= 0 {
		rc.StartDelayMs = *startDelay
	}
	if *loopDelay >= 0 {
		rc.LoopDelayMs = *loopDelay
	}
	if *loops > 0 {
		rc.Loops = *loops
	}
	return rc
}

// runOnce types the -run script and returns the process exit code
func runOnce(e *engine) int {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		if _, ok := <-sigCh; ok {
			log.Println("Signal received, stopping...")
			e.ctrl.Stop()
		}
	}()

	// A global stop hotkey still works while typing into another window
	hkMgr := startHotkeys(e, false)
	defer hkMgr.Stop()

	if err := e.ctrl.Start(runConfig(e.cfgMgr.Get())); err != nil {
		log.Printf("Run rejected: %v", err)
		return 2
	}
	report := e.ctrl.Wait()
	switch report.Phase {
	case runner.Done:
		return 0
	case runner.Aborted:
		return 130
	default:
		return 1
	}
}

func runUI(e *engine) {
	if err := ui.CheckTerminal(); err != nil {
		log.Fatalf("%v (use -serve or -run instead)", err)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatalf("Failed to open terminal: %v", err)
	}

	hkMgr := startHotkeys(e, false)
	defer hkMgr.Stop()

	// The form draws the log itself
	e.journal.Tee(nil)
	defer e.journal.Tee(os.Stderr)

	cfg := e.cfgMgr.Get()
	app := ui.New(screen, ui.NewForm(cfg.Run, cfg.Limits.MaxScriptLength), e.ctrl, e.journal, e.logger)
	if err := app.Run(); err != nil {
		log.Printf("UI error: %v", err)
	}
}

func runAutostart(mode string) int {
	var err error
	switch mode {
	case "on":
		err = autostart.Enable()
	case "off":
		err = autostart.Disable()
	case "status":
	default:
		log.Printf("Unknown -autostart value %q (want on, off or status)", mode)
		return 2
	}
	if err != nil {
		log.Printf("Autostart: %v", err)
		return 1
	}
	fmt.Printf("Autostart enabled: %v\n", autostart.IsEnabled())
	return 0
}
