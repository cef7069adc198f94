// ABOUTME: CLI entrypoint for the gauntlet runner: flags, config precedence, and collaborator wiring.
// ABOUTME: Builds the browser session, strategy tiers, store, and status server, then drives the engine.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/gauntlet/browser"
	"github.com/2389-research/gauntlet/llm"
	"github.com/2389-research/gauntlet/report"
	"github.com/2389-research/gauntlet/solver"
	"github.com/2389-research/gauntlet/store"
	"github.com/2389-research/gauntlet/strategy"
	"github.com/2389-research/gauntlet/tui"
	"github.com/2389-research/gauntlet/web"
)

var version = "dev"

func main() {
	loadDotEnvAuto()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// cliConfig carries one flag parse: the parsed values and which flags the
// user actually set, so the overlay can skip untouched defaults.
type cliConfig struct {
	cfg         solver.Config
	set         map[string]bool
	configPath  string
	tuiMode     bool
	showVersion bool
}

// parseArgs parses command-line flags onto a defaults copy and records which
// flags were set.
func parseArgs(args []string, stderr io.Writer) (*cliConfig, error) {
	cli := &cliConfig{cfg: solver.DefaultConfig(), set: map[string]bool{}}

	fs := flag.NewFlagSet("gauntlet", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cli.cfg.TargetURL, "url", cli.cfg.TargetURL, "base URL of the challenge")
	fs.BoolVar(&cli.cfg.Headless, "headless", cli.cfg.Headless, "run the browser headless")
	fs.IntVar(&cli.cfg.TotalSteps, "steps", cli.cfg.TotalSteps, "steps in the sequence")
	fs.IntVar(&cli.cfg.SuccessThreshold, "threshold", cli.cfg.SuccessThreshold, "solved steps counted as success")
	fs.DurationVar(&cli.cfg.RunBudget, "run-budget", cli.cfg.RunBudget, "whole-run wall-clock ceiling")
	fs.DurationVar(&cli.cfg.StepBudget, "step-budget", cli.cfg.StepBudget, "per-step ceiling before skip-forward")
	fs.DurationVar(&cli.cfg.AttemptBudget, "attempt-budget", cli.cfg.AttemptBudget, "single-attempt ceiling")
	fs.IntVar(&cli.cfg.MaxRetries, "max-retries", cli.cfg.MaxRetries, "attempts per step before skipping")
	fs.IntVar(&cli.cfg.SkipRange, "skip-range", cli.cfg.SkipRange, "forward steps tried before abandoning")
	fs.StringVar(&cli.cfg.FastModel, "fast-model", cli.cfg.FastModel, "text model for the model tier")
	fs.StringVar(&cli.cfg.VisionModel, "vision-model", cli.cfg.VisionModel, "image-capable model for the vision tier")
	fs.StringVar(&cli.cfg.DBPath, "db", cli.cfg.DBPath, "SQLite file for run persistence")
	fs.StringVar(&cli.cfg.ReportPath, "report", cli.cfg.ReportPath, "markdown report output path")
	fs.StringVar(&cli.cfg.StatusAddr, "status-addr", cli.cfg.StatusAddr, "status server bind address")
	fs.StringVar(&cli.configPath, "config", "", "YAML config file")
	fs.BoolVar(&cli.tuiMode, "tui", false, "run with the interactive terminal dashboard")
	fs.BoolVar(&cli.cfg.Verbose, "v", false, "verbose event output")
	fs.BoolVar(&cli.showVersion, "version", false, "print version and exit")

	fs.Usage = func() {
		printHelp(stderr, version)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { cli.set[f.Name] = true })
	return cli, nil
}

// assembleConfig builds the effective run configuration with precedence
// defaults < config file < environment < flags.
func assembleConfig(cli *cliConfig) (solver.Config, error) {
	cfg := solver.DefaultConfig()
	if cli.configPath != "" {
		if err := cfg.ApplyFile(cli.configPath); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	overlayFlags(&cfg, cli)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// overlayFlags copies explicitly-set flag values onto cfg.
func overlayFlags(cfg *solver.Config, cli *cliConfig) {
	for name := range cli.set {
		switch name {
		case "url":
			cfg.TargetURL = cli.cfg.TargetURL
		case "headless":
			cfg.Headless = cli.cfg.Headless
		case "steps":
			cfg.TotalSteps = cli.cfg.TotalSteps
		case "threshold":
			cfg.SuccessThreshold = cli.cfg.SuccessThreshold
		case "run-budget":
			cfg.RunBudget = cli.cfg.RunBudget
		case "step-budget":
			cfg.StepBudget = cli.cfg.StepBudget
		case "attempt-budget":
			cfg.AttemptBudget = cli.cfg.AttemptBudget
		case "max-retries":
			cfg.MaxRetries = cli.cfg.MaxRetries
		case "skip-range":
			cfg.SkipRange = cli.cfg.SkipRange
		case "fast-model":
			cfg.FastModel = cli.cfg.FastModel
		case "vision-model":
			cfg.VisionModel = cli.cfg.VisionModel
		case "db":
			cfg.DBPath = cli.cfg.DBPath
		case "report":
			cfg.ReportPath = cli.cfg.ReportPath
		case "status-addr":
			cfg.StatusAddr = cli.cfg.StatusAddr
		case "v":
			cfg.Verbose = cli.cfg.Verbose
		}
	}
}

// run parses arguments and dispatches. Returns the process exit code:
// 0 for a successful run, 1 for an unsuccessful one, 2 for configuration errors.
func run(args []string, stdout, stderr io.Writer) int {
	cli, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if cli.showVersion {
		fmt.Fprintf(stdout, "gauntlet %s\n", version)
		return 0
	}

	cfg, err := assembleConfig(cli)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}

	return execute(cfg, cli.tuiMode, stdout, stderr)
}

// execute wires the collaborators and drives one run.
func execute(cfg solver.Config, tuiMode bool, stdout, stderr io.Writer) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		fmt.Fprintln(stderr, "\nInterrupted, finishing the run...")
		cancel()
		<-sigChan
		fmt.Fprintln(stderr, "forced exit")
		os.Exit(130)
	}()

	sess, err := browser.Connect(ctx, browser.SessionConfig{Headless: cfg.Headless})
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer sess.Close()

	relay := &eventRelay{}
	opts := []solver.Option{
		solver.WithObserver(browser.NewObserver(sess)),
		solver.WithTiers(buildTiers(cfg, sess, stderr)...),
		solver.WithActuator(browser.NewActuator(sess)),
		solver.WithScanner(browser.NewScanner(sess)),
		solver.WithSubmitter(browser.NewSubmitter(sess)),
		solver.WithNavigator(browser.NewNavigator(sess, cfg.TargetURL)),
		solver.WithEventHandler(relay.Handle),
	}

	var archive *store.Store
	if cfg.DBPath != "" {
		archive, err = store.Open(cfg.DBPath)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		defer archive.Close()
		opts = append(opts, solver.WithStore(archive))
	}

	var tracker *web.Tracker
	if cfg.StatusAddr != "" {
		tracker = web.NewTracker(cfg.TotalSteps)
		relay.Add(tracker.Observe)
		srv := web.NewServer(cfg.StatusAddr, tracker, archive)
		go func() {
			if serveErr := srv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
				fmt.Fprintf(stderr, "status server: %v\n", serveErr)
			}
		}()
		defer func() {
			shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
			defer stop()
			_ = srv.Shutdown(shutdownCtx)
		}()
		fmt.Fprintf(stderr, "status page on http://%s\n", cfg.StatusAddr)
	}

	engine, err := solver.New(cfg, opts...)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	var rep *solver.RunReport
	var runErr error
	if tuiMode {
		rep, runErr = runWithDashboard(ctx, cancel, cfg, engine, relay, stderr)
	} else {
		relay.Add(progressHandler(stderr, cfg.Verbose))
		rep, runErr = engine.Run(ctx)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		fmt.Fprintf(stderr, "error: %v\n", runErr)
	}
	if rep == nil {
		return 1
	}
	if tracker != nil {
		tracker.SetReport(rep)
	}

	report.Console(stdout, rep)
	if cfg.ReportPath != "" {
		if err := report.WriteFile(cfg.ReportPath, rep); err != nil {
			fmt.Fprintf(stderr, "warning: %v\n", err)
		} else {
			fmt.Fprintf(stderr, "report written to %s\n", cfg.ReportPath)
		}
	}

	if rep.StepsSucceeded >= cfg.SuccessThreshold {
		return 0
	}
	return 1
}

// buildTiers assembles the escalation ladder. Without an API key only the
// rules tier runs; the model tiers need a completions endpoint.
func buildTiers(cfg solver.Config, sess *browser.Session, stderr io.Writer) []solver.StrategyTier {
	tiers := []solver.StrategyTier{strategy.NewRules()}

	if cfg.LLMAPIKey == "" {
		fmt.Fprintln(stderr, "warning: no LLM API key found; running with the rules tier only")
		fmt.Fprintln(stderr, "Set OPENROUTER_API_KEY or GAUNTLET_LLM_API_KEY to enable the model tiers")
		return tiers
	}

	copts := []llm.ClientOption{
		llm.WithProvider("openrouter", llm.NewOpenRouterAdapter(cfg.LLMAPIKey, cfg.LLMBaseURL)),
		llm.WithMiddleware(llm.RetryMiddleware(llm.DefaultRetryPolicy())),
	}
	if cfg.Verbose {
		copts = append(copts, llm.WithMiddleware(llm.LoggingMiddleware(log.Printf)))
	}
	client := llm.NewClient(copts...)

	return append(tiers,
		strategy.NewModel(client, cfg.FastModel),
		strategy.NewVision(client, cfg.VisionModel, sess),
	)
}

// runWithDashboard executes the run inside the Bubble Tea dashboard and
// returns the final report once the program exits.
func runWithDashboard(ctx context.Context, cancel context.CancelFunc, cfg solver.Config, engine *solver.Engine, relay *eventRelay, stderr io.Writer) (*solver.RunReport, error) {
	model := tui.NewAppModel(cfg, engine, ctx, cancel)
	p := tea.NewProgram(model, tea.WithAltScreen())
	relay.Add(tui.NewEventBridge(p.Send).HandleEvent)

	final, err := p.Run()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return nil, err
	}
	if app, ok := final.(tui.AppModel); ok {
		return app.Report(), app.Err()
	}
	return nil, nil
}

// eventRelay fans one engine event stream out to every attached consumer.
// All consumers attach before the run starts, so no locking is needed.
type eventRelay struct {
	handlers []solver.EventHandler
}

// Add attaches a consumer.
func (r *eventRelay) Add(h solver.EventHandler) {
	r.handlers = append(r.handlers, h)
}

// Handle distributes an event to every attached consumer in order.
func (r *eventRelay) Handle(ev solver.Event) {
	for _, h := range r.handlers {
		h(ev)
	}
}

// progressHandler prints step-level progress lines to w. Verbose mode adds
// attempt, tier, action, and token detail.
func progressHandler(w io.Writer, verbose bool) solver.EventHandler {
	return func(ev solver.Event) {
		switch ev.Type {
		case solver.EventRunStart:
			fmt.Fprintf(w, "[run] started %s\n", ev.Message)
		case solver.EventRunFinish:
			fmt.Fprintf(w, "[run] %s\n", ev.Message)
		case solver.EventStepSolved:
			fmt.Fprintf(w, "[step %d] solved via %s (attempt %d)\n", ev.Step, ev.Tier, ev.Attempt+1)
		case solver.EventStepSkipped:
			fmt.Fprintf(w, "[step %d] skipped: %s\n", ev.Step, ev.Message)
		case solver.EventStepAbandoned:
			fmt.Fprintf(w, "[step %d] abandoned\n", ev.Step)
		case solver.EventBudgetExpired:
			fmt.Fprintf(w, "[budget] %s\n", ev.Message)
		case solver.EventTokenRejected:
			fmt.Fprintf(w, "[step %d] token rejected\n", ev.Step)
		case solver.EventFault:
			fmt.Fprintf(w, "[fault] step %d: %s: %s\n", ev.Step, ev.Message, ev.Err)
		case solver.EventStepObserved:
			if verbose {
				fmt.Fprintf(w, "[step %d] observed\n", ev.Step)
			}
		case solver.EventAttemptStart:
			if verbose {
				fmt.Fprintf(w, "[step %d] attempt %d\n", ev.Step, ev.Attempt+1)
			}
		case solver.EventTierSelected:
			if verbose {
				fmt.Fprintf(w, "[step %d] tier %s\n", ev.Step, ev.Tier)
			}
		case solver.EventActionExecuted:
			if verbose {
				fmt.Fprintf(w, "[step %d] %s\n", ev.Step, ev.Message)
			}
		case solver.EventTokenFound:
			if verbose {
				fmt.Fprintf(w, "[step %d] token found: %s\n", ev.Step, ev.Token)
			}
		case solver.EventTokenAccepted:
			if verbose {
				fmt.Fprintf(w, "[step %d] token accepted\n", ev.Step)
			}
		case solver.EventSkipAttempt:
			if verbose {
				fmt.Fprintf(w, "[skip] %s\n", ev.Message)
			}
		}
	}
}
