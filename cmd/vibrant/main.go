// vibrant - display saturation control
//
// vibrant reads and changes the colour saturation of X11 outputs, either
// through the RandR CTM property or through NVIDIA digital vibrance.
//
//	vibrant [flags] OUTPUT [SATURATION]   show or set one output
//	vibrant [flags] list                  list controllable outputs
//	vibrant [flags] shell                 interactive prompt
//	vibrant [flags] serve                 run the MQTT/HTTP daemon
//	vibrant [flags] migrate [ACTION]      up, down or status of the database schema
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/nerrad567/vibrant/internal/ctm"
	"github.com/nerrad567/vibrant/internal/display"
	"github.com/nerrad567/vibrant/internal/history"
	"github.com/nerrad567/vibrant/internal/infrastructure/config"
	"github.com/nerrad567/vibrant/internal/infrastructure/database"
	"github.com/nerrad567/vibrant/internal/infrastructure/logging"
	"github.com/nerrad567/vibrant/internal/profile"
	"github.com/nerrad567/vibrant/internal/saturation"
	"github.com/nerrad567/vibrant/internal/x11"
	"github.com/nerrad567/vibrant/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
)

const usageText = `Usage: vibrant [flags] OUTPUT [SATURATION]
       vibrant [flags] list | shell | serve
       vibrant [flags] migrate [up | down | status]

SATURATION must be between 0.0 and 4.0; 1.0 leaves colours unchanged.

Flags:
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := &app{
		stdout: os.Stdout,
		stderr: os.Stderr,
		getenv: os.Getenv,
	}
	code := a.run(ctx, os.Args[1:])
	cancel()
	os.Exit(code)
}

// app holds the process-wide collaborators so tests can replace them.
type app struct {
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string

	// dial opens the display; nil selects the X11 dialer.
	dial display.Dialer

	flags struct {
		display string
		config  string
		verbose bool
		version bool
	}
	cfg    *config.Config
	logger *logging.Logger
}

// run parses arguments and dispatches to a command, returning the exit code.
func (a *app) run(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("vibrant", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.StringVar(&a.flags.display, "display", "", "X display to connect to (default $VIBRANT_DISPLAY, then $DISPLAY)")
	fs.StringVar(&a.flags.config, "config", "", "configuration file (default $VIBRANT_CONFIG, then "+defaultConfigPath+")")
	fs.BoolVar(&a.flags.verbose, "v", false, "verbose logging")
	fs.BoolVar(&a.flags.version, "version", false, "print version and exit")
	fs.Usage = func() {
		fmt.Fprint(a.stderr, usageText)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitError
	}

	if a.flags.version {
		fmt.Fprintf(a.stdout, "vibrant %s (commit %s, built %s)\n", version, commit, date)
		return exitOK
	}

	rest := fs.Args()
	if len(rest) == 0 || len(rest) > 2 {
		fs.Usage()
		return exitError
	}

	switch rest[0] {
	case "list", "shell", "serve":
		if len(rest) > 1 {
			fmt.Fprintf(a.stderr, "%s takes no arguments\n", rest[0])
			fs.Usage()
			return exitError
		}
	}

	var err error
	switch rest[0] {
	case "list":
		err = a.withService(ctx, a.cmdList)
	case "shell":
		err = a.withService(ctx, a.cmdShell)
	case "serve":
		err = a.cmdServe(ctx)
	case "migrate":
		action := migrateStatus
		if len(rest) == 2 {
			action = rest[1]
		}
		err = a.cmdMigrate(ctx, action)
	default:
		var value *float64
		if len(rest) == 2 {
			v, parseErr := parseSaturation(rest[1])
			if parseErr != nil {
				fmt.Fprintln(a.stderr, parseErr)
				fs.Usage()
				return exitError
			}
			value = &v
		}
		err = a.withService(ctx, func(ctx context.Context, s *session) error {
			return a.cmdOutput(ctx, s, rest[0], value)
		})
	}

	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return exitError
	}
	return exitOK
}

// parseSaturation parses a saturation argument. The whole string must be a
// number within the supported range.
func parseSaturation(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || display.ValidateSaturation(v) != nil {
		return 0, fmt.Errorf("SATURATION value must be greater than or equal to %.1f and less than or equal to %.1f",
			display.MinSaturation, display.MaxSaturation)
	}
	return v, nil
}

// configPath resolves the configuration file: -config, then
// VIBRANT_CONFIG, then the default path.
func (a *app) configPath() string {
	if a.flags.config != "" {
		return a.flags.config
	}
	if path := a.getenv("VIBRANT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// displayTarget resolves the display: -display, then the configured target.
// An empty result lets the X11 client fall back to $DISPLAY.
func (a *app) displayTarget() string {
	if a.flags.display != "" {
		return a.flags.display
	}
	return a.cfg.Display.Target
}

// loadConfig loads configuration and sets up logging. When required is
// false a missing file yields the defaults.
func (a *app) loadConfig(required bool) error {
	path := a.configPath()

	var err error
	if required {
		a.cfg, err = config.Load(path)
	} else {
		a.cfg, err = config.LoadOptional(path)
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logCfg := a.cfg.Logging
	if a.flags.verbose {
		logCfg.Level = "debug"
	} else if !required {
		// One-shot commands stay quiet unless something is wrong.
		logCfg.Level = "warn"
	}
	a.logger = logging.NewWithWriter(logCfg, version, a.stderr)
	return nil
}

// openInstance connects to the display and runs discovery.
func (a *app) openInstance() (*display.Instance, error) {
	dial := a.dial
	if dial == nil {
		dial = x11.NewDialer(a.logger.Component("x11"))
	}
	return display.Open(a.displayTarget(), dial, display.Options{
		Logger: a.logger.Component("display"),
	})
}

// openStore opens and migrates the profile database when enabled.
// The returned cleanup is never nil.
func (a *app) openStore(ctx context.Context) (*database.DB, *profile.SQLiteRepository, func(), error) {
	noop := func() {}
	if !a.cfg.Database.Enabled {
		return nil, nil, noop, nil
	}

	db, cleanup, err := a.openDatabase(ctx)
	if err != nil {
		return nil, nil, noop, err
	}

	all, err := migrations.All()
	if err == nil {
		err = db.Migrate(ctx, all)
	}
	if err != nil {
		cleanup()
		return nil, nil, noop, fmt.Errorf("running migrations: %w", err)
	}

	return db, profile.NewSQLiteRepository(db.DB), cleanup, nil
}

// openDatabase opens the configured database without migrating it.
func (a *app) openDatabase(ctx context.Context) (*database.DB, func(), error) {
	db, err := database.Open(ctx, database.Config{
		Path:        a.cfg.Database.Path,
		WALMode:     a.cfg.Database.WALMode,
		BusyTimeout: a.cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return db, func() {
		if closeErr := db.Close(); closeErr != nil {
			a.logger.Error("error closing database", "error", closeErr)
		}
	}, nil
}

// session bundles what one-shot commands work with.
type session struct {
	inst *display.Instance
	svc  *saturation.Service
}

// withService opens the display and, when configured, the profile store,
// then runs fn. Store failures only disable persistence.
func (a *app) withService(ctx context.Context, fn func(context.Context, *session) error) error {
	if err := a.loadConfig(false); err != nil {
		return err
	}

	inst, err := a.openInstance()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := inst.Close(); closeErr != nil {
			a.logger.Warn("closing display", "error", closeErr)
		}
	}()

	opts := saturation.Options{Logger: a.logger.Component("saturation")}
	db, repo, cleanup, err := a.openStore(ctx)
	if err != nil {
		a.logger.Warn("saturation profiles disabled", "error", err)
	} else if repo != nil {
		opts.Store = repo
	}
	defer cleanup()

	svc := saturation.NewService(saturation.FromInstance(inst), opts)
	if db != nil {
		rec := a.startHistory(ctx, db)
		defer rec.Stop()
		svc.OnChange(rec.Record)
	}

	return fn(ctx, &session{inst: inst, svc: svc})
}

// startHistory starts a Recorder writing to db. Stop it before closing db.
func (a *app) startHistory(ctx context.Context, db *database.DB) *history.Recorder {
	rec := history.NewRecorder(history.NewSQLiteRepository(db.DB), a.logger.Component("history"))
	rec.Start(ctx)
	return rec
}

// cmdList prints every controllable output.
func (a *app) cmdList(ctx context.Context, s *session) error {
	statuses, err := s.svc.Outputs(ctx)
	if err != nil {
		return err
	}
	if len(statuses) == 0 {
		fmt.Fprintln(a.stdout, "No outputs support saturation.")
		return nil
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "OUTPUT\tBACKEND\tSATURATION")
	for _, st := range statuses {
		value := "error: " + st.Error
		if st.Saturation != nil {
			value = strconv.FormatFloat(*st.Saturation, 'f', 4, 64)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", st.Name, st.Backend, value)
	}
	return tw.Flush()
}

// cmdOutput shows one output and, when value is set, changes it.
func (a *app) cmdOutput(ctx context.Context, s *session, name string, value *float64) error {
	c, err := s.inst.Controller(name)
	if err != nil {
		if errors.Is(err, display.ErrNotFound) {
			return fmt.Errorf("cannot find output %s (or it does not support saturation)", name)
		}
		return err
	}

	current, err := s.svc.Get(ctx, name)
	if err != nil {
		return err
	}
	a.printState(c, "Current", current)

	if value == nil {
		return nil
	}
	if _, err := s.svc.Set(ctx, name, *value, saturation.SourceCLI); err != nil {
		return err
	}
	applied, err := s.svc.Get(ctx, name)
	if err != nil {
		return err
	}
	a.printState(c, "New", applied)
	return nil
}

// printState prints the saturation and, for matrix outputs, the matrix
// read back from the server.
func (a *app) printState(c *display.Controller, label string, value float64) {
	fmt.Fprintf(a.stdout, "%s saturation of %s (%s): %.4f\n", label, c.Name(), c.Backend(), value)

	if c.Backend() != display.BackendMatrix {
		return
	}
	m, err := c.Matrix()
	if err != nil {
		a.logger.Warn("reading colour matrix", "output", c.Name(), "error", err)
		return
	}
	fmt.Fprintf(a.stdout, "%s CTM:\n", label)
	for r := 0; r < ctm.Rows; r++ {
		row := m.Row(r)
		fmt.Fprintf(a.stdout, "    %2.4f:%2.4f:%2.4f\n", row[0], row[1], row[2])
	}
}
