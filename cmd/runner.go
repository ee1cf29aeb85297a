package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/gmx/internal/dispatch"
	"github.com/desertthunder/gmx/internal/reconcile"
	"github.com/desertthunder/gmx/internal/repositories"
	"github.com/desertthunder/gmx/internal/services"
	"github.com/desertthunder/gmx/internal/shared"
	"github.com/desertthunder/gmx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The dispatcher and database are built on first use so that commands which need neither
// (setup, scenario list) work without a session or a writable database path.
type Runner struct {
	config     *shared.Config
	configPath string
	transport  services.Transport
	session    services.SessionProvider
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	db         *sql.DB
	dispatcher *dispatch.Dispatcher
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Transport  services.Transport // overrides the HTTP transport built from [service]
	Session    services.SessionProvider
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	DB         *sql.DB
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = services.NewHTTPClient(opts.Config.Service.Timeout)
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		transport:  opts.Transport,
		session:    opts.Session,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		db:         opts.DB,
	}
}

// SetLogger replaces the logger, e.g. to keep log lines out of the TUI.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
	r.dispatcher = nil
}

// Close releases the database connection, if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// loadConfig replaces the runner's config with the file at path.
// A missing file keeps the current config.
func (r *Runner) loadConfig(path string) error {
	r.configPath = path
	if _, err := os.Stat(path); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", path)
		return nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return err
	}
	r.config = config
	r.httpClient = services.NewHTTPClient(config.Service.Timeout)
	r.dispatcher = nil
	return nil
}

// loadSession builds the session from [service]. An access token wins over a cURL capture.
func (r *Runner) loadSession() (services.SessionProvider, error) {
	if r.session != nil {
		return r.session, nil
	}

	svc := r.config.Service
	switch {
	case svc.AccessToken != "":
		r.session = services.StaticTokenSession(svc.AccessToken)
	case svc.CurlPath != "":
		s, err := services.LoadCookieSession(svc.CurlPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrMissingCredentials, err)
		}
		r.session = s
	default:
		r.logger.Warn("no session configured, requests are sent unauthenticated", "hint", "gmx setup session")
		return nil, nil
	}
	return r.session, nil
}

// Dispatcher returns the dispatcher, building the HTTP transport on first use.
func (r *Runner) Dispatcher() (*dispatch.Dispatcher, error) {
	if r.dispatcher != nil {
		return r.dispatcher, nil
	}

	session, err := r.loadSession()
	if err != nil {
		return nil, err
	}

	transport := r.transport
	if transport == nil {
		transport = services.NewHTTPTransport(r.config.Service.BaseURL, r.httpClient, session, r.logger)
	}

	r.dispatcher = dispatch.New(transport, session, nil, r.logger)
	return r.dispatcher, nil
}

// reconciler reads through d with the configured timings.
func (r *Runner) reconciler(d *dispatch.Dispatcher) (*reconcile.Reconciler, reconcile.Options) {
	return reconcile.New(d, d.Taxonomy(), r.logger), reconcile.OptionsFromConfig(r.config.Reconcile)
}

// database opens and migrates the configured database on first use.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrDatabase, err)
	}
	r.db = db
	return db, nil
}

// recorder returns a run recorder, or nil when the database cannot be opened.
// Scenario runs still proceed without history.
func (r *Runner) recorder() tasks.RunRecorder {
	db, err := r.database()
	if err != nil {
		r.logger.Warn("run history disabled", "error", err)
		return nil
	}
	return repositories.NewRunRecorder(db)
}

// app builds the root command.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "gmx",
		Usage:   "Drive and verify a media-library web service",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log every dispatched call and poll",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("verbose") {
				shared.SetLogLevel(r.logger, log.DebugLevel)
			}
			return ctx, r.loadConfig(cmd.String("config"))
		},
		After: func(ctx context.Context, cmd *cli.Command) error {
			return r.Close()
		},
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, playlistCommand, trackCommand, searchCommand, streamCommand,
		scenarioCommand, historyCommand, cleanupCommand, sandboxCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// exitCode maps a command error onto the process exit status.
// Session problems get their own code so scripts can prompt for a fresh capture.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, shared.ErrSessionExpired), errors.Is(err, shared.ErrMissingCredentials):
		return 3
	case errors.Is(err, shared.ErrMissingArgument), errors.Is(err, shared.ErrInvalidArgument):
		return 2
	default:
		return 1
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
