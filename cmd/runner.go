package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/limuzic/internal/library"
	"github.com/desertthunder/limuzic/internal/repositories"
	"github.com/desertthunder/limuzic/internal/services"
	"github.com/desertthunder/limuzic/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	resolved   bool
	catalog    services.Catalog
	api        *services.APIService
	library    *library.Library
	db         *sql.DB
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// A non-nil Config is used as-is; otherwise the config file named by --config is resolved before each command.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Catalog    services.Catalog
	Library    *library.Library
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	resolved := opts.Config != nil
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		resolved:   resolved,
		catalog:    opts.Catalog,
		library:    opts.Library,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger replaces the logger, e.g. with a file logger for full-screen views.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "limuzic",
		Usage:   "Browse, search and play music from the terminal",
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
				Usage: "Enable debug logging",
			},
		},
		Before:   r.Before,
		After:    r.After,
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, catalogCommand, playlistCommand, historyCommand, playCommand, tuiCommand, serveCommand, openCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before resolves configuration and builds the catalog client.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if !r.resolved {
		if path := cmd.String("config"); path != "" {
			r.configPath = path
		}
		config, err := shared.ResolveConfig(r.configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
		r.resolved = true
	}

	level := shared.ParseLogLevel(r.config.Log.Level)
	if cmd.Bool("verbose") {
		level = log.DebugLevel
	}
	shared.SetLogLevel(r.logger, level)

	if r.catalog == nil {
		var catalog *services.CatalogService
		logger := shared.WithLogger(r.logger, "component", "catalog")
		if r.httpClient == nil {
			catalog = services.NewCatalogFromConfig(r.config.Catalog, logger)
		} else {
			api := services.NewAPIService(r.config.Catalog.BaseURL, r.httpClient,
				services.WithRateLimit(r.config.Catalog.RequestsPerSecond), services.WithLogger(logger))
			catalog = services.NewCatalogService(api, logger)
		}
		r.catalog = catalog
		r.api = catalog.API()
	}
	if r.api == nil {
		if c, ok := r.catalog.(*services.CatalogService); ok {
			r.api = c.API()
		}
	}

	return ctx, nil
}

// After closes the database opened by library commands.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	return r.Close()
}

// Close releases the database handle and the library loaded from it, if any.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	r.library = nil
	return err
}

// openLibrary opens the database, runs migrations and loads the library on first use.
func (r *Runner) openLibrary(ctx context.Context) (*library.Library, error) {
	if r.library != nil {
		return r.library, nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	lib, err := library.Open(ctx, repositories.NewStateRepository(db),
		library.WithLogger(shared.WithLogger(r.logger, "component", "library")))
	if err != nil {
		db.Close()
		return nil, err
	}

	r.db = db
	r.library = lib
	return lib, nil
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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
