package command

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/brainsync/internal/cli/output"
	"github.com/yndnr/brainsync/internal/config"
	"github.com/yndnr/brainsync/internal/infra/buildinfo"
	"github.com/yndnr/brainsync/internal/storage"
	"github.com/yndnr/brainsync/internal/telemetry/logger"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "brainctl",
		Usage:   "Persist a bot brain to a document store",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			ServeCommand(),
			DumpCommand(),
			StoreCommand(),
			RetrieveCommand(),
			FindCommand(),
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to the YAML configuration file",
			EnvVars: []string{"BRAIN_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Do not truncate table cells",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Enable debug logging",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Config  string
	Output  string
	Wide    bool
	Verbose bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Config:  c.String("config"),
		Output:  c.String("output"),
		Wide:    c.Bool("wide"),
		Verbose: c.Bool("verbose"),
	}
}

// env is what every command needs after startup.
type env struct {
	cfg    *config.BrainConfig
	log    *slog.Logger
	flags  *GlobalFlags
	format output.Format
}

// setup loads the configuration and initializes logging.
func setup(c *cli.Context) (*env, error) {
	flags := ParseGlobalFlags(c)

	format, err := output.ParseFormat(flags.Output)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(flags.Config)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Log.Level
	if flags.Verbose {
		level = "debug"
	}
	log := logger.New(logger.Config{
		Level:  level,
		Format: cfg.Log.Format,
		Output: errWriter(c),
	})
	slog.SetDefault(log)

	return &env{
		cfg:    cfg,
		log:    log,
		flags:  flags,
		format: format,
	}, nil
}

func (e *env) openGateway(ctx context.Context) (storage.Gateway, error) {
	gw, err := storage.Open(ctx, e.cfg.StorageConfig(), e.log)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", e.cfg.Backend, err)
	}
	return gw, nil
}

func (e *env) print(c *cli.Context, data any) error {
	return output.NewFormatter(e.format, e.flags.Wide).Format(outWriter(c), data)
}

func outWriter(c *cli.Context) io.Writer {
	if c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}

func errWriter(c *cli.Context) io.Writer {
	if c.App.ErrWriter != nil {
		return c.App.ErrWriter
	}
	return os.Stderr
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
