package cli

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/datasync/internal/config"
	"github.com/roach88/datasync/internal/datasync"
	"github.com/roach88/datasync/internal/pageable"
)

// RootOptions holds global flags and the configuration resolved from them.
type RootOptions struct {
	ConfigFile   string
	Verbose      bool
	Format       string // "json" | "text"
	Endpoint     string
	TablesPrefix string
	Timeout      time.Duration
	Journal      string

	// Set by the root command before any subcommand runs.
	Config *config.Config
	Logger *slog.Logger
}

// NewRootCommand creates the root command for the dsq CLI.
func NewRootCommand() *cobra.Command {
	cmd, _ := newRootCommand()
	return cmd
}

func newRootCommand() (*cobra.Command, *RootOptions) {
	opts := &RootOptions{Logger: slog.New(slog.DiscardHandler)}

	cmd := &cobra.Command{
		Use:   "dsq",
		Short: "dsq - datasync table queries",
		Long: `Compile query definitions into datasync table requests and fetch
their results page by page.

Settings come from flags, DSQ_* environment variables, and dsq.yaml,
in that order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.ConfigFile, "config", "", "config file (default dsq.yaml in the working directory)")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", config.DefaultFormat, "output format (json|text)")
	pf.StringVar(&opts.Endpoint, "endpoint", "", "service endpoint, e.g. https://host/")
	pf.StringVar(&opts.TablesPrefix, "tables-prefix", datasync.DefaultTablesPrefix, "path prefix for table endpoints")
	pf.DurationVar(&opts.Timeout, "timeout", config.DefaultTimeout, "per-request timeout")
	pf.StringVar(&opts.Journal, "journal", "", "SQLite page journal path")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewFetchCommand(opts))
	cmd.AddCommand(NewJournalCommand(opts))

	return cmd, opts
}

// load resolves configuration and builds the logger.
func (o *RootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigFile, cmd.Flags())
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeConfig, "load config", err)
	}
	o.Config = cfg
	o.Format = cfg.Format
	o.Verbose = cfg.Verbose

	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	o.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// client creates a datasync client for the configured endpoint. A nil
// transport selects the default HTTP transport.
func (o *RootOptions) client(t pageable.Transport) (*datasync.Client, error) {
	if o.Config.Endpoint == "" {
		return nil, NewExitError(ExitCommandError, ErrCodeConfig,
			"no endpoint configured: set --endpoint, DSQ_ENDPOINT, or endpoint in dsq.yaml")
	}
	opts := []datasync.Option{
		datasync.WithTablesPrefix(o.Config.TablesPrefix),
		datasync.WithLogger(o.Logger),
	}
	if t != nil {
		opts = append(opts, datasync.WithTransport(t))
	}
	return datasync.NewClient(o.Config.Endpoint, opts...)
}

// Run executes the CLI with args and reports any error once, in the
// selected format. It returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd, opts := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	exit, code := classify(err)
	f := &OutputFormatter{Format: opts.Format, Writer: stdout, ErrWriter: stderr, Verbose: opts.Verbose}
	_ = f.Error(code, err.Error(), errorDetails(err))
	return exit
}
