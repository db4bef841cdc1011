package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/datasync/internal/querydef"
)

// placeholderEndpoint stands in when compile runs without a configured
// endpoint; only the query string is printed in that case.
const placeholderEndpoint = "http://localhost/"

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	URL bool // print the full request URL
}

// CompileResult is the compile command's output.
type CompileResult struct {
	Table       string `json:"table"`
	QueryString string `json:"query_string"`
	URL         string `json:"url,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <definition>",
		Short: "Compile a query definition to its wire query string",
		Long: `Compile a YAML or CUE query definition into the query string sent to
the table endpoint. No request is made.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.URL, "url", false, "print the full request URL (requires an endpoint)")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	def, err := querydef.Load(path)
	if err != nil {
		return err
	}
	formatter.VerboseLog("Loaded definition for table %q from %s", def.Table, path)

	cfg := *opts.Config
	if cfg.Endpoint == "" {
		if opts.URL {
			return NewExitError(ExitCommandError, ErrCodeConfig, "--url requires an endpoint")
		}
		cfg.Endpoint = placeholderEndpoint
	}
	scoped := *opts.RootOptions
	scoped.Config = &cfg

	client, err := scoped.client(nil)
	if err != nil {
		return err
	}
	qry, err := querydef.Build(def, client)
	if err != nil {
		return err
	}

	qs, err := qry.ToQueryString()
	if err != nil {
		return fmt.Errorf("compile %s: %w", path, err)
	}
	result := CompileResult{Table: def.Table, QueryString: qs}
	if opts.URL {
		if result.URL, err = qry.RequestURL(); err != nil {
			return err
		}
	}

	if formatter.Format == "json" {
		return formatter.SuccessFor(result.URL, result)
	}
	if opts.URL {
		return formatter.Success(result.URL)
	}
	return formatter.Success(qs)
}
