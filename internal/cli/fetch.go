package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/datasync/internal/pageable"
	"github.com/roach88/datasync/internal/querydef"
	"github.com/roach88/datasync/internal/store"
	"github.com/roach88/datasync/internal/transport"
)

// MetricsNamespace prefixes the fetch command's HTTP metrics.
const MetricsNamespace = "dsq"

// FetchOptions holds flags for the fetch command.
type FetchOptions struct {
	*RootOptions
	Record  bool // journal every page
	Replay  bool // serve pages from the journal instead of the network
	Limit   int  // stop after this many items; 0 is unlimited
	Metrics bool // print request metrics to stderr when done

	// transport overrides the HTTP transport; tests set it.
	transport pageable.Transport
}

// FetchResult is the fetch command's JSON payload.
type FetchResult struct {
	Table string            `json:"table"`
	Items []querydef.Record `json:"items"`
	Count *int64            `json:"count,omitempty"`
	Pages int               `json:"pages"`
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FetchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fetch <definition>",
		Short: "Run a query definition and print the results",
		Long: `Run a YAML or CUE query definition against the configured endpoint,
following next links until the result set is exhausted.

Text output prints one JSON object per line. With --record every page is
written to the journal; with --replay pages are served from it.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Record, "record", false, "record every page to the journal")
	cmd.Flags().BoolVar(&opts.Replay, "replay", false, "serve pages from the journal")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "stop after n items (0 for all)")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print request metrics to stderr")
	cmd.MarkFlagsMutuallyExclusive("record", "replay")

	return cmd
}

func runFetch(opts *FetchOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, ErrCodeUsage, fmt.Sprintf("--limit must not be negative, got %d", opts.Limit))
	}

	def, err := querydef.Load(path)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	var tr pageable.Transport = opts.transport
	if tr == nil {
		topts := append(opts.Config.TransportOptions(),
			transport.WithLogger(opts.Logger),
			transport.WithMetrics(transport.NewMetrics(registry, MetricsNamespace)),
		)
		tr = transport.New(topts...)
	}

	if opts.Record || opts.Replay {
		s, err := openJournal(opts.RootOptions)
		if err != nil {
			return err
		}
		defer s.Close()

		if opts.Replay {
			tr = store.NewReplayTransport(s)
		} else {
			tr = store.NewRecordingTransport(tr, s, opts.Logger)
		}
	}

	client, err := opts.client(tr)
	if err != nil {
		return err
	}
	qry, err := querydef.Build(def, client)
	if err != nil {
		return err
	}
	p, err := qry.ToAsyncPageable()
	if err != nil {
		return err
	}
	formatter.VerboseLog("Fetching %s", p.RequestURL())

	it := p.Iterator()
	defer it.Close()

	result := FetchResult{Table: def.Table, Items: []querydef.Record{}}
	enc := json.NewEncoder(formatter.Writer)
	for n := 1; it.Next(ctx); n++ {
		item := it.Item()
		if formatter.Format == "json" {
			result.Items = append(result.Items, item)
		} else if err := enc.Encode(item); err != nil {
			return err
		}
		if n == opts.Limit {
			break
		}
	}
	if err := it.Err(); err != nil {
		return err
	}

	result.Pages = it.Pages()
	if n, ok := p.Count(); ok {
		result.Count = &n
		formatter.VerboseLog("Total count: %d", n)
	}
	formatter.VerboseLog("Fetched %d page(s)", result.Pages)

	if opts.Metrics {
		writeMetrics(formatter, registry)
	}

	if formatter.Format == "json" {
		return formatter.SuccessFor(p.RequestURL(), result)
	}
	return nil
}

// writeMetrics prints gathered samples as "name{labels} value" lines.
func writeMetrics(f *OutputFormatter, g prometheus.Gatherer) {
	families, err := g.Gather()
	if err != nil {
		fmt.Fprintf(f.GetErrWriter(), "gather metrics: %v\n", err)
		return
	}

	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}

			switch {
			case m.GetCounter() != nil:
				lines = append(lines, fmt.Sprintf("%s %g", name, m.GetCounter().GetValue()))
			case m.GetGauge() != nil:
				lines = append(lines, fmt.Sprintf("%s %g", name, m.GetGauge().GetValue()))
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				lines = append(lines, fmt.Sprintf("%s count=%d sum=%gs", name, h.GetSampleCount(), h.GetSampleSum()))
			}
		}
	}
	sort.Strings(lines)
	for _, line := range lines {
		fmt.Fprintln(f.GetErrWriter(), line)
	}
}
