package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/datasync/internal/store"
)

// JournalEntry is one journaled page in list output.
type JournalEntry struct {
	Seq        int64  `json:"seq"`
	StatusCode int    `json:"status_code"`
	URL        string `json:"url"`
	Bytes      int    `json:"bytes"`
}

// NewJournalCommand creates the journal command group.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the page journal",
		Long:  "List or clear the pages recorded by fetch --record.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List journaled pages in recording order",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournalList(rootOpts, cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "clear",
		Short:         "Delete every journaled page",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournalClear(rootOpts, cmd)
		},
	})

	return cmd
}

func openJournal(opts *RootOptions) (*store.Store, error) {
	if opts.Config.Journal == "" {
		return nil, NewExitError(ExitCommandError, ErrCodeConfig,
			"no journal configured: set --journal, DSQ_JOURNAL, or journal in dsq.yaml")
	}
	s, err := store.Open(opts.Config.Journal)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, ErrCodeJournal, "open journal", err)
	}
	return s, nil
}

func runJournalList(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	s, err := openJournal(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	pages, err := s.ListPages(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, ErrCodeJournal, "list pages", err)
	}

	entries := make([]JournalEntry, len(pages))
	for i, p := range pages {
		entries[i] = JournalEntry{Seq: p.Seq, StatusCode: p.StatusCode, URL: p.URL, Bytes: len(p.Content)}
	}

	if formatter.Format == "json" {
		return formatter.Success(entries)
	}

	if len(entries) == 0 {
		return formatter.Success("No pages journaled")
	}
	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tSTATUS\tBYTES\tURL")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\n", e.Seq, e.StatusCode, e.Bytes, e.URL)
	}
	return tw.Flush()
}

func runJournalClear(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	s, err := openJournal(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	n, err := s.Clear(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, ErrCodeJournal, "clear journal", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]int64{"removed": n})
	}
	return formatter.Success(fmt.Sprintf("Removed %d page(s)", n))
}
