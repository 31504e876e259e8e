package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rewind/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Run      string
	Kinds    []string
	Replays  bool // only replayed commits
	MaxDepth int  // negative means unbounded
	From     int64
	To       int64
}

// TraceResult holds the trace of one journal run.
type TraceResult struct {
	Run     string        `json:"run"`
	Entries []store.Entry `json:"entries"`
	Stats   TraceStats    `json:"stats"`
}

// TraceStats summarizes a run.
type TraceStats struct {
	Commits  int   `json:"commits"`
	Replays  int   `json:"replays"`
	MaxDepth int   `json:"max_depth"`
	LastSeq  int64 `json:"last_seq"`
}

// RunsResult lists the runs in a journal.
type RunsResult struct {
	Runs []string `json:"runs"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print the dispatch journal",
		Long: `Print the commits recorded in a dispatch journal.

Without --run the journal's runs are listed. With --run every commit of
that run is printed in seq order, indented by dispatch depth, so nested
dispatches (undo replays, PushUndo, completions) show under the action
that caused them.

Examples:
  rewind trace --journal ./rewind.db
  rewind trace --journal ./rewind.db --run 0190d7c4-...
  rewind trace --journal ./rewind.db --run undo_redo --kind PushUndo --format json
  rewind trace --journal ./rewind.db --run undo_redo --max-depth 0 --from 3`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().String("journal", "", "path to the SQLite journal (default from config)")
	cmd.Flags().StringVar(&opts.Run, "run", "", "run to print (lists runs when empty)")
	cmd.Flags().StringSliceVar(&opts.Kinds, "kind", nil, "only print commits of these action kinds")
	cmd.Flags().BoolVar(&opts.Replays, "replays", false, "only print replayed commits")
	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", -1, "only print commits nested at most this deep (0 = outermost)")
	cmd.Flags().Int64Var(&opts.From, "from", 0, "first seq to print")
	cmd.Flags().Int64Var(&opts.To, "to", 0, "last seq to print")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	path := cfg.Journal.Path
	if path == "" {
		return NewExitError(ExitCommandError, "no journal: pass --journal or set journal.path")
	}
	if _, err := os.Stat(path); err != nil {
		return WrapExitError(ExitCommandError, "journal not found", err)
	}

	st, err := store.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	out := NewOutputFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if opts.Run == "" {
		runs, err := st.Runs(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		text := "No runs recorded."
		if len(runs) > 0 {
			text = strings.Join(runs, "\n")
		}
		return out.Success(RunsResult{Runs: runs}, text)
	}

	entries, err := st.Read(ctx, opts.Run)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	if len(entries) == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("no commits for run: %s", opts.Run))
	}

	selected, err := st.Query(ctx, opts.query())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to query run", err)
	}

	result := buildTraceResult(opts.Run, entries, selected)
	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
}

func (o *TraceOptions) query() store.Query {
	q := store.Query{Run: o.Run, Kinds: o.Kinds, FromSeq: o.From, ToSeq: o.To}
	if o.Replays {
		q.Replay = &o.Replays
	}
	if o.MaxDepth >= 0 {
		q.MaxDepth = &o.MaxDepth
	}
	return q
}

// buildTraceResult prints selected; stats always cover the whole run.
func buildTraceResult(run string, all, selected []store.Entry) TraceResult {
	result := TraceResult{Run: run, Entries: selected}
	for _, e := range all {
		result.Stats.Commits++
		if e.Replay {
			result.Stats.Replays++
		}
		result.Stats.MaxDepth = max(result.Stats.MaxDepth, e.Depth)
		result.Stats.LastSeq = max(result.Stats.LastSeq, e.Seq)
	}
	return result
}

func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(CLIResponse{Status: "ok", Data: result})
}

func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	fmt.Fprintf(w, "Trace for run: %s\n\n", result.Run)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Entries) == 0 {
		fmt.Fprintln(w, "  (no commits)")
	}
	for _, e := range result.Entries {
		formatEntry(w, e, verbose)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Commits:   %d\n", result.Stats.Commits)
	fmt.Fprintf(w, "  Replays:   %d\n", result.Stats.Replays)
	fmt.Fprintf(w, "  Max depth: %d\n", result.Stats.MaxDepth)
	fmt.Fprintf(w, "  Last seq:  %d\n", result.Stats.LastSeq)
	return nil
}

// formatEntry prints one commit, indented two spaces per nesting level.
func formatEntry(w io.Writer, e store.Entry, verbose bool) {
	indent := strings.Repeat("  ", e.Depth)
	marker := ""
	if e.Replay {
		marker = " (replay)"
	}
	fmt.Fprintf(w, "  [%d] %s%s%s\n", e.Seq, indent, e.Kind, marker)
	if verbose {
		fmt.Fprintf(w, "       %s%s\n", indent, e.Action)
		fmt.Fprintf(w, "       %sdigest: %s\n", indent, truncateDigest(e.Digest))
	}
}

func truncateDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
