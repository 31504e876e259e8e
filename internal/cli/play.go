package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/rewind/internal/engine"
	"github.com/roach88/rewind/internal/ir"
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	SettleTimeout time.Duration
	Select        string
}

// PlayResult is the JSON payload of the play command.
type PlayResult struct {
	Dispatched int   `json:"dispatched"`
	Seq        int64 `json:"seq"`
	Value      any   `json:"value"`
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play [actions-file]",
		Short: "Dispatch a file of actions and print the resulting state",
		Long: `Dispatch actions into a fresh engine, wait for their effects to settle
and print the final state.

Actions are read one JSON object per line from the file, or from stdin
when no file is given or the file is "-". Blank lines and lines starting
with # are skipped.

Example:
  rewind play actions.jsonl
  echo '{"kind":"setA","a":42}' | rewind play --select thing.a`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			return runPlay(opts, path, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.SettleTimeout, "settle-timeout", 10*time.Second, "how long to wait for effects after the last action")
	cmd.Flags().StringVar(&opts.Select, "select", "", "print only the value at this path, e.g. thing.a")
	addEngineFlags(cmd)

	return cmd
}

func runPlay(opts *PlayOptions, path string, cmd *cobra.Command) error {
	out := NewOutputFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := loadConfig(opts.RootOptions, cmd)
	if err != nil {
		return err
	}

	actions, err := readActions(path, cmd.InOrStdin())
	if err != nil {
		_ = out.Error(CodeBadInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read actions", err)
	}
	out.VerboseLog("read %d actions from %s", len(actions), path)

	a, err := newApp(cfg, newLogger(cfg, opts.Verbose, cmd.ErrOrStderr()),
		engine.WithKeys(engine.NewSequenceKeys("fx")))
	if err != nil {
		return err
	}
	defer a.Close()

	for _, act := range actions {
		snap := a.engine.Dispatch(act)
		out.VerboseLog("seq %d: %s", snap.Seq, act.Kind())
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, opts.SettleTimeout)
	defer cancel()
	if err := a.engine.Settle(ctx); err != nil {
		_ = out.Error(CodeSettle, "effects did not settle", map[string]any{"in_flight": a.engine.InFlight()})
		return WrapExitError(ExitFailure, "effects did not settle", err)
	}

	value, err := a.engine.Select(opts.Select)
	if err != nil {
		_ = out.Error(CodeBadInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to select", err)
	}

	result := PlayResult{
		Dispatched: len(actions),
		Seq:        a.engine.Seq(),
		Value:      value,
	}

	text, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return out.Success(result, string(text))
}

// readActions decodes one action per non-blank, non-comment line.
func readActions(path string, stdin io.Reader) ([]ir.Action, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var actions []ir.Action
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for line := 1; sc.Scan(); line++ {
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 || text[0] == '#' {
			continue
		}
		a, err := ir.Unmarshal(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		actions = append(actions, a)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return actions, nil
}
