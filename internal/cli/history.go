package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/capture-sizing/internal/report"
	"github.com/GoSim-25-26J-441/capture-sizing/internal/runstore"
)

const (
	defaultHistoryLimit = 20
	msgNoSessions       = "No design sessions recorded yet."
)

func newHistoryCommand(opts *Options) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded design sessions",
	}
	historyCmd.AddCommand(
		newHistoryListCommand(opts),
		newHistoryShowCommand(opts),
	)
	return historyCmd
}

func newHistoryListCommand(opts *Options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent design sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer store.Close()
			return listSessions(cmd.Context(), cmd.OutOrStdout(), store, limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", defaultHistoryLimit, "Max sessions to show")
	return cmd
}

func newHistoryShowCommand(opts *Options) *cobra.Command {
	var stage string

	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show the evaluation history of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer store.Close()
			return showSession(cmd.Context(), cmd.OutOrStdout(), store, args[0], stage)
		},
	}
	cmd.Flags().StringVar(&stage, "stage", "", "Only show records of this stage")
	return cmd
}

func (o *Options) openStore(stderr io.Writer) (runstore.Store, error) {
	cfg, err := o.load(stderr)
	if err != nil {
		return nil, err
	}
	store, err := runstore.Open(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return store, nil
}

func listSessions(ctx context.Context, w io.Writer, store runstore.Store, limit int) error {
	sessions, err := store.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(w, msgNoSessions)
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tSTATUS\tEVALS\tSTARTED\tDESIGN")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", s.ID, s.Status, s.Evaluations,
			humanize.Time(time.UnixMilli(s.CreatedAtUnixMs)), designString(s.Design))
	}
	return tw.Flush()
}

func showSession(ctx context.Context, w io.Writer, store runstore.Store, id, stage string) error {
	sess, err := store.Get(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "session %s (%s, %d evaluations)\n", sess.ID, sess.Status, sess.Evaluations)
	if sess.Error != "" {
		fmt.Fprintf(w, "error: %s\n", sess.Error)
	}
	recs, err := store.Records(ctx, id, stage)
	if err != nil {
		return err
	}
	return report.WriteHistory(w, recs)
}

func designString(m map[string]float64) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%.4g", k, m[k])
	}
	return out
}
