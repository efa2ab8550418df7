package cli

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wpine215/a32nx/internal/queryir"
	"github.com/wpine215/a32nx/internal/store"
)

// TraceOptions holds flags shared by the trace subcommands.
type TraceOptions struct {
	*RootOptions
	Database  string
	Variables []string // show: restrict tick samples
	Where     []string // query: filter terms, joined with And
	Limit     int      // query: maximum rows, 0 for all
}

// TraceEvent is one tick or failure request in a session timeline.
type TraceEvent struct {
	Seq     int64              `json:"seq"`
	Type    string             `json:"type"` // "tick" or "failure"
	DeltaMS int64              `json:"delta_ms,omitempty"`
	Digest  string             `json:"digest,omitempty"`
	Values  map[string]float64 `json:"values,omitempty"`
	Code    int                `json:"code,omitempty"`
	Failure string             `json:"failure,omitempty"`
	Active  bool               `json:"active,omitempty"`
	Changed bool               `json:"changed,omitempty"`
}

// SessionResult is the output of trace show.
type SessionResult struct {
	SessionID  string       `json:"session_id"`
	Prefix     string       `json:"prefix"`
	ConfigHash string       `json:"config_hash"`
	Version    string       `json:"version"`
	Timeline   []TraceEvent `json:"timeline"`
	Stats      TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for a session.
type TraceStats struct {
	Ticks    int   `json:"ticks"`
	Failures int   `json:"failures"`
	LastSeq  int64 `json:"last_seq"`
}

// NewTraceCommand creates the trace command and its subcommands.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded simulation traces",
		Long: `Inspect a SQLite trace database written by "run --trace".

Examples:
  a32nx-systems trace list --db ./trace.db
  a32nx-systems trace show --db ./trace.db <session> --variable "L:A32NX_ELEC_AC_1_BUS_IS_POWERED"
  a32nx-systems trace series --db ./trace.db <session> "A:BUS CONNECTION ON:2 (Bool)"
  a32nx-systems trace query --db ./trace.db <session> --where "variable~L:A32NX_ELEC_*" --where "value=0"
  a32nx-systems trace verify --db ./trace.db <session>`,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite trace database (required)")
	_ = cmd.MarkPersistentFlagRequired("db")

	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List recorded sessions",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, func(ctx context.Context, st *store.Store, f *OutputFormatter) error {
				return runTraceList(ctx, st, f)
			})
		},
	})

	show := &cobra.Command{
		Use:           "show <session>",
		Short:         "Show the timeline of a session",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, func(ctx context.Context, st *store.Store, f *OutputFormatter) error {
				return runTraceShow(ctx, st, f, args[0], opts.Variables)
			})
		},
	}
	show.Flags().StringArrayVar(&opts.Variables, "variable", nil, "only show samples of this qualified variable (repeatable)")
	cmd.AddCommand(show)

	cmd.AddCommand(&cobra.Command{
		Use:           "series <session> <variable>",
		Short:         "Print one variable's value at every tick",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, func(ctx context.Context, st *store.Store, f *OutputFormatter) error {
				return runTraceSeries(ctx, st, f, args[0], args[1])
			})
		},
	})

	query := &cobra.Command{
		Use:   "query <session>",
		Short: "Select recorded samples matching filter terms",
		Long: `Select recorded samples matching filter terms.

Each --where holds comma-separated terms; all terms must match. Fields:
  variable=NAME     exact qualified variable name
  variable~GLOB     variable name glob (* and ?)
  value OP NUMBER   OP is one of = != < <= > >=
  seq OP N          OP is one of = < <= > >=`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, func(ctx context.Context, st *store.Store, f *OutputFormatter) error {
				return runTraceQuery(ctx, st, f, args[0], opts.Where, opts.Limit)
			})
		},
	}
	query.Flags().StringArrayVar(&opts.Where, "where", nil, "filter terms (repeatable)")
	query.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of rows (0 for all)")
	cmd.AddCommand(query)

	cmd.AddCommand(&cobra.Command{
		Use:           "verify <session>",
		Short:         "Recompute tick digests of a session",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, func(ctx context.Context, st *store.Store, f *OutputFormatter) error {
				return runTraceVerify(ctx, st, f, args[0])
			})
		},
	})

	return cmd
}

// withStore opens an existing trace database for fn. store.Open would
// create a missing file, so absence is checked first.
func withStore(cmd *cobra.Command, opts *TraceOptions, fn func(context.Context, *store.Store, *OutputFormatter) error) error {
	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "trace database not found", err)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, st, newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr()))
}

func sessionError(f *OutputFormatter, id string, err error) error {
	if errors.Is(err, store.ErrSessionNotFound) {
		_ = f.Error(ErrCodeSessionMissing, fmt.Sprintf("session not found: %s", id), nil)
		return WrapExitError(ExitCommandError, "session not found", err)
	}
	return WrapExitError(ExitCommandError, "failed to read session", err)
}

func runTraceList(ctx context.Context, st *store.Store, f *OutputFormatter) error {
	sessions, err := st.ListSessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}
	if f.JSON() {
		return f.Success(sessions)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(f.Writer, "No sessions recorded.")
		return nil
	}

	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			s.ID,
			s.Prefix,
			strconv.Itoa(s.Ticks),
			strconv.Itoa(s.Failures),
			strconv.FormatInt(s.LastSeq, 10),
			truncateID(s.ConfigHash),
		})
	}
	return f.Table([]string{"SESSION", "PREFIX", "TICKS", "FAILURES", "LAST SEQ", "CONFIG"}, rows)
}

func runTraceShow(ctx context.Context, st *store.Store, f *OutputFormatter, id string, variables []string) error {
	sess, err := st.ReadSession(ctx, id)
	if err != nil {
		return sessionError(f, id, err)
	}
	ticks, err := st.ReadTicks(ctx, id)
	if err != nil {
		return sessionError(f, id, err)
	}
	failureEvents, err := st.ReadFailures(ctx, id)
	if err != nil {
		return sessionError(f, id, err)
	}

	result := SessionResult{
		SessionID:  sess.ID,
		Prefix:     sess.Prefix,
		ConfigHash: sess.ConfigHash,
		Version:    sess.Version,
		Timeline:   make([]TraceEvent, 0, len(ticks)+len(failureEvents)),
		Stats:      TraceStats{Ticks: len(ticks), Failures: len(failureEvents)},
	}
	for _, t := range ticks {
		event := TraceEvent{
			Seq:     t.Seq,
			Type:    "tick",
			DeltaMS: t.Delta.Milliseconds(),
			Digest:  t.Digest,
			Values:  make(map[string]float64),
		}
		for _, s := range t.Samples {
			if len(variables) == 0 || slices.Contains(variables, s.Variable) {
				event.Values[s.Variable] = s.Value
			}
		}
		result.Timeline = append(result.Timeline, event)
	}
	for _, fe := range failureEvents {
		result.Timeline = append(result.Timeline, TraceEvent{
			Seq:     fe.Seq,
			Type:    "failure",
			Code:    fe.Code,
			Failure: fe.Type,
			Active:  fe.Active,
			Changed: fe.Changed,
		})
	}
	slices.SortFunc(result.Timeline, func(a, b TraceEvent) int { return cmp.Compare(a.Seq, b.Seq) })
	if n := len(result.Timeline); n > 0 {
		result.Stats.LastSeq = result.Timeline[n-1].Seq
	}

	if f.JSON() {
		return f.Success(result)
	}
	return outputTraceText(f, result, len(variables) > 0)
}

func outputTraceText(f *OutputFormatter, result SessionResult, filtered bool) error {
	w := f.Writer

	fmt.Fprintf(w, "Session: %s\n", result.SessionID)
	fmt.Fprintf(w, "Prefix: %s\n", result.Prefix)
	fmt.Fprintf(w, "Config: %s\n", result.ConfigHash)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	for _, event := range result.Timeline {
		switch event.Type {
		case "tick":
			fmt.Fprintf(w, "  [%d] TICK %dms\n", event.Seq, event.DeltaMS)
			if f.Verbose || filtered {
				fmt.Fprintf(w, "       %s\n", formatValues(event.Values))
			}
		case "failure":
			name := event.Failure
			if name == "" {
				name = "unknown"
			}
			action := "deactivate"
			if event.Active {
				action = "activate"
			}
			fmt.Fprintf(w, "  [%d] FAILURE %s %d %s", event.Seq, action, event.Code, name)
			if !event.Changed {
				fmt.Fprint(w, " (no change)")
			}
			fmt.Fprintln(w)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Ticks:    %d\n", result.Stats.Ticks)
	fmt.Fprintf(w, "  Failures: %d\n", result.Stats.Failures)
	fmt.Fprintf(w, "  Last Seq: %d\n", result.Stats.LastSeq)
	return nil
}

func runTraceSeries(ctx context.Context, st *store.Store, f *OutputFormatter, id, variable string) error {
	if _, err := st.ReadSession(ctx, id); err != nil {
		return sessionError(f, id, err)
	}
	points, err := st.ReadSeries(ctx, id, variable)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read series", err)
	}
	if f.JSON() {
		return f.Success(map[string]any{"session_id": id, "variable": variable, "points": points})
	}
	if len(points) == 0 {
		fmt.Fprintf(f.Writer, "No samples of %s in session %s\n", variable, id)
		return nil
	}
	rows := make([][]string, len(points))
	for i, p := range points {
		rows[i] = []string{strconv.FormatInt(p.Seq, 10), strconv.FormatFloat(p.Value, 'g', -1, 64)}
	}
	return f.Table([]string{"SEQ", "VALUE"}, rows)
}

func runTraceQuery(ctx context.Context, st *store.Store, f *OutputFormatter, id string, where []string, limit int) error {
	var preds []queryir.Predicate
	for _, expr := range where {
		p, err := queryir.ParseFilter(expr)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --where", err)
		}
		preds = append(preds, p)
	}
	if limit < 0 {
		return NewExitError(ExitCommandError, "--limit must be non-negative")
	}

	rows, err := st.QuerySamples(ctx, queryir.Query{Session: id, Filter: queryir.All(preds...), Limit: limit})
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return sessionError(f, id, err)
		}
		return WrapExitError(ExitCommandError, "failed to query samples", err)
	}
	if f.JSON() {
		return f.Success(map[string]any{"session_id": id, "rows": rows})
	}
	if len(rows) == 0 {
		fmt.Fprintf(f.Writer, "No matching samples in session %s\n", id)
		return nil
	}
	table := make([][]string, len(rows))
	for i, r := range rows {
		table[i] = []string{strconv.FormatInt(r.Seq, 10), r.Variable, strconv.FormatFloat(r.Value, 'g', -1, 64)}
	}
	return f.Table([]string{"SEQ", "VARIABLE", "VALUE"}, table)
}

func runTraceVerify(ctx context.Context, st *store.Store, f *OutputFormatter, id string) error {
	mismatches, err := st.VerifySession(ctx, id)
	if err != nil {
		return sessionError(f, id, err)
	}
	if len(mismatches) == 0 {
		if f.JSON() {
			return f.Success(map[string]any{"session_id": id, "valid": true})
		}
		fmt.Fprintf(f.Writer, "✓ All tick digests match for %s\n", id)
		return nil
	}

	message := fmt.Sprintf("%d tick digest(s) do not match", len(mismatches))
	if f.JSON() {
		if err := f.Failure("E_DIGEST_MISMATCH", message, map[string]any{"session_id": id, "mismatches": mismatches}); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(f.Writer, "✗ %s\n", message)
		for _, m := range mismatches {
			fmt.Fprintf(f.Writer, "  [%d] stored %s, computed %s\n", m.Seq, truncateID(m.Stored), truncateID(m.Computed))
		}
	}
	return NewExitError(ExitFailure, message)
}

// formatValues formats sample values with sorted names.
func formatValues(values map[string]float64) string {
	if len(values) == 0 {
		return "{}"
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	slices.Sort(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + strconv.FormatFloat(values[name], 'g', -1, 64)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// truncateID truncates a long ID or hash for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
