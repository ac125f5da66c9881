package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/deepnoodle-ai/shortprog/errz"
	"github.com/deepnoodle-ai/shortprog/search"
	"github.com/deepnoodle-ai/shortprog/store"
	"github.com/deepnoodle-ai/shortprog/table"
	"github.com/deepnoodle-ai/shortprog/tablefmt"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search for the shortest program of every reachable transformation",
		Example: `  shortprog search --start 5 --length 6
  shortprog search --start 65 --length 7 --output yaml --out table.yaml
  shortprog search --start 5 --length 6 --store sqlite:witnesses.db`,
		Args: cobra.NoArgs,
		RunE: runSearch,
	}
	flags := cmd.Flags()
	flags.Float64("start", 0, "start value placed on the stack")
	flags.IntP("length", "n", 0, "maximum number of instructions")
	flags.IntP("workers", "w", runtime.NumCPU(), "number of parallel workers")
	flags.String("tie", table.TieLast.String(), "tie policy for equal-length witnesses (last, first)")
	flags.Float64("min", table.DefaultPolicy().Min, "smallest end value kept by curation")
	flags.Float64("max", table.DefaultPolicy().Max, "largest end value kept by curation")
	flags.Bool("no-curate", false, "keep the raw table")
	flags.Bool("strict", false, "fail on non-integer values when grouping output")
	flags.StringP("output", "o", string(tablefmt.JSON), "output format (json, yaml, cbor, text)")
	flags.String("out", "", "write the table to a file instead of stdout")
	flags.String("store", "", "also save the table to a store (sqlite:<path> or postgres://...)")
	return cmd
}

func parseTiePolicy(s string) (table.TiePolicy, error) {
	switch s {
	case "last", "":
		return table.TieLast, nil
	case "first":
		return table.TieFirst, nil
	}
	return 0, errz.New(errz.ErrUsage, "invalid tie policy: %q", s)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	format, err := tablefmt.ParseFormat(viper.GetString("output"))
	if err != nil {
		return err
	}
	tie, err := parseTiePolicy(viper.GetString("tie"))
	if err != nil {
		return err
	}
	policy := table.Policy{Min: viper.GetFloat64("min"), Max: viper.GetFloat64("max")}
	if policy.Min > policy.Max {
		return errz.New(errz.ErrUsage, "invalid curation range: %v > %v", policy.Min, policy.Max)
	}

	opts := []search.Option{
		search.WithWorkers(viper.GetInt("workers")),
		search.WithTiePolicy(tie),
		search.WithPolicy(policy),
		search.WithLogger(logger),
		search.WithObserver(&progressLogger{logger: logger, interval: progressInterval}),
	}
	if viper.GetBool("no-curate") {
		opts = append(opts, search.WithoutCuration())
	}
	res, err := search.Search(ctx, viper.GetFloat64("start"), viper.GetInt("length"), opts...)
	if err != nil {
		return err
	}

	var fmtOpts []tablefmt.Option
	fmtOpts = append(fmtOpts, tablefmt.WithLogger(logger))
	if viper.GetBool("strict") {
		fmtOpts = append(fmtOpts, tablefmt.WithStrict())
	}
	nested, err := tablefmt.Group(res.Table.Entries(), fmtOpts...)
	if err != nil {
		return err
	}
	data, err := tablefmt.Marshal(format, nested)
	if err != nil {
		return err
	}
	if err := writeOutput(cmd.OutOrStdout(), viper.GetString("out"), format, data); err != nil {
		return err
	}

	if dsn := viper.GetString("store"); dsn != "" {
		if err := saveRun(cmd, dsn, res); err != nil {
			return err
		}
		logger.Info().Str("run_id", res.RunID.String()).Msg("table saved")
	}
	return nil
}

func writeOutput(stdout io.Writer, path string, format tablefmt.Format, data []byte) error {
	if path != "" {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return errz.Wrap(errz.ErrEncoding, err, "writing %s", path)
		}
		return nil
	}
	if format == tablefmt.JSON {
		data = prettyJSON(data, stdout)
	}
	if _, err := stdout.Write(data); err != nil {
		return err
	}
	if format == tablefmt.JSON {
		fmt.Fprintln(stdout)
	}
	return nil
}

func saveRun(cmd *cobra.Command, dsn string, res *search.Result) error {
	ctx := cmd.Context()
	st, err := store.Open(ctx, dsn)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.Save(ctx, store.Run{
		ID:      res.RunID,
		Start:   res.Start,
		Length:  res.Length,
		Entries: res.Table.Entries(),
	})
}

const progressInterval = 1 << 20

// progressLogger reports search progress through the logger at a bounded
// rate.
type progressLogger struct {
	logger   zerolog.Logger
	interval uint64
	last     time.Time
}

func (p *progressLogger) Config() search.ObserverConfig {
	return search.ObserverConfig{SampleInterval: p.interval}
}

func (p *progressLogger) OnProgress(pr search.Progress) {
	if !pr.Done && time.Since(p.last) < time.Second {
		return
	}
	p.last = time.Now()
	p.logger.Info().
		Str("run_id", pr.RunID.String()).
		Uint64("executed", pr.Executed).
		Uint64("estimated_total", pr.Total).
		Str("done", fmt.Sprintf("%.1f%%", pr.Percent())).
		Msg("progress")
}
