package cli

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/n0roo/aces/internal/acesrun"
	"github.com/n0roo/aces/internal/extract"
	"github.com/n0roo/aces/internal/predicate"
	"github.com/n0roo/aces/internal/predtable"
	"github.com/n0roo/aces/internal/result"
	"github.com/n0roo/aces/internal/taskconfig"
	"github.com/n0roo/aces/internal/tui"
)

var (
	extractConfigPath     string
	extractPredicatesPath string
	extractOutputPath     string
	extractShard          string
	extractTUI            bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Run a cohort extraction against a predicates table",
	RunE:  runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractConfigPath, "config", "", "task configuration YAML (required)")
	extractCmd.Flags().StringVar(&extractPredicatesPath, "predicates", "", "predicates table, CSV or Parquet (required)")
	extractCmd.Flags().StringVar(&extractOutputPath, "output", "", "result table output path, CSV or Parquet (required)")
	extractCmd.Flags().StringVar(&extractShard, "shard", "", "shard this run as N/K (e.g. 0/4), for per-shard subject partitioning")
	extractCmd.Flags().BoolVar(&extractTUI, "tui", false, "show a live progress dashboard while shards run")
	extractCmd.MarkFlagRequired("config")
	extractCmd.MarkFlagRequired("predicates")
	extractCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	shardIndex, shardCount, err := parseShard(extractShard)
	if err != nil {
		return err
	}

	ledger, err := acesrun.Open(GetRunDBPath())
	if err != nil {
		return fmt.Errorf("opening run ledger: %w", err)
	}
	defer ledger.Close()

	runID, err := ledger.Start(extractConfigPath, extractPredicatesPath, shardIndex, shardCount)
	if err != nil {
		return fmt.Errorf("starting run: %w", err)
	}

	type outcome struct {
		rowCount int64
		err      error
	}
	done := make(chan outcome, 1)
	go func() {
		rowCount, err := doExtract(shardIndex, shardCount)
		done <- outcome{rowCount, err}
	}()

	if extractTUI {
		// Run the dashboard in the foreground while extraction proceeds on
		// the goroutine above; the user quits it once the run settles.
		if err := tui.Run(GetRunDBPath(), shardCount); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "aces: dashboard exited:", err)
		}
	}

	out := <-done
	rowCount, runErr := out.rowCount, out.err
	if runErr != nil {
		if failErr := ledger.Fail(runID, runErr); failErr != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "aces: recording failed run:", failErr)
		}
		return runErr
	}

	if err := ledger.Succeed(runID, extractOutputPath, rowCount); err != nil {
		return fmt.Errorf("recording successful run: %w", err)
	}

	if IsVerbose() || !IsJSON() {
		fmt.Printf("aces: extracted %d rows -> %s\n", rowCount, extractOutputPath)
	}
	return nil
}

func doExtract(shardIndex, shardCount int) (int64, error) {
	cfg, err := taskconfig.Load(extractConfigPath)
	if err != nil {
		return 0, err
	}

	tbl, err := loadExtractionPredicates(extractPredicatesPath, cfg.Predicates)
	if err != nil {
		return 0, err
	}
	if shardCount > 1 {
		tbl = shardTable(tbl, shardIndex, shardCount)
	}

	realizations := extract.Extract(tbl, cfg)
	rows := result.Shape(realizations, cfg)

	if err := writeResult(rows, cfg.Predicates.Names(), extractOutputPath); err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

// loadExtractionPredicates loads the plain predicate columns a task
// configuration names directly from the predicates file, then evaluates
// every derived predicate's and()/or() combination over them (§2 item 2).
// Only plain columns are selected from the raw file: a derived predicate's
// name never exists as a column there, it is computed afterward by
// predtable.ApplyDerived, mirroring the original implementation's
// get_predicates_df ("plain predicates" read from source, then "derived
// predicates" generated as columns).
func loadExtractionPredicates(path string, predicates *predicate.Set) (*predtable.Table, error) {
	var plainNames []string
	for _, name := range predicates.Names() {
		if _, ok := predicates.Derived(name); ok {
			continue
		}
		plainNames = append(plainNames, name)
	}

	tbl, err := loadPredicates(path, plainNames)
	if err != nil {
		return nil, err
	}
	if err := predtable.ApplyDerived(tbl, predicates); err != nil {
		return nil, err
	}
	return tbl, nil
}

func loadPredicates(path string, predicateNames []string) (*predtable.Table, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return predtable.LoadCSV(path, predicateNames)
	case ".parquet":
		return predtable.LoadParquet(path, predicateNames)
	default:
		return nil, fmt.Errorf("unsupported predicates file extension %q (want .csv or .parquet)", ext)
	}
}

func writeResult(rows []result.Row, predicateNames []string, path string) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return result.WriteCSV(rows, predicateNames, path)
	case ".parquet":
		return result.WriteParquet(rows, predicateNames, path)
	default:
		return fmt.Errorf("unsupported output file extension %q (want .csv or .parquet)", ext)
	}
}

// parseShard parses a "N/K" shard flag, returning (0, 1) for an unsharded
// run when raw is empty.
func parseShard(raw string) (index, count int, err error) {
	if raw == "" {
		return 0, 1, nil
	}
	parts := strings.SplitN(raw, "/", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid --shard %q, want N/K", raw)
	}
	index, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid --shard index %q: %w", parts[0], err)
	}
	count, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid --shard count %q: %w", parts[1], err)
	}
	if count < 1 || index < 0 || index >= count {
		return 0, 0, fmt.Errorf("invalid --shard %q: index must be in [0, count)", raw)
	}
	return index, count, nil
}

// shardTable restricts tbl to the rows belonging to subjects whose ID falls
// into this shard's partition (§5: "across shards... independent," subjects
// assigned to shards by subject_id modulo shard count).
func shardTable(tbl *predtable.Table, shardIndex, shardCount int) *predtable.Table {
	keep := make([]predtable.Row, 0)
	for _, g := range tbl.Groups() {
		if int(((g.SubjectID%int64(shardCount))+int64(shardCount))%int64(shardCount)) != shardIndex {
			continue
		}
		for i := g.Start; i < g.End; i++ {
			counts := make(map[string]int64, len(tbl.ColumnNames()))
			for _, c := range tbl.ColumnNames() {
				counts[c] = tbl.Columns[c][i]
			}
			keep = append(keep, predtable.Row{
				SubjectID: tbl.SubjectID[i],
				Timestamp: tbl.TimestampAt(i),
				Counts:    counts,
			})
		}
	}
	built, err := predtable.Build(keep)
	if err != nil {
		// Build only fails on contract violations already ruled out by the
		// unsharded table having passed validation once.
		return tbl
	}
	return built
}
