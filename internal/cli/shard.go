package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/n0roo/aces/internal/predtable"
)

var (
	shardPredicatesPath string
	shardCountFlag      int
	shardOutputDir      string
)

var shardCmd = &cobra.Command{
	Use:   "shard",
	Short: "Split a predicates table into per-shard files by subject_id",
	RunE:  runShard,
}

func init() {
	shardCmd.Flags().StringVar(&shardPredicatesPath, "predicates", "", "predicates table, CSV or Parquet (required)")
	shardCmd.Flags().IntVar(&shardCountFlag, "shards", 0, "number of shards to split into (required)")
	shardCmd.Flags().StringVar(&shardOutputDir, "output-dir", "", "directory to write shard-N.parquet files into (required)")
	shardCmd.MarkFlagRequired("predicates")
	shardCmd.MarkFlagRequired("shards")
	shardCmd.MarkFlagRequired("output-dir")
	rootCmd.AddCommand(shardCmd)
}

func runShard(cmd *cobra.Command, args []string) error {
	if shardCountFlag < 1 {
		return fmt.Errorf("--shards must be at least 1")
	}

	// Without a task configuration, every column in the source file is a
	// predicate column as far as the splitter is concerned: it only needs
	// subject_id to assign shards, not the predicate semantics.
	cols, err := predtable.PeekColumns(shardPredicatesPath)
	if err != nil {
		return err
	}
	tbl, err := loadPredicates(shardPredicatesPath, cols)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(shardOutputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", shardOutputDir, err)
	}

	for i := 0; i < shardCountFlag; i++ {
		shard := shardTable(tbl, i, shardCountFlag)
		path := filepath.Join(shardOutputDir, fmt.Sprintf("shard-%d.parquet", i))
		if err := predtable.WriteParquet(shard, path); err != nil {
			return err
		}
		if IsVerbose() {
			fmt.Printf("aces: wrote %s (%d rows)\n", path, shard.NumRows())
		}
	}

	fmt.Printf("aces: split %s into %d shards under %s\n", shardPredicatesPath, shardCountFlag, shardOutputDir)
	return nil
}
