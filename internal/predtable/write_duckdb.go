package predtable

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"
)

// WriteParquet persists tbl to a Parquet file at path, for the `aces shard`
// command's per-shard predicate-table files. Mirrors internal/result's
// insert-via-prepared-statement-then-COPY style so both packages' only
// DuckDB usage is this one load/store idiom.
func WriteParquet(tbl *Table, path string) error {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return fmt.Errorf("predtable: opening in-process duckdb: %w", err)
	}
	defer db.Close()

	cols := tbl.ColumnNames()
	var create strings.Builder
	create.WriteString("CREATE TABLE aces_shard (subject_id BIGINT, timestamp TIMESTAMP")
	for _, c := range cols {
		fmt.Fprintf(&create, ", %s BIGINT", sqlIdent(c))
	}
	create.WriteString(")")
	if _, err := db.Exec(create.String()); err != nil {
		return fmt.Errorf("predtable: creating shard table: %w", err)
	}

	insertCols := append([]string{"subject_id", "timestamp"}, quoteIdents(cols)...)
	placeholders := make([]string, len(insertCols))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	insertSQL := fmt.Sprintf("INSERT INTO aces_shard (%s) VALUES (%s)", strings.Join(insertCols, ", "), strings.Join(placeholders, ", "))

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("predtable: starting transaction: %w", err)
	}
	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("predtable: preparing insert: %w", err)
	}
	for i := 0; i < tbl.NumRows(); i++ {
		args := make([]any, 0, len(insertCols))
		args = append(args, tbl.SubjectID[i], tbl.TimestampAt(i))
		for _, c := range cols {
			args = append(args, tbl.Columns[c][i])
		}
		if _, err := stmt.Exec(args...); err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("predtable: inserting shard row %d: %w", i, err)
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("predtable: committing shard rows: %w", err)
	}

	copySQL := fmt.Sprintf("COPY aces_shard TO %s (FORMAT PARQUET)", quoteLiteral(path))
	if _, err := db.Exec(copySQL); err != nil {
		return fmt.Errorf("predtable: writing %s: %w", path, err)
	}
	return nil
}

func quoteIdents(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = sqlIdent(n)
	}
	return out
}

func sqlIdent(s string) string { return strings.ReplaceAll(s, " ", "_") }
