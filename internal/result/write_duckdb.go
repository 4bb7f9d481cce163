package result

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
)

// WriteCSV and WriteParquet are the optional persistence adapter named in
// §1/§4.6: the core returns a []Row, and this thin layer is the only place
// a database driver is loaded to get it onto disk, following the teacher's
// internal/db/duckdb.go pattern of opening an in-process engine, loading
// rows through a prepared statement, then letting the engine's own COPY
// machinery handle the file format.
func WriteCSV(rows []Row, predicateNames []string, path string) error {
	return write(rows, predicateNames, fmt.Sprintf("COPY aces_result TO %s (HEADER, DELIMITER ',')", quoteLiteral(path)))
}

func WriteParquet(rows []Row, predicateNames []string, path string) error {
	return write(rows, predicateNames, fmt.Sprintf("COPY aces_result TO %s (FORMAT PARQUET)", quoteLiteral(path)))
}

func write(rows []Row, predicateNames []string, copyStmt string) error {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return fmt.Errorf("result: opening in-process duckdb: %w", err)
	}
	defer db.Close()

	windowNames := windowNamesOf(rows)
	if _, err := db.Exec(createTableSQL(windowNames, predicateNames)); err != nil {
		return fmt.Errorf("result: creating output table: %w", err)
	}

	insertSQL, argCount := insertSQLFor(windowNames, predicateNames)
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("result: starting transaction: %w", err)
	}
	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("result: preparing insert: %w", err)
	}
	for _, r := range rows {
		args := make([]any, 0, argCount)
		args = append(args, r.SubjectID, nullableTime(r.IndexTimestamp), nullableInt(r.Label), microsToTime(r.TriggerTime))
		for _, ws := range r.Windows {
			args = append(args, microsToTime(ws.Start), microsToTime(ws.End))
			for _, p := range predicateNames {
				args = append(args, ws.Counts[p])
			}
		}
		if _, err := stmt.Exec(args...); err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("result: inserting row for subject %d: %w", r.SubjectID, err)
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("result: committing rows: %w", err)
	}

	if _, err := db.Exec(copyStmt); err != nil {
		return fmt.Errorf("result: copying output: %w", err)
	}
	return nil
}

func windowNamesOf(rows []Row) []string {
	if len(rows) == 0 {
		return nil
	}
	out := make([]string, len(rows[0].Windows))
	for i, ws := range rows[0].Windows {
		out[i] = ws.Name
	}
	return out
}

func createTableSQL(windowNames, predicateNames []string) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE aces_result (subject_id BIGINT, index_timestamp TIMESTAMP, label BIGINT, trigger_ts TIMESTAMP")
	for _, w := range windowNames {
		fmt.Fprintf(&b, ", %s_start TIMESTAMP, %s_end TIMESTAMP", sqlIdent(w), sqlIdent(w))
		for _, p := range predicateNames {
			fmt.Fprintf(&b, ", %s_%s BIGINT", sqlIdent(w), sqlIdent(p))
		}
	}
	b.WriteString(")")
	return b.String()
}

func insertSQLFor(windowNames, predicateNames []string) (string, int) {
	cols := []string{"subject_id", "index_timestamp", "label", "trigger_ts"}
	for _, w := range windowNames {
		cols = append(cols, sqlIdent(w)+"_start", sqlIdent(w)+"_end")
		for _, p := range predicateNames {
			cols = append(cols, sqlIdent(w)+"_"+sqlIdent(p))
		}
	}
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = "?"
	}
	stmt := fmt.Sprintf("INSERT INTO aces_result (%s) VALUES (%s)", strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	return stmt, len(cols)
}

func sqlIdent(s string) string {
	return strings.ReplaceAll(s, " ", "_")
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func microsToTime(micros int64) time.Time {
	return time.UnixMicro(micros).UTC()
}

func nullableTime(p *int64) any {
	if p == nil {
		return nil
	}
	return microsToTime(*p)
}

func nullableInt(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}
