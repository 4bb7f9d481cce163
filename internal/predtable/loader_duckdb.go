package predtable

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
)

// LoadCSV and LoadParquet are the ingestion-collaborator role named in §1
// ("Source-format ingestion... must produce the predicates table defined in
// §3") and §3's note that "accepted file formats at the external boundary
// are delegated to collaborators." DuckDB's vectorized CSV/Parquet readers
// do the file-format work; this package only reshapes the result into a
// Table and hands it to the sort/validate pipeline in Build.

// LoadCSV reads a predicates-table CSV file through DuckDB's read_csv_auto
// and returns the resulting Table.
func LoadCSV(path string, predicateCols []string) (*Table, error) {
	return loadVia(fmt.Sprintf("read_csv_auto(%s)", quoteLiteral(path)), predicateCols)
}

// LoadParquet reads a predicates-table Parquet file through DuckDB's
// read_parquet and returns the resulting Table.
func LoadParquet(path string, predicateCols []string) (*Table, error) {
	return loadVia(fmt.Sprintf("read_parquet(%s)", quoteLiteral(path)), predicateCols)
}

func loadVia(source string, predicateCols []string) (*Table, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("predtable: opening in-process duckdb: %w", err)
	}
	defer db.Close()

	cols := make([]string, 0, len(predicateCols)+2)
	cols = append(cols, "subject_id", "timestamp")
	cols = append(cols, predicateCols...)

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY subject_id, timestamp", strings.Join(cols, ", "), source)
	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("predtable: querying %s: %w", source, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		scanDest := make([]any, len(cols))
		var subjectID int64
		var ts time.Time
		scanDest[0] = &subjectID
		scanDest[1] = &ts
		values := make([]int64, len(predicateCols))
		for i := range predicateCols {
			scanDest[i+2] = &values[i]
		}
		if err := rows.Scan(scanDest...); err != nil {
			return nil, fmt.Errorf("predtable: scanning row from %s: %w", source, err)
		}
		counts := make(map[string]int64, len(predicateCols))
		for i, name := range predicateCols {
			counts[name] = values[i]
		}
		out = append(out, Row{SubjectID: subjectID, Timestamp: ts, Counts: counts})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("predtable: reading rows from %s: %w", source, err)
	}

	return Build(out)
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// PeekColumns reports every predicate column name present in a CSV or
// Parquet predicates-table file (every column other than subject_id and
// timestamp), for callers like `aces shard` that need to load a table
// without a task configuration naming its predicates up front.
func PeekColumns(path string) ([]string, error) {
	var source string
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		source = fmt.Sprintf("read_csv_auto(%s)", quoteLiteral(path))
	case ".parquet":
		source = fmt.Sprintf("read_parquet(%s)", quoteLiteral(path))
	default:
		return nil, fmt.Errorf("predtable: unsupported file extension %q", ext)
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("predtable: opening in-process duckdb: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(fmt.Sprintf("DESCRIBE SELECT * FROM %s", source))
	if err != nil {
		return nil, fmt.Errorf("predtable: describing %s: %w", source, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name, colType, null, key, def, extra sql.NullString
		if err := rows.Scan(&name, &colType, &null, &key, &def, &extra); err != nil {
			return nil, fmt.Errorf("predtable: scanning column description: %w", err)
		}
		if name.String == "subject_id" || name.String == "timestamp" {
			continue
		}
		out = append(out, name.String)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("predtable: reading column descriptions: %w", err)
	}
	return out, nil
}
