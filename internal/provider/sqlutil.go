package provider

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// readVerbs are the leading keywords that select the read path. The check
// is case-insensitive and looks only at the first word of the statement.
var readVerbs = []string{"SELECT", "SHOW", "EXPLAIN", "DESCRIBE", "WITH"}

// escapeLiteral doubles single quotes so a generated credential can sit
// inside a standard SQL string literal.
func escapeLiteral(v string) string {
	return strings.ReplaceAll(v, "'", "''")
}

// escapeLiteralMySQL additionally escapes backslashes, which MySQL treats
// as escape characters inside string literals.
func escapeLiteralMySQL(v string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v)
}

// isReadStatement classifies a statement as read-only by its leading verb.
func isReadStatement(statement string) bool {
	trimmed := strings.ToUpper(strings.TrimSpace(statement))
	for _, verb := range readVerbs {
		if strings.HasPrefix(trimmed, verb) {
			return true
		}
	}
	return false
}

// execSQL opens a connection with the given driver and DSN, classifies the
// statement and executes it. Driver-level failures of any kind come back as
// a failed result; this boundary never leaks an error to the caller.
func execSQL(ctx context.Context, driverName, dsn, engineLabel, statement string) *QueryResult {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return Fail("%s error: %v", engineLabel, err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return Fail("%s error: %v", engineLabel, err)
	}

	if isReadStatement(statement) {
		return querySQL(ctx, db, engineLabel, statement)
	}
	return execStatement(ctx, db, engineLabel, statement)
}

// querySQL runs the read path: the driver's lazy row sequence is
// materialized into ordered column/value mappings. Column declaration
// order is preserved; NULL maps to nil, never an empty string.
func querySQL(ctx context.Context, db *sql.DB, engineLabel, statement string) *QueryResult {
	rows, err := db.QueryContext(ctx, statement)
	if err != nil {
		return Fail("%s error: %v", engineLabel, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return Fail("%s error: %v", engineLabel, err)
	}

	out := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return Fail("%s error: %v", engineLabel, err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return Fail("%s error: %v", engineLabel, err)
	}

	return OK(fmt.Sprintf("query successful (%s)", engineLabel), columns, out)
}

// execStatement runs the write/command path and reports the affected-row
// count in the message.
func execStatement(ctx context.Context, db *sql.DB, engineLabel, statement string) *QueryResult {
	res, err := db.ExecContext(ctx, statement)
	if err != nil {
		return Fail("%s error: %v", engineLabel, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		// Some statements (DDL, for instance) expose no count.
		return OK(fmt.Sprintf("query successful (%s)", engineLabel), nil, nil)
	}
	return OK(fmt.Sprintf("query successful, rows affected: %d", affected), nil, nil)
}

// normalizeValue converts driver values into JSON-friendly ones.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return val
	}
}
