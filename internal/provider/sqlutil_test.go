package provider

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsReadStatement(t *testing.T) {
	tests := []struct {
		statement string
		want      bool
	}{
		{"SELECT * FROM grades", true},
		{"  select id from t", true},
		{"SHOW TABLES", true},
		{"EXPLAIN SELECT 1", true},
		{"DESCRIBE grades", true},
		{"WITH cte AS (SELECT 1) SELECT * FROM cte", true},
		{"UPDATE t SET x = 1", false},
		{"INSERT INTO t VALUES (1)", false},
		{"DELETE FROM t", false},
		{"CREATE TABLE t (id INT)", false},
		{"DROP TABLE t", false},
	}

	for _, tt := range tests {
		t.Run(tt.statement, func(t *testing.T) {
			assert.Equal(t, tt.want, isReadStatement(tt.statement))
		})
	}
}

func TestEscapeLiteral(t *testing.T) {
	// A credential containing a quote must survive embedding in the
	// bootstrap DDL instead of breaking every provisioning attempt.
	assert.Equal(t, "it''s a ''secret''", escapeLiteral("it's a 'secret'"))
	assert.Equal(t, `back\slash`, escapeLiteral(`back\slash`))
	assert.Equal(t, "plain", escapeLiteral("plain"))
}

func TestEscapeLiteralMySQL(t *testing.T) {
	assert.Equal(t, `it\'s`, escapeLiteralMySQL("it's"))
	assert.Equal(t, `back\\slash`, escapeLiteralMySQL(`back\slash`))
	assert.Equal(t, `\\\'`, escapeLiteralMySQL(`\'`))
	assert.Equal(t, "plain", escapeLiteralMySQL("plain"))
}

func TestQuerySQL_PreservesColumnOrderAndNulls(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	when := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	mock.ExpectQuery("SELECT \\* FROM grades").WillReturnRows(
		sqlmock.NewRows([]string{"zeta", "alpha", "taken_at"}).
			AddRow([]byte("97"), nil, when).
			AddRow([]byte("62"), []byte("bob"), when),
	)

	res := querySQL(context.Background(), db, "MySQL", "SELECT * FROM grades")

	require.True(t, res.Success)
	assert.Equal(t, []string{"zeta", "alpha", "taken_at"}, res.Columns)
	require.Len(t, res.Rows, 2)

	assert.Equal(t, "97", res.Rows[0]["zeta"])
	assert.Nil(t, res.Rows[0]["alpha"])
	assert.Equal(t, "bob", res.Rows[1]["alpha"])
	assert.Equal(t, "2026-03-14T09:26:53Z", res.Rows[0]["taken_at"])
}

func TestQuerySQL_EmptyResultIsEmptySlice(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT \\* FROM empty").WillReturnRows(
		sqlmock.NewRows([]string{"id"}),
	)

	res := querySQL(context.Background(), db, "PostgreSQL", "SELECT * FROM empty")

	require.True(t, res.Success)
	assert.NotNil(t, res.Rows)
	assert.Empty(t, res.Rows)
}

func TestQuerySQL_DriverErrorBecomesFailedResult(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT \\* FROM missing").
		WillReturnError(assert.AnError)

	res := querySQL(context.Background(), db, "MySQL", "SELECT * FROM missing")

	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "MySQL error")
	assert.Empty(t, res.Rows)
}

func TestExecStatement_ReportsAffectedRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE grades SET score = 100").
		WillReturnResult(sqlmock.NewResult(0, 3))

	res := execStatement(context.Background(), db, "MySQL", "UPDATE grades SET score = 100")

	require.True(t, res.Success)
	assert.Equal(t, "query successful, rows affected: 3", res.Message)
	assert.Empty(t, res.Rows)
}

func TestExecStatement_ErrorBecomesFailedResult(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DROP TABLE nope").WillReturnError(assert.AnError)

	res := execStatement(context.Background(), db, "SQL Server", "DROP TABLE nope")

	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "SQL Server error")
}

func TestNormalizeValue(t *testing.T) {
	when := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	assert.Nil(t, normalizeValue(nil))
	assert.Equal(t, "bytes", normalizeValue([]byte("bytes")))
	assert.Equal(t, "2026-01-02T03:04:05Z", normalizeValue(when))
	assert.Equal(t, int64(7), normalizeValue(int64(7)))
}
