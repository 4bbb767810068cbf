package sql

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		query    string
		expected StatementType
	}{
		{"UPDATE t SET a = 1", UpdateStatementType},
		{"update t set a = 1", UpdateStatementType},
		{"INSERT INTO t VALUES (1)", InsertStatementType},
		{"  \n\tInsert into t values (1)", InsertStatementType},
		{";;; DELETE FROM t", DeleteStatementType},
		{"SELECT * FROM t", SelectStatementType},
		{"select;", SelectStatementType},
		{"BEGIN", BeginStatementType},
		{"begin transaction", BeginStatementType},
		{"COMMIT", CommitStatementType},
		{"ROLLBACK", RollbackStatementType},
		{"CREATE TABLE t (id INTEGER PRIMARY KEY)", OtherStatementType},
		{"REPLACE INTO t VALUES (1)", OtherStatementType},
		{"WITH x AS (SELECT 1) SELECT * FROM x", OtherStatementType},
		{"PRAGMA user_version", OtherStatementType},
		{"updates", OtherStatementType},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			statementType, err := Classify(tt.query)
			require.NoError(t, err)
			require.Equal(t, tt.expected, statementType)
		})
	}
}

func TestClassifyMalformed(t *testing.T) {
	for _, query := range []string{"", "   ", ";", " ; ;\n\t;"} {
		_, err := Classify(query)
		require.ErrorIs(t, err, ErrMalformedStatement, "query %q", query)
	}
}

func TestFirstWord(t *testing.T) {
	word, ok := FirstWord(" ;SELECT;* FROM t")
	require.True(t, ok)
	require.Equal(t, "SELECT", word)

	_, ok = FirstWord(";;")
	require.False(t, ok)
}

func TestIsTransactionControl(t *testing.T) {
	require.True(t, BeginStatementType.IsTransactionControl())
	require.True(t, CommitStatementType.IsTransactionControl())
	require.True(t, RollbackStatementType.IsTransactionControl())
	require.False(t, SelectStatementType.IsTransactionControl())
	require.False(t, OtherStatementType.IsTransactionControl())
}

func TestCountPlaceholders(t *testing.T) {
	tests := []struct {
		query    string
		expected int
	}{
		{"SELECT 1", 0},
		{"INSERT INTO t VALUES (?)", 1},
		{"INSERT INTO t VALUES (?, ?, ?)", 3},
		{"SELECT * FROM t WHERE a = ?2 AND b = ?1", 2},
		{"SELECT ?5", 5},
		{"SELECT * FROM t WHERE a = :a AND b = :b AND c = :a", 2},
		{"SELECT * FROM t WHERE a = @x OR b = $y", 2},
		{"SELECT $1, $2", 2},
		{"INSERT INTO t VALUES ($2)", 1},
		{"SELECT $1, $1", 1},
		{"SELECT ?3, $1", 4},
		{"SELECT '?' , \"?col\", `?`, [?] FROM t WHERE a = ?", 1},
		{"SELECT 'it''s ?' WHERE a = ?", 1},
		{"SELECT a -- is it ?\nFROM t WHERE b = ?", 1},
		{"SELECT /* ? ? */ ?", 1},
		{"SELECT a::INTEGER FROM t WHERE b = ?", 1},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			require.Equal(t, tt.expected, CountPlaceholders(tt.query))
		})
	}
}

func TestCountPlaceholdersNumberedDollar(t *testing.T) {
	tests := []struct {
		query    string
		expected int
	}{
		{"INSERT INTO t VALUES ($2)", 2},
		{"SELECT $1, $2, $1", 2},
		{"SELECT * FROM t WHERE a = $name AND b = ?", 2},
		{"SELECT '$3' WHERE a = $1", 1},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			require.Equal(t, tt.expected, CountPlaceholdersStyle(tt.query, NumberedDollar))
		})
	}
}
