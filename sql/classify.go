package sql

import (
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// StatementType is the kind of a statement, decided by its first word.
type StatementType int

const (
	UpdateStatementType StatementType = iota
	InsertStatementType
	DeleteStatementType
	SelectStatementType
	BeginStatementType
	CommitStatementType
	RollbackStatementType
	// OtherStatementType covers DDL, pragmas and anything else run as a query.
	OtherStatementType
)

// ErrMalformedStatement is returned for statements without a first word.
var ErrMalformedStatement = errors.New("query not found")

var keywords = map[string]StatementType{
	"update":   UpdateStatementType,
	"insert":   InsertStatementType,
	"delete":   DeleteStatementType,
	"select":   SelectStatementType,
	"begin":    BeginStatementType,
	"commit":   CommitStatementType,
	"rollback": RollbackStatementType,
}

func (t StatementType) String() string {
	switch t {
	case UpdateStatementType:
		return "update"
	case InsertStatementType:
		return "insert"
	case DeleteStatementType:
		return "delete"
	case SelectStatementType:
		return "select"
	case BeginStatementType:
		return "begin"
	case CommitStatementType:
		return "commit"
	case RollbackStatementType:
		return "rollback"
	default:
		return "other"
	}
}

// IsTransactionControl reports whether the statement drives the
// transaction state rather than touching data.
func (t StatementType) IsTransactionControl() bool {
	return t == BeginStatementType || t == CommitStatementType || t == RollbackStatementType
}

func isDelimiter(r rune) bool {
	return r == ';' || unicode.IsSpace(r)
}

// FirstWord returns the first whitespace or semicolon delimited token of
// the statement, skipping any leading delimiters.
func FirstWord(query string) (string, bool) {
	start := strings.IndexFunc(query, func(r rune) bool { return !isDelimiter(r) })
	if start < 0 {
		return "", false
	}
	rest := query[start:]
	end := strings.IndexFunc(rest, isDelimiter)
	if end < 0 {
		end = len(rest)
	}
	return rest[:end], true
}

// Classify categorizes a statement by its leading keyword.
func Classify(query string) (StatementType, error) {
	word, ok := FirstWord(query)
	if !ok {
		return OtherStatementType, ErrMalformedStatement
	}

	if statementType, found := keywords[strings.ToLower(word)]; found {
		return statementType, nil
	}
	return OtherStatementType, nil
}
