package tools

import (
	"errors"
	"strings"
)

type StatementKind int

const (
	StatementRead StatementKind = iota
	StatementWrite
)

var (
	ErrEmptyStatement     = errors.New("empty SQL statement")
	ErrMultipleStatements = errors.New("only one SQL statement is allowed")
	ErrUnknownStatement   = errors.New("unsupported SQL statement")
)

var (
	readKeywords  = []string{"SELECT", "WITH", "EXPLAIN", "SHOW", "VALUES", "TABLE"}
	writeKeywords = []string{"INSERT", "UPDATE", "DELETE", "MERGE", "CREATE", "ALTER", "DROP", "TRUNCATE", "GRANT", "REVOKE", "COMMENT"}
)

// ClassifySQL reports whether stmt reads or writes. It looks only at the
// leading keyword; read statements still run in a read-only transaction.
func ClassifySQL(stmt string) (StatementKind, error) {
	s := stripLeadingComments(stmt)
	s = strings.TrimRight(strings.TrimSpace(s), "; \t\r\n")
	if s == "" {
		return 0, ErrEmptyStatement
	}
	if strings.Contains(s, ";") {
		return 0, ErrMultipleStatements
	}

	keyword := strings.ToUpper(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '('
	})[0])
	for _, k := range readKeywords {
		if keyword == k {
			return StatementRead, nil
		}
	}
	for _, k := range writeKeywords {
		if keyword == k {
			return StatementWrite, nil
		}
	}
	return 0, ErrUnknownStatement
}

func stripLeadingComments(s string) string {
	for {
		s = strings.TrimSpace(s)
		switch {
		case strings.HasPrefix(s, "--"):
			i := strings.IndexByte(s, '\n')
			if i < 0 {
				return ""
			}
			s = s[i+1:]
		case strings.HasPrefix(s, "/*"):
			i := strings.Index(s, "*/")
			if i < 0 {
				return ""
			}
			s = s[i+2:]
		default:
			return s
		}
	}
}
