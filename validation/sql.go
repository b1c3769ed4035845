package validation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"
)

// SQLValidator checks generated SQL without touching the target database.
// Statements are parsed by an in-memory DuckDB; with Lenient set only a
// lexical check runs, for dialects DuckDB cannot parse (T-SQL).
type SQLValidator struct {
	db      *sql.DB
	Lenient bool
}

func NewSQLValidator(lenient bool) (*SQLValidator, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	return &SQLValidator{db: db, Lenient: lenient}, nil
}

func (v *SQLValidator) Close() error {
	return v.db.Close()
}

type serializedSQL struct {
	Error        bool              `json:"error"`
	ErrorType    string            `json:"error_type"`
	ErrorMessage string            `json:"error_message"`
	Statements   []json.RawMessage `json:"statements"`
}

// IsSQLValid reports whether sql is exactly one read-only SELECT (or WITH ... SELECT) statement.
func (v *SQLValidator) IsSQLValid(ctx context.Context, sql string) bool {
	statements := SplitStatements(sql)
	if len(statements) != 1 || !startsWithQueryKeyword(statements[0]) {
		return false
	}
	if v.Lenient {
		return true
	}

	var raw string
	// json_serialize_sql only serializes SELECT statements and reports parse errors in its output.
	if err := v.db.QueryRowContext(ctx, "SELECT json_serialize_sql(?)", statements[0]).Scan(&raw); err != nil {
		return false
	}
	var parsed serializedSQL
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return false
	}
	return !parsed.Error && len(parsed.Statements) == 1
}

func startsWithQueryKeyword(statement string) bool {
	fields := strings.Fields(stripComments(statement))
	if len(fields) == 0 {
		return false
	}
	first := strings.ToUpper(strings.TrimLeft(fields[0], "("))
	return first == "SELECT" || first == "WITH"
}

// SplitStatements splits sql on semicolons outside quotes and comments and
// drops empty statements.
func SplitStatements(sql string) []string {
	var (
		statements []string
		current    strings.Builder
		quote      rune
		inLine     bool
		inBlock    bool
	)
	runes := []rune(sql)
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" && strings.TrimSpace(stripComments(s)) != "" {
			statements = append(statements, s)
		}
		current.Reset()
	}
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		next := rune(0)
		if i+1 < len(runes) {
			next = runes[i+1]
		}
		switch {
		case inLine:
			if r == '\n' {
				inLine = false
			}
		case inBlock:
			if r == '*' && next == '/' {
				inBlock = false
				current.WriteRune(r)
				current.WriteRune(next)
				i++
				continue
			}
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '-' && next == '-':
			inLine = true
		case r == '/' && next == '*':
			inBlock = true
		case r == ';':
			flush()
			continue
		}
		current.WriteRune(r)
	}
	flush()
	return statements
}

func stripComments(sql string) string {
	var out strings.Builder
	for _, line := range strings.Split(sql, "\n") {
		if idx := strings.Index(line, "--"); idx >= 0 {
			line = line[:idx]
		}
		out.WriteString(line)
		out.WriteString("\n")
	}
	text := out.String()
	for {
		start := strings.Index(text, "/*")
		if start < 0 {
			break
		}
		end := strings.Index(text[start+2:], "*/")
		if end < 0 {
			text = text[:start]
			break
		}
		text = text[:start] + " " + text[start+2+end+2:]
	}
	return text
}
