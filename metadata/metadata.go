// Package metadata reads and changes table definitions through a Presto or
// Trino connection. Column types go through package typesig in both
// directions: types read from the server are parsed, and types written to it
// are validated and put in canonical form first.
package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// Querier is the part of *sql.DB the services use.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// --- Names ---

// TableName is a fully qualified table name.
type TableName struct {
	Catalog string `json:"catalog" yaml:"catalog"`
	Schema  string `json:"schema" yaml:"schema"`
	Table   string `json:"table" yaml:"table"`
}

// ParseTableName splits "catalog.schema.table". Parts may be double-quoted
// to contain dots.
func ParseTableName(name string) (TableName, error) {
	parts, err := splitQualified(name)
	if err != nil {
		return TableName{}, err
	}
	if len(parts) != 3 {
		return TableName{}, fmt.Errorf("metadata: table name %q is not catalog.schema.table", name)
	}
	return TableName{Catalog: parts[0], Schema: parts[1], Table: parts[2]}, nil
}

// String returns the name as SQL, quoting parts where needed.
func (n TableName) String() string {
	return quoteIdent(n.Catalog) + "." + quoteIdent(n.Schema) + "." + quoteIdent(n.Table)
}

func (n TableName) validate() error {
	if n.Catalog == "" || n.Schema == "" || n.Table == "" {
		return fmt.Errorf("metadata: incomplete table name %q", n.Catalog+"."+n.Schema+"."+n.Table)
	}
	return nil
}

func splitQualified(name string) ([]string, error) {
	var (
		parts  []string
		b      strings.Builder
		quoted bool
	)
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '"' && quoted && i+1 < len(name) && name[i+1] == '"':
			b.WriteByte('"')
			i++
		case c == '"':
			quoted = !quoted
		case c == '.' && !quoted:
			parts = append(parts, b.String())
			b.Reset()
		default:
			b.WriteByte(c)
		}
	}
	if quoted {
		return nil, fmt.Errorf("metadata: unterminated quote in %q", name)
	}
	parts = append(parts, b.String())
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("metadata: empty name part in %q", name)
		}
	}
	return parts, nil
}

// quoteIdent leaves lower-case identifiers alone and double-quotes the rest.
func quoteIdent(name string) string {
	if isPlainIdent(name) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func isPlainIdent(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c == '_':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// --- Statements ---

// StatementError is a definition statement the server ran without
// acknowledging it.
type StatementError struct {
	Statement string
	Reason    string
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("metadata: statement not acknowledged (%s): %s", e.Reason, e.Statement)
}

// execDefinition runs a DDL statement. The server acknowledges one either
// with no result columns or with a single row holding boolean true.
func execDefinition(ctx context.Context, db Querier, statement string) error {
	log.Debug().Str("statement", statement).Msg("running definition statement")

	rows, err := db.QueryContext(ctx, statement)
	if err != nil {
		log.Warn().Err(err).Str("statement", statement).Msg("definition statement failed")
		return fmt.Errorf("metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("metadata: %w", err)
	}
	if len(cols) == 0 {
		return nil
	}
	if len(cols) != 1 {
		return &StatementError{Statement: statement, Reason: fmt.Sprintf("%d result columns", len(cols))}
	}

	var (
		acked bool
		n     int
	)
	for rows.Next() {
		n++
		var result sql.NullBool
		if err := rows.Scan(&result); err != nil {
			return &StatementError{Statement: statement, Reason: err.Error()}
		}
		acked = result.Valid && result.Bool
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("metadata: %w", err)
	}
	if n != 1 || !acked {
		return &StatementError{Statement: statement, Reason: fmt.Sprintf("%d result rows, acknowledged=%t", n, acked)}
	}
	return nil
}

// queryStrings runs a statement whose first column is text and collects it.
func queryStrings(ctx context.Context, db Querier, statement string) ([]string, error) {
	log.Debug().Str("statement", statement).Msg("running metadata query")

	rows, err := db.QueryContext(ctx, statement)
	if err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("metadata: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}
	return out, nil
}
