package metadata

import (
	"context"
	"fmt"
	"strings"
)

// TableService creates, drops and renames tables.
type TableService struct {
	db Querier
}

// NewTableService returns a TableService that runs its statements on db.
func NewTableService(db Querier) *TableService {
	return &TableService{db: db}
}

// BuildCreateTable renders the CREATE TABLE statement for info without
// running it. Column types are parsed and written in canonical form, so a
// malformed type fails here rather than on the server.
func BuildCreateTable(info TableInfo) (string, error) {
	if err := info.validate(); err != nil {
		return "", fmt.Errorf("metadata: %w", err)
	}

	defs := make([]string, len(info.Columns))
	for i, c := range info.Columns {
		def, err := columnDefinition(c)
		if err != nil {
			return "", err
		}
		defs[i] = def
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", info.TableName, strings.Join(defs, ",\n  "))
	if info.Comment != "" {
		b.WriteString("\nCOMMENT " + quoteString(info.Comment))
	}
	if len(info.Properties) > 0 {
		props, err := propertyList(info.Properties)
		if err != nil {
			return "", err
		}
		b.WriteString("\nWITH (" + props + ")")
	}
	return b.String(), nil
}

// CreateTable creates the table described by info unless it exists.
func (s *TableService) CreateTable(ctx context.Context, info TableInfo) error {
	statement, err := BuildCreateTable(info)
	if err != nil {
		return err
	}
	return execDefinition(ctx, s.db, statement)
}

// DropTable drops table if it exists.
func (s *TableService) DropTable(ctx context.Context, table TableName) error {
	if err := table.validate(); err != nil {
		return err
	}
	return execDefinition(ctx, s.db, "DROP TABLE IF EXISTS "+table.String())
}

// RenameTable renames from to to. Both must be in the same catalog.
func (s *TableService) RenameTable(ctx context.Context, from, to TableName) error {
	if err := from.validate(); err != nil {
		return err
	}
	if err := to.validate(); err != nil {
		return err
	}
	if from.Catalog != to.Catalog {
		return fmt.Errorf("metadata: cannot rename %s across catalogs to %s", from, to)
	}
	return execDefinition(ctx, s.db, fmt.Sprintf("ALTER TABLE %s RENAME TO %s", from, to))
}
