package metadata

import (
	"context"
	"database/sql"
	"fmt"

	presto "github.com/ethanyzhang/prestotype"
	"github.com/ethanyzhang/prestotype/typesig"
	"golang.org/x/sync/errgroup"
)

// ColumnService reads and changes the columns of existing tables.
type ColumnService struct {
	db Querier
}

// NewColumnService returns a ColumnService that runs its statements on db.
func NewColumnService(db Querier) *ColumnService {
	return &ColumnService{db: db}
}

// Columns lists the columns of table with parsed types. A type the parser
// rejects fails the whole call.
func (s *ColumnService) Columns(ctx context.Context, table TableName) ([]presto.Column, error) {
	if err := table.validate(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, "SHOW COLUMNS FROM "+table.String())
	if err != nil {
		return nil, fmt.Errorf("metadata: describing %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}
	if len(names) < 2 {
		return nil, fmt.Errorf("metadata: SHOW COLUMNS returned %d columns, want at least 2", len(names))
	}

	var out []presto.Column
	for rows.Next() {
		// Column, Type, then Extra and Comment which are not used here.
		values := make([]sql.NullString, len(names))
		dest := make([]any, len(names))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("metadata: %w", err)
		}
		name, typ := values[0].String, values[1].String
		sig, err := typesig.Parse(typ)
		if err != nil {
			return nil, fmt.Errorf("metadata: %s column %s: %w", table, name, err)
		}
		out = append(out, presto.NewColumn(name, sig))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("metadata: describing %s: %w", table, err)
	}
	return out, nil
}

// TableColumns pairs a table with its columns.
type TableColumns struct {
	Table   TableName
	Columns []presto.Column
}

// DescribeTables runs Columns for every table with at most parallel calls in
// flight (unlimited if parallel < 1). Results keep the order of tables; the
// first failure cancels the rest.
func (s *ColumnService) DescribeTables(ctx context.Context, tables []TableName, parallel int) ([]TableColumns, error) {
	out := make([]TableColumns, len(tables))
	g, gctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, table := range tables {
		g.Go(func() error {
			cols, err := s.Columns(gctx, table)
			if err != nil {
				return err
			}
			out[i] = TableColumns{Table: table, Columns: cols}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// AddColumn adds column to table.
func (s *ColumnService) AddColumn(ctx context.Context, table TableName, column ColumnInfo) error {
	if err := table.validate(); err != nil {
		return err
	}
	def, err := columnDefinition(column)
	if err != nil {
		return err
	}
	return execDefinition(ctx, s.db, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", table, def))
}

// DropColumn removes the named column from table.
func (s *ColumnService) DropColumn(ctx context.Context, table TableName, column string) error {
	if err := table.validate(); err != nil {
		return err
	}
	if column == "" {
		return fmt.Errorf("metadata: no column given to drop from %s", table)
	}
	return execDefinition(ctx, s.db, fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", table, quoteIdent(column)))
}
