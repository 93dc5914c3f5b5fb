package presto

import (
	"context"
	"database/sql/driver"
	"io"
	"reflect"
	"strings"

	"github.com/ethanyzhang/prestotype/typesig"
)

// rows walks the reply chain of a query batch by batch.
type rows struct {
	ctx     context.Context
	qr      *QueryResults
	columns []column
	batch   [][]any
	pos     int
	closed  bool
}

var (
	_ driver.Rows                           = (*rows)(nil)
	_ driver.RowsColumnTypeDatabaseTypeName = (*rows)(nil)
	_ driver.RowsColumnTypeScanType         = (*rows)(nil)
	_ driver.RowsColumnTypeLength           = (*rows)(nil)
	_ driver.RowsColumnTypePrecisionScale   = (*rows)(nil)
	_ driver.RowsColumnTypeNullable         = (*rows)(nil)
)

func newRows(ctx context.Context, qr *QueryResults) (*rows, error) {
	cols, err := newColumns(qr.Columns)
	if err != nil {
		return nil, err
	}
	r := &rows{ctx: ctx, qr: qr, columns: cols}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *rows) load() error {
	batch, err := r.qr.Rows()
	if err != nil {
		return err
	}
	r.batch, r.pos = batch, 0
	return nil
}

func (r *rows) Columns() []string {
	names := make([]string, len(r.columns))
	for i, c := range r.columns {
		names[i] = c.Name
	}
	return names
}

// Close cancels the query on the coordinator when rows are left unread.
func (r *rows) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.qr.HasMoreBatch() {
		_, err := r.qr.session.CancelQuery(context.Background(), *r.qr.NextURI)
		return err
	}
	return nil
}

func (r *rows) Next(dest []driver.Value) error {
	if r.closed {
		return io.EOF
	}
	for r.pos >= len(r.batch) {
		if !r.qr.HasMoreBatch() {
			return io.EOF
		}
		if err := r.qr.FetchNextBatch(r.ctx); err != nil {
			return err
		}
		if err := r.load(); err != nil {
			return err
		}
	}

	row := r.batch[r.pos]
	r.pos++
	for i, c := range r.columns {
		if i >= len(row) {
			dest[i] = nil
			continue
		}
		v, err := c.convert(row[i])
		if err != nil {
			return err
		}
		dest[i] = v
	}
	return nil
}

func (r *rows) sig(index int) *typesig.TypeSignature {
	if index < 0 || index >= len(r.columns) {
		return nil
	}
	return r.columns[index].sig
}

// ColumnTypeDatabaseTypeName returns the upper-cased base name, e.g.
// "DECIMAL" for decimal(10,2).
func (r *rows) ColumnTypeDatabaseTypeName(index int) string {
	if sig := r.sig(index); sig != nil {
		return strings.ToUpper(sig.Base())
	}
	return ""
}

func (r *rows) ColumnTypeScanType(index int) reflect.Type {
	if sig := r.sig(index); sig != nil {
		return scanType(sig)
	}
	return scanString
}

func (r *rows) ColumnTypeLength(index int) (int64, bool) {
	if sig := r.sig(index); sig != nil {
		return typeLength(sig)
	}
	return 0, false
}

func (r *rows) ColumnTypePrecisionScale(index int) (int64, int64, bool) {
	if sig := r.sig(index); sig != nil {
		return precisionScale(sig)
	}
	return 0, 0, false
}

// ColumnTypeNullable is unknown: the protocol carries no nullability.
func (r *rows) ColumnTypeNullable(index int) (bool, bool) {
	return false, false
}
