package metadata

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const clicksYAML = `
catalog: hive
schema: web
table: clicks
comment: raw click stream
columns:
  - name: id
    type: BIGINT
  - name: referrer
    type: row(host varchar, path varchar(200))
  - name: tags
    type: array( varchar )
    comment: free-form
  - name: ds
    type: varchar
properties:
  format: ORC
  partitioned_by: [ds]
`

func TestLoadTableInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clicks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(clicksYAML), 0o600))

	info, err := LoadTableInfo(path)
	require.NoError(t, err)
	assert.Equal(t, TableName{"hive", "web", "clicks"}, info.TableName)
	assert.Equal(t, "raw click stream", info.Comment)
	require.Len(t, info.Columns, 4)
	assert.Equal(t, ColumnInfo{Name: "tags", Type: "array( varchar )", Comment: "free-form"}, info.Columns[2])
	assert.Equal(t, "ORC", info.Properties["format"])
	assert.Equal(t, []any{"ds"}, info.Properties["partitioned_by"])
}

func TestLoadTableInfo_Missing(t *testing.T) {
	_, err := LoadTableInfo(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDecodeTableInfo_Errors(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		errMsg string
	}{
		{name: "empty", doc: "", errMsg: "empty table definition"},
		{name: "unknown key", doc: "catalog: a\nschema: b\ntable: c\nowner: me\ncolumns: [{name: x, type: bigint}]", errMsg: "owner"},
		{name: "missing table", doc: "catalog: a\nschema: b\ncolumns: [{name: x, type: bigint}]", errMsg: "incomplete table name"},
		{name: "no columns", doc: "catalog: a\nschema: b\ntable: c", errMsg: "has no columns"},
		{name: "unnamed column", doc: "catalog: a\nschema: b\ntable: c\ncolumns: [{type: bigint}]", errMsg: "has no name"},
		{name: "duplicate column", doc: "catalog: a\nschema: b\ntable: c\ncolumns: [{name: x, type: bigint}, {name: X, type: double}]", errMsg: "appears twice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeTableInfo(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestBuildCreateTable(t *testing.T) {
	info, err := DecodeTableInfo(strings.NewReader(clicksYAML))
	require.NoError(t, err)

	got, err := BuildCreateTable(*info)
	require.NoError(t, err)
	want := "CREATE TABLE IF NOT EXISTS hive.web.clicks (\n" +
		"  id bigint,\n" +
		"  referrer row(host varchar,path varchar(200)),\n" +
		"  tags array(varchar) COMMENT 'free-form',\n" +
		"  ds varchar\n" +
		")\n" +
		"COMMENT 'raw click stream'\n" +
		"WITH (format = 'ORC', partitioned_by = ARRAY['ds'])"
	assert.Equal(t, want, got)
}

func TestBuildCreateTable_BadType(t *testing.T) {
	info := TableInfo{
		TableName: TableName{"hive", "web", "t"},
		Columns:   []ColumnInfo{{Name: "x", Type: "row(a bigint"}},
	}
	_, err := BuildCreateTable(info)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "column x")
}
