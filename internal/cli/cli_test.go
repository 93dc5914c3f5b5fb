package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	presto "github.com/ethanyzhang/prestotype"
	"github.com/ethanyzhang/prestotype/prestotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestParse(t *testing.T) {
	t.Run("table", func(t *testing.T) {
		out, err := run(t, "parse", "map(varchar(10), bigint)")
		require.NoError(t, err)
		assert.Contains(t, out, "map(varchar(10),bigint)")
		assert.Contains(t, out, "$.0.0")
		assert.Contains(t, out, "LONG")
	})

	t.Run("json", func(t *testing.T) {
		out, err := run(t, "parse", "-o", "json", "row(a bigint, \"b c\" array(double))")
		require.NoError(t, err)

		var got []struct {
			Signature string `json:"signature"`
			Nodes     []node `json:"nodes"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		require.Len(t, got, 1)
		assert.Equal(t, `row(a bigint,"b c" array(double))`, got[0].Signature)
		require.Len(t, got[0].Nodes, 4)
		assert.Equal(t, node{Path: "$.1", Kind: "NAMED_TYPE", Field: "b c", Value: "array(double)"}, got[0].Nodes[2])
		assert.Equal(t, "$.1.0", got[0].Nodes[3].Path)
	})

	t.Run("text with variable", func(t *testing.T) {
		out, err := run(t, "parse", "-o", "text", "--var", "T", "array(T)")
		require.NoError(t, err)
		assert.Equal(t, "SIGNATURE array(T)\n  VARIABLE T\n", out)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := run(t, "parse", "map(varchar")
		assert.Error(t, err)
	})
}

func TestFormat(t *testing.T) {
	out, err := run(t, "format", "-o", "text", "VARCHAR(2147483647)", "Timestamp(3) With Time Zone", "decimal( 10 , 2 )")
	require.NoError(t, err)
	assert.Equal(t, "varchar\ntimestamp(3) with time zone\ndecimal(10,2)\n", out)

	out, err = run(t, "format", "-o", "json", "varchar(10)")
	require.NoError(t, err)
	var wires []presto.ClientTypeSignature
	require.NoError(t, json.Unmarshal([]byte(out), &wires))
	require.Len(t, wires, 1)
	assert.Equal(t, "varchar", wires[0].RawType)
	require.Len(t, wires[0].Arguments, 1)
	assert.Equal(t, int64(10), wires[0].Arguments[0].Long)
}

func TestInvalidConfig(t *testing.T) {
	_, err := run(t, "format", "-o", "xml", "bigint")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output")

	_, err = run(t, "describe", "hive.web.clicks")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no dsn")
}

func TestDescribe(t *testing.T) {
	mock := prestotest.NewMockPrestoServer()
	defer mock.Close()
	mock.AddTable("hive.web.clicks", "id", "bigint", "referrer", "row(host varchar, path varchar(200))")
	mock.AddTable("hive.web.users", "name", "varchar(64)")

	dsn := mock.DSN("presto", "/hive/web")
	out, err := run(t, "describe", "--dsn", dsn, "-o", "text", "hive.web.clicks", "hive.web.users")
	require.NoError(t, err)
	assert.Equal(t, "hive.web.clicks\n  id bigint\n  referrer row(host varchar,path varchar(200))\n"+
		"hive.web.users\n  name varchar(64)\n", out)

	out, err = run(t, "describe", "--dsn", dsn, "hive.web.clicks")
	require.NoError(t, err)
	assert.Contains(t, out, "referrer")
	assert.Contains(t, out, "row")
}

func TestTableCreate(t *testing.T) {
	def := filepath.Join(t.TempDir(), "clicks.yaml")
	require.NoError(t, os.WriteFile(def, []byte(`
catalog: hive
schema: web
table: clicks
columns:
  - name: id
    type: BIGINT
  - name: tags
    type: array( varchar )
`), 0o600))

	out, err := run(t, "table", "create", "-f", def, "--dry-run")
	require.NoError(t, err)
	statement := strings.TrimSuffix(out, "\n")
	assert.Equal(t, "CREATE TABLE IF NOT EXISTS hive.web.clicks (\n  id bigint,\n  tags array(varchar)\n)", statement)

	mock := prestotest.NewMockPrestoServer()
	defer mock.Close()
	mock.AddStatement(statement, "CREATE TABLE")

	out, err = run(t, "table", "create", "-f", def, "--dsn", mock.DSN("presto", ""))
	require.NoError(t, err)
	assert.Equal(t, "created hive.web.clicks\n", out)
	assert.Contains(t, mock.Statements(), statement)
}

func TestSchemaList(t *testing.T) {
	mock := prestotest.NewMockPrestoServer()
	defer mock.Close()
	mock.AddQuery(&prestotest.MockQueryTemplate{
		SQL:         "SHOW SCHEMAS FROM hive",
		Columns:     prestotest.Columns("Schema", "varchar"),
		Data:        [][]any{{"default"}, {"web"}},
		DataBatches: 1,
	})

	out, err := run(t, "schema", "list", "hive", "-o", "json", "--dsn", mock.DSN("presto", ""))
	require.NoError(t, err)
	var names []string
	require.NoError(t, json.Unmarshal([]byte(out), &names))
	assert.Equal(t, []string{"default", "web"}, names)
}
