package metadata

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTableName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    TableName
		wantErr string
	}{
		{name: "plain", input: "hive.web.clicks", want: TableName{"hive", "web", "clicks"}},
		{name: "quoted dot", input: `hive."a.b".t`, want: TableName{"hive", "a.b", "t"}},
		{name: "escaped quote", input: `hive.web."say ""hi"""`, want: TableName{"hive", "web", `say "hi"`}},
		{name: "two parts", input: "web.clicks", wantErr: "not catalog.schema.table"},
		{name: "empty part", input: "hive..clicks", wantErr: "empty name part"},
		{name: "unterminated", input: `hive."web.clicks`, wantErr: "unterminated quote"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTableName(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTableName_String(t *testing.T) {
	assert.Equal(t, "hive.web.clicks", TableName{"hive", "web", "clicks"}.String())
	assert.Equal(t, `hive."Web"."a.b"`, TableName{"hive", "Web", "a.b"}.String())
	assert.Equal(t, `hive.web."1st"`, TableName{"hive", "web", "1st"}.String())

	// String and ParseTableName round trip.
	n := TableName{"hive", `odd "name"`, "t.x"}
	got, err := ParseTableName(n.String())
	require.NoError(t, err)
	assert.Equal(t, n, got)
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"ORC", "'ORC'"},
		{"it's", "'it''s'"},
		{true, "TRUE"},
		{42, "42"},
		{int64(7), "7"},
		{0.5, "0.5"},
		{[]any{"ds", "hour"}, "ARRAY['ds', 'hour']"},
		{[]string{"a"}, "ARRAY['a']"},
		{[]any{}, "ARRAY[]"},
	}
	for _, tt := range tests {
		got, err := literal(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := literal(map[string]any{"a": 1})
	assert.ErrorContains(t, err, "unsupported value")
}

func TestPropertyList(t *testing.T) {
	got, err := propertyList(map[string]any{
		"partitioned_by": []any{"ds"},
		"format":         "ORC",
		"bucket_count":   8,
	})
	require.NoError(t, err)
	assert.Equal(t, "bucket_count = 8, format = 'ORC', partitioned_by = ARRAY['ds']", got)

	_, err = propertyList(map[string]any{"bad": struct{}{}})
	assert.ErrorContains(t, err, "property bad")
}

func TestExecDefinition(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		errMsg    string
	}{
		{
			name: "no result columns",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("DROP TABLE").WillReturnRows(sqlmock.NewRows([]string{}))
			},
		},
		{
			name: "acknowledged",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("DROP TABLE").WillReturnRows(sqlmock.NewRows([]string{"result"}).AddRow(true))
			},
		},
		{
			name: "false result",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("DROP TABLE").WillReturnRows(sqlmock.NewRows([]string{"result"}).AddRow(false))
			},
			errMsg: "acknowledged=false",
		},
		{
			name: "no rows",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("DROP TABLE").WillReturnRows(sqlmock.NewRows([]string{"result"}))
			},
			errMsg: "0 result rows",
		},
		{
			name: "two columns",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("DROP TABLE").WillReturnRows(sqlmock.NewRows([]string{"a", "b"}).AddRow(true, true))
			},
			errMsg: "2 result columns",
		},
		{
			name: "server error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("DROP TABLE").WillReturnError(assert.AnError)
			},
			errMsg: assert.AnError.Error(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()
			tt.setupMock(mock)

			err = execDefinition(context.Background(), db, "DROP TABLE IF EXISTS hive.web.t")
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestExecDefinition_StatementError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	mock.ExpectQuery(regexp.QuoteMeta("DROP SCHEMA hive.web")).
		WillReturnRows(sqlmock.NewRows([]string{"result"}).AddRow(false))

	err = execDefinition(context.Background(), db, "DROP SCHEMA hive.web")
	var stmtErr *StatementError
	require.ErrorAs(t, err, &stmtErr)
	assert.Equal(t, "DROP SCHEMA hive.web", stmtErr.Statement)
}
