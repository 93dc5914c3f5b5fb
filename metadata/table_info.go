package metadata

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/ethanyzhang/prestotype/typesig"
	"gopkg.in/yaml.v3"
)

// ColumnInfo is one column of a table definition.
type ColumnInfo struct {
	Name    string `json:"name" yaml:"name"`
	Type    string `json:"type" yaml:"type"`
	Comment string `json:"comment,omitempty" yaml:"comment,omitempty"`
}

// TableInfo is a table definition as written in a YAML file:
//
//	catalog: hive
//	schema: web
//	table: clicks
//	columns:
//	  - name: id
//	    type: bigint
//	  - name: referrer
//	    type: row(host varchar, path varchar)
//	properties:
//	  format: ORC
//	  partitioned_by: [ds]
type TableInfo struct {
	TableName  `yaml:",inline"`
	Columns    []ColumnInfo   `json:"columns" yaml:"columns"`
	Comment    string         `json:"comment,omitempty" yaml:"comment,omitempty"`
	Properties map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// LoadTableInfo reads a definition file. Unknown keys are errors.
func LoadTableInfo(path string) (*TableInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := DecodeTableInfo(f)
	if err != nil {
		return nil, fmt.Errorf("metadata: %s: %w", path, err)
	}
	return info, nil
}

// DecodeTableInfo reads one YAML definition from r.
func DecodeTableInfo(r io.Reader) (*TableInfo, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var info TableInfo
	if err := dec.Decode(&info); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty table definition")
		}
		return nil, err
	}
	if err := info.validate(); err != nil {
		return nil, err
	}
	return &info, nil
}

func (t *TableInfo) validate() error {
	if err := t.TableName.validate(); err != nil {
		return err
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %s has no columns", t.TableName)
	}
	seen := make(map[string]bool, len(t.Columns))
	for i, c := range t.Columns {
		if c.Name == "" {
			return fmt.Errorf("column %d of %s has no name", i, t.TableName)
		}
		key := strings.ToLower(c.Name)
		if seen[key] {
			return fmt.Errorf("column %s appears twice in %s", c.Name, t.TableName)
		}
		seen[key] = true
	}
	return nil
}

// canonicalType parses a column type and returns its canonical text.
func canonicalType(column, text string) (string, error) {
	sig, err := typesig.Parse(text)
	if err != nil {
		return "", fmt.Errorf("metadata: column %s: %w", column, err)
	}
	return sig.String(), nil
}

// columnDefinition renders "name type [COMMENT '...']".
func columnDefinition(c ColumnInfo) (string, error) {
	typ, err := canonicalType(c.Name, c.Type)
	if err != nil {
		return "", err
	}
	def := quoteIdent(c.Name) + " " + typ
	if c.Comment != "" {
		def += " COMMENT " + quoteString(c.Comment)
	}
	return def, nil
}

// propertyList renders "k = v, ..." in key order.
func propertyList(props map[string]any) (string, error) {
	keys := slices.Sorted(maps.Keys(props))
	items := make([]string, len(keys))
	for i, k := range keys {
		v, err := literal(props[k])
		if err != nil {
			return "", fmt.Errorf("metadata: property %s: %w", k, err)
		}
		items[i] = quoteIdent(k) + " = " + v
	}
	return strings.Join(items, ", "), nil
}

// literal renders a YAML scalar or list as a SQL literal.
func literal(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return quoteString(val), nil
	case bool:
		return strings.ToUpper(strconv.FormatBool(val)), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), nil
	case []any:
		items := make([]string, len(val))
		for i, item := range val {
			s, err := literal(item)
			if err != nil {
				return "", err
			}
			items[i] = s
		}
		return "ARRAY[" + strings.Join(items, ", ") + "]", nil
	case []string:
		items := make([]any, len(val))
		for i, s := range val {
			items[i] = s
		}
		return literal(items)
	}
	return "", fmt.Errorf("unsupported value %v (%T)", v, v)
}
