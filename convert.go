package presto

import (
	"database/sql/driver"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/ethanyzhang/prestotype/typesig"
)

// converter turns one JSON-decoded cell into a driver value.
type converter func(v any) (driver.Value, error)

// column is a result column with its parsed type.
type column struct {
	Column
	sig     *typesig.TypeSignature
	convert converter
}

func newColumns(cols []Column) ([]column, error) {
	out := make([]column, len(cols))
	for i, c := range cols {
		sig, err := c.Signature()
		if err != nil {
			return nil, err
		}
		out[i] = column{Column: c, sig: sig, convert: converterFor(sig)}
	}
	return out, nil
}

func base(sig *typesig.TypeSignature) string {
	return strings.ToLower(sig.Base())
}

func converterFor(sig *typesig.TypeSignature) converter {
	switch base(sig) {
	case typesig.Bigint, typesig.Integer, typesig.Smallint, typesig.Tinyint:
		return toInt64
	case typesig.Double, typesig.Real:
		return toFloat64
	case typesig.Boolean:
		return toBool
	case typesig.Decimal:
		return toDecimal
	case typesig.Date:
		return toDate
	case typesig.Timestamp, typesig.TimestampWithoutTimeZone:
		return toTimestamp
	case typesig.TimestampWithTimeZone:
		return toTimestampWithZone
	case typesig.Varbinary, "hyperloglog", "p4hyperloglog", "qdigest":
		return toBytes
	case typesig.Array, typesig.Map, typesig.Row:
		return func(v any) (driver.Value, error) {
			if v == nil {
				return nil, nil
			}
			shaped, err := reshape(sig, v)
			if err != nil {
				return nil, err
			}
			data, err := json.Marshal(shaped)
			if err != nil {
				return nil, err
			}
			return string(data), nil
		}
	default:
		// varchar, char, json, time, intervals, uuid, ipaddress and unknown
		// types are passed on as text.
		return toText
	}
}

func toInt64(v any) (driver.Value, error) {
	switch n := v.(type) {
	case nil:
		return nil, nil
	case float64:
		return int64(n), nil
	case json.Number:
		return n.Int64()
	case string:
		return strconv.ParseInt(n, 10, 64)
	}
	return nil, fmt.Errorf("presto: cannot convert %T to int64", v)
}

func toFloat64(v any) (driver.Value, error) {
	switch n := v.(type) {
	case nil:
		return nil, nil
	case float64:
		return n, nil
	case json.Number:
		return n.Float64()
	case string:
		// NaN and the infinities arrive as strings.
		switch n {
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		}
		return strconv.ParseFloat(n, 64)
	}
	return nil, fmt.Errorf("presto: cannot convert %T to float64", v)
}

func toBool(v any) (driver.Value, error) {
	switch b := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return b, nil
	}
	return nil, fmt.Errorf("presto: cannot convert %T to bool", v)
}

// toDecimal keeps decimals as text so no precision is lost.
func toDecimal(v any) (driver.Value, error) {
	switch d := v.(type) {
	case nil:
		return nil, nil
	case string:
		return d, nil
	case float64:
		return strconv.FormatFloat(d, 'f', -1, 64), nil
	case json.Number:
		return d.String(), nil
	}
	return nil, fmt.Errorf("presto: cannot convert %T to decimal", v)
}

func toText(v any) (driver.Value, error) {
	switch s := v.(type) {
	case nil:
		return nil, nil
	case string:
		return s, nil
	}
	return fmt.Sprint(v), nil
}

func toBytes(v any) (driver.Value, error) {
	switch s := v.(type) {
	case nil:
		return nil, nil
	case string:
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("presto: decoding varbinary: %w", err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("presto: cannot convert %T to []byte", v)
}

func toDate(v any) (driver.Value, error) {
	s, ok, err := timeText(v)
	if !ok {
		return nil, err
	}
	return time.Parse(time.DateOnly, s)
}

// timestampLayout accepts any number of fractional digits, including none.
const timestampLayout = "2006-01-02 15:04:05.999999999"

func toTimestamp(v any) (driver.Value, error) {
	s, ok, err := timeText(v)
	if !ok {
		return nil, err
	}
	return time.Parse(timestampLayout, s)
}

// toTimestampWithZone parses "2024-01-02 03:04:05.678 UTC", a zone id such as
// "America/New_York", or an offset such as "+05:30".
func toTimestampWithZone(v any) (driver.Value, error) {
	s, ok, err := timeText(v)
	if !ok {
		return nil, err
	}
	i := strings.LastIndexByte(s, ' ')
	if i < 0 || i == len(s)-1 {
		return nil, fmt.Errorf("presto: timestamp %q has no zone", s)
	}
	stamp, zone := s[:i], s[i+1:]
	if zone[0] == '+' || zone[0] == '-' {
		return time.Parse(timestampLayout+" -07:00", s)
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("presto: timestamp %q: %w", s, err)
	}
	return time.ParseInLocation(timestampLayout, stamp, loc)
}

func timeText(v any) (string, bool, error) {
	switch s := v.(type) {
	case nil:
		return "", false, nil
	case string:
		return s, true, nil
	}
	return "", false, fmt.Errorf("presto: cannot convert %T to time", v)
}

// reshape walks a structural value along its type. Rows arrive as positional
// arrays and leave as objects keyed by field name; anonymous fields are named
// field0, field1, and so on by position.
func reshape(sig *typesig.TypeSignature, v any) (any, error) {
	if v == nil || sig == nil {
		return v, nil
	}
	switch base(sig) {
	case typesig.Array:
		if sig.NumParameters() != 1 {
			return v, nil
		}
		items, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("presto: %s value is %T, not an array", sig, v)
		}
		elem := sig.Parameter(0).Signature()
		out := make([]any, len(items))
		for i, item := range items {
			shaped, err := reshape(elem, item)
			if err != nil {
				return nil, err
			}
			out[i] = shaped
		}
		return out, nil

	case typesig.Map:
		if sig.NumParameters() != 2 {
			return v, nil
		}
		entries, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("presto: %s value is %T, not an object", sig, v)
		}
		value := sig.Parameter(1).Signature()
		out := make(map[string]any, len(entries))
		for k, item := range entries {
			shaped, err := reshape(value, item)
			if err != nil {
				return nil, err
			}
			out[k] = shaped
		}
		return out, nil

	case typesig.Row:
		values, ok := v.([]any)
		if !ok {
			// Some coordinators already send rows as objects.
			return v, nil
		}
		if len(values) != sig.NumParameters() {
			return nil, fmt.Errorf("presto: %s value has %d fields", sig, len(values))
		}
		out := make(map[string]any, len(values))
		for i, p := range sig.Parameters() {
			field, _ := p.NamedType()
			shaped, err := reshape(field.Type, values[i])
			if err != nil {
				return nil, err
			}
			out[fieldKey(out, field, i)] = shaped
		}
		return out, nil
	}
	return v, nil
}

// fieldKey names field i of a row object. A field without a name, or one
// whose name is already taken by an earlier field, falls back to field<i>;
// underscores are appended until the key is free.
func fieldKey(out map[string]any, field typesig.NamedTypeSignature, i int) string {
	if name, ok := field.Name(); ok {
		if _, taken := out[name]; !taken {
			return name
		}
	}
	key := "field" + strconv.Itoa(i)
	for {
		if _, taken := out[key]; !taken {
			return key
		}
		key += "_"
	}
}

// --- Column metadata ---

var (
	scanInt64   = reflect.TypeOf(int64(0))
	scanFloat64 = reflect.TypeOf(float64(0))
	scanBool    = reflect.TypeOf(false)
	scanString  = reflect.TypeOf("")
	scanBytes   = reflect.TypeOf([]byte(nil))
	scanTime    = reflect.TypeOf(time.Time{})
)

func scanType(sig *typesig.TypeSignature) reflect.Type {
	switch base(sig) {
	case typesig.Bigint, typesig.Integer, typesig.Smallint, typesig.Tinyint:
		return scanInt64
	case typesig.Double, typesig.Real:
		return scanFloat64
	case typesig.Boolean:
		return scanBool
	case typesig.Varbinary, "hyperloglog", "p4hyperloglog", "qdigest":
		return scanBytes
	case typesig.Date, typesig.Timestamp, typesig.TimestampWithoutTimeZone, typesig.TimestampWithTimeZone:
		return scanTime
	}
	return scanString
}

// typeLength reports the declared length of variable-length types. Unbounded
// ones report math.MaxInt64.
func typeLength(sig *typesig.TypeSignature) (int64, bool) {
	switch base(sig) {
	case typesig.Varchar, typesig.Char:
		if sig.NumParameters() == 0 {
			if base(sig) == typesig.Char {
				return 1, true
			}
			return math.MaxInt64, true
		}
		n, ok := sig.Parameter(0).Long()
		if !ok {
			return 0, false
		}
		if n == typesig.UnboundedLength {
			return math.MaxInt64, true
		}
		return n, true
	case typesig.Varbinary:
		return math.MaxInt64, true
	}
	return 0, false
}

// precisionScale reports decimal precision and scale, and the fractional
// second precision of time types.
func precisionScale(sig *typesig.TypeSignature) (int64, int64, bool) {
	long := func(i int) (int64, bool) {
		if sig.NumParameters() <= i {
			return 0, false
		}
		return sig.Parameter(i).Long()
	}
	switch base(sig) {
	case typesig.Decimal:
		p, ok := long(0)
		if !ok {
			// Bare decimal is decimal(38,0).
			return 38, 0, sig.NumParameters() == 0
		}
		s, _ := long(1)
		return p, s, true
	case typesig.Time, typesig.Timestamp, typesig.TimeWithTimeZone,
		typesig.TimestampWithTimeZone, typesig.TimestampWithoutTimeZone:
		if p, ok := long(0); ok {
			return p, 0, true
		}
		// Without a precision parameter the coordinator uses milliseconds.
		return 3, 0, sig.NumParameters() == 0
	}
	return 0, 0, false
}
