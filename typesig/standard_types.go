package typesig

import (
	"math"
	"strings"
)

// Base names of the standard Presto/Trino types.
const (
	Bigint                   = "bigint"
	Integer                  = "integer"
	Smallint                 = "smallint"
	Tinyint                  = "tinyint"
	Boolean                  = "boolean"
	Date                     = "date"
	Decimal                  = "decimal"
	Real                     = "real"
	Double                   = "double"
	HyperLogLog              = "HyperLogLog"
	Varchar                  = "varchar"
	Char                     = "char"
	Varbinary                = "varbinary"
	JSON                     = "json"
	UUID                     = "uuid"
	IPAddress                = "ipaddress"
	Time                     = "time"
	Timestamp                = "timestamp"
	TimeWithTimeZone         = "time with time zone"
	TimestampWithTimeZone    = "timestamp with time zone"
	TimestampWithoutTimeZone = "timestamp without time zone"
	IntervalDayToSecond      = "interval day to second"
	IntervalYearToMonth      = "interval year to month"
	DoublePrecision          = "double precision"
	Array                    = "array"
	Map                      = "map"
	Row                      = "row"
	Function                 = "function"
	Unknown                  = "unknown"
)

// UnboundedLength is the length parameter of an unbounded varchar.
const UnboundedLength = math.MaxInt32

// simpleTypesWithSpaces are built-in zero-parameter types whose names contain
// spaces. Inside row(...) they must not be mistaken for "name type" pairs.
var simpleTypesWithSpaces = []string{
	TimeWithTimeZone,
	TimestampWithTimeZone,
	IntervalDayToSecond,
	IntervalYearToMonth,
	DoublePrecision,
}

// hoistedTypes print their precision inside the compound name, e.g.
// timestamp(3) with time zone.
var hoistedTypes = []string{
	TimestampWithTimeZone,
	TimestampWithoutTimeZone,
	TimeWithTimeZone,
}

func isSimpleTypeWithSpaces(name string) bool {
	return containsFold(simpleTypesWithSpaces, name)
}

func isHoistedType(base string) bool {
	return containsFold(hoistedTypes, base)
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}

// numericParametricTypes take only integer (or symbolic) length and
// precision parameters.
var numericParametricTypes = []string{
	Varchar,
	Char,
	Decimal,
	Time,
	Timestamp,
	TimeWithTimeZone,
	TimestampWithTimeZone,
	TimestampWithoutTimeZone,
}

func isNumericParametric(base string) bool {
	return containsFold(numericParametricTypes, base)
}
