package domain

import "strings"

const (
	// ARRAY represent a array value.
	ARRAY = "array"
	// OBJECT represent a object value.
	OBJECT = "object"
	// BOOLEAN represent a boolean value.
	BOOLEAN = "boolean"
	// INTEGER represent a integer value.
	INTEGER = "integer"
	// NUMBER represent a number value.
	NUMBER = "number"
	// STRING represent a string value.
	STRING = "string"
	// FILE represent a binary payload.
	FILE = "file"
	// NULL represent a empty value.
	NULL = "null"
	// DATE represent a calendar date without time.
	DATE = "date-only"
	// TIME represent a time of day.
	TIME = "time-only"
	// DATETIMEONLY represent a date and time without offset.
	DATETIMEONLY = "datetime-only"
	// DATETIME represent a date and time with offset.
	DATETIME = "datetime"
)

// IsScalarDataType checks if a data type names a scalar.
func IsScalarDataType(dataType string) bool {
	switch dataType {
	case BOOLEAN, INTEGER, NUMBER, STRING, DATE, TIME, DATETIMEONLY, DATETIME:
		return true
	}
	return false
}

// PrimitiveFor maps a scalar data type and format to a target primitive.
// Integer widths follow the explicit format; an integer without format gets the default width.
func PrimitiveFor(dataType, format string) (Primitive, bool) {
	format = strings.ToLower(strings.TrimSpace(format))

	switch dataType {
	case BOOLEAN:
		return PrimBool, true
	case INTEGER:
		return integerFor(format)
	case NUMBER:
		switch format {
		case "", "double", "number":
			return PrimFloat64, true
		case "float":
			return PrimFloat32, true
		case "decimal":
			return PrimDecimal, true
		}
		return integerFor(format)
	case STRING:
		switch format {
		case "date", "date-only":
			return PrimDate, true
		case "time", "time-only":
			return PrimTime, true
		case "date-time-only", "datetime-only":
			return PrimDateTimeLocal, true
		case "date-time", "datetime":
			return PrimDateTime, true
		case "duration":
			return PrimDuration, true
		case "byte", "binary":
			return PrimBytes, true
		case "decimal":
			return PrimDecimal, true
		}
		return PrimString, true
	case DATE:
		return PrimDate, true
	case TIME:
		return PrimTime, true
	case DATETIMEONLY:
		return PrimDateTimeLocal, true
	case DATETIME:
		return PrimDateTime, true
	}
	return 0, false
}

func integerFor(format string) (Primitive, bool) {
	switch format {
	case "":
		return PrimInt, true
	case "int8":
		return PrimInt8, true
	case "int16":
		return PrimInt16, true
	case "int32", "int":
		return PrimInt32, true
	case "int64", "long":
		return PrimInt64, true
	}
	return 0, false
}
