package querynode

import (
	"fmt"
	"time"
)

// Value is a sealed interface representing literal values.
// Only Null, String, Int, Float, Bool, DateTime, and Date implement this.
type Value interface {
	queryValue() // Sealed - only these types implement it
}

// Null is the null literal.
type Null struct{}

func (Null) queryValue() {}

// String is a string literal.
type String string

func (String) queryValue() {}

// Int is an integer literal.
type Int int64

func (Int) queryValue() {}

// Float is a floating point literal.
type Float float64

func (Float) queryValue() {}

// Bool is a boolean literal.
type Bool bool

func (Bool) queryValue() {}

// DateTime is an instant. The compiler renders it in UTC.
type DateTime struct {
	Time time.Time
}

func (DateTime) queryValue() {}

// Date is a calendar date without a time of day or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func (Date) queryValue() {}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// KindOf returns the primitive kind of a literal.
// Null has no kind and reports KindUnknown.
func KindOf(v Value) Kind {
	switch v.(type) {
	case String:
		return KindString
	case Int:
		return KindInt64
	case Float:
		return KindFloat64
	case Bool:
		return KindBool
	case DateTime:
		return KindDateTime
	case Date:
		return KindDate
	default:
		return KindUnknown
	}
}

// ValueOf converts a Go value to a literal.
// Supports string, signed and unsigned integers, floats, bool, nil,
// time.Time, and the Value types themselves.
func ValueOf(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint:
		if uint64(val) > 1<<63-1 {
			return nil, fmt.Errorf("unsigned value %d overflows int64", val)
		}
		return Int(val), nil
	case uint64:
		if val > 1<<63-1 {
			return nil, fmt.Errorf("unsigned value %d overflows int64", val)
		}
		return Int(val), nil
	case float32:
		return Float(val), nil
	case float64:
		return Float(val), nil
	case time.Time:
		return DateTime{Time: val}, nil
	default:
		return nil, fmt.Errorf("unsupported literal type: %T", v)
	}
}
