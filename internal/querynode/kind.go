package querynode

import (
	"fmt"
	"strings"
)

// Kind is a primitive data kind, used by Convert targets and by resolvers
// to declare the type of a member.
type Kind string

const (
	KindUnknown Kind = ""
	KindString  Kind = "string"
	KindBool    Kind = "bool"
	KindInt32   Kind = "int32"
	KindInt64   Kind = "int64"
	KindFloat32 Kind = "float32"
	KindFloat64 Kind = "float64"
	KindDecimal Kind = "decimal"
	KindEnum    Kind = "enum"
	KindDate    Kind = "date"

	// KindDateTime is a UTC instant with no offset information.
	KindDateTime Kind = "datetime"

	// KindDateTimeOffset is a timestamp that carries its own UTC offset.
	// The wire format cannot filter or convert these reliably.
	KindDateTimeOffset Kind = "datetimeoffset"
)

var knownKinds = []Kind{
	KindString, KindBool, KindInt32, KindInt64, KindFloat32, KindFloat64,
	KindDecimal, KindEnum, KindDate, KindDateTime, KindDateTimeOffset,
}

// ParseKind parses a kind name (case-insensitive).
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, k := range knownKinds {
		if string(k) == name {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown kind %q", s)
}

// IsNumeric reports whether k is an integer, float, or decimal kind.
func (k Kind) IsNumeric() bool {
	switch k {
	case KindInt32, KindInt64, KindFloat32, KindFloat64, KindDecimal:
		return true
	}
	return false
}

// IsTemporal reports whether k is a date or timestamp kind.
func (k Kind) IsTemporal() bool {
	switch k {
	case KindDate, KindDateTime, KindDateTimeOffset:
		return true
	}
	return false
}
