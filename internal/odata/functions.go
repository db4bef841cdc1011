package odata

import "github.com/roach88/datasync/internal/querynode"

// argClass constrains the kind of a function argument. Arguments whose
// kind cannot be inferred always pass.
type argClass int

const (
	argString argClass = iota
	argNumeric
	argTemporal
)

func (c argClass) accepts(k querynode.Kind) bool {
	if k == querynode.KindUnknown {
		return true
	}
	switch c {
	case argString:
		return k == querynode.KindString
	case argNumeric:
		return k.IsNumeric()
	case argTemporal:
		return k == querynode.KindDate || k == querynode.KindDateTime
	}
	return false
}

func (c argClass) String() string {
	switch c {
	case argString:
		return "string"
	case argNumeric:
		return "numeric"
	default:
		return "date or datetime"
	}
}

type function struct {
	params []argClass
	// optional is the number of trailing params that may be omitted.
	optional int
	// returns is the result kind; KindUnknown means "same as first arg".
	returns querynode.Kind
}

func (f function) arity() (minArgs, maxArgs int) {
	return len(f.params) - f.optional, len(f.params)
}

var (
	str1      = []argClass{argString}
	str2      = []argClass{argString, argString}
	temporal1 = []argClass{argTemporal}
	numeric1  = []argClass{argNumeric}
)

// functions is the allow-list of callable functions, keyed by wire name.
var functions = map[string]function{
	"contains":   {params: str2, returns: querynode.KindBool},
	"startswith": {params: str2, returns: querynode.KindBool},
	"endswith":   {params: str2, returns: querynode.KindBool},
	"indexof":    {params: str2, returns: querynode.KindInt32},
	"length":     {params: str1, returns: querynode.KindInt32},
	"trim":       {params: str1, returns: querynode.KindString},
	"concat":     {params: str2, returns: querynode.KindString},
	"substring": {
		params:   []argClass{argString, argNumeric, argNumeric},
		optional: 1,
		returns:  querynode.KindString,
	},

	"year":   {params: temporal1, returns: querynode.KindInt32},
	"month":  {params: temporal1, returns: querynode.KindInt32},
	"day":    {params: temporal1, returns: querynode.KindInt32},
	"hour":   {params: temporal1, returns: querynode.KindInt32},
	"minute": {params: temporal1, returns: querynode.KindInt32},
	"second": {params: temporal1, returns: querynode.KindInt32},

	"floor":   {params: numeric1},
	"ceiling": {params: numeric1},
	"round":   {params: numeric1},
}
