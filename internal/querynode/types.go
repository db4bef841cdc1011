package querynode

// Node is an expression tree node.
//
// This is a sealed interface - only types in this package implement it.
//
// Node types:
//   - Constant: literal value
//   - Member: field reference
//   - Unary: not / negate
//   - Binary: logical, comparison, and arithmetic operators
//   - Call: function call
//   - Convert: explicit primitive conversion
type Node interface {
	queryNode() // Marker method - seals interface to this package
}

// Constant is a literal value.
//
// Example:
//
//	Constant{Value: String("foo")}
//
// renders as 'foo'.
type Constant struct {
	Value Value
}

func (Constant) queryNode() {}

// Member references a field of the queried entity.
//
// Path uses the Go field names of the entity type; nested access is dotted
// ("Address.City"). The compiler maps each segment to its wire name through
// a resolver, so Path is never emitted verbatim.
type Member struct {
	Path string
}

func (Member) queryNode() {}

// UnaryOp names a unary operator.
type UnaryOp string

const (
	OpNot    UnaryOp = "not"
	OpNegate UnaryOp = "negate"
)

// Unary applies a unary operator to one operand.
type Unary struct {
	Op      UnaryOp
	Operand Node
}

func (Unary) queryNode() {}

// BinaryOp names a binary operator.
//
// BinaryOp is a string type so a generic front-end can carry operators the
// wire format has no token for (e.g. "xor"); those fail at compile time.
type BinaryOp string

const (
	OpAnd BinaryOp = "and"
	OpOr  BinaryOp = "or"
	OpEq  BinaryOp = "eq"
	OpNe  BinaryOp = "ne"
	OpLt  BinaryOp = "lt"
	OpLe  BinaryOp = "le"
	OpGt  BinaryOp = "gt"
	OpGe  BinaryOp = "ge"
	OpAdd BinaryOp = "add"
	OpSub BinaryOp = "sub"
	OpMul BinaryOp = "mul"
	OpDiv BinaryOp = "div"
	OpMod BinaryOp = "mod"
)

// IsLogical reports whether op is and/or.
func (op BinaryOp) IsLogical() bool {
	return op == OpAnd || op == OpOr
}

// IsComparison reports whether op is one of eq, ne, lt, le, gt, ge.
func (op BinaryOp) IsComparison() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

// IsArithmetic reports whether op is one of add, sub, mul, div, mod.
func (op BinaryOp) IsArithmetic() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return true
	}
	return false
}

// Binary applies a binary operator to two operands.
type Binary struct {
	Op    BinaryOp
	Left  Node
	Right Node
}

func (Binary) queryNode() {}

// Call invokes a named function.
//
// Any name may be constructed; the compiler accepts only its allow-list
// and checks arity there.
type Call struct {
	Name string
	Args []Node
}

func (Call) queryNode() {}

// Convert is an explicit conversion of Operand to the primitive kind To.
type Convert struct {
	To      Kind
	Operand Node
}

func (Convert) queryNode() {}
