package querynode

import "time"

// Prop creates a Member reference.
// Example: Prop("ReleaseDate"), Prop("Address.City")
func Prop(path string) Member {
	return Member{Path: path}
}

// Lit wraps a literal value in a Constant.
func Lit(v Value) Constant {
	return Constant{Value: v}
}

// Str creates a string Constant.
func Str(s string) Constant {
	return Constant{Value: String(s)}
}

// I creates an integer Constant.
func I(n int64) Constant {
	return Constant{Value: Int(n)}
}

// F creates a float Constant.
func F(f float64) Constant {
	return Constant{Value: Float(f)}
}

// B creates a boolean Constant.
func B(b bool) Constant {
	return Constant{Value: Bool(b)}
}

// Nil creates the null Constant.
func Nil() Constant {
	return Constant{Value: Null{}}
}

// At creates an instant Constant.
func At(t time.Time) Constant {
	return Constant{Value: DateTime{Time: t}}
}

// Day creates a calendar-date Constant.
func Day(year int, month time.Month, day int) Constant {
	return Constant{Value: Date{Year: year, Month: month, Day: day}}
}

func binary(op BinaryOp, left, right Node) Binary {
	return Binary{Op: op, Left: left, Right: right}
}

func Eq(left, right Node) Binary  { return binary(OpEq, left, right) }
func Ne(left, right Node) Binary  { return binary(OpNe, left, right) }
func Lt(left, right Node) Binary  { return binary(OpLt, left, right) }
func Le(left, right Node) Binary  { return binary(OpLe, left, right) }
func Gt(left, right Node) Binary  { return binary(OpGt, left, right) }
func Ge(left, right Node) Binary  { return binary(OpGe, left, right) }
func Add(left, right Node) Binary { return binary(OpAdd, left, right) }
func Sub(left, right Node) Binary { return binary(OpSub, left, right) }
func Mul(left, right Node) Binary { return binary(OpMul, left, right) }
func Div(left, right Node) Binary { return binary(OpDiv, left, right) }
func Mod(left, right Node) Binary { return binary(OpMod, left, right) }

// And folds nodes left to right with the and operator.
// And(a, b, c) is ((a and b) and c). A single node is returned as is;
// no nodes returns nil.
func And(nodes ...Node) Node {
	return fold(OpAnd, nodes)
}

// Or folds nodes left to right with the or operator.
func Or(nodes ...Node) Node {
	return fold(OpOr, nodes)
}

func fold(op BinaryOp, nodes []Node) Node {
	var acc Node
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if acc == nil {
			acc = n
			continue
		}
		acc = binary(op, acc, n)
	}
	return acc
}

// Not negates a boolean operand.
func Not(operand Node) Unary {
	return Unary{Op: OpNot, Operand: operand}
}

// Neg arithmetically negates an operand.
func Neg(operand Node) Unary {
	return Unary{Op: OpNegate, Operand: operand}
}

// Fn creates a function Call.
func Fn(name string, args ...Node) Call {
	return Call{Name: name, Args: args}
}

// Cast creates a Convert to the given kind.
func Cast(to Kind, operand Node) Convert {
	return Convert{To: to, Operand: operand}
}
