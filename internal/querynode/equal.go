package querynode

// Equal reports whether two trees are structurally identical.
// DateTime literals compare as instants, so the same moment in two zones
// is equal.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	switch x := a.(type) {
	case Constant:
		y, ok := b.(Constant)
		return ok && equalValue(x.Value, y.Value)
	case Member:
		y, ok := b.(Member)
		return ok && x.Path == y.Path
	case Unary:
		y, ok := b.(Unary)
		return ok && x.Op == y.Op && Equal(x.Operand, y.Operand)
	case Binary:
		y, ok := b.(Binary)
		return ok && x.Op == y.Op && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case Call:
		y, ok := b.(Call)
		if !ok || x.Name != y.Name || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !Equal(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	case Convert:
		y, ok := b.(Convert)
		return ok && x.To == y.To && Equal(x.Operand, y.Operand)
	default:
		return false
	}
}

func equalValue(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if x, ok := a.(DateTime); ok {
		y, ok := b.(DateTime)
		return ok && x.Time.Equal(y.Time)
	}
	return a == b
}
