package querynode

// Direction is a sort direction.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// OrderClause is one sort key. The first clause of a list is the primary key.
type OrderClause struct {
	Key       Node
	Direction Direction
}

// Asc and Desc build order clauses.
func Asc(key Node) OrderClause  { return OrderClause{Key: key, Direction: Ascending} }
func Desc(key Node) OrderClause { return OrderClause{Key: key, Direction: Descending} }
