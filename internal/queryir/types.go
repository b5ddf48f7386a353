package queryir

import "github.com/roach88/strata/internal/ir"

// Query is a read over one table or an inner join of two.
type Query interface {
	queryNode()
}

// Predicate is a row filter.
type Predicate interface {
	predicateNode()
}

// Select reads Fields of the rows of table From that satisfy Filter.
// Field names may be bare or qualified with the table name.
type Select struct {
	From   string
	Fields []string
	Filter Predicate // nil = every row
}

func (Select) queryNode() {}

// Join pairs the rows of Left and Right that satisfy On, then keeps the
// pairs that satisfy Filter. Field names must be qualified ("runs.id").
type Join struct {
	Left   string
	Right  string
	On     Predicate
	Fields []string
	Filter Predicate // nil = every pair
}

func (Join) queryNode() {}

// Equals compares a column with a literal.
type Equals struct {
	Field string
	Value ir.Value
}

func (Equals) predicateNode() {}

// FieldEquals compares two columns.
type FieldEquals struct {
	Left  string
	Right string
}

func (FieldEquals) predicateNode() {}

// And holds when every predicate holds. An empty And always holds.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Table describes one queryable table. Key is the column list every result
// is ordered by.
type Table struct {
	Columns []string
	Key     []string
}

// HasColumn reports whether c is a column of t.
func (t Table) HasColumn(c string) bool {
	for _, col := range t.Columns {
		if col == c {
			return true
		}
	}
	return false
}

// Catalog maps table names to their descriptions.
type Catalog map[string]Table
