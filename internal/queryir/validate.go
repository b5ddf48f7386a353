package queryir

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/strata/internal/ir"
)

// Validate checks q against catalog: known tables and columns, explicit
// fields, qualified names in joins, no NULL literals and a join condition.
// All problems are returned joined.
func Validate(q Query, catalog Catalog) error {
	v := &validator{catalog: catalog}
	v.validateQuery(q)
	return errors.Join(v.errs...)
}

type validator struct {
	catalog Catalog
	errs    []error
	tables  []string
}

func (v *validator) addError(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case Select:
		v.validateSelect(query)
	case *Select:
		v.validateSelect(*query)
	case Join:
		v.validateJoin(query)
	case *Join:
		v.validateJoin(*query)
	case nil:
		v.addError("nil query")
	default:
		v.addError("unknown query type %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	if !v.useTable(sel.From) {
		return
	}
	v.validateFields(sel.Fields)
	v.validatePredicate(sel.Filter)
}

func (v *validator) validateJoin(j Join) {
	left, right := v.useTable(j.Left), v.useTable(j.Right)
	if !left || !right {
		return
	}
	if j.Left == j.Right {
		v.addError("self join of %q is not supported", j.Left)
	}
	if j.On == nil {
		v.addError("join of %q and %q has no condition", j.Left, j.Right)
	}
	v.validateFields(j.Fields)
	v.validatePredicate(j.On)
	v.validatePredicate(j.Filter)
}

func (v *validator) useTable(name string) bool {
	if _, ok := v.catalog[name]; !ok {
		v.addError("unknown table %q", name)
		return false
	}
	v.tables = append(v.tables, name)
	return true
}

func (v *validator) validateFields(fields []string) {
	if len(fields) == 0 {
		v.addError("no fields selected")
	}
	for _, f := range fields {
		v.validateColumn(f)
	}
}

// validateColumn resolves a bare or qualified column name against the
// tables of the query. Bare names are only accepted with a single table.
func (v *validator) validateColumn(name string) {
	table, col, qualified := strings.Cut(name, ".")
	if !qualified {
		if len(v.tables) != 1 {
			v.addError("column %q must be qualified in a join", name)
			return
		}
		table, col = v.tables[0], name
	}
	for _, t := range v.tables {
		if t == table {
			if !v.catalog[t].HasColumn(col) {
				v.addError("unknown column %q of table %q", col, t)
			}
			return
		}
	}
	v.addError("column %q refers to table %q, which is not in the query", name, table)
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
	case Equals:
		v.validateEquals(pred)
	case *Equals:
		v.validateEquals(*pred)
	case FieldEquals:
		v.validateColumn(pred.Left)
		v.validateColumn(pred.Right)
	case *FieldEquals:
		v.validateColumn(pred.Left)
		v.validateColumn(pred.Right)
	case And:
		v.validateAnd(pred)
	case *And:
		v.validateAnd(*pred)
	default:
		v.addError("unknown predicate type %T", p)
	}
}

func (v *validator) validateEquals(eq Equals) {
	v.validateColumn(eq.Field)
	switch eq.Value.(type) {
	case nil, ir.Null:
		v.addError("column %q compared to null", eq.Field)
	case ir.Array, ir.Object:
		v.addError("column %q compared to a %T", eq.Field, eq.Value)
	}
}

func (v *validator) validateAnd(and And) {
	for _, p := range and.Predicates {
		v.validatePredicate(p)
	}
}
