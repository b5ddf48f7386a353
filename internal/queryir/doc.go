// Package queryir is a small query IR over the tables of a run store.
//
// Queries are built as values and compiled by a backend; internal/querysql
// compiles them to parameterized SQLite. Keeping the IR separate lets
// callers build filters from user input without writing SQL, and lets the
// IR be checked against a table catalog before anything reaches the
// database.
//
// The fragment is deliberately narrow:
//   - Select(from, fields, filter): one table, explicit fields
//   - Join(left, right, on, fields, filter): inner joins only
//   - Predicates: Equals (column = literal), FieldEquals (column = column), And
//
// Excluded: NULL comparisons, outer joins, aggregation, SELECT *, OR.
//
// Query and Predicate are sealed: only types in this package implement
// them, so backends can switch exhaustively.
//
// Example, the completed Image tasks of every run of model Orbiter:
//
//	q := queryir.Join{
//	  Left:   "runs",
//	  Right:  "task_spans",
//	  On:     queryir.FieldEquals{Left: "runs.id", Right: "task_spans.run_id"},
//	  Fields: []string{"runs.id", "task_spans.task"},
//	  Filter: queryir.And{Predicates: []queryir.Predicate{
//	    queryir.Equals{Field: "runs.model_name", Value: ir.String("Orbiter")},
//	    queryir.Equals{Field: "task_spans.activity", Value: ir.String("Image")},
//	    queryir.Equals{Field: "task_spans.status", Value: ir.String("completed")},
//	  }},
//	}
package queryir
