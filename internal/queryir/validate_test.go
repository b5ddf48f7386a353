package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strata/internal/ir"
)

var testCatalog = Catalog{
	"runs":       {Columns: []string{"seq", "id", "model_name"}, Key: []string{"seq"}},
	"task_spans": {Columns: []string{"run_id", "task", "activity", "status"}, Key: []string{"run_id", "task"}},
}

func TestValidate_ValidQueries(t *testing.T) {
	tests := []struct {
		name  string
		query Query
	}{
		{"select bare fields", Select{From: "task_spans", Fields: []string{"task", "activity"}}},
		{"select qualified fields", &Select{From: "task_spans", Fields: []string{"task_spans.task"}}},
		{"select with filter", Select{
			From:   "task_spans",
			Fields: []string{"task"},
			Filter: And{Predicates: []Predicate{
				Equals{Field: "activity", Value: ir.String("Image")},
				&Equals{Field: "task", Value: ir.Int(3)},
			}},
		}},
		{"join", Join{
			Left:   "runs",
			Right:  "task_spans",
			On:     FieldEquals{Left: "runs.id", Right: "task_spans.run_id"},
			Fields: []string{"runs.id", "task_spans.task"},
			Filter: Equals{Field: "runs.model_name", Value: ir.String("Orbiter")},
		}},
		{"empty and", Select{From: "runs", Fields: []string{"id"}, Filter: And{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, Validate(tt.query, testCatalog))
		})
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  string
	}{
		{"nil query", nil, "nil query"},
		{"unknown table", Select{From: "events", Fields: []string{"id"}}, `unknown table "events"`},
		{"no fields", Select{From: "runs"}, "no fields selected"},
		{"unknown column", Select{From: "runs", Fields: []string{"name"}}, `unknown column "name" of table "runs"`},
		{"foreign table", Select{From: "runs", Fields: []string{"task_spans.task"}}, "not in the query"},
		{"null literal", Select{From: "runs", Fields: []string{"id"}, Filter: Equals{Field: "id", Value: ir.Null{}}}, "compared to null"},
		{"missing literal", Select{From: "runs", Fields: []string{"id"}, Filter: Equals{Field: "id"}}, "compared to null"},
		{"array literal", Select{From: "runs", Fields: []string{"id"}, Filter: Equals{Field: "id", Value: ir.Array{}}}, "compared to a ir.Array"},
		{"bare column in join", Join{
			Left: "runs", Right: "task_spans",
			On:     FieldEquals{Left: "runs.id", Right: "task_spans.run_id"},
			Fields: []string{"task"},
		}, `column "task" must be qualified`},
		{"join without condition", Join{Left: "runs", Right: "task_spans", Fields: []string{"runs.id"}}, "has no condition"},
		{"self join", Join{
			Left: "runs", Right: "runs",
			On:     FieldEquals{Left: "runs.id", Right: "runs.id"},
			Fields: []string{"runs.id"},
		}, "self join"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.query, testCatalog)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	err := Validate(Select{
		From:   "runs",
		Fields: []string{"name", "hash"},
		Filter: Equals{Field: "id", Value: ir.Null{}},
	}, testCatalog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"name"`)
	assert.Contains(t, err.Error(), `"hash"`)
	assert.Contains(t, err.Error(), "compared to null")
}

func TestTable_HasColumn(t *testing.T) {
	tbl := testCatalog["runs"]
	assert.True(t, tbl.HasColumn("model_name"))
	assert.False(t, tbl.HasColumn("status"))
}
