package querysql

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strata/internal/ir"
	"github.com/roach88/strata/internal/queryir"
)

// openTestDB creates the test catalog's tables in an in-memory database.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE runs (seq INTEGER PRIMARY KEY, id TEXT NOT NULL, model_name TEXT NOT NULL);
		CREATE TABLE task_spans (run_id TEXT NOT NULL, task INTEGER NOT NULL, activity TEXT NOT NULL, status TEXT NOT NULL);
		INSERT INTO runs VALUES (1, 'run-b', 'Orbiter'), (2, 'run-a', 'Orbiter');
		INSERT INTO task_spans VALUES
			('run-a', 3, 'Image', 'completed'),
			('run-b', 1, 'Image', 'completed'),
			('run-a', 1, 'Safe', 'failed'),
			('run-b', 2, 'Drain', 'completed');
	`)
	require.NoError(t, err)
	return db
}

func TestCompile_ExecutesOnSQLite(t *testing.T) {
	db := openTestDB(t)
	c := NewCompiler(testCatalog)

	query, params, err := c.Compile(queryir.Join{
		Left:   "runs",
		Right:  "task_spans",
		On:     queryir.FieldEquals{Left: "runs.id", Right: "task_spans.run_id"},
		Fields: []string{"runs.id", "task_spans.task"},
		Filter: queryir.Equals{Field: "task_spans.status", Value: ir.String("completed")},
	})
	require.NoError(t, err)

	rows, err := db.Query(query, params...)
	require.NoError(t, err)
	defer rows.Close()

	var got []string
	for rows.Next() {
		var id string
		var task int64
		require.NoError(t, rows.Scan(&id, &task))
		got = append(got, id+"/"+ir.Format(ir.Int(task)))
	}
	require.NoError(t, rows.Err())

	// Runs by seq, then spans by task.
	assert.Equal(t, []string{"run-b/1", "run-b/2", "run-a/3"}, got)
}

func TestCompile_SelectExecutesOnSQLite(t *testing.T) {
	db := openTestDB(t)
	c := NewCompiler(testCatalog)

	query, params, err := c.Compile(queryir.Select{
		From:   "task_spans",
		Fields: []string{"run_id", "task"},
		Filter: queryir.Equals{Field: "activity", Value: ir.String("Image")},
	})
	require.NoError(t, err)

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM ("+query+")", params...).Scan(&n))
	assert.Equal(t, 2, n)
}
