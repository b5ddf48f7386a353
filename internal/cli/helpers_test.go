package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const orbiterModel = `package orbiter

model: Orbiter: {
	resources: {
		mode:    {kind: "register", initial: "idle"}
		images:  {kind: "counter", initial: 0}
		battery: {kind: "accumulator", initial: 100, rate: 0.5}
	}

	activities: {
		Image: {
			params: exposure: {type: "duration", default: "30s"}
			steps: [
				{op: "set", resource: "mode", value: "imaging"},
				{op: "rate", resource: "battery", value: -1},
				{op: "delay", duration: "$exposure"},
				{op: "rate", resource: "battery", value: 1},
				{op: "add", resource: "images", value: 1},
				{op: "set", resource: "mode", value: "idle"},
			]
		}
		Safe: steps: [
			{op: "set", resource: "mode", value: "safe"},
		]
	}
}
`

const dayPlan = `name: day-1
horizon: 2m
directives:
  - {id: img-1, type: Image, start: 10s}
`

const conflictPlan = `name: clash
horizon: 1m
directives:
  - {id: img-1, type: Image, start: 10s}
  - {id: safe, type: Safe, start: 10s}
`

// writeFile writes content to dir/name and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// writeModel writes the orbiter model into a fresh directory.
func writeModel(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "orbiter")
	writeFile(t, dir, "orbiter.cue", orbiterModel)
	return dir
}

// execute runs the root command with args and returns stdout and the error.
// Logs go to a separate buffer so JSON output stays parseable.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
