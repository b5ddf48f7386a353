package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"
)

// ScenarioNotFoundError is returned when a scenario path doesn't exist.
type ScenarioNotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf("scenario path %q does not exist", e.Path)
}

// FindScenarios expands paths into scenario files. A directory contributes
// every .yaml and .yml file below it, in lexical order; a file is taken as
// is. The result is free of duplicates.
func FindScenarios(paths ...string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			return nil, &ScenarioNotFoundError{Path: path}
		}
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(path)
			continue
		}

		var found []string
		err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if d.Name() == "golden" {
					return filepath.SkipDir
				}
				return nil
			}
			switch filepath.Ext(p) {
			case ".yaml", ".yml":
				found = append(found, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", path, err)
		}
		sort.Strings(found)
		for _, p := range found {
			add(p)
		}
	}
	return out, nil
}

// SuiteResult summarizes a run of several scenarios.
type SuiteResult struct {
	Total    int               `json:"total"`
	Passed   int               `json:"passed"`
	Failed   int               `json:"failed"`
	Outcomes []ScenarioOutcome `json:"outcomes"`
}

// ScenarioOutcome is the result of one scenario file.
type ScenarioOutcome struct {
	Path     string   `json:"path"`
	Scenario string   `json:"scenario,omitempty"`
	Pass     bool     `json:"pass"`
	RunID    string   `json:"run_id,omitempty"`
	Hash     string   `json:"hash,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

// RunSuite loads and runs every scenario in paths, at most parallel at a
// time (parallel < 1 means one at a time). Outcomes are reported in the
// order of paths regardless of completion order.
//
// A scenario that fails to load or run is reported as a failed outcome; the
// returned error is reserved for context cancellation.
func (h *Harness) RunSuite(ctx context.Context, paths []string, parallel int) (*SuiteResult, error) {
	if parallel < 1 {
		parallel = 1
	}
	outcomes := make([]ScenarioOutcome, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = h.runFile(gctx, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &SuiteResult{Total: len(paths), Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}
	return result, nil
}

func (h *Harness) runFile(ctx context.Context, path string) ScenarioOutcome {
	out := ScenarioOutcome{Path: path}

	scenario, err := LoadScenario(path)
	if err != nil {
		out.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return out
	}
	out.Scenario = scenario.Name

	result, err := h.Run(ctx, scenario)
	if err != nil {
		out.Errors = []string{fmt.Sprintf("scenario execution failed: %v", err)}
		return out
	}

	out.Pass = result.Pass
	out.RunID = result.Results.RunID
	out.Hash = result.Hash
	if !result.Pass {
		out.Errors = result.Errors
	}
	h.logger.Debug("scenario finished", "path", path, "pass", out.Pass)
	return out
}
