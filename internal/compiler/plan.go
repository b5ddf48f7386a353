package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/strata/internal/ir"
)

// ValidatePlan validates a plan against the model it will run on.
// Returns all errors found (does not fail-fast).
func ValidatePlan(model *ir.ModelSpec, plan *ir.PlanSpec) []ValidationError {
	var errs []ValidationError
	add := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf(format, args...),
			Code:    code,
		})
	}

	// E120: name is required
	if strings.TrimSpace(plan.Name) == "" {
		add("name", ErrPlanNameEmpty, "plan name is required and must be non-empty")
	}

	// E121: horizon
	horizon, err := ParseDuration(plan.Horizon)
	switch {
	case plan.Horizon == "":
		add("horizon", ErrInvalidHorizon, "horizon is required")
	case err != nil:
		add("horizon", ErrInvalidHorizon, "%v", err)
	case horizon == 0:
		add("horizon", ErrInvalidHorizon, "horizon must be positive")
	}

	ids := make(map[string]bool)
	for i, d := range plan.Directives {
		field := fmt.Sprintf("directives[%d]", i)

		// E122: ids identify spans in results
		switch {
		case strings.TrimSpace(d.ID) == "":
			add(field+".id", ErrInvalidDirectiveID, "directive id is required")
		case ids[d.ID]:
			add(field+".id", ErrInvalidDirectiveID, "duplicate directive id: %q", d.ID)
		}
		ids[d.ID] = true

		// E124: start within the horizon
		start, err := ParseDuration(d.Start)
		switch {
		case d.Start == "":
			add(field+".start", ErrInvalidDirectiveStart, "directive %q: start is required", d.ID)
		case err != nil:
			add(field+".start", ErrInvalidDirectiveStart, "directive %q: %v", d.ID, err)
		case plan.Horizon != "" && horizon > 0 && start > horizon:
			add(field+".start", ErrInvalidDirectiveStart, "directive %q starts at %s, after the horizon %s", d.ID, start, horizon)
		}

		// E123: type
		act, ok := model.Activity(d.Type)
		if !ok {
			add(field+".type", ErrUnknownDirectiveType, "directive %q: undefined activity %q", d.ID, d.Type)
			continue
		}
		errs = append(errs, checkArgs(act, d.Args, nil, field+".args")...)
	}

	return errs
}
