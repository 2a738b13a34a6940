package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/adoption-forecast/internal/model"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrNilParameter = errors.New("parameter cannot be nil")
	ErrInvalidRun   = errors.New("invalid run")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRun checks that a run is complete before it is written.
func validateRun(run *model.Run) error {
	if run == nil {
		return fmt.Errorf("%w: run", ErrNilParameter)
	}
	if run.Inputs == nil {
		return fmt.Errorf("%w: missing inputs", ErrInvalidRun)
	}
	if len(run.Scenarios) == 0 {
		return fmt.Errorf("%w: no scenarios", ErrInvalidRun)
	}
	if len(run.Statistics) != run.Inputs.Horizon {
		return fmt.Errorf("%w: %d statistics rows for a %d-year horizon",
			ErrInvalidRun, len(run.Statistics), run.Inputs.Horizon)
	}

	seen := make(map[string]bool, len(run.Scenarios))
	for _, sc := range run.Scenarios {
		name := sc.Name()
		if seen[name] {
			return fmt.Errorf("%w: duplicate scenario %s", ErrInvalidRun, name)
		}
		seen[name] = true
		if len(sc.NewPurchases) != run.Inputs.Horizon || len(sc.Cumulative) != run.Inputs.Horizon {
			return fmt.Errorf("%w: scenario %s does not span the horizon", ErrInvalidRun, name)
		}
	}
	return nil
}
