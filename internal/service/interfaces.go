// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/Veraticus/adoption-forecast/internal/model"
)

// Storage defines the contract for the run history.
type Storage interface {
	SaveRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error)
	DeleteRun(ctx context.Context, id string) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// ReportWriter publishes a completed run to an external destination.
type ReportWriter interface {
	Write(ctx context.Context, run *model.Run) error
}
