// Package store records planned workflow instances so that later commands
// can address them by run id.
package store

import (
	"context"
	"errors"

	"github.com/me/wfkit/pkg/model"
)

// ErrRunNotFound is returned by UpdateRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// Store defines the persistence layer for runs.
type Store interface {
	CreateRun(ctx context.Context, run *model.Run) error
	// GetRun returns nil, nil when no run has the id.
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, opts model.ListOptions) ([]*model.Run, int, error)
	UpdateRun(ctx context.Context, run *model.Run) error

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
