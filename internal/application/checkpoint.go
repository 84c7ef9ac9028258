package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/campus-pingpong/internal/persistence"
)

// Checkpointer snapshots the durable collections after a successful mutation.
// A checkpoint failure must never fail or roll back the in-memory mutation;
// the services log it and report success to the caller.
type Checkpointer interface {
	Checkpoint(ctx context.Context) error
}

func checkpointState(ctx context.Context, cp Checkpointer, logger *slog.Logger) {
	if cp == nil {
		return
	}
	if err := cp.Checkpoint(ctx); err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.ErrorContext(ctx, "state checkpoint failed", "error", err)
	}
}

// mapRepoError translates persistence sentinel errors into application ones.
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	}
	return err
}
