// Package protocol defines the contracts between the workflow runner and the
// pluggable action implementations.
package protocol

import (
	"context"
	"log/slog"

	"github.com/innospot/autoflow/pkg/models"
)

type Action interface {
	Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error)
}

type ActionFactory interface {
	ID() string
	Schema() map[string]any
	Create(config map[string]any) (Action, error)
}
