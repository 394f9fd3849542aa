package core

import (
	"context"

	"github.com/dkeye/CoNote/internal/domain"
)

// ThemeStore persists a client's theme preference. Load reports
// domain.ThemeSystem for clients it has never seen.
type ThemeStore interface {
	Load(ctx context.Context, client string) (domain.Theme, error)
	Save(ctx context.Context, client string, t domain.Theme) error
}
