package chat

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists FAQ entries.
type Repository interface {
	Create(ctx context.Context, f *FAQ) error
	List(ctx context.Context, category string) ([]*FAQ, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int, error)
}
