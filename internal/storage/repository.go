package storage

import (
	"context"

	"gitlab.com/timkado/api/daisi-callback-board/internal/model"
)

// CallbackRepo defines callback storage operations. Every call is scoped to one user.
type CallbackRepo interface {
	ListPending(ctx context.Context, userID string) ([]model.Callback, error)
	FindByID(ctx context.Context, userID, id string) (*model.Callback, error)
	FindByCallActivityID(ctx context.Context, userID, callActivityID string) (*model.Callback, error)
	Create(ctx context.Context, callback model.Callback) (*model.Callback, error)
	Update(ctx context.Context, userID, id string, fields map[string]interface{}) (*model.Callback, error)
	Delete(ctx context.Context, userID, id string) error
	Close(ctx context.Context) error
}

// ExhaustedEventRepo defines exhausted event storage operations
type ExhaustedEventRepo interface {
	Save(ctx context.Context, event model.ExhaustedEvent) error
	Close(ctx context.Context) error
}

// Pinger is implemented by stores that can report connection health.
type Pinger interface {
	Ping(ctx context.Context) error
}
