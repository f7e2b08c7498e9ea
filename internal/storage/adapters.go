package storage

import (
	"context"

	"gitlab.com/timkado/api/daisi-callback-board/internal/model"
)

// CallbackRepoAdapter adapts the PostgresRepo to the CallbackRepo interface
type CallbackRepoAdapter struct {
	postgres *PostgresRepo
}

// NewCallbackRepoAdapter creates a new callback repository adapter
func NewCallbackRepoAdapter(postgres *PostgresRepo) CallbackRepo {
	return &CallbackRepoAdapter{postgres: postgres}
}

func (a *CallbackRepoAdapter) ListPending(ctx context.Context, userID string) ([]model.Callback, error) {
	return a.postgres.ListPendingCallbacks(ctx, userID)
}

func (a *CallbackRepoAdapter) FindByID(ctx context.Context, userID, id string) (*model.Callback, error) {
	return a.postgres.FindCallbackByID(ctx, userID, id)
}

func (a *CallbackRepoAdapter) FindByCallActivityID(ctx context.Context, userID, callActivityID string) (*model.Callback, error) {
	return a.postgres.FindCallbackByCallActivityID(ctx, userID, callActivityID)
}

func (a *CallbackRepoAdapter) Create(ctx context.Context, callback model.Callback) (*model.Callback, error) {
	return a.postgres.CreateCallback(ctx, callback)
}

func (a *CallbackRepoAdapter) Update(ctx context.Context, userID, id string, fields map[string]interface{}) (*model.Callback, error) {
	return a.postgres.UpdateCallback(ctx, userID, id, fields)
}

func (a *CallbackRepoAdapter) Delete(ctx context.Context, userID, id string) error {
	return a.postgres.DeleteCallback(ctx, userID, id)
}

func (a *CallbackRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// ExhaustedEventRepoAdapter adapts the PostgresRepo to the ExhaustedEventRepo interface
type ExhaustedEventRepoAdapter struct {
	postgres *PostgresRepo
}

// NewExhaustedEventRepoAdapter creates a new exhausted event repository adapter
func NewExhaustedEventRepoAdapter(postgres *PostgresRepo) ExhaustedEventRepo {
	return &ExhaustedEventRepoAdapter{postgres: postgres}
}

func (a *ExhaustedEventRepoAdapter) Save(ctx context.Context, event model.ExhaustedEvent) error {
	return a.postgres.SaveExhaustedEvent(ctx, event)
}

func (a *ExhaustedEventRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}
