package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-callback-board/internal/apperrors"
	"gitlab.com/timkado/api/daisi-callback-board/internal/model"
	"gitlab.com/timkado/api/daisi-callback-board/internal/observer"
	"gitlab.com/timkado/api/daisi-callback-board/pkg/logger"
	"gitlab.com/timkado/api/daisi-callback-board/pkg/utils"
)

const callbackEntity = "callback"

// --- Callback Repository Methods ---

// ListPendingCallbacks returns the user's pending callbacks, earliest first.
func (r *PostgresRepo) ListPendingCallbacks(ctx context.Context, userID string) ([]model.Callback, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", apperrors.ErrUnauthorized)
	}

	var callbacks []model.Callback
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("user_id = ? AND status = ?", userID, model.StatusPending).
			Order("scheduled_for ASC").
			Find(&callbacks)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	start := utils.Now()
	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	findErr := retryableOperation(ctx, readPolicy, "ListPendingCallbacks", operation)
	observer.ObserveDbOperationDuration("list_pending", callbackEntity, r.companyID, time.Since(start), findErr)

	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to list pending callbacks after retries",
			zap.String("user_id", userID),
			zap.Error(findErr))
		return nil, findErr
	}
	if callbacks == nil {
		callbacks = []model.Callback{}
	}
	return callbacks, nil
}

func (r *PostgresRepo) findCallbackBy(ctx context.Context, opName, column, value, userID string) (*model.Callback, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", apperrors.ErrUnauthorized)
	}

	var callback model.Callback
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where(column+" = ? AND user_id = ?", value, userID).
			First(&callback)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	start := utils.Now()
	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	findErr := retryableOperation(ctx, readPolicy, opName, operation)
	observer.ObserveDbOperationDuration("find", callbackEntity, r.companyID, time.Since(start), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find callback after retries",
			zap.String("operation", opName),
			zap.String(column, value),
			zap.String("user_id", userID),
			zap.Error(findErr))
		return nil, findErr
	}
	return &callback, nil
}

// FindCallbackByID loads one of the user's callbacks.
func (r *PostgresRepo) FindCallbackByID(ctx context.Context, userID, id string) (*model.Callback, error) {
	return r.findCallbackBy(ctx, "FindCallbackByID", "id", id, userID)
}

// FindCallbackByCallActivityID loads the callback created from a given call wrap-up, if any.
func (r *PostgresRepo) FindCallbackByCallActivityID(ctx context.Context, userID, callActivityID string) (*model.Callback, error) {
	return r.findCallbackBy(ctx, "FindCallbackByCallActivityID", "call_activity_id", callActivityID, userID)
}

// CreateCallback inserts a new callback. An empty ID is filled with a fresh UUID.
func (r *PostgresRepo) CreateCallback(ctx context.Context, callback model.Callback) (*model.Callback, error) {
	if callback.UserID == "" {
		return nil, fmt.Errorf("%w: user_id is required", apperrors.ErrUnauthorized)
	}
	if callback.ID == "" {
		callback.ID = uuid.NewString()
	}

	operation := func() error {
		if err := r.db.WithContext(ctx).Create(&callback).Error; err != nil {
			return checkConstraintViolation(err)
		}
		return nil
	}

	start := utils.Now()
	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	commitErr := retryableOperation(ctx, commitPolicy, "CreateCallback Commit", operation)
	observer.ObserveDbOperationDuration("create", callbackEntity, r.companyID, time.Since(start), commitErr)

	if commitErr != nil {
		if !errors.Is(commitErr, apperrors.ErrDuplicate) {
			logger.FromContext(ctx).Error("Failed to create callback after retries",
				zap.String("user_id", callback.UserID),
				zap.String("callback_id", callback.ID),
				zap.Error(commitErr))
		}
		return nil, commitErr
	}

	logger.FromContext(ctx).Debug("Callback created",
		zap.String("callback_id", callback.ID),
		zap.Time("scheduled_for", callback.ScheduledFor))
	return &callback, nil
}

// UpdateCallback applies the given column changes to one of the user's callbacks
// and returns the stored row after the update.
func (r *PostgresRepo) UpdateCallback(ctx context.Context, userID, id string, fields map[string]interface{}) (*model.Callback, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", apperrors.ErrUnauthorized)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", apperrors.ErrBadRequest)
	}
	loggerCtx := logger.FromContext(ctx)

	var updated model.Callback
	operation := func() error {
		tx := r.db.WithContext(ctx).Begin()
		if tx.Error != nil {
			return fmt.Errorf("%w: failed to begin transaction: %w", apperrors.ErrDatabase, tx.Error)
		}
		var txErr error
		defer func() {
			if p := recover(); p != nil {
				tx.Rollback()
				panic(p)
			} else if txErr != nil {
				if rbErr := tx.Rollback().Error; rbErr != nil {
					loggerCtx.Error("Failed to rollback transaction after error", zap.Error(rbErr), zap.NamedError("originalTxError", txErr))
				}
			}
		}()

		updateResult := tx.Model(&model.Callback{}).
			Where("id = ? AND user_id = ?", id, userID).
			Updates(fields)
		if updateResult.Error != nil {
			txErr = checkConstraintViolation(updateResult.Error)
			return txErr
		}
		if updateResult.RowsAffected == 0 {
			txErr = fmt.Errorf("%w: callback %s not found", apperrors.ErrNotFound, id)
			return txErr
		}

		if findErr := tx.Where("id = ? AND user_id = ?", id, userID).First(&updated).Error; findErr != nil {
			txErr = checkConstraintViolation(findErr)
			return txErr
		}

		if commitErr := tx.Commit().Error; commitErr != nil {
			txErr = fmt.Errorf("%w: failed to commit callback update transaction: %w", apperrors.ErrDatabase, commitErr)
			return txErr
		}
		return nil
	}

	start := utils.Now()
	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	commitErr := retryableOperation(ctx, commitPolicy, "UpdateCallback Commit", operation)
	observer.ObserveDbOperationDuration("update", callbackEntity, r.companyID, time.Since(start), commitErr)

	if commitErr != nil {
		if errors.Is(commitErr, apperrors.ErrNotFound) {
			loggerCtx.Warn("UpdateCallback affected no rows",
				zap.String("callback_id", id),
				zap.String("user_id", userID))
			return nil, commitErr
		}
		loggerCtx.Error("Failed to update callback after retries",
			zap.String("callback_id", id),
			zap.String("user_id", userID),
			zap.Error(commitErr))
		return nil, commitErr
	}
	return &updated, nil
}

// DeleteCallback removes one of the user's callbacks.
func (r *PostgresRepo) DeleteCallback(ctx context.Context, userID, id string) error {
	if userID == "" {
		return fmt.Errorf("%w: user_id is required", apperrors.ErrUnauthorized)
	}

	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("id = ? AND user_id = ?", id, userID).
			Delete(&model.Callback{})
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: callback %s not found", apperrors.ErrNotFound, id)
		}
		return nil
	}

	start := utils.Now()
	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	commitErr := retryableOperation(ctx, commitPolicy, "DeleteCallback Commit", operation)
	observer.ObserveDbOperationDuration("delete", callbackEntity, r.companyID, time.Since(start), commitErr)

	if commitErr != nil && !errors.Is(commitErr, apperrors.ErrNotFound) {
		logger.FromContext(ctx).Error("Failed to delete callback after retries",
			zap.String("callback_id", id),
			zap.String("user_id", userID),
			zap.Error(commitErr))
	}
	return commitErr
}
