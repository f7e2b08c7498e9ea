package usecase

import (
	"context"
	"fmt"

	"gitlab.com/timkado/api/daisi-callback-board/internal/apperrors"
	"gitlab.com/timkado/api/daisi-callback-board/internal/model"
)

// SaveExhaustedEvent parks a DLQ message that ran out of retries.
func (s *CallbackService) SaveExhaustedEvent(ctx context.Context, event model.ExhaustedEvent) error {
	if s.exhaustedEventRepo == nil {
		return fmt.Errorf("%w: exhausted event store not configured", apperrors.ErrDatabase)
	}
	return s.exhaustedEventRepo.Save(ctx, event)
}
