package storage

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
	"gorm.io/datatypes"

	"gitlab.com/timkado/api/daisi-callback-board/internal/apperrors"
	"gitlab.com/timkado/api/daisi-callback-board/internal/model"
	"gitlab.com/timkado/api/daisi-callback-board/pkg/logger"
)

func newExhaustedEvent() model.ExhaustedEvent {
	dlqPayloadJSON, _ := json.Marshal(map[string]string{"error": "failed to process"})
	originalPayloadJSON, _ := json.Marshal(map[string]string{"call_activity_id": "call-1"})
	return model.ExhaustedEvent{
		CompanyID:       testCompanyID,
		SourceSubject:   "v1.calls.wrapup." + testCompanyID,
		LastError:       "database error",
		RetryCount:      5,
		EventTimestamp:  time.Now(),
		DLQPayload:      datatypes.JSON(dlqPayloadJSON),
		OriginalPayload: datatypes.JSON(originalPayloadJSON),
	}
}

func TestSaveExhaustedEvent_Success(t *testing.T) {
	mockDB, mock, repo := setupMockDB(t)
	defer mockDB.Close()
	ctx := logger.WithLogger(context.Background(), zaptest.NewLogger(t))

	event := newExhaustedEvent()
	query := regexp.QuoteMeta(`INSERT INTO "exhausted_events" ("created_at","company_id","source_subject","last_error","retry_count","event_timestamp","dlq_payload","original_payload","resolved","resolved_at","notes") VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING "id"`)

	mock.ExpectBegin()
	mock.ExpectQuery(query).
		WithArgs(AnyTime{}, event.CompanyID, event.SourceSubject, event.LastError, event.RetryCount, event.EventTimestamp, event.DLQPayload, event.OriginalPayload, false, nil, "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	assert.NoError(t, repo.SaveExhaustedEvent(ctx, event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveExhaustedEvent_CreateError(t *testing.T) {
	mockDB, mock, repo := setupMockDB(t)
	defer mockDB.Close()
	ctx := logger.WithLogger(context.Background(), zaptest.NewLogger(t))

	expectedErr := errors.New("relation does not exist")
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "exhausted_events"`)).WillReturnError(expectedErr)
	mock.ExpectRollback()

	err := repo.SaveExhaustedEvent(ctx, newExhaustedEvent())

	assert.ErrorIs(t, err, apperrors.ErrDatabase)
	assert.ErrorContains(t, err, expectedErr.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveExhaustedEvent_CommitError(t *testing.T) {
	mockDB, mock, repo := setupMockDB(t)
	defer mockDB.Close()
	ctx := logger.WithLogger(context.Background(), zaptest.NewLogger(t))

	expectedErr := errors.New("commit failed")
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "exhausted_events"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit().WillReturnError(expectedErr)

	err := repo.SaveExhaustedEvent(ctx, newExhaustedEvent())

	assert.ErrorIs(t, err, apperrors.ErrDatabase)
	assert.ErrorContains(t, err, expectedErr.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}
