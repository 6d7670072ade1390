package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/gridpos/backend/internal/domain/billing"
	"github.com/gridpos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockPaymentEventRepository creates a GormPaymentEventRepository with a mocked SQL connection
func newMockPaymentEventRepository(t *testing.T) (*GormPaymentEventRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormPaymentEventRepository(gormDB), mock, mockDB
}

func newStoredEvent(t *testing.T) *billing.PaymentEvent {
	t.Helper()
	event, err := billing.NewPaymentEvent("stripe", "evt_1", decimal.NewFromInt(29), "USD",
		billing.OutcomeSucceeded, `{"id":"evt_1"}`, time.Now())
	require.NoError(t, err)
	return event
}

func TestGormPaymentEventRepository_Insert(t *testing.T) {
	t.Run("inserts a new event", func(t *testing.T) {
		repo, mock, mockDB := newMockPaymentEventRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`INSERT INTO "payment_events"`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Insert(context.Background(), newStoredEvent(t))

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps the unique violation to a duplicate event", func(t *testing.T) {
		repo, mock, mockDB := newMockPaymentEventRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`INSERT INTO "payment_events"`).
			WillReturnError(errors.New(`pq: duplicate key value violates unique constraint "idx_payment_events_dedup"`))

		err := repo.Insert(context.Background(), newStoredEvent(t))

		assert.ErrorIs(t, err, billing.ErrDuplicateBillingEvent)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("passes other database errors through", func(t *testing.T) {
		repo, mock, mockDB := newMockPaymentEventRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`INSERT INTO "payment_events"`).
			WillReturnError(errors.New("pq: connection refused"))

		err := repo.Insert(context.Background(), newStoredEvent(t))

		require.Error(t, err)
		assert.NotErrorIs(t, err, billing.ErrDuplicateBillingEvent)
	})
}

func TestGormPaymentEventRepository_FindByDedupKey(t *testing.T) {
	t.Run("finds a stored event", func(t *testing.T) {
		repo, mock, mockDB := newMockPaymentEventRepository(t)
		defer mockDB.Close()

		eventID := uuid.New()
		rows := sqlmock.NewRows([]string{
			"id", "provider", "external_id", "currency", "outcome", "processed",
		}).AddRow(eventID, "stripe", "evt_1", "USD", "succeeded", false)

		mock.ExpectQuery(`SELECT \* FROM "payment_events" WHERE provider = \$1 AND external_id = \$2`).
			WithArgs("stripe", "evt_1", 1).
			WillReturnRows(rows)

		event, err := repo.FindByDedupKey(context.Background(), "stripe", "evt_1")

		require.NoError(t, err)
		assert.Equal(t, eventID, event.ID)
		assert.Equal(t, "stripe:evt_1", event.DedupKey())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found for an unknown key", func(t *testing.T) {
		repo, mock, mockDB := newMockPaymentEventRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "payment_events"`).
			WithArgs("stripe", "evt_missing", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		event, err := repo.FindByDedupKey(context.Background(), "stripe", "evt_missing")

		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.Nil(t, event)
	})
}

func TestGormPaymentEventRepository_MarkProcessed(t *testing.T) {
	t.Run("marks an unprocessed event", func(t *testing.T) {
		repo, mock, mockDB := newMockPaymentEventRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "payment_events" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.MarkProcessed(context.Background(), uuid.New(), uuid.New(), uuid.New())

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already processed event is not found", func(t *testing.T) {
		repo, mock, mockDB := newMockPaymentEventRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "payment_events" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.MarkProcessed(context.Background(), uuid.New(), uuid.New(), uuid.New())

		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
