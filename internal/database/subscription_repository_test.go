package database

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitwatch/journey-alert-backend/internal/models"
)

func centralLegs() models.LegList {
	line := "central"
	return models.LegList{
		{StationID: "A", LineID: &line},
		{StationID: "B", LineID: nil},
	}
}

func weekdayWindows() models.WindowList {
	return models.WindowList{{
		Days:     []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"},
		Start:    "08:00",
		End:      "09:30",
		Timezone: "Europe/London",
	}}
}

func TestSubscriptionCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubscriptionRepository(db)

	legs, windows := centralLegs(), weekdayWindows()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO subscriptions`)).
		WithArgs(sqlmock.AnyArg(), legs, windows, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	sub, err := repo.Create(legs, windows)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, sub.ID)
	assert.Equal(t, legs, sub.Legs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscriptionUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubscriptionRepository(db)

	sub := &models.Subscription{ID: uuid.New(), Legs: centralLegs(), Windows: weekdayWindows()}

	t.Run("Updates Existing", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE subscriptions`)).
			WithArgs(sub.ID, sub.Legs, sub.Windows).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Update(sub))
	})

	t.Run("Missing Row Is Not Found", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE subscriptions`)).
			WithArgs(sub.ID, sub.Legs, sub.Windows).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Update(sub), ErrNotFound)
	})
}

func TestSubscriptionGetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubscriptionRepository(db)

	id := uuid.New()
	now := time.Now()
	legsJSON := []byte(`[{"station_id": "A", "line_id": "central"}, {"station_id": "B"}]`)
	windowsJSON := []byte(`[{"days": ["Monday"], "start": "08:00", "end": "09:30", "timezone": "Europe/London"}]`)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM subscriptions`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "legs", "windows", "created_at", "updated_at"}).
			AddRow(id.String(), legsJSON, windowsJSON, now, now))

	sub, err := repo.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, id, sub.ID)
	require.Len(t, sub.Legs, 2)
	assert.Equal(t, "A", sub.Legs[0].StationID)
	require.NotNil(t, sub.Legs[0].LineID)
	assert.Equal(t, "central", *sub.Legs[0].LineID)
	assert.Nil(t, sub.Legs[1].LineID)
	require.Len(t, sub.Windows, 1)
	assert.Equal(t, "Europe/London", sub.Windows[0].Timezone)
}

func TestSubscriptionGetByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubscriptionRepository(db)

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM subscriptions`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubscriptionGetMonitorable(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubscriptionRepository(db)

	id := uuid.New()
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`jsonb_array_length(windows) > 0`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "legs", "windows", "created_at", "updated_at"}).
			AddRow(id.String(), []byte(`[]`), []byte(`[{"days": ["Monday"], "start": "08:00", "end": "09:00", "timezone": "UTC"}]`), now, now))

	subs, err := repo.GetMonitorable()
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, id, subs[0].ID)
}

func TestSubscriptionDelete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubscriptionRepository(db)

	id := uuid.New()

	t.Run("Deletes Existing", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM subscriptions WHERE id = $1`)).
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Delete(id))
	})

	t.Run("Missing Row Is Not Found", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM subscriptions WHERE id = $1`)).
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Delete(id), ErrNotFound)
	})
}
