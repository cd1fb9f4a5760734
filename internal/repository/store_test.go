package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rangovai/internal/model"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db), mock
}

var eventCols = []string{
	"id", "organizer_id", "name", "description", "date", "start_time", "end_time", "is_free",
	"seats_count", "max_volunteer_count", "available_volunteers", "event_location_id", "form_url",
	"created_at", "updated_at",
}

func TestDecrementSeatCommits(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE event SET available_volunteers = available_volunteers - 1 WHERE id = ? AND available_volunteers > 0")).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(qAvailableSeats)).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"available_volunteers"}).AddRow(2))
	mock.ExpectCommit()

	var left int
	err := store.WithTx(context.Background(), func(tx Tx) error {
		var err error
		left, err = tx.DecrementSeat(context.Background(), 7)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, left)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementSeatExhaustedRollsBack(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("available_volunteers - 1")).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(qAvailableSeats)).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"available_volunteers"}).AddRow(0))
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(tx Tx) error {
		_, err := tx.DecrementSeat(context.Background(), 7)
		return err
	})
	assert.ErrorIs(t, err, ErrNoSeats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementSeatAtCapacity(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("available_volunteers + 1 WHERE id = ? AND available_volunteers < max_volunteer_count")).
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(qAvailableSeats)).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"available_volunteers"}).AddRow(5))
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(tx Tx) error {
		_, err := tx.IncrementSeat(context.Background(), 3)
		return err
	})
	assert.ErrorIs(t, err, ErrSeatsAtCapacity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatAdjustMissingEvent(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("available_volunteers - 1")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(qAvailableSeats)).
		WillReturnRows(sqlmock.NewRows([]string{"available_volunteers"}))
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(tx Tx) error {
		_, err := tx.DecrementSeat(context.Background(), 99)
		return err
	})
	assert.ErrorIs(t, err, ErrEventNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxPropagatesCallbackError(t *testing.T) {
	store, mock := newMockStore(t)
	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockEventScansNullableColumns(t *testing.T) {
	store, mock := newMockStore(t)
	day := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM event WHERE id = ? FOR UPDATE")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(eventCols).AddRow(
			1, "org-1", "Festivalis", "", day, "10:00:00", "18:00:00", true,
			nil, 4, 3, nil, "https://forms.example/f", now, now,
		))
	mock.ExpectCommit()

	var ev *model.Event
	err := store.WithTx(context.Background(), func(tx Tx) error {
		var err error
		ev, err = tx.LockEvent(context.Background(), 1)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "org-1", ev.OrganizerID)
	assert.Nil(t, ev.SeatsCount)
	assert.Nil(t, ev.EventLocationID)
	require.NotNil(t, ev.FormURL)
	assert.Equal(t, "https://forms.example/f", *ev.FormURL)
	assert.Equal(t, 1, ev.AcceptedVolunteers())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListOpenAppliesFilter(t *testing.T) {
	store, mock := newMockStore(t)
	from := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE available_volunteers > 0 AND date >= ? AND date <= ? AND (name LIKE ? ESCAPE '!' OR description LIKE ? ESCAPE '!') ORDER BY date ASC")).
		WithArgs("2026-06-01", "2026-06-30", "%fest%", "%fest%").
		WillReturnRows(sqlmock.NewRows(eventCols))

	events, err := store.ListOpenEvents(context.Background(), model.EventFilter{From: &from, To: &to, Query: " fest "})
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListOpenEscapesLikeWildcards(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("(name LIKE ? ESCAPE '!' OR description LIKE ? ESCAPE '!')")).
		WithArgs(`%100!%!_off!!%`, `%100!%!_off!!%`).
		WillReturnRows(sqlmock.NewRows(eventCols))

	_, err := store.ListOpenEvents(context.Background(), model.EventFilter{Query: "100%_off!"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindActiveApplicationNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE volunteer_id = ? AND event_id = ? AND status IN (?, ?)")).
		WithArgs("vol-1", 5, "laukiama", "priimta").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(tx Tx) error {
		_, err := tx.FindActiveApplication(context.Background(), "vol-1", 5)
		return err
	})
	assert.ErrorIs(t, err, ErrApplicationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListApplicationsByEventRejectsUnknownStatus(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN users u ON u.id = a.volunteer_id")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "volunteer_id", "event_id", "status", "date", "name"}).
			AddRow("a-1", "vol-1", 5, "priimta", time.Now(), "Ona").
			AddRow("a-2", "vol-2", 5, "accepted", time.Now(), ""))

	_, err := store.ListApplicationsByEvent(context.Background(), 5)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserUpsertAndLookup(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (id, name, email) VALUES (?,?,?) ON DUPLICATE KEY UPDATE")).
		WithArgs("vol-1", "Ona", "ona@example.lt").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id,name,email FROM users WHERE id=?")).
		WithArgs("vol-2").
		WillReturnError(sql.ErrNoRows)

	require.NoError(t, store.UpsertUser(context.Background(), model.User{ID: "vol-1", Name: " Ona ", Email: "Ona@Example.lt"}))
	_, err := store.Users.GetByID(context.Background(), "vol-2")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketIssueAndList(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM ticket WHERE event_id = ?")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(4))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ticket (event_id, holder_id, created_at) VALUES (?, ?, ?)")).
		WithArgs(3, "vol-1", at).
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta("FROM ticket t JOIN event e ON e.id = t.event_id")).
		WithArgs("vol-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "holder_id", "created_at", "name", "date", "start_time"}).
			AddRow(12, 3, "vol-1", at, "Talka", at, "09:00:00"))

	tk := &model.Ticket{EventID: 3, HolderID: "vol-1", CreatedAt: at}
	err := store.WithTx(context.Background(), func(tx Tx) error {
		n, err := tx.CountTickets(context.Background(), 3)
		if err != nil {
			return err
		}
		assert.Equal(t, 4, n)
		return tx.InsertTicket(context.Background(), tk)
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(12), tk.ID)

	views, err := store.ListTicketsByHolder(context.Background(), "vol-1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Talka", views[0].EventName)
	assert.Equal(t, uint64(3), views[0].EventID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateLocationRewritesRow(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE event_location SET country = ?, city = ?, address = ?, specified_location = ?")).
		WithArgs("Lietuva", "Kaunas", "Laisvės al. 1", "", 23.9, 54.9, 8).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(tx Tx) error {
		return tx.UpdateLocation(context.Background(), &model.EventLocation{
			ID: 8, Country: "Lietuva", City: "Kaunas", Address: "Laisvės al. 1", Longitude: 23.9, Latitude: 54.9,
		})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
