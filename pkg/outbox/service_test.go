package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/streetconnect/streetconnect-backend/pkg/db/models"
	"github.com/streetconnect/streetconnect-backend/pkg/enums"
)

func setupOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`
	require.NoError(t, db.Exec(ddl).Error)
	require.NoError(t, db.Exec("DELETE FROM outbox_events").Error)
	return db
}

func TestEmitWrapsPayloadInEnvelope(t *testing.T) {
	gdb := setupOutboxTestDB(t)
	svc := NewService(NewRepository(gdb), nil)

	aggregateID := uuid.New()
	actorID := uuid.New()
	err := svc.Emit(context.Background(), gdb, DomainEvent{
		EventType:     enums.EventParticipantJoined,
		AggregateType: enums.AggregateGroupBuy,
		AggregateID:   aggregateID,
		Actor:         &ActorRef{UserID: actorID, Role: enums.UserRoleVendor.String()},
		Data:          map[string]int{"quantity": 12},
	})
	require.NoError(t, err)

	var row models.OutboxEvent
	require.NoError(t, gdb.Where("aggregate_id = ?", aggregateID).First(&row).Error)
	require.Equal(t, enums.EventParticipantJoined, row.EventType)
	require.Equal(t, enums.AggregateGroupBuy, row.AggregateType)
	require.Nil(t, row.PublishedAt)
	require.Zero(t, row.AttemptCount)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(row.Payload, &envelope))
	require.Equal(t, 1, envelope.Version)
	require.NotEmpty(t, envelope.EventID)
	require.False(t, envelope.OccurredAt.IsZero())
	require.NotNil(t, envelope.Actor)
	require.Equal(t, actorID, envelope.Actor.UserID)

	var data map[string]int
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	require.Equal(t, 12, data["quantity"])
}

func TestEmitRequiresTransaction(t *testing.T) {
	gdb := setupOutboxTestDB(t)
	svc := NewService(NewRepository(gdb), nil)

	err := svc.Emit(context.Background(), nil, DomainEvent{
		EventType:     enums.EventGroupBuyCreated,
		AggregateType: enums.AggregateGroupBuy,
		AggregateID:   uuid.New(),
		Data:          map[string]int{},
	})
	require.Error(t, err)
}

func TestEmitAllStopsAtFirstFailure(t *testing.T) {
	gdb := setupOutboxTestDB(t)
	svc := NewService(NewRepository(gdb), nil)

	aggregateID := uuid.New()
	events := []DomainEvent{
		{
			EventType:     enums.EventParticipantJoined,
			AggregateType: enums.AggregateGroupBuy,
			AggregateID:   aggregateID,
			Data:          map[string]int{"quantity": 5},
		},
		{
			EventType:     enums.EventGroupBuyConfirmed,
			AggregateType: enums.AggregateGroupBuy,
			AggregateID:   aggregateID,
			Data:          make(chan int), // not JSON-marshallable
		},
	}
	require.Error(t, svc.EmitAll(context.Background(), gdb, events))

	var count int64
	require.NoError(t, gdb.Model(&models.OutboxEvent{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestMarkFailedTxRecordsAttempt(t *testing.T) {
	gdb := setupOutboxTestDB(t)
	repo := NewRepository(gdb)

	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventGroupBuyExpired,
		AggregateType: enums.AggregateGroupBuy,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
	}
	require.NoError(t, repo.Insert(gdb, event))

	require.NoError(t, repo.MarkFailedTx(gdb, event.ID, errors.New("topic unavailable")))
	require.NoError(t, repo.MarkFailedTx(gdb, event.ID, errors.New("topic unavailable")))

	var row models.OutboxEvent
	require.NoError(t, gdb.First(&row, "id = ?", event.ID).Error)
	require.Equal(t, 2, row.AttemptCount)
	require.NotNil(t, row.LastError)
	require.Equal(t, "topic unavailable", *row.LastError)
	require.Nil(t, row.PublishedAt)
}

func TestMarkPublishedTxSetsTimestamp(t *testing.T) {
	gdb := setupOutboxTestDB(t)
	repo := NewRepository(gdb)

	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventGroupBuyConfirmed,
		AggregateType: enums.AggregateGroupBuy,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
	}
	require.NoError(t, repo.Insert(gdb, event))
	require.NoError(t, repo.MarkPublishedTx(gdb, event.ID))

	var row models.OutboxEvent
	require.NoError(t, gdb.First(&row, "id = ?", event.ID).Error)
	require.NotNil(t, row.PublishedAt)
}

func TestDeletePublishedBefore(t *testing.T) {
	gdb := setupOutboxTestDB(t)
	repo := NewRepository(gdb)

	now := time.Now()
	old := now.Add(-48 * time.Hour)
	cutoff := now.Add(-24 * time.Hour)

	insert := func(published *time.Time, attempts int, createdAt time.Time) uuid.UUID {
		row := models.OutboxEvent{
			ID:            uuid.New(),
			EventType:     enums.EventParticipantJoined,
			AggregateType: enums.AggregateGroupBuy,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
			PublishedAt:   published,
			AttemptCount:  attempts,
		}
		require.NoError(t, gdb.Create(&row).Error)
		require.NoError(t, gdb.Model(&models.OutboxEvent{}).
			Where("id = ?", row.ID).
			Update("created_at", createdAt).Error)
		return row.ID
	}

	oldPublished := insert(&old, 0, old)
	recentPublished := insert(&now, 0, now)
	exhausted := insert(nil, 5, old)
	pending := insert(nil, 1, old)

	deleted, err := repo.DeletePublishedBefore(context.Background(), gdb, cutoff, 5)
	require.NoError(t, err)
	require.EqualValues(t, 2, deleted)

	var remaining []models.OutboxEvent
	require.NoError(t, gdb.Find(&remaining).Error)
	ids := map[uuid.UUID]bool{}
	for _, row := range remaining {
		ids[row.ID] = true
	}
	require.False(t, ids[oldPublished])
	require.False(t, ids[exhausted])
	require.True(t, ids[recentPublished])
	require.True(t, ids[pending])
}
