package matching

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryUpsertIdempotent(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	req := UpsertMatchRequest{
		PatientID:   "p1",
		TherapistID: "t1",
		Status:      StatusSuggested,
		SecureToken: "tok-1",
		Reasons:     []Reason{ReasonGender},
	}
	first, err := store.Upsert(ctx, req)
	require.NoError(t, err)

	// A second upsert with a fresh token must return the original row.
	req.SecureToken = "tok-2"
	second, err := store.Upsert(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "tok-1", second.SecureToken, "original token survives")
	assert.Equal(t, StatusSuggested, second.Status)

	matches, err := store.ListByToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestInMemoryListByToken(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	for _, tid := range []string{"t1", "t2", "t3"} {
		_, err := store.Upsert(ctx, UpsertMatchRequest{
			PatientID: "p1", TherapistID: tid, Status: StatusSuggested, SecureToken: "tok",
		})
		require.NoError(t, err)
	}
	_, err := store.Upsert(ctx, UpsertMatchRequest{
		PatientID: "p2", TherapistID: "t1", Status: StatusSuggested, SecureToken: "other",
	})
	require.NoError(t, err)

	matches, err := store.ListByToken(ctx, "tok")
	require.NoError(t, err)
	assert.Len(t, matches, 3)

	none, err := store.ListByToken(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInMemoryUpdateStatus(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	m, err := store.Upsert(ctx, UpsertMatchRequest{
		PatientID: "p1", TherapistID: "t1", Status: StatusSuggested, SecureToken: "tok",
	})
	require.NoError(t, err)

	require.NoError(t, store.UpdateStatus(ctx, m.ID, StatusPatientSelected))
	got, err := store.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPatientSelected, got.Status)

	assert.ErrorIs(t, store.UpdateStatus(ctx, "missing", StatusAccepted), ErrMatchNotFound)
}

func TestInMemoryContactWindow(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	ids := []string{}
	for _, tid := range []string{"t1", "t2", "t3"} {
		m, err := store.Upsert(ctx, UpsertMatchRequest{
			PatientID: "p1", TherapistID: tid, Status: StatusSuggested, SecureToken: "tok",
		})
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}

	require.NoError(t, store.MarkContactInitiated(ctx, ids[0], now.Add(-2*time.Hour)))
	require.NoError(t, store.MarkContactInitiated(ctx, ids[1], now.Add(-30*time.Hour)))

	count, err := store.CountContactInitiatedSince(ctx, "p1", now.Add(-ContactWindow))
	require.NoError(t, err)
	assert.Equal(t, 1, count, "only contacts inside the rolling window count")

	got, err := store.GetByID(ctx, ids[0])
	require.NoError(t, err)
	assert.True(t, got.PatientInitiated)
	require.NotNil(t, got.ContactedAt)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusSuggested, StatusPatientSelected))
	assert.True(t, CanTransition(StatusProposed, StatusPatientSelected))
	assert.True(t, CanTransition(StatusPatientSelected, StatusAccepted))
	assert.True(t, CanTransition(StatusPatientSelected, StatusRejected))

	assert.False(t, CanTransition(StatusSuggested, StatusAccepted))
	assert.False(t, CanTransition(StatusAccepted, StatusRejected))
	assert.False(t, CanTransition(StatusRejected, StatusPatientSelected))
	assert.False(t, CanTransition(StatusPatientSelected, StatusSuggested))
}
