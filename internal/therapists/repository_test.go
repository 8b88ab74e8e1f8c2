package therapists

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

func TestInMemoryCreateAndGet(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	created, err := repo.Create(ctx, &CreateTherapistRequest{
		Name:               "Anna Berger",
		Email:              "anna@example.com",
		Gender:             GenderFemale,
		City:               "Berlin",
		SessionPreferences: []string{FormatOnline},
		Modalities:         []string{"NARM", "Somatic Experiencing®"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, StatusPending, created.Status)
	assert.True(t, created.IsAcceptingNew(), "absent accepting_new defaults to true")

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Anna Berger", got.Name)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrTherapistNotFound)
}

func TestInMemoryCreateValidation(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	_, err := repo.Create(ctx, &CreateTherapistRequest{Name: "  "})
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = repo.Create(ctx, &CreateTherapistRequest{Name: "X", Gender: "other"})
	assert.ErrorIs(t, err, ErrInvalidGender)

	_, err = repo.Create(ctx, &CreateTherapistRequest{Name: "X", SessionPreferences: []string{"hybrid"}})
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestInMemoryListFilters(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	berlin, err := repo.Create(ctx, &CreateTherapistRequest{
		Name: "A", City: "Berlin", Modalities: []string{"Somatic Experiencing®"},
	})
	require.NoError(t, err)
	munich, err := repo.Create(ctx, &CreateTherapistRequest{
		Name: "B", City: "München", Modalities: []string{"Hakomi"},
	})
	require.NoError(t, err)
	require.NoError(t, repo.SetStatus(ctx, berlin.ID, StatusVerified))
	require.NoError(t, repo.SetStatus(ctx, munich.ID, StatusVerified))

	list, err := repo.List(ctx, ListFilter{Status: StatusVerified, City: "berlin"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, berlin.ID, list[0].ID)

	// Modality comparison happens in the normalized identifier space.
	list, err = repo.List(ctx, ListFilter{Modality: "somatic_experiencing"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, berlin.ID, list[0].ID)

	require.NoError(t, repo.SetHidden(ctx, berlin.ID, true))
	list, err = repo.List(ctx, ListFilter{Status: StatusVerified})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, munich.ID, list[0].ID)

	list, err = repo.List(ctx, ListFilter{Status: StatusVerified, IncludeHidden: true})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestInMemoryListVerifiedStableOrder(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	for _, name := range []string{"A", "B", "C"} {
		created, err := repo.Create(ctx, &CreateTherapistRequest{Name: name})
		require.NoError(t, err)
		require.NoError(t, repo.SetStatus(ctx, created.ID, StatusVerified))
	}

	first, err := repo.ListVerified(ctx)
	require.NoError(t, err)
	second, err := repo.ListVerified(ctx)
	require.NoError(t, err)

	require.Len(t, first, 3)
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID, "pool order must be reproducible")
	}
}

func TestInMemoryUpdate(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	created, err := repo.Create(ctx, &CreateTherapistRequest{Name: "A", City: "Berlin"})
	require.NoError(t, err)

	city := "Hamburg"
	updated, err := repo.Update(ctx, created.ID, &UpdateTherapistRequest{
		City:         &city,
		AcceptingNew: boolPtr(false),
		Profile:      &Profile{About: "Trauma-focused work", YearsExperience: 7},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hamburg", updated.City)
	assert.Equal(t, "A", updated.Name, "nil fields stay untouched")
	assert.False(t, updated.IsAcceptingNew())
	assert.Equal(t, 7, updated.Profile.YearsExperience)

	_, err = repo.Update(ctx, "missing", &UpdateTherapistRequest{})
	assert.ErrorIs(t, err, ErrTherapistNotFound)
}

func TestInMemorySlotLifecycle(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	created, err := repo.Create(ctx, &CreateTherapistRequest{Name: "A"})
	require.NoError(t, err)

	recurring, err := repo.CreateSlot(ctx, &CreateSlotRequest{
		TherapistID: created.ID,
		DayOfWeek:   intPtr(2),
		TimeLocal:   "09:00",
		Format:      FormatOnline,
		Kind:        SlotKindIntro,
		IsRecurring: true,
	})
	require.NoError(t, err)
	assert.True(t, recurring.Active, "slots default to active")

	oneOffDate := time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC) // a Saturday
	oneOff, err := repo.CreateSlot(ctx, &CreateSlotRequest{
		TherapistID:  created.ID,
		TimeLocal:    "10:30",
		Format:       FormatInPerson,
		IsRecurring:  false,
		SpecificDate: &oneOffDate,
	})
	require.NoError(t, err)
	require.NotNil(t, oneOff.DayOfWeek)
	assert.Equal(t, int(time.Saturday), *oneOff.DayOfWeek, "weekday derived from specific date")
	assert.Equal(t, SlotKindFull, oneOff.Kind, "kind defaults to full")

	slots, err := repo.ListSlots(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, slots, 2)

	inactive := false
	_, err = repo.CreateSlot(ctx, &CreateSlotRequest{
		TherapistID: created.ID,
		DayOfWeek:   intPtr(3),
		TimeLocal:   "14:00",
		Format:      FormatOnline,
		IsRecurring: true,
		Active:      &inactive,
	})
	require.NoError(t, err)

	active, err := repo.ListActiveSlotsByTherapistIDs(ctx, []string{created.ID})
	require.NoError(t, err)
	assert.Len(t, active[created.ID], 2, "inactive slots excluded")

	require.NoError(t, repo.DeleteSlot(ctx, created.ID, recurring.ID))
	assert.ErrorIs(t, repo.DeleteSlot(ctx, created.ID, recurring.ID), ErrSlotNotFound)
}

func TestSlotRequestValidation(t *testing.T) {
	date := time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		req  CreateSlotRequest
		want error
	}{
		{"bad time", CreateSlotRequest{TimeLocal: "9am", Format: FormatOnline, IsRecurring: true, DayOfWeek: intPtr(1)}, ErrInvalidSlotTime},
		{"bad hour", CreateSlotRequest{TimeLocal: "25:00", Format: FormatOnline, IsRecurring: true, DayOfWeek: intPtr(1)}, ErrInvalidSlotTime},
		{"bad format", CreateSlotRequest{TimeLocal: "09:00", Format: "phone", IsRecurring: true, DayOfWeek: intPtr(1)}, ErrInvalidFormat},
		{"recurring without weekday", CreateSlotRequest{TimeLocal: "09:00", Format: FormatOnline, IsRecurring: true}, ErrInvalidSlotDay},
		{"recurring weekday out of range", CreateSlotRequest{TimeLocal: "09:00", Format: FormatOnline, IsRecurring: true, DayOfWeek: intPtr(7)}, ErrInvalidSlotDay},
		{"recurring with date", CreateSlotRequest{TimeLocal: "09:00", Format: FormatOnline, IsRecurring: true, DayOfWeek: intPtr(1), SpecificDate: &date}, ErrSlotDateForbidden},
		{"one-off without date", CreateSlotRequest{TimeLocal: "09:00", Format: FormatOnline, IsRecurring: false}, ErrSlotDateRequired},
		{"valid one-off", CreateSlotRequest{TimeLocal: "09:00", Format: FormatOnline, IsRecurring: false, SpecificDate: &date}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestSlotHour(t *testing.T) {
	s := AvailabilitySlot{TimeLocal: "17:30"}
	assert.Equal(t, 17, s.Hour())
	s.TimeLocal = "bad"
	assert.Equal(t, -1, s.Hour())
}
