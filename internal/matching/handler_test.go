package matching

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praxisfinder/therapy-platform/internal/events"
	"github.com/praxisfinder/therapy-platform/internal/patients"
	"github.com/praxisfinder/therapy-platform/internal/therapists"
)

type handlerFixture struct {
	handler       *Handler
	store         Store
	patientID     string
	token         string
	matchIDs      map[string]string // therapistID -> matchID
	therapistRepo therapists.Repository
}

// newHandlerFixture seeds two verified therapists and one patient, then runs
// the orchestrator so the store holds a real match set behind one token.
func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	ctx := context.Background()

	therapistRepo := therapists.NewInMemoryRepository()
	patientRepo := patients.NewInMemoryRepository()
	store := NewInMemoryStore()

	seed := []therapists.CreateTherapistRequest{
		{
			Name:               "Dr. Anna Weber",
			Email:              "anna@example.com",
			Gender:             therapists.GenderFemale,
			City:               "Berlin",
			SessionPreferences: []string{therapists.FormatOnline},
			Modalities:         []string{"NARM"},
			Profile:            therapists.Profile{About: "Trauma therapy", YearsExperience: 8},
		},
		{
			Name:               "Dr. Jonas Becker",
			Email:              "jonas@example.com",
			Gender:             therapists.GenderMale,
			City:               "Berlin",
			SessionPreferences: []string{therapists.FormatOnline},
			Modalities:         []string{"NARM"},
		},
	}
	for i := range seed {
		created, err := therapistRepo.Create(ctx, &seed[i])
		require.NoError(t, err)
		require.NoError(t, therapistRepo.SetStatus(ctx, created.ID, therapists.StatusVerified))
	}

	patient, err := patientRepo.Create(ctx, &patients.CreatePatientRequest{
		Name:              "Mara",
		Email:             "mara@example.com",
		City:              "Berlin",
		SessionPreference: patients.FormatOnline,
		Specializations:   []string{"NARM"},
		GenderPreference:  patients.PreferenceFemale,
	})
	require.NoError(t, err)

	o := NewOrchestrator(therapistRepo, therapistRepo, store, nil).WithClock(fixedClock())
	result, err := o.CreateInstantMatches(ctx, patient)
	require.NoError(t, err)
	require.Len(t, result.Matches, 2)

	ids := map[string]string{}
	for _, m := range result.Matches {
		ids[m.TherapistID] = m.ID
	}

	h := NewHandler(store, therapistRepo, patientRepo, nil).WithClock(fixedClock())
	return &handlerFixture{
		handler:       h,
		store:         store,
		patientID:     patient.ID,
		token:         result.SecureToken,
		matchIDs:      ids,
		therapistRepo: therapistRepo,
	}
}

func (f *handlerFixture) get(path, token string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get("/matches/{token}", f.handler.GetByToken)
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf(path, token), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func (f *handlerFixture) post(path string, body any) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Post("/matches/{token}/select", f.handler.Select)
	r.Post("/matches/{token}/contact", f.handler.Contact)
	r.Patch("/matches/{id}/status", f.handler.UpdateStatus)

	buf := &bytes.Buffer{}
	json.NewEncoder(buf).Encode(body)
	req := httptest.NewRequest(http.MethodPost, path, buf)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func (f *handlerFixture) patch(path string, body any) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Patch("/matches/{id}/status", f.handler.UpdateStatus)

	buf := &bytes.Buffer{}
	json.NewEncoder(buf).Encode(body)
	req := httptest.NewRequest(http.MethodPatch, path, buf)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetByToken(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.get("/matches/%s", f.token)
	require.Equal(t, http.StatusOK, w.Code)

	var resp GetMatchesResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Equal(t, 2, resp.Count)

	// Perfect candidate first, richer profile scores carried through.
	first := resp.Matches[0]
	assert.Equal(t, "Dr. Anna Weber", first.Therapist.Name)
	assert.True(t, first.IsPerfect)
	assert.Equal(t, 100, first.MatchScore)
	assert.Empty(t, first.Reasons)

	second := resp.Matches[1]
	assert.Equal(t, "Dr. Jonas Becker", second.Therapist.Name)
	assert.Equal(t, []Reason{ReasonGender}, second.Reasons)
	assert.Equal(t, 65, second.MatchScore)
	assert.Greater(t, first.TotalScore, second.TotalScore)
}

func TestGetByTokenUnknownToken(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.get("/matches/%s", "nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSelect(t *testing.T) {
	f := newHandlerFixture(t)
	ctx := context.Background()

	var annaID string
	for therapistID := range f.matchIDs {
		th, err := f.therapistRepo.GetByID(ctx, therapistID)
		require.NoError(t, err)
		if th.Gender == therapists.GenderFemale {
			annaID = therapistID
		}
	}

	w := f.post("/matches/"+f.token+"/select", therapistActionRequest{TherapistID: annaID})
	require.Equal(t, http.StatusOK, w.Code)

	m, err := f.store.GetByID(ctx, f.matchIDs[annaID])
	require.NoError(t, err)
	assert.Equal(t, StatusPatientSelected, m.Status)

	// Selecting twice is not a legal transition.
	w = f.post("/matches/"+f.token+"/select", therapistActionRequest{TherapistID: annaID})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSelectUnknownTherapist(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.post("/matches/"+f.token+"/select", therapistActionRequest{TherapistID: "ghost"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSelectMissingBody(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.post("/matches/"+f.token+"/select", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type recordingNotifier struct {
	sent []string
}

func (n *recordingNotifier) SendContactRequest(ctx context.Context, therapist *therapists.Therapist, patient *patients.Patient) error {
	n.sent = append(n.sent, therapist.ID)
	return nil
}

func TestContactFlow(t *testing.T) {
	f := newHandlerFixture(t)
	notifier := &recordingNotifier{}
	sink := &recordingSink{}
	f.handler.WithNotifier(notifier).WithEventSink(sink)

	var therapistID string
	for id := range f.matchIDs {
		therapistID = id
		break
	}

	w := f.post("/matches/"+f.token+"/contact", therapistActionRequest{TherapistID: therapistID})
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, true, resp["allowed"])
	assert.Equal(t, float64(1), resp["count"])
	assert.Equal(t, float64(ContactLimitPerDay), resp["limit"])

	m, err := f.store.GetByID(context.Background(), f.matchIDs[therapistID])
	require.NoError(t, err)
	assert.True(t, m.PatientInitiated)
	require.NotNil(t, m.ContactedAt)

	assert.Equal(t, []string{therapistID}, notifier.sent)
	require.Len(t, sink.entries, 1)
	assert.Equal(t, events.EventTypeContactRequested, sink.entries[0].eventType)
}

func TestContactLimitExceeded(t *testing.T) {
	f := newHandlerFixture(t)
	ctx := context.Background()

	// Fill the rolling window with three recent contacts for this patient.
	recent := fixedClock()().Add(-time.Hour)
	for i := 0; i < ContactLimitPerDay; i++ {
		m, err := f.store.Upsert(ctx, UpsertMatchRequest{
			PatientID:   f.patientID,
			TherapistID: fmt.Sprintf("prior-%d", i),
			Status:      StatusSuggested,
			SecureToken: f.token,
		})
		require.NoError(t, err)
		require.NoError(t, f.store.MarkContactInitiated(ctx, m.ID, recent))
	}

	var therapistID string
	for id := range f.matchIDs {
		therapistID = id
		break
	}

	w := f.post("/matches/"+f.token+"/contact", therapistActionRequest{TherapistID: therapistID})
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	var decision ContactDecision
	require.NoError(t, json.NewDecoder(w.Body).Decode(&decision))
	assert.False(t, decision.Allowed)
	assert.Equal(t, ContactLimitPerDay, decision.Count)

	// The refused contact leaves the match untouched.
	m, err := f.store.GetByID(ctx, f.matchIDs[therapistID])
	require.NoError(t, err)
	assert.False(t, m.PatientInitiated)
}

func TestUpdateStatusAdmin(t *testing.T) {
	f := newHandlerFixture(t)
	ctx := context.Background()

	var matchID string
	for _, id := range f.matchIDs {
		matchID = id
		break
	}

	// accepted is only reachable from patient_selected.
	w := f.patch("/matches/"+matchID+"/status", updateStatusRequest{Status: StatusAccepted})
	assert.Equal(t, http.StatusConflict, w.Code)

	require.NoError(t, f.store.UpdateStatus(ctx, matchID, StatusPatientSelected))

	w = f.patch("/matches/"+matchID+"/status", updateStatusRequest{Status: StatusAccepted})
	require.Equal(t, http.StatusOK, w.Code)

	m, err := f.store.GetByID(ctx, matchID)
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, m.Status)
}

func TestUpdateStatusRejectsUnknownValue(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.patch("/matches/any/status", updateStatusRequest{Status: "cancelled"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
