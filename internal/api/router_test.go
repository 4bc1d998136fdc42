package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/booking"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/model"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/retry"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/store"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/store/sqlite/sqlitetest"
)

func newTestRouter(t *testing.T, healthy bool) (http.Handler, store.Store) {
	t.Helper()
	st := sqlitetest.New(t)
	policy := retry.Policy{InitialInterval: time.Millisecond, MaxRetries: 1}
	ledger := booking.NewLedger(st, policy, zerolog.Nop(),
		booking.WithClock(func() time.Time { return time.Date(2026, 1, 24, 10, 0, 0, 0, time.UTC) }))
	return NewRouter(Deps{
		Store:     st,
		Slots:     ledger,
		IsHealthy: func() bool { return healthy },
		Policy:    policy,
		Log:       zerolog.Nop(),
	}), st
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestConversationEndpoints(t *testing.T) {
	h, st := newTestRouter(t, true)

	assert.Equal(t, http.StatusNotFound, get(h, "/api/conversations/room-1").Code)
	assert.Equal(t, http.StatusNotFound, get(h, "/summary/room-1").Code)

	phone := "5551234567"
	_, err := st.Conversations().Create(context.Background(), &model.Conversation{
		RoomName: "room-1",
		Summary:  "Booked Monday.",
		Appointments: []model.DiscussedAppointment{
			{Action: model.ActionModified, ID: "x", Code: "a1b2c3d4", Date: "2026-01-27", Time: "14:00", OldDate: "2026-01-26", OldTime: "10:00"},
		},
		Preferences:     []string{"mornings"},
		Transcript:      []model.TranscriptEntry{{Role: model.RoleUser, Content: "hi", Timestamp: time.Now().UTC()}},
		DurationSeconds: 61,
		UserPhone:       &phone,
	})
	require.NoError(t, err)

	rr := get(h, "/api/conversations/room-1")
	require.Equal(t, http.StatusOK, rr.Code)
	var conv model.Conversation
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&conv))
	assert.Equal(t, "Booked Monday.", conv.Summary)
	assert.Len(t, conv.Transcript, 1)

	rr = get(h, "/summary/room-1")
	require.Equal(t, http.StatusOK, rr.Code)
	var view model.SummaryView
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&view))
	require.Len(t, view.Appointments, 1)
	require.NotNil(t, view.Appointments[0].RescheduledTime)
	assert.Equal(t, "2026-01-27 at 14:00", *view.Appointments[0].RescheduledTime)
	assert.Equal(t, 61, view.DurationSeconds)
	assert.Equal(t, "5551234567", *view.UserPhone)
}

func TestSlotsEndpoint(t *testing.T) {
	h, _ := newTestRouter(t, true)

	rr := get(h, "/api/slots/2026-01-26")
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Slots  []map[string]string `json:"slots"`
		Spoken string              `json:"spoken"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Len(t, body.Slots, 7)
	assert.Equal(t, "Morning - 9:00 AM", body.Slots[0]["slot"])
	assert.Contains(t, body.Spoken, "Monday, January 26, 2026")

	rr = get(h, "/api/slots/2026-01-24")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Empty(t, body.Slots)

	assert.Equal(t, http.StatusBadRequest, get(h, "/api/slots/next-monday").Code)
}

func TestHealthAndMetrics(t *testing.T) {
	h, _ := newTestRouter(t, true)
	assert.Equal(t, http.StatusOK, get(h, "/api/health").Code)
	assert.Equal(t, http.StatusOK, get(h, "/metrics").Code)

	unhealthy, _ := newTestRouter(t, false)
	rr := get(unhealthy, "/api/health")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "unhealthy")
}
