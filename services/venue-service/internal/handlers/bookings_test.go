package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/availability"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/booking"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/model"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := booking.NewService(storage.NewMemory(), logger, booking.Options{Policy: booking.Policy{MaxRangeDays: 62}})
	mux := http.NewServeMux()
	NewBookingHandler(svc, logger).Register(mux)
	return mux
}

func do(t *testing.T, mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestSaveAndGet(t *testing.T) {
	mux := newTestMux(t)

	rec := do(t, mux, http.MethodPost, "/api/bookings",
		`{"id":"B1","customerName":"Rahim","phone":"017-11","date":"2024-01-01","startTime":"10:00","endTime":"12:00","advance":"300"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var saved messageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	assert.Equal(t, "Booking saved", saved.Message)
	assert.Equal(t, "B1", saved.ID)

	rec = do(t, mux, http.MethodPost, "/api/bookings",
		`{"id":"B1","customerName":"Rahim","phone":"01711","date":"2024-01-01","startTime":"10:00","endTime":"13:00"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	assert.Equal(t, "Booking updated", saved.Message)

	rec = do(t, mux, http.MethodGet, "/api/bookings/B1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var b model.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	assert.Equal(t, "13:00", b.EndTime)
	assert.Equal(t, 300.0, b.Advance)
	assert.Equal(t, model.StatusPending, b.Status)

	rec = do(t, mux, http.MethodGet, "/api/bookings/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Booking not found"}`, rec.Body.String())
}

func TestSave_BadRequests(t *testing.T) {
	mux := newTestMux(t)

	rec := do(t, mux, http.MethodPost, "/api/bookings", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, mux, http.MethodPost, "/api/bookings", `{"customerName":"x","unknown":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, mux, http.MethodPost, "/api/bookings", `{"customerName":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "required")

	rec = do(t, mux, http.MethodPost, "/api/bookings",
		`{"customerName":"x","phone":"1","date":"2024-01-01","startTime":"7pm","endTime":"12:00"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid time format")
}

func TestConflictAndStatusFlow(t *testing.T) {
	mux := newTestMux(t)

	rec := do(t, mux, http.MethodPost, "/api/bookings",
		`{"id":"A","customerName":"a","phone":"1","date":"2024-01-01","startTime":"22:00","endTime":"02:00","status":"Confirmed"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, mux, http.MethodPost, "/api/bookings",
		`{"id":"B","customerName":"b","phone":"2","date":"2024-01-01","startTime":"01:00","endTime":"03:00","status":"Confirmed"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	var conflict conflictResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conflict))
	assert.Equal(t, "Time conflict: slot already booked", conflict.Error)
	assert.Equal(t, "A", conflict.Conflict.ID)

	rec = do(t, mux, http.MethodGet, "/api/bookings/conflict?date=2024-01-01&start=23:00&end=23:30", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var probe availability.ConflictResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &probe))
	assert.True(t, probe.Conflict)

	rec = do(t, mux, http.MethodGet, "/api/bookings/conflict?date=2024-01-01&start=23:00&end=23:30&exclude=A", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &probe))
	assert.False(t, probe.Conflict)

	rec = do(t, mux, http.MethodPatch, "/api/bookings/A/status", `{"status":"Pending"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, mux, http.MethodPatch, "/api/bookings/A/status", `{"status":"Cancelled"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, mux, http.MethodPatch, "/api/bookings/A/status", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, mux, http.MethodPatch, "/api/bookings/zzz/status", `{"status":"Confirmed"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, mux, http.MethodPost, "/api/bookings",
		`{"id":"B","customerName":"b","phone":"2","date":"2024-01-01","startTime":"01:00","endTime":"03:00","status":"Confirmed"}`)
	assert.Equal(t, http.StatusOK, rec.Code, "cancelling A frees the slot")
}

func TestFree(t *testing.T) {
	mux := newTestMux(t)
	rec := do(t, mux, http.MethodPost, "/api/bookings",
		`{"customerName":"a","phone":"1","date":"2024-01-01","startTime":"10:00","endTime":"12:00","status":"Confirmed"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, mux, http.MethodGet, "/api/bookings/free?from=2024-01-01&to=2024-01-02&start=09:00&end=21:00", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[
		{"date":"2024-01-01","free":[{"startMin":540,"endMin":600},{"startMin":720,"endMin":1260}]},
		{"date":"2024-01-02","free":[{"startMin":540,"endMin":1260}]}
	]`, rec.Body.String())

	again := do(t, mux, http.MethodGet, "/api/bookings/free?from=2024-01-01&to=2024-01-02&start=09:00&end=21:00", "")
	assert.Equal(t, rec.Body.String(), again.Body.String())

	rec = do(t, mux, http.MethodGet, "/api/bookings/free?from=2024-01-02&to=2024-01-01&start=09:00&end=21:00", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, mux, http.MethodGet, "/api/bookings/free?from=2024-01-01&to=2024-01-02", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, mux, http.MethodGet, "/api/bookings/free?from=2024-01-01&to=2024-12-31&start=09:00&end=21:00", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAndDelete(t *testing.T) {
	mux := newTestMux(t)
	for _, body := range []string{
		`{"id":"A","customerName":"a","phone":"111","date":"2024-01-02","startTime":"10:00","endTime":"12:00"}`,
		`{"id":"B","customerName":"b","phone":"222","date":"2024-01-01","startTime":"10:00","endTime":"12:00","status":"Confirmed"}`,
	} {
		require.Equal(t, http.StatusOK, do(t, mux, http.MethodPost, "/api/bookings", body).Code)
	}

	rec := do(t, mux, http.MethodGet, "/api/bookings?status=All", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []model.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "B", rows[0].ID)

	rec = do(t, mux, http.MethodGet, "/api/bookings?phone=111", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "A", rows[0].ID)

	rec = do(t, mux, http.MethodDelete, "/api/bookings/A", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, mux, http.MethodDelete, "/api/bookings/delete?id=B", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, mux, http.MethodDelete, "/api/bookings/delete", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, mux, http.MethodDelete, "/api/bookings/A", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, mux, http.MethodGet, "/api/bookings", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}
