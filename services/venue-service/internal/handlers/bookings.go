package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/venuebook/libs/httpx"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/availability"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/booking"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/model"
)

type BookingHandler struct {
	service *booking.Service
	logger  *slog.Logger
}

func NewBookingHandler(service *booking.Service, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{service: service, logger: logger}
}

// Register mounts the booking API on mux.
func (h *BookingHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/bookings", h.List)
	mux.HandleFunc("POST /api/bookings", h.Save)
	mux.HandleFunc("GET /api/bookings/free", h.Free)
	mux.HandleFunc("GET /api/bookings/conflict", h.Conflict)
	mux.HandleFunc("GET /api/bookings/{id}", h.Get)
	mux.HandleFunc("DELETE /api/bookings/{id}", h.Delete)
	mux.HandleFunc("DELETE /api/bookings/delete", h.Delete)
	mux.HandleFunc("PATCH /api/bookings/{id}/status", h.UpdateStatus)
}

type messageResponse struct {
	Message string         `json:"message"`
	ID      string         `json:"id,omitempty"`
	Booking *model.Booking `json:"booking,omitempty"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type conflictResponse struct {
	Error    string                `json:"error"`
	Conflict availability.Interval `json:"conflict"`
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rows, err := h.service.List(r.Context(), booking.ListQuery{
		From:   q.Get("from"),
		To:     q.Get("to"),
		Status: q.Get("status"),
		Phone:  q.Get("phone"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rows)
}

func (h *BookingHandler) Save(w http.ResponseWriter, r *http.Request) {
	var in booking.Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.service.Save(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	msg := "Booking updated"
	if res.Created {
		msg = "Booking saved"
	}
	httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: msg, ID: res.Booking.ID, Booking: &res.Booking})
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

// Delete takes the id from the path, or from ?id= on the legacy route.
func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		id = r.URL.Query().Get("id")
	}
	if strings.TrimSpace(id) == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Booking ID required")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "Booking deleted successfully", ID: id})
}

func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	b, err := h.service.UpdateStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "Status updated", ID: b.ID, Booking: &b})
}

// Free answers GET /api/bookings/free?from=&to=&start=&end= with the free
// minute spans of the daily window for every date in the range.
func (h *BookingHandler) Free(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, start, end := q.Get("from"), q.Get("to"), q.Get("start"), q.Get("end")
	if from == "" || to == "" || start == "" || end == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Missing required query params: from,to,start,end")
		return
	}
	days, err := h.service.ComputeAvailability(r.Context(), from, to, start, end)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, days)
}

// Conflict is a read-only probe: would this slot collide with a committed booking?
func (h *BookingHandler) Conflict(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	candidate := availability.Interval{Date: q.Get("date"), Start: q.Get("start"), End: q.Get("end")}
	if candidate.Date == "" || candidate.Start == "" || candidate.End == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Missing required query params: date,start,end")
		return
	}
	res, err := h.service.EvaluateConflict(r.Context(), candidate, q.Get("exclude"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *BookingHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var conflict *booking.SlotConflictError
	switch {
	case errors.As(err, &conflict):
		httpx.WriteJSON(w, http.StatusConflict, conflictResponse{
			Error:    "Time conflict: slot already booked",
			Conflict: conflict.With,
		})
	case booking.IsInputError(err):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "Booking not found")
	case errors.Is(err, booking.ErrInvalidTransition):
		httpx.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", httpx.RequestIDFromContext(r.Context()),
			"err", err,
		)
		httpx.WriteError(w, http.StatusInternalServerError, "Server error")
	}
}
