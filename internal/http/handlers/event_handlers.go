package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/campusops/attendance-portal/internal/domain"
	"github.com/campusops/attendance-portal/internal/http/response"
	"github.com/go-chi/chi/v5"
)

// ListEvents returns all events, newest first. Callers filter by status or
// creator client-side.
func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.catalog.ListEvents(r.Context())
	if err != nil {
		response.InternalError(w, "Failed to list events")
		return
	}
	if events == nil {
		events = []domain.Event{}
	}
	response.WriteJSON(w, http.StatusOK, events)
}

// CreateEvent publishes a new event owned by the authenticated faculty user.
func (h *Handlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)

	var req domain.CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	event, err := h.catalog.CreateEvent(r.Context(), claims.Sub, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, event)
}

// FinalizeEvent closes an event and, for mandatory events, issues absence
// records. Safe to call repeatedly.
func (h *Handlers) FinalizeEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	if err := h.catalog.Finalize(r.Context(), eventID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EventAttendance returns the attendance sheet for an event, one entry per
// record with the student's display name.
func (h *Handlers) EventAttendance(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	if _, err := h.catalog.GetEvent(r.Context(), eventID); err != nil {
		writeServiceError(w, err)
		return
	}

	entries, err := h.ledger.RecordsForEvent(r.Context(), eventID)
	if err != nil {
		response.InternalError(w, "Failed to list attendance")
		return
	}
	if entries == nil {
		entries = []domain.EventAttendanceEntry{}
	}
	response.WriteJSON(w, http.StatusOK, entries)
}
