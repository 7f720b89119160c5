package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/campusops/attendance-portal/internal/domain"
	"github.com/campusops/attendance-portal/internal/http/response"
	"github.com/go-chi/chi/v5"
)

// CheckIn records the authenticated student's presence at the event named
// by the scanned QR payload. Repeat scans return the same record.
func (h *Handlers) CheckIn(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)

	var req domain.CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	rec, err := h.ledger.CheckInByQRToken(r.Context(), req.QRCodeData, claims.Sub)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, rec)
}

// MyAttendance returns the authenticated student's records across all
// events.
func (h *Handlers) MyAttendance(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)

	recs, err := h.ledger.RecordsForStudent(r.Context(), claims.Sub)
	if err != nil {
		response.InternalError(w, "Failed to list attendance")
		return
	}
	if recs == nil {
		recs = []domain.AttendanceRecord{}
	}
	response.WriteJSON(w, http.StatusOK, recs)
}

// MyFines returns the derived outstanding-fines view for the authenticated
// student.
func (h *Handlers) MyFines(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)

	fines, err := h.ledger.OutstandingFines(r.Context(), claims.Sub)
	if err != nil {
		response.InternalError(w, "Failed to list fines")
		return
	}
	if fines == nil {
		fines = []domain.OutstandingFine{}
	}
	response.WriteJSON(w, http.StatusOK, fines)
}

// PayFine settles one of the authenticated student's fines. Paying an
// already-paid fine is a no-op.
func (h *Handlers) PayFine(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	recordID := chi.URLParam(r, "recordId")

	if err := h.ledger.SettleFine(r.Context(), recordID, claims.Sub); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
