package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/campusops/attendance-portal/internal/domain"
	"github.com/campusops/attendance-portal/internal/http/response"
	"github.com/campusops/attendance-portal/pkg/logger"
)

// Register creates a user and opens a session for them in one step.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	if !h.allowAuthAttempt(w, r) {
		return
	}

	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	session, err := h.identity.Register(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, session)
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if !h.allowAuthAttempt(w, r) {
		return
	}

	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	session, err := h.identity.Authenticate(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, session)
}

// Me returns the session's user.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	user, err := h.identity.CurrentSession(r.Context(), claims)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, user)
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if err := h.identity.EndSession(r.Context(), claims.ID); err != nil {
		logger.ErrorContext(r.Context(), "Failed to end session", "error", err)
		response.InternalError(w, "Failed to end session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// allowAuthAttempt throttles credential guessing per client address.
func (h *Handlers) allowAuthAttempt(w http.ResponseWriter, r *http.Request) bool {
	ok, err := h.rateLimit.CheckRateLimit(r.Context(), "auth:"+r.RemoteAddr, h.cfg.Auth.LoginRateLimit, h.cfg.Auth.LoginRateWindow)
	if err != nil || ok {
		return true
	}
	response.RateLimit(w, "Too many attempts, try again later")
	return false
}
