package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/campusops/attendance-portal/internal/domain"
	"github.com/campusops/attendance-portal/internal/http/response"
	"github.com/campusops/attendance-portal/internal/repo/postgres"
	"github.com/campusops/attendance-portal/internal/service"
	"github.com/campusops/attendance-portal/pkg/auth"
	"github.com/campusops/attendance-portal/pkg/config"
	"github.com/go-playground/validator/v10"
)

type ctxKey string

const claimsKey ctxKey = "claims"

type Handlers struct {
	identity  service.IdentityService
	catalog   service.CatalogService
	ledger    service.LedgerService
	rateLimit postgres.RateLimitRepo
	cfg       *config.Config
	validate  *validator.Validate
}

func New(identity service.IdentityService, catalog service.CatalogService, ledger service.LedgerService, rateLimit postgres.RateLimitRepo, cfg *config.Config) *Handlers {
	return &Handlers{
		identity:  identity,
		catalog:   catalog,
		ledger:    ledger,
		rateLimit: rateLimit,
		cfg:       cfg,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RequireRole authenticates the bearer token, checks the live session, and
// enforces the required role. Identity is always session-derived; no
// handler trusts a role or student id from the request body.
func (h *Handlers) RequireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := h.parseBearer(r)
			if err != nil {
				response.Unauthorized(w, "Missing or invalid authorization header")
				return
			}

			if _, err := h.identity.CurrentSession(r.Context(), claims); err != nil {
				response.Unauthorized(w, "Session expired or ended")
				return
			}

			if role != "" && claims.Role != string(role) {
				response.Forbidden(w, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// RequireSession is RequireRole without the role check.
func (h *Handlers) RequireSession(next http.Handler) http.Handler {
	return h.RequireRole("")(next)
}

func (h *Handlers) parseBearer(r *http.Request) (*auth.Claims, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, errors.New("missing bearer token")
	}
	return auth.Parse(strings.TrimPrefix(header, "Bearer "), h.cfg.Auth.JWTSecret)
}

func withClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func getClaims(r *http.Request) *auth.Claims {
	if claims, ok := r.Context().Value(claimsKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}

// writeServiceError maps domain sentinel errors to HTTP codes. Anything
// unrecognized is a programming or infrastructure error and surfaces
// generically.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, domain.ErrConflict):
		response.Conflict(w, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		response.BadRequest(w, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(w, "Invalid credentials")
	default:
		response.InternalError(w, "Something went wrong")
	}
}
