package shipments_api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/BearBump/ShipTrack/internal/integrations/carrier"
	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/BearBump/ShipTrack/internal/services/shipments"
	"github.com/BearBump/ShipTrack/internal/services/users"
	"github.com/pkg/errors"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

// userView is the public shape of an account; the password hash never leaves the service.
type userView struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	Role      models.UserRole `json:"role"`
	CreatedAt time.Time       `json:"createdAt"`
}

func toUserView(u *models.User) userView {
	return userView{ID: u.ID, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}

func toUserViews(list []*models.User) []userView {
	out := make([]userView, 0, len(list))
	for _, u := range list {
		out = append(out, toUserView(u))
	}
	return out
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return errors.WithMessage(shipments.ErrInvalidInput, "malformed request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response failed", "error", err.Error())
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := statusFor(err)
	if code == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	}
	writeJSON(w, code, errorResponse{Error: msg})
}

func statusFor(err error) (int, string) {
	var le *carrier.LookupError
	switch {
	case errors.As(err, &le):
		return http.StatusBadGateway, le.Message
	case errors.Is(err, shipments.ErrDuplicateActive),
		errors.Is(err, shipments.ErrDuplicateTrashed),
		errors.Is(err, users.ErrEmailExists):
		return http.StatusConflict, err.Error()
	case errors.Is(err, users.ErrRegistrationDisabled),
		errors.Is(err, users.ErrForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, users.ErrInvalidCredentials),
		errors.Is(err, users.ErrUnauthenticated):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, shipments.ErrNotFound),
		errors.Is(err, users.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, shipments.ErrInvalidTransition),
		errors.Is(err, shipments.ErrInvalidInput),
		errors.Is(err, shipments.ErrUnknownCarrier),
		errors.Is(err, users.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, "internal error"
}
