package shipments_api

import (
	"net/http"
	"strings"

	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/BearBump/ShipTrack/internal/services/users"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/pkg/errors"
)

type authedHandler func(w http.ResponseWriter, r *http.Request, params map[string]string, u *models.User)

// authed resolves the bearer token to a live account before calling h.
// Tokens of deleted accounts fail here even while their signature is still valid.
func (a *API) authed(h authedHandler) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, r, errors.WithMessage(users.ErrUnauthenticated, "missing bearer token"))
			return
		}
		claims, err := a.issuer.Parse(token)
		if err != nil {
			writeError(w, r, errors.WithMessage(users.ErrUnauthenticated, err.Error()))
			return
		}
		u, err := a.users.Authenticate(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		h(w, r, params, u)
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User      userView `json:"user"`
	Token     string   `json:"token"`
	SessionID string   `json:"sessionId"`
}

type meResponse struct {
	User                userView `json:"user"`
	RegistrationEnabled bool     `json:"registrationEnabled"`
}

func (a *API) register(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req credentialsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, sess, err := a.users.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.writeSession(w, r, http.StatusCreated, u, sess)
}

func (a *API) login(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req credentialsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, sess, err := a.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.writeSession(w, r, http.StatusOK, u, sess)
}

func (a *API) writeSession(w http.ResponseWriter, r *http.Request, code int, u *models.User, sess *models.Session) {
	token, err := a.issuer.Issue(u.ID, sess.ID)
	if err != nil {
		writeError(w, r, errors.Wrap(err, "issue token"))
		return
	}
	writeJSON(w, code, sessionResponse{User: toUserView(u), Token: token, SessionID: sess.ID})
}

func (a *API) logout(w http.ResponseWriter, r *http.Request, _ map[string]string, u *models.User) {
	if err := a.users.LogoutUser(r.Context(), u.ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) me(w http.ResponseWriter, r *http.Request, _ map[string]string, u *models.User) {
	open, err := a.users.RegistrationOpen(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{User: toUserView(u), RegistrationEnabled: open})
}
