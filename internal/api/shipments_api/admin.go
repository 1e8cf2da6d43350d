package shipments_api

import (
	"net/http"

	"github.com/BearBump/ShipTrack/internal/models"
)

type usersResponse struct {
	Users []userView `json:"users"`
}

type registrationResponse struct {
	RegistrationEnabled bool `json:"registrationEnabled"`
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request, _ map[string]string, u *models.User) {
	list, err := a.users.ListUsers(r.Context(), u.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, usersResponse{Users: toUserViews(list)})
}

func (a *API) toggleRole(w http.ResponseWriter, r *http.Request, params map[string]string, u *models.User) {
	target, err := a.users.PromoteDemote(r.Context(), u.ID, params["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(target))
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request, params map[string]string, u *models.User) {
	if err := a.users.DeleteUser(r.Context(), u.ID, params["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) toggleRegistration(w http.ResponseWriter, r *http.Request, _ map[string]string, u *models.User) {
	open, err := a.users.ToggleRegistration(r.Context(), u.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, registrationResponse{RegistrationEnabled: open})
}
