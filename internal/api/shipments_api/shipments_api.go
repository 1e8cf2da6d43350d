package shipments_api

import (
	"context"
	"net/http"

	"github.com/BearBump/ShipTrack/internal/auth/tokens"
	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/BearBump/ShipTrack/internal/services/shipments"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/pkg/errors"
)

type UsersService interface {
	Register(ctx context.Context, email, password string) (*models.User, *models.Session, error)
	Login(ctx context.Context, email, password string) (*models.User, *models.Session, error)
	LogoutUser(ctx context.Context, userID string) error
	Authenticate(ctx context.Context, userID string) (*models.User, error)
	RegistrationOpen(ctx context.Context) (bool, error)
	ListUsers(ctx context.Context, actorID string) ([]*models.User, error)
	PromoteDemote(ctx context.Context, actorID, targetID string) (*models.User, error)
	DeleteUser(ctx context.Context, actorID, targetID string) error
	ToggleRegistration(ctx context.Context, actorID string) (bool, error)
}

type ShipmentsService interface {
	Add(ctx context.Context, ownerID, trackingNumber, carrierCode string) (*models.Shipment, error)
	List(ctx context.Context, ownerID string, f shipments.Filter) ([]*models.Shipment, error)
	RefreshAll(ctx context.Context, ownerID string) (shipments.RefreshReport, error)
	SoftDelete(ctx context.Context, ownerID, id string) (*models.Shipment, error)
	Restore(ctx context.Context, ownerID string, ids ...string) ([]*models.Shipment, error)
	PermanentDelete(ctx context.Context, ownerID, id string) error
	Select(ctx context.Context, ownerID string, ids ...string) ([]string, error)
	Deselect(ctx context.Context, ownerID string, ids ...string) ([]string, error)
	SelectAllTrashed(ctx context.Context, ownerID string) ([]string, error)
	ClearSelection(ownerID string)
	Selected(ctx context.Context, ownerID string) ([]string, error)
	RestoreSelected(ctx context.Context, ownerID string) ([]*models.Shipment, error)
}

// API serves the ShipTrack REST surface on a grpc-gateway mux.
type API struct {
	users     UsersService
	shipments ShipmentsService
	issuer    *tokens.Issuer
}

func New(users UsersService, shipments ShipmentsService, issuer *tokens.Issuer) *API {
	return &API{
		users:     users,
		shipments: shipments,
		issuer:    issuer,
	}
}

type route struct {
	method  string
	pattern string
	h       runtime.HandlerFunc
}

// Register adds every route to mux. The mux tries later registrations first, so
// literal paths are listed after the parameterised paths they overlap with.
func (a *API) Register(mux *runtime.ServeMux) error {
	routes := []route{
		{http.MethodPost, "/v1/auth/register", a.register},
		{http.MethodPost, "/v1/auth/login", a.login},
		{http.MethodPost, "/v1/auth/logout", a.authed(a.logout)},
		{http.MethodGet, "/v1/auth/me", a.authed(a.me)},

		{http.MethodGet, "/v1/carriers", a.listCarriers},

		{http.MethodGet, "/v1/shipments", a.authed(a.listShipments)},
		{http.MethodPost, "/v1/shipments", a.authed(a.addShipment)},
		{http.MethodPost, "/v1/shipments:refresh", a.authed(a.refreshShipments)},
		{http.MethodDelete, "/v1/shipments/{id}", a.authed(a.trashShipment)},
		{http.MethodPost, "/v1/shipments/{id}:restore", a.authed(a.restoreShipment)},

		{http.MethodDelete, "/v1/trash/{id}", a.authed(a.purgeShipment)},
		{http.MethodPost, "/v1/trash:restore", a.authed(a.restoreTrash)},
		{http.MethodGet, "/v1/trash/selection", a.authed(a.getSelection)},
		{http.MethodPost, "/v1/trash/selection", a.authed(a.selectTrash)},
		{http.MethodDelete, "/v1/trash/selection", a.authed(a.deselectTrash)},
		{http.MethodPost, "/v1/trash/selection:all", a.authed(a.selectAllTrash)},
		{http.MethodPost, "/v1/trash/selection:restore", a.authed(a.restoreSelection)},

		{http.MethodGet, "/v1/admin/users", a.authed(a.listUsers)},
		{http.MethodPost, "/v1/admin/users/{id}:toggle-role", a.authed(a.toggleRole)},
		{http.MethodDelete, "/v1/admin/users/{id}", a.authed(a.deleteUser)},
		{http.MethodPost, "/v1/admin/registration:toggle", a.authed(a.toggleRegistration)},
	}
	for _, rt := range routes {
		if err := mux.HandlePath(rt.method, rt.pattern, rt.h); err != nil {
			return errors.Wrapf(err, "register %s %s", rt.method, rt.pattern)
		}
	}
	return nil
}
