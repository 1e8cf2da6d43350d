package shipments_api

import (
	"net/http"

	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/BearBump/ShipTrack/internal/services/shipments"
)

type addShipmentRequest struct {
	TrackingNumber string `json:"trackingNumber"`
	CarrierCode    string `json:"carrierCode"`
}

type shipmentsResponse struct {
	Shipments []*models.Shipment `json:"shipments"`
}

type idsRequest struct {
	IDs []string `json:"ids"`
}

type selectionResponse struct {
	IDs []string `json:"ids"`
}

func (a *API) listCarriers(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	writeJSON(w, http.StatusOK, map[string][]models.Carrier{"carriers": models.Carriers})
}

func (a *API) listShipments(w http.ResponseWriter, r *http.Request, _ map[string]string, u *models.User) {
	q := r.URL.Query()
	items, err := a.shipments.List(r.Context(), u.ID, shipments.Filter{
		View:   shipments.View(q.Get("view")),
		Status: models.ShipmentStatus(q.Get("status")),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shipmentsResponse{Shipments: nonNil(items)})
}

func (a *API) addShipment(w http.ResponseWriter, r *http.Request, _ map[string]string, u *models.User) {
	var req addShipmentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sh, err := a.shipments.Add(r.Context(), u.ID, req.TrackingNumber, req.CarrierCode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sh)
}

func (a *API) refreshShipments(w http.ResponseWriter, r *http.Request, _ map[string]string, u *models.User) {
	report, err := a.shipments.RefreshAll(r.Context(), u.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) trashShipment(w http.ResponseWriter, r *http.Request, params map[string]string, u *models.User) {
	sh, err := a.shipments.SoftDelete(r.Context(), u.ID, params["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sh)
}

func (a *API) restoreShipment(w http.ResponseWriter, r *http.Request, params map[string]string, u *models.User) {
	restored, err := a.shipments.Restore(r.Context(), u.ID, params["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, restored[0])
}

func (a *API) purgeShipment(w http.ResponseWriter, r *http.Request, params map[string]string, u *models.User) {
	if err := a.shipments.PermanentDelete(r.Context(), u.ID, params["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) restoreTrash(w http.ResponseWriter, r *http.Request, _ map[string]string, u *models.User) {
	var req idsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	restored, err := a.shipments.Restore(r.Context(), u.ID, req.IDs...)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shipmentsResponse{Shipments: restored})
}

func (a *API) getSelection(w http.ResponseWriter, r *http.Request, _ map[string]string, u *models.User) {
	ids, err := a.shipments.Selected(r.Context(), u.ID)
	a.writeSelection(w, r, ids, err)
}

func (a *API) selectTrash(w http.ResponseWriter, r *http.Request, _ map[string]string, u *models.User) {
	var req idsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ids, err := a.shipments.Select(r.Context(), u.ID, req.IDs...)
	a.writeSelection(w, r, ids, err)
}

// deselectTrash drops the ids given as ?id= parameters, or the whole selection when there are none.
func (a *API) deselectTrash(w http.ResponseWriter, r *http.Request, _ map[string]string, u *models.User) {
	drop := r.URL.Query()["id"]
	if len(drop) == 0 {
		a.shipments.ClearSelection(u.ID)
		a.writeSelection(w, r, nil, nil)
		return
	}
	ids, err := a.shipments.Deselect(r.Context(), u.ID, drop...)
	a.writeSelection(w, r, ids, err)
}

func (a *API) selectAllTrash(w http.ResponseWriter, r *http.Request, _ map[string]string, u *models.User) {
	ids, err := a.shipments.SelectAllTrashed(r.Context(), u.ID)
	a.writeSelection(w, r, ids, err)
}

func (a *API) restoreSelection(w http.ResponseWriter, r *http.Request, _ map[string]string, u *models.User) {
	restored, err := a.shipments.RestoreSelected(r.Context(), u.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shipmentsResponse{Shipments: nonNil(restored)})
}

func (a *API) writeSelection(w http.ResponseWriter, r *http.Request, ids []string, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, selectionResponse{IDs: ids})
}

func nonNil(items []*models.Shipment) []*models.Shipment {
	if items == nil {
		return []*models.Shipment{}
	}
	return items
}
