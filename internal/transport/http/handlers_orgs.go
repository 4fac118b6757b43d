package httptransport

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	dErrors "orgdesk/pkg/domain-errors"
	"orgdesk/pkg/platform/httputil"

	"orgdesk/internal/org"
)

type organizationResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Address     string    `json:"address,omitempty"`
	Description string    `json:"description,omitempty"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toOrganizationResponse(o *org.Organization) organizationResponse {
	return organizationResponse{
		ID:          o.ID.String(),
		Name:        o.Name,
		Address:     o.Address,
		Description: o.Description,
		Latitude:    o.Latitude,
		Longitude:   o.Longitude,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

func organizationID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "organizationID"))
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "organization id must be a UUID")
	}
	return id, nil
}

func (h *Handler) handleGetOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := organizationID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	o, err := h.orgs.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toOrganizationResponse(o))
}

type createOrganizationRequest struct {
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	Description string  `json:"description"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

func (h *Handler) handleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req createOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body must be a JSON object"))
		return
	}

	o, err := h.orgs.Create(r.Context(), req.Name, req.Address, req.Description, req.Latitude, req.Longitude)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toOrganizationResponse(o))
}

type updateOrganizationRequest struct {
	Name        *string  `json:"name"`
	Address     *string  `json:"address"`
	Description *string  `json:"description"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

func (h *Handler) handleUpdateOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := organizationID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req updateOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body must be a JSON object"))
		return
	}

	o, err := h.orgs.Update(r.Context(), id, org.UpdateParams{
		Name:        req.Name,
		Address:     req.Address,
		Description: req.Description,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toOrganizationResponse(o))
}
