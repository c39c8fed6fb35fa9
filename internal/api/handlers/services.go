package handlers

import (
	"net/http"

	"github.com/localhub/server/internal/domain/services"
)

type ServicesHandler struct {
	Catalog *services.Catalog
}

func NewServicesHandler(catalog *services.Catalog) *ServicesHandler {
	return &ServicesHandler{Catalog: catalog}
}

type serviceCountResponse struct {
	Success       bool  `json:"success"`
	TotalServices int64 `json:"totalServices"`
}

func (h *ServicesHandler) Count(w http.ResponseWriter, r *http.Request) {
	total, err := h.Catalog.Count(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, serviceCountResponse{Success: true, TotalServices: total})
}
