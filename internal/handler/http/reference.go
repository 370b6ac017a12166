package http

import (
	"net/http"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/reference"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/handler/http/response"
)

type ReferenceHandler interface {
	ListAreas(w http.ResponseWriter, r *http.Request)
	ListCargos(w http.ResponseWriter, r *http.Request)
	ListEmployees(w http.ResponseWriter, r *http.Request)
}

type ReferenceHandlerImpl struct {
	referenceService reference.Service
}

func NewReferenceHandler(referenceService reference.Service) ReferenceHandler {
	return &ReferenceHandlerImpl{referenceService: referenceService}
}

// ListAreas implements ReferenceHandler.
func (h *ReferenceHandlerImpl) ListAreas(w http.ResponseWriter, r *http.Request) {
	areas, err := h.referenceService.ListAreas(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, areas)
}

// ListCargos implements ReferenceHandler.
func (h *ReferenceHandlerImpl) ListCargos(w http.ResponseWriter, r *http.Request) {
	cargos, err := h.referenceService.ListCargos(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, cargos)
}

// ListEmployees implements ReferenceHandler.
func (h *ReferenceHandlerImpl) ListEmployees(w http.ResponseWriter, r *http.Request) {
	filter := reference.EmployeeFilter{
		AreaID:  queryPtr(r, "area_id"),
		CargoID: queryPtr(r, "cargo_id"),
	}

	employees, err := h.referenceService.ListEmployees(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, employees)
}
