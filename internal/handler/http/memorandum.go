package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/memorandum"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type MemorandumHandler interface {
	ListForAdmin(w http.ResponseWriter, r *http.Request)
	ListMine(w http.ResponseWriter, r *http.Request)
	ListForEmployee(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	History(w http.ResponseWriter, r *http.Request)
	Document(w http.ResponseWriter, r *http.Request)

	SubmitJustification(w http.ResponseWriter, r *http.Request)
	SubmitReview(w http.ResponseWriter, r *http.Request)
	JustifyOnBehalf(w http.ResponseWriter, r *http.Request)
	Close(w http.ResponseWriter, r *http.Request)
}

type MemorandumHandlerImpl struct {
	memorandumService memorandum.MemorandumService
}

func NewMemorandumHandler(memorandumService memorandum.MemorandumService) MemorandumHandler {
	return &MemorandumHandlerImpl{memorandumService: memorandumService}
}

func queryPtr(r *http.Request, key string) *string {
	if v := r.URL.Query().Get(key); v != "" {
		return &v
	}
	return nil
}

// pagination reads page and limit. Malformed values fall back to defaults.
func pagination(r *http.Request) (page, limit int) {
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}
	return page, limit
}

// ListForAdmin implements MemorandumHandler.
func (h *MemorandumHandlerImpl) ListForAdmin(w http.ResponseWriter, r *http.Request) {
	filter := memorandum.AdminFilter{
		AreaID:     queryPtr(r, "area_id"),
		CargoID:    queryPtr(r, "cargo_id"),
		EmployeeID: queryPtr(r, "employee_id"),
		Status:     queryPtr(r, "status"),
		Type:       queryPtr(r, "type"),
		StartDate:  queryPtr(r, "start_date"),
		EndDate:    queryPtr(r, "end_date"),
	}
	filter.Page, filter.Limit = pagination(r)

	result, err := h.memorandumService.ListForAdmin(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ListMine implements MemorandumHandler.
func (h *MemorandumHandlerImpl) ListMine(w http.ResponseWriter, r *http.Request) {
	h.listForEmployee(w, r, "")
}

// ListForEmployee implements MemorandumHandler.
func (h *MemorandumHandlerImpl) ListForEmployee(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")
	if employeeID == "" {
		response.BadRequest(w, "Employee ID is required", nil)
		return
	}
	h.listForEmployee(w, r, employeeID)
}

func (h *MemorandumHandlerImpl) listForEmployee(w http.ResponseWriter, r *http.Request, employeeID string) {
	filter := memorandum.EmployeeFilter{
		Status: queryPtr(r, "status"),
		Type:   queryPtr(r, "type"),
	}
	filter.Page, filter.Limit = pagination(r)

	result, err := h.memorandumService.ListForEmployee(r.Context(), employeeID, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Get implements MemorandumHandler.
func (h *MemorandumHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	result, err := h.memorandumService.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// History implements MemorandumHandler.
func (h *MemorandumHandlerImpl) History(w http.ResponseWriter, r *http.Request) {
	result, err := h.memorandumService.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Document implements MemorandumHandler.
func (h *MemorandumHandlerImpl) Document(w http.ResponseWriter, r *http.Request) {
	doc, err := h.memorandumService.GenerateDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Document(w, doc.Filename, doc.ContentType, doc.Content)
}

// SubmitJustification implements MemorandumHandler.
func (h *MemorandumHandlerImpl) SubmitJustification(w http.ResponseWriter, r *http.Request) {
	var req memorandum.SubmitJustificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("SubmitJustification decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.memorandumService.SubmitJustification(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Justification submitted successfully", result)
}

// SubmitReview implements MemorandumHandler.
func (h *MemorandumHandlerImpl) SubmitReview(w http.ResponseWriter, r *http.Request) {
	var req memorandum.SubmitReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("SubmitReview decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.memorandumService.SubmitReview(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	message := "Memorandum rejected"
	if req.Approved {
		message = "Memorandum approved"
	}
	response.SuccessWithMessage(w, message, result)
}

// JustifyOnBehalf implements MemorandumHandler.
func (h *MemorandumHandlerImpl) JustifyOnBehalf(w http.ResponseWriter, r *http.Request) {
	var req memorandum.JustifyOnBehalfRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("JustifyOnBehalf decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.memorandumService.JustifyOnBehalf(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Justification recorded for review", result)
}

// Close implements MemorandumHandler. The body is optional.
func (h *MemorandumHandlerImpl) Close(w http.ResponseWriter, r *http.Request) {
	var req memorandum.CloseRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Error("Close decode error", "error", err)
			response.BadRequest(w, "Invalid request format", nil)
			return
		}
	}

	result, err := h.memorandumService.Close(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Memorandum closed", result)
}
