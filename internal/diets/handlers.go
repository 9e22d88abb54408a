package diets

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fdg312/meal-hub/internal/userctx"
	"github.com/google/uuid"
)

// Handlers handles HTTP requests for diets
type Handlers struct {
	service *Service
}

// NewHandlers creates new handlers
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// HandleCreate handles POST /v1/diets
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateDietRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON")
		return
	}

	dto, err := h.service.CreateDiet(r.Context(), userctx.OwnerID(r.Context()), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto)
}

// HandleList handles GET /v1/diets
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "")
}

// HandleListMine handles GET /v1/users/me/diets
func (h *Handlers) HandleListMine(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, userctx.OwnerID(r.Context()))
}

func (h *Handlers) list(w http.ResponseWriter, r *http.Request, ownerUserID string) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = min(l, 100)
		}
	}

	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	dtos, err := h.service.ListDiets(r.Context(), ownerUserID, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, DietsResponse{Diets: dtos})
}

// HandleGet handles GET /v1/diets/{id}
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	dto, err := h.service.GetDiet(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto)
}

// HandleUpdate handles PUT /v1/diets/{id}
func (h *Handlers) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req CreateDietRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON")
		return
	}

	dto, err := h.service.UpdateDiet(r.Context(), userctx.OwnerID(r.Context()), id, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto)
}

// HandleDelete handles DELETE /v1/diets/{id}
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteDiet(r.Context(), userctx.OwnerID(r.Context()), id); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleSummary handles GET /v1/diets/{id}/summary
func (h *Handlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	summary, err := h.service.Summary(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// HandleExportPDF handles GET /v1/diets/{id}/export.pdf
func (h *Handlers) HandleExportPDF(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, FormatPDF)
}

// HandleExportCSV handles GET /v1/diets/{id}/export.csv
func (h *Handlers) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, FormatCSV)
}

func (h *Handlers) export(w http.ResponseWriter, r *http.Request, format string) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	data, err := h.service.Export(r.Context(), id, format)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	contentType := "application/pdf"
	if format == FormatCSV {
		contentType = "text/csv; charset=utf-8"
	}
	filename := fmt.Sprintf("diet_%s.%s", id.String()[:8], format)

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrDietNotFound):
		writeError(w, http.StatusNotFound, "diet_not_found", "Diet not found")
	case errors.Is(err, ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, ErrUnknownMeal):
		writeError(w, http.StatusBadRequest, "unknown_meal", err.Error())
	case errors.Is(err, ErrInvalidFormat):
		writeError(w, http.StatusBadRequest, "invalid_format", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid diet ID")
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
