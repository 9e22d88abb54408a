package meals

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/fdg312/meal-hub/internal/storage"
	"github.com/fdg312/meal-hub/internal/userctx"
	"github.com/google/uuid"
)

// Handlers handles HTTP requests for meals
type Handlers struct {
	service *Service
}

// NewHandlers creates new handlers
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// HandleCreate handles POST /v1/meals
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateMealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON")
		return
	}

	dto, err := h.service.CreateMeal(r.Context(), userctx.OwnerID(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto)
}

// HandleList handles GET /v1/meals
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "")
}

// HandleListMine handles GET /v1/users/me/meals
func (h *Handlers) HandleListMine(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, userctx.OwnerID(r.Context()))
}

func (h *Handlers) list(w http.ResponseWriter, r *http.Request, ownerUserID string) {
	q := r.URL.Query()

	limit := 20
	if limitStr := q.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = min(l, 100)
		}
	}

	offset := 0
	if offsetStr := q.Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	dtos, err := h.service.ListMeals(r.Context(), storage.MealFilter{
		OwnerUserID: ownerUserID,
		Cuisine:     q.Get("cuisine"),
		Diet:        q.Get("diet"),
		MealType:    q.Get("meal_type"),
		Query:       strings.TrimSpace(q.Get("query")),
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, MealsResponse{Meals: dtos})
}

// HandleGet handles GET /v1/meals/{id}
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r.PathValue("id"))
	if !ok {
		return
	}

	dto, err := h.service.GetMeal(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto)
}

// HandleCard handles GET /v1/meals/{id}/card?expanded=1&force_expand=1
func (h *Handlers) HandleCard(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r.PathValue("id"))
	if !ok {
		return
	}

	var opts CardOptions
	opts.Expanded, _ = strconv.ParseBool(r.URL.Query().Get("expanded"))
	opts.ForceExpand, _ = strconv.ParseBool(r.URL.Query().Get("force_expand"))

	card, err := h.service.GetCard(r.Context(), id, opts)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, card)
}

// HandleUpdate handles PATCH /v1/meals/{id}
func (h *Handlers) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r.PathValue("id"))
	if !ok {
		return
	}

	var req UpdateMealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON")
		return
	}

	dto, err := h.service.UpdateMeal(r.Context(), userctx.OwnerID(r.Context()), id, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto)
}

// HandleDelete handles DELETE /v1/meals/{id}
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r.PathValue("id"))
	if !ok {
		return
	}

	if err := h.service.DeleteMeal(r.Context(), userctx.OwnerID(r.Context()), id); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleUpdateImages handles PUT /v1/meals/{id}/images (multipart upload)
func (h *Handlers) HandleUpdateImages(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r.PathValue("id"))
	if !ok {
		return
	}

	// Parse multipart form (max 32 MB in memory)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse multipart form")
		return
	}

	upd := ImageUpdate{
		KeepImageIDs:   r.MultipartForm.Value["keepImageIds"],
		PrimaryImageID: r.FormValue("primaryImageId"),
	}

	for _, raw := range r.MultipartForm.Value["replaceOrderIndexes"] {
		idx, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "replaceOrderIndexes must be integers")
			return
		}
		upd.ReplaceOrderIndexes = append(upd.ReplaceOrderIndexes, idx)
	}

	if raw := r.FormValue("primarySlot"); raw != "" {
		slot, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "primarySlot must be an integer")
			return
		}
		upd.PrimarySlot = &slot
	}

	for _, fh := range r.MultipartForm.File["imageFiles"] {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "Failed to read uploaded file")
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "Failed to read uploaded file")
			return
		}

		contentType := fh.Header.Get("Content-Type")
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = http.DetectContentType(data)
		}
		upd.Files = append(upd.Files, UploadFile{Name: fh.Filename, ContentType: contentType, Data: data})
	}

	images, err := h.service.UpdateImages(r.Context(), userctx.OwnerID(r.Context()), id, upd)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MealImagesResponse{Images: images})
}

// HandleGetImage handles GET /v1/meals/{id}/images/{imageId}
func (h *Handlers) HandleGetImage(w http.ResponseWriter, r *http.Request) {
	mealID, ok := parseID(w, r.PathValue("id"))
	if !ok {
		return
	}
	imageID, err := uuid.Parse(r.PathValue("imageId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid image ID")
		return
	}

	redirectURL, data, contentType, err := h.service.GetImage(r.Context(), mealID, imageID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	// S3 mode: redirect to presigned or public URL
	if redirectURL != "" {
		http.Redirect(w, r, redirectURL, http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Write(data)
}

func (h *Handlers) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrMealNotFound):
		writeError(w, http.StatusNotFound, "meal_not_found", "Meal not found")
	case errors.Is(err, ErrImageNotFound):
		writeError(w, http.StatusNotFound, "image_not_found", "Image not found")
	case errors.Is(err, ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, ErrInvalidImageUpdate):
		writeError(w, http.StatusBadRequest, "invalid_image_update", err.Error())
	case errors.Is(err, ErrFileTooLarge):
		writeError(w, http.StatusBadRequest, "file_too_large", fmt.Sprintf("File exceeds maximum size of %d MB", h.service.maxUploadMB))
	case errors.Is(err, ErrUnsupportedMime):
		writeError(w, http.StatusBadRequest, "unsupported_mime", "File type not supported")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func parseID(w http.ResponseWriter, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid meal ID")
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
