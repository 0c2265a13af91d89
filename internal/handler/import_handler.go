package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/AJ-AI23/verjson-sub008/internal/domain"
	"github.com/AJ-AI23/verjson-sub008/internal/merge"
	"github.com/AJ-AI23/verjson-sub008/internal/service"
	"github.com/AJ-AI23/verjson-sub008/pkg/response"
)

type ImportHandler struct {
	service  *service.ImportService
	validate *validator.Validate
}

func NewImportHandler(service *service.ImportService) *ImportHandler {
	return &ImportHandler{
		service:  service,
		validate: validator.New(),
	}
}

type previewImportRequest struct {
	Content     json.RawMessage   `json:"content" validate:"required"`
	Preferences merge.Preferences `json:"preferences"`
}

type confirmImportRequest struct {
	AuthorID    string                       `json:"author_id" validate:"required"`
	Content     json.RawMessage              `json:"content" validate:"required"`
	Preferences merge.Preferences            `json:"preferences"`
	Decisions   map[string]domain.Resolution `json:"decisions"`
	Description string                       `json:"description"`
}

func (h *ImportHandler) Preview(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	documentID := vars["documentId"]
	if documentID == "" {
		response.BadRequest(w, "document ID is required")
		return
	}

	var req previewImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	result, err := h.service.Preview(r.Context(), documentID, req.Content, req.Preferences)
	if err != nil {
		writeServiceError(w, err, "failed to preview import")
		return
	}

	response.Success(w, result)
}

func (h *ImportHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	documentID := vars["documentId"]
	if documentID == "" {
		response.BadRequest(w, "document ID is required")
		return
	}

	var req confirmImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	record, err := h.service.Confirm(r.Context(), documentID, req.AuthorID, req.Content, req.Preferences, req.Decisions, req.Description)
	if err != nil {
		writeServiceError(w, err, "failed to confirm import")
		return
	}

	response.Created(w, record)
}
