package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/AJ-AI23/verjson-sub008/internal/domain"
	"github.com/AJ-AI23/verjson-sub008/internal/service"
	"github.com/AJ-AI23/verjson-sub008/pkg/response"
)

type VersionHandler struct {
	service  *service.VersionService
	validate *validator.Validate
}

func NewVersionHandler(service *service.VersionService) *VersionHandler {
	return &VersionHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *VersionHandler) Create(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	documentID := vars["documentId"]
	if documentID == "" {
		response.BadRequest(w, "document ID is required")
		return
	}

	var req domain.CreateVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	record, err := h.service.Create(r.Context(), documentID, &req)
	if err != nil {
		writeServiceError(w, err, "failed to create version")
		return
	}

	response.Created(w, record)
}

func (h *VersionHandler) List(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	documentID := vars["documentId"]
	if documentID == "" {
		response.BadRequest(w, "document ID is required")
		return
	}

	records, err := h.service.List(r.Context(), documentID)
	if err != nil {
		response.InternalError(w, "failed to list versions")
		return
	}

	response.Success(w, records)
}

func (h *VersionHandler) Latest(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	documentID := vars["documentId"]
	if documentID == "" {
		response.BadRequest(w, "document ID is required")
		return
	}

	record, err := h.service.Latest(r.Context(), documentID)
	if err != nil {
		response.InternalError(w, "failed to load latest version")
		return
	}
	if record == nil {
		response.NotFound(w, "document has no versions")
		return
	}

	response.Success(w, record)
}

func (h *VersionHandler) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	versionID := vars["id"]
	if versionID == "" {
		response.BadRequest(w, "version ID is required")
		return
	}

	record, err := h.service.Get(r.Context(), versionID)
	if err != nil {
		response.NotFound(w, "version not found")
		return
	}

	response.Success(w, record)
}

func (h *VersionHandler) UpdateFlags(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	versionID := vars["id"]
	if versionID == "" {
		response.BadRequest(w, "version ID is required")
		return
	}

	var req domain.UpdateVersionFlagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request payload")
		return
	}

	record, err := h.service.UpdateFlags(r.Context(), versionID, &req)
	if err != nil {
		writeServiceError(w, err, "failed to update version")
		return
	}

	response.Success(w, record)
}

func (h *VersionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	versionID := vars["id"]
	if versionID == "" {
		response.BadRequest(w, "version ID is required")
		return
	}

	if err := h.service.Delete(r.Context(), versionID); err != nil {
		writeServiceError(w, err, "failed to delete version")
		return
	}

	response.Success(w, map[string]string{"message": "version deleted"})
}
