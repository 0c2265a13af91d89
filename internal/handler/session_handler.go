package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/AJ-AI23/verjson-sub008/internal/service"
	"github.com/AJ-AI23/verjson-sub008/internal/session"
	"github.com/AJ-AI23/verjson-sub008/pkg/response"
)

type SessionHandler struct {
	service  *service.SessionService
	validate *validator.Validate
}

func NewSessionHandler(service *service.SessionService) *SessionHandler {
	return &SessionHandler{
		service:  service,
		validate: validator.New(),
	}
}

type commitSessionRequest struct {
	AuthorID    string `json:"author_id" validate:"required"`
	Description string `json:"description"`
}

type resolveStaleRequest struct {
	Decision string `json:"decision" validate:"required,oneof=start-fresh keep-editing"`
}

func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	documentID := vars["documentId"]
	if documentID == "" {
		response.BadRequest(w, "document ID is required")
		return
	}

	state, err := h.service.Open(r.Context(), documentID)
	if err != nil {
		writeServiceError(w, err, "failed to open session")
		return
	}

	response.Success(w, state)
}

func (h *SessionHandler) Edit(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	documentID := vars["documentId"]
	if documentID == "" {
		response.BadRequest(w, "document ID is required")
		return
	}

	var req service.EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	ops, err := h.service.Edit(documentID, &req)
	if err != nil {
		writeServiceError(w, err, "failed to apply edit")
		return
	}

	response.Success(w, map[string]interface{}{"ops": ops})
}

func (h *SessionHandler) Commit(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	documentID := vars["documentId"]
	if documentID == "" {
		response.BadRequest(w, "document ID is required")
		return
	}

	var req commitSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	record, err := h.service.Commit(r.Context(), documentID, req.AuthorID, req.Description)
	if err != nil {
		writeServiceError(w, err, "failed to commit session")
		return
	}

	response.Created(w, record)
}

func (h *SessionHandler) CheckStale(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	documentID := vars["documentId"]
	if documentID == "" {
		response.BadRequest(w, "document ID is required")
		return
	}

	check, err := h.service.CheckStale(r.Context(), documentID)
	if err != nil {
		writeServiceError(w, err, "failed to check staleness")
		return
	}

	response.Success(w, check)
}

func (h *SessionHandler) ResolveStale(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	documentID := vars["documentId"]
	if documentID == "" {
		response.BadRequest(w, "document ID is required")
		return
	}

	var req resolveStaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	state, err := h.service.ResolveStale(r.Context(), documentID, session.Decision(req.Decision))
	if err != nil {
		writeServiceError(w, err, "failed to resolve staleness")
		return
	}

	response.Success(w, state)
}

func (h *SessionHandler) Discard(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	documentID := vars["documentId"]
	if documentID == "" {
		response.BadRequest(w, "document ID is required")
		return
	}

	h.service.Discard(documentID)
	response.Success(w, map[string]string{"message": "session discarded"})
}
