package handler

import (
	"errors"
	"net/http"

	"github.com/AJ-AI23/verjson-sub008/internal/merge"
	"github.com/AJ-AI23/verjson-sub008/internal/service"
	"github.com/AJ-AI23/verjson-sub008/pkg/response"
)

// writeServiceError maps the service layer's typed errors to HTTP status
// codes; anything else becomes an opaque 500 with the fallback message.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		response.BadRequest(w, validationErr.Message)
		return
	}

	var staleErr *service.StaleBaseVersionError
	if errors.As(err, &staleErr) {
		response.Conflict(w, map[string]interface{}{
			"error":          "stale_base_version",
			"stated_version": staleErr.Stated.String(),
			"latest_version": staleErr.Latest.String(),
		})
		return
	}

	var unresolvedErr *merge.UnresolvedError
	if errors.As(err, &unresolvedErr) {
		response.Conflict(w, map[string]interface{}{
			"error":            "unresolved_conflicts",
			"unresolved_paths": unresolvedErr.Paths,
		})
		return
	}

	response.InternalError(w, fallback)
}
