package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"inferd/internal/engine"
	"inferd/internal/runtime"
	"inferd/pkg/types"
)

// writeError writes the uniform JSON error body used by every endpoint.
func writeError(w http.ResponseWriter, status int, errType, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{
		Error: types.ErrorDetail{Message: msg, Type: errType, Code: status},
	})
}

// mapError translates engine and runtime errors into (status, type) pairs.
func mapError(err error) (int, string) {
	switch {
	case engine.IsAdmissionRejected(err):
		return http.StatusTooManyRequests, "admission_rejected"
	case engine.IsModelNotFound(err):
		return http.StatusNotFound, "model_not_found"
	case runtime.IsInvalidFormat(err):
		return http.StatusBadRequest, "invalid_format"
	case runtime.IsSourceUnavailable(err):
		return http.StatusBadRequest, "source_unavailable"
	case runtime.IsBackendUnavailable(err):
		return http.StatusServiceUnavailable, "backend_unavailable"
	case engine.IsRuntime(err):
		return http.StatusInternalServerError, "runtime_error"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeMappedError maps err and writes the error body in one step.
func writeMappedError(w http.ResponseWriter, err error) {
	status, errType := mapError(err)
	writeError(w, status, errType, err.Error())
}
