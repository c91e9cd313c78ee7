package web

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"warnboard/internal/core/errors"
)

type errorBody struct {
	Error     string                 `json:"error"`
	Code      errors.ErrorCode       `json:"code"`
	Context   map[string]interface{} `json:"context,omitempty"`
	RequestID string                 `json:"requestId,omitempty"`
}

func statusFor(code errors.ErrorCode) int {
	switch code {
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeInvalidArgument, errors.CodeValidationError:
		return http.StatusBadRequest
	case errors.CodeConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.CodeOf(err)
	status := statusFor(code)
	body := errorBody{
		Error:     err.Error(),
		Code:      code,
		RequestID: requestIDFrom(r.Context()),
	}
	var de *errors.DomainError
	if errors.As(err, &de) {
		body.Error = de.Message
		body.Context = de.Context
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "requestId", body.RequestID, "error", err)
		body.Error = "internal error"
		body.Context = nil
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response", "error", err)
	}
}
