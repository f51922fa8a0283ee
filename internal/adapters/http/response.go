package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse is a standard structure for returning errors in JSON format.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeJSONError is a helper for sending errors in JSON format.
func writeJSONError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, ErrorResponse{Error: message}, nil)
}

// writeJSONErrorCode also sets the machine-readable error code.
func writeJSONErrorCode(w http.ResponseWriter, message, errCode string, code int) {
	writeJSON(w, code, ErrorResponse{Error: message, Code: errCode}, nil)
}

func writeJSON(w http.ResponseWriter, code int, body any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("failed to write json response", "error", err)
	}
}
