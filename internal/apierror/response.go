package apierror

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// APIResponse is the JSON envelope every REST handler returns.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error,omitempty"`
}

// WriteSuccess writes data inside a success envelope.
func WriteSuccess(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(APIResponse{Success: true, Data: data}); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// WriteError converts err to an error envelope. Unknown error types are
// masked as an internal server error with the detail logged only.
func WriteError(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	errorMsg := "internal server error"

	if apiErr, ok := err.(APIError); ok {
		statusCode = apiErr.StatusCode()
		errorMsg = apiErr.Error()
	}

	if statusCode >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if encErr := json.NewEncoder(w).Encode(APIResponse{Success: false, Error: errorMsg}); encErr != nil {
		log.Error().Err(encErr).Msg("failed to encode error response")
	}
}
