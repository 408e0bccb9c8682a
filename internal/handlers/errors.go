package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
)

const (
	errTypeInvalidRequest = "invalid_request_error"
	errTypeAPI            = "api_error"
)

// APIError is the OpenAI-style error object.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

type errorResponse struct {
	Error APIError `json:"error"`
}

func badRequest(msg string) APIError {
	return APIError{Message: msg, Type: errTypeInvalidRequest, Code: http.StatusBadRequest}
}

// backendFailure is the one error clients see for any backend problem; the
// cause is only logged.
func backendFailure() APIError {
	return APIError{Message: "Error processing request", Type: errTypeAPI, Code: http.StatusInternalServerError}
}

// decodeError maps a JSON body decoding failure to a client error.
func decodeError(err error) APIError {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return APIError{Message: "request body too large", Type: errTypeInvalidRequest, Code: http.StatusRequestEntityTooLarge}
	}
	return badRequest("invalid JSON body")
}

func writeAPIError(w http.ResponseWriter, e APIError) {
	writeJSON(w, e.Code, errorResponse{Error: e})
}

// writeJSON is a small helper to send JSON responses consistently.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
