// Package errors carries the HTTP error envelope shared by all handlers.
//
// Every error response has the shape:
//
//	{"error": {"code": "...", "message": "...", "request_id": "...", "details": {...}}}
//
// Codes are stable identifiers for clients; messages are human-readable and
// may change.
package errors

import (
	"encoding/json"
	"net/http"
)

// Stable error codes surfaced to clients.
const (
	CodeNoPackageSpecified = "NO_PACKAGE_SPECIFIED"
	CodePackageNotFound    = "PACKAGE_NOT_FOUND"
	CodeRegistryResolution = "REGISTRY_RESOLUTION_ERROR"
	CodeGenerationFailed   = "GENERATION_FAILED"
	CodeJobNotFound        = "JOB_NOT_FOUND"
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeInternal           = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// HTTPErrorResponse is the JSON envelope for error responses.
type HTTPErrorResponse struct {
	Error HTTPErrorBody `json:"error"`
}

// HTTPErrorBody is the envelope payload.
type HTTPErrorBody struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	RequestID string         `json:"request_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// RespondWithError writes the envelope with the given status and no
// structured details.
func RespondWithError(w http.ResponseWriter, status int, code, message, requestID string) {
	RespondWithErrorDetails(w, status, code, message, requestID, nil)
}

// RespondWithErrorDetails writes the envelope with request correlation and
// structured details.
func RespondWithErrorDetails(w http.ResponseWriter, status int, code, message, requestID string, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(HTTPErrorResponse{
		Error: HTTPErrorBody{
			Code:      code,
			Message:   message,
			RequestID: requestID,
			Details:   details,
		},
	})
}
