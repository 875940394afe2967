// Package api implements the HTTP handlers for guide data, ingest runs and
// service health.
package api

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
