package models

// ErrorResponse is the shared error body for HTTP handlers
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// MessageResponse is the shared confirmation body for write endpoints
type MessageResponse struct {
	Message string `json:"message"`
}
