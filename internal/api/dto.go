package api

// StatusResponse is returned by the health and record endpoints.
type StatusResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of every 4xx and 5xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}
