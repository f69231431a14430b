package handler

// errorResponse documents the JSON error envelope rendered by the service
// error handler.
type errorResponse struct {
	Error string `json:"error"`
}
