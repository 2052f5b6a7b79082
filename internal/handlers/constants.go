package handlers

const (
	ErrInvalidJSON         = "Invalid JSON body"
	ErrUnauthorized        = "Unauthorized"
	ErrTooManyRequests     = "Too many requests"
	ErrInternalServerError = "Internal server error"
	ErrServiceUnavailable  = "Service unavailable"
	RequestIDHeader        = "X-Request-ID"
	maxRequestBodyBytes    = 1 << 16
)
