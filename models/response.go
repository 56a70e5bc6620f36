package models

// Envelope codes returned by every endpoint.
const (
	CodeSuccess        = "Success"
	CodeIncompleteBody = "IncompleteBody"
	CodeNotFound       = "NotFound"
	CodeInternalError  = "InternalError"
	CodeWarning        = "Warning"
	CodeUnauthorized   = "Unauthorized"
	CodeImmutable      = "Immutable"
	CodeConflict       = "Conflict"
)

// Response is the JSON envelope shared by every endpoint
type Response struct {
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Data    interface{} `json:"data,omitempty"`
}

// HealthCheckResponse returns the health check response
type HealthCheckResponse struct {
	Alive bool `json:"alive"`
}
