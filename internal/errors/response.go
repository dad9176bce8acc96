package errors

import "net/http"

// ErrorDetail is the machine-readable part of an API error response.
type ErrorDetail struct {
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ErrorResponse is the JSON body returned for failed API requests.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// NewErrorResponse builds the response body for an error.
func NewErrorResponse(err error) *ErrorResponse {
	message := err.Error()
	if hint := Hint(err); hint != "" {
		message = hint
	}
	return &ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Message: message,
			Details: Details(err),
		},
	}
}

// HTTPStatusFromErr maps a classified error to an HTTP status code.
func HTTPStatusFromErr(err error) int {
	switch {
	case IsValidation(err):
		return http.StatusBadRequest
	case IsPermissionDenied(err):
		return http.StatusUnauthorized
	case IsNotFound(err):
		return http.StatusNotFound
	case IsAlreadyExists(err):
		return http.StatusConflict
	case IsConfiguration(err):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
