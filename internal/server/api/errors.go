package api

import "net/http"

// ErrorResponse is the JSON body of every error answer.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Details any    `json:"details,omitempty"`
}

func (e *ErrorResponse) Error() string {
	return e.Message
}

func NewErrorResponse(code int, message string, details ...any) *ErrorResponse {
	if len(details) > 0 {
		return &ErrorResponse{Message: message, Code: code, Details: details[0]}
	}
	return &ErrorResponse{Message: message, Code: code}
}

func BadRequestError(message string, details ...any) *ErrorResponse {
	return NewErrorResponse(http.StatusBadRequest, message, details...)
}

func UnauthorizedError(message string, details ...any) *ErrorResponse {
	return NewErrorResponse(http.StatusUnauthorized, message, details...)
}

func NotFoundError(message string, details ...any) *ErrorResponse {
	return NewErrorResponse(http.StatusNotFound, message, details...)
}

func InternalServerError(message string, details ...any) *ErrorResponse {
	return NewErrorResponse(http.StatusInternalServerError, message, details...)
}

func ConflictError(message string, details ...any) *ErrorResponse {
	return NewErrorResponse(http.StatusConflict, message, details...)
}
