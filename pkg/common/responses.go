package common

import (
	"encoding/json"
	"net/http"

	apperrors "relay-backend/pkg/errors"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo contains error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetaInfo contains metadata about the response
type MetaInfo struct {
	RequestID  string          `json:"request_id,omitempty"`
	Pagination *PaginationInfo `json:"pagination,omitempty"`
}

// PaginationInfo contains pagination details
type PaginationInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	Count    int  `json:"count"`
	HasPrev  bool `json:"has_prev"`
}

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	response := APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// RespondError sends an error response
func RespondError(w http.ResponseWriter, status int, code, message string) {
	response := APIResponse{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// RespondAppError maps an application error to the appropriate HTTP status
// and error code. Not-found, validation, conflict and transient faults each
// get a distinct client-visible shape.
func RespondAppError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	status := http.StatusInternalServerError
	code := "INTERNAL_ERROR"
	message := "internal error"

	if e, ok := err.(*apperrors.AppError); ok {
		appErr = e
	} else {
		RespondError(w, status, code, message)
		return
	}

	switch appErr.Type {
	case apperrors.ErrorTypeNotFound:
		status, code = http.StatusNotFound, "NOT_FOUND"
	case apperrors.ErrorTypeValidation:
		status, code = http.StatusBadRequest, "VALIDATION_ERROR"
	case apperrors.ErrorTypeConflict:
		status, code = http.StatusConflict, "CONFLICT"
		if appErr.Code != "" {
			code = string(appErr.Code)
		}
	case apperrors.ErrorTypeTransient:
		status, code = http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"
	}

	if appErr.Message != "" {
		message = appErr.Message
	}

	RespondError(w, status, code, message)
}

// RespondWithMeta sends a response with metadata
func RespondWithMeta(w http.ResponseWriter, status int, data interface{}, meta *MetaInfo) {
	response := APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
		Meta:    meta,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}
