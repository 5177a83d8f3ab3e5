// Package http exposes the domain store and the aggregation engine as a JSON API.
//
// This file implements a small builder for JSON responses and the mapping
// from domain errors to status codes.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"smartspend/internal/core"
	"smartspend/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	data       any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Data sets the value encoded as the response body.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.data = v
	return b
}

// Write sends the built response. A 204 carries no body.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.statusCode == http.StatusNoContent {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.data)
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

var errorTypes = map[error]string{
	core.ErrValidation:   log.ErrorTypeValidation,
	core.ErrAuthRequired: log.ErrorTypeAuth,
	core.ErrNotFound:     log.ErrorTypeNotFound,
	core.ErrNotReady:     log.ErrorTypeNotReady,
	core.ErrPersistence:  log.ErrorTypeDatabase,
}

// StatusFor maps err onto an HTTP status code.
func StatusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrAuthRequired):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrPersistence):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse builds the error body for err. Server-side failures do not
// leak their details.
func ErrorResponse(err error) *JSONResponseBuilder {
	status := StatusFor(err)
	detail := ErrorDetail{Code: log.ErrorType(err, errorTypes), Message: err.Error()}

	var ve *core.ValidationError
	if errors.As(err, &ve) {
		detail.Field = ve.Field
	}
	switch status {
	case http.StatusRequestEntityTooLarge:
		detail.Code = log.ErrorTypeValidation
		detail.Message = "request body too large"
	case http.StatusInternalServerError:
		detail.Message = "internal error"
	case http.StatusBadGateway:
		detail.Message = "storage unavailable"
	}

	b := NewJSONResponse().Status(status).Data(ErrorBody{Error: detail})
	if status == http.StatusUnauthorized {
		b.Header("WWW-Authenticate", `Bearer realm="smartspend"`)
	}
	if status == http.StatusServiceUnavailable {
		b.Header("Retry-After", "1")
	}
	return b
}

// writeError logs err at a level matching its status and writes the error body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrorResponse(err)
	logger := log.FromContext(r.Context())
	fields := log.NewFields().WithError(err, log.ErrorType(err, errorTypes)).ToSlice()
	if resp.statusCode >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", fields...)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", fields...)
	}
	resp.Write(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Data(v).Write(w)
}
