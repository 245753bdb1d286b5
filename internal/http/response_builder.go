// Package http serves the fintrack JSON API.
//
// This file implements the builder used by every handler to write JSON
// bodies and the mapping from domain errors to status codes.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/receipt"
)

// JSONResponseBuilder is a fluent writer for JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	payload    any
}

func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Data sets the value encoded as the response body.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Location sets the Location header for 201 responses.
func (b *JSONResponseBuilder) Location(path string) *JSONResponseBuilder {
	return b.Header("Location", path)
}

func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.statusCode == http.StatusNoContent || b.payload == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.payload)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Service string `json:"service,omitempty"`
}

// ErrorResponse builds a JSON error with a short machine code and a message.
func ErrorResponse(statusCode int, code, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Data(errorBody{Error: code, Message: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, "bad_request", message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, "not_found", message)
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal", "internal server error")
}

func TooManyRequestsError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, try again later")
}

// errorFor maps err onto a response and the error type used in logs.
func errorFor(err error) (*JSONResponseBuilder, string) {
	if se, ok := core.AsServiceError(err); ok {
		return NewJSONResponse().
			Status(http.StatusBadGateway).
			Data(errorBody{Error: "upstream", Message: se.Message, Service: se.Service}), log.ErrorTypeUpstream
	}

	switch {
	case core.IsValidation(err):
		return ErrorResponse(http.StatusBadRequest, "validation", err.Error()), log.ErrorTypeValidation
	case errors.Is(err, core.ErrNotFound):
		return ErrorResponse(http.StatusNotFound, "not_found", err.Error()), log.ErrorTypeNotFound
	case errors.Is(err, core.ErrPredefinedCategory),
		errors.Is(err, core.ErrLastCategory),
		errors.Is(err, core.ErrAlreadyCommitted),
		errors.Is(err, core.ErrNoDrafts),
		errors.Is(err, receipt.ErrScanInProgress),
		errors.Is(err, receipt.ErrNotScanned):
		return ErrorResponse(http.StatusConflict, "conflict", err.Error()), log.ErrorTypeConflict
	default:
		return InternalServerError(), log.ErrorTypeInternal
	}
}

// writeError logs err with its classification and writes the mapped response.
// Client errors log at warn, everything else at error.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp, errType := errorFor(err)
	logger := log.FromContext(r.Context())
	if resp.statusCode >= 500 {
		log.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err, op, errType)
	} else {
		logger.WarnContext(r.Context(), "Request rejected",
			log.NewFields().WithError(err).WithOperation(op).WithErrorType(errType).ToSlice()...)
	}
	resp.Write(w)
}
