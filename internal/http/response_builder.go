// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing JSON responses
// and maps domain errors to status codes and client-facing messages.

package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"ledger/internal/auth"
	"ledger/internal/core"
)

// Client-facing messages.
const (
	msgRegistered        = "Usuario registrado exitosamente."
	msgCredentialsNeeded = "Usuario y contraseña son requeridos."
	msgUsernameTaken     = "El nombre de usuario ya existe."
	msgBadCredentials    = "Credenciales incorrectas."
	msgTokenRequired     = "Token de acceso requerido."
	msgTokenInvalid      = "Token inválido o expirado."
	msgNotFound          = "Transacción no encontrada."
	msgDeleted           = "Transacción eliminada correctamente."
	msgNothingToExport   = "No hay transacciones para exportar."
	msgBadJSON           = "Cuerpo de la solicitud inválido."
	msgInternal          = "Error interno del servidor."
	msgRateLimited       = "Demasiadas solicitudes. Inténtalo más tarde."
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
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

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Message sets a {"message": ...} body.
func (b *JSONResponseBuilder) Message(msg string) *JSONResponseBuilder {
	return b.Body(messageBody{Message: msg})
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	if b.body != nil {
		_ = json.NewEncoder(w).Encode(b.body)
	}
}

type messageBody struct {
	Message string `json:"message"`
}

// ErrorResponse creates a standard {"message"} error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Message(message)
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, msgInternal)
}

// errorResponse maps err onto a status and message. Not-found and not-owned
// share one message, as do unknown user and wrong password.
func errorResponse(err error) *JSONResponseBuilder {
	var missing *core.MissingFieldsError
	switch {
	case errors.As(err, &missing):
		return BadRequestError("Faltan campos requeridos: " + strings.Join(missing.Fields, ", "))
	case errors.Is(err, core.ErrValidation):
		return BadRequestError(err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		return ErrorResponse(http.StatusUnauthorized, msgBadCredentials)
	case errors.Is(err, core.ErrAuth):
		return ErrorResponse(http.StatusUnauthorized, msgTokenRequired)
	case errors.Is(err, core.ErrForbidden):
		return ErrorResponse(http.StatusForbidden, msgTokenInvalid)
	case errors.Is(err, core.ErrConflict):
		return ErrorResponse(http.StatusConflict, msgUsernameTaken)
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError(msgNotFound)
	default:
		return InternalServerError()
	}
}
