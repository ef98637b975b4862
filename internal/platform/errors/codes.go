// Package errors provides coded domain errors shared by the inventory service
// and its clients.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Request errors
	CodeInvalidArgument Code = "INVALID_ARGUMENT"

	// Item errors
	CodeItemIDRequired   Code = "ITEM_ID_REQUIRED"
	CodeItemIDInvalid    Code = "ITEM_ID_INVALID"
	CodeItemExists       Code = "ITEM_ALREADY_EXISTS"
	CodeNotFound         Code = "NOT_FOUND"
	CodeLabelUnavailable Code = "LABEL_UNAVAILABLE"

	// Credential errors
	CodeUnauthenticated   Code = "UNAUTHENTICATED"
	CodeCredentialInvalid Code = "CREDENTIAL_INVALID"
	CodeCredentialExpired Code = "CREDENTIAL_EXPIRED"
	CodeLoginFailed       Code = "LOGIN_FAILED"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidArgument,
		CodeItemIDRequired,
		CodeItemIDInvalid:
		return http.StatusBadRequest
	case CodeItemExists:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthenticated,
		CodeCredentialInvalid,
		CodeCredentialExpired,
		CodeLoginFailed:
		return http.StatusUnauthorized
	case CodeLabelUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
