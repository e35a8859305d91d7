package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

var (
	errNotFound          = errors.New("no matching documents found")
	errNotAuthenticated  = errors.New("this resource requires an authenticated session")
	errUnsupportedFormat = errors.New("requested format is not supported")
	errInvalidParameter  = errors.New("invalid parameter")
)

// statusError carries the HTTP status an upstream failure should be reported with
type statusError struct {
	status int
	msg    string
}

func (e *statusError) Error() string {
	return e.msg
}

func newStatusError(status int, msg string) error {
	return &statusError{status: status, msg: msg}
}

func statusForError(err error) int {
	var se *statusError

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &se):
		return se.status
	case errors.Is(err, errInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, errNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, errNotFound):
		return http.StatusNotFound
	case errors.Is(err, errUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

func errorResponse(err error) serviceResponse {
	return serviceResponse{status: statusForError(err), data: gin.H{"detail": err.Error()}, err: err}
}
