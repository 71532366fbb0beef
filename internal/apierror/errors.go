package apierror

import "net/http"

// APIError is implemented by errors that map to an HTTP status code.
type APIError interface {
	Error() string
	StatusCode() int
}

// ValidationError covers missing or malformed request fields.
type ValidationError struct {
	Msg string
}

func (e ValidationError) Error() string { return e.Msg }

func (ValidationError) StatusCode() int { return http.StatusBadRequest }

// NotFoundError covers room codes or ids that do not resolve.
type NotFoundError struct {
	Msg string
}

func (e NotFoundError) Error() string { return e.Msg }

func (NotFoundError) StatusCode() int { return http.StatusNotFound }

// ForbiddenError covers non-game-master attempts at game-master-only actions.
type ForbiddenError struct {
	Msg string
}

func (e ForbiddenError) Error() string { return e.Msg }

func (ForbiddenError) StatusCode() int { return http.StatusForbidden }

// ConflictError covers room code collisions on create.
type ConflictError struct {
	Msg string
}

func (e ConflictError) Error() string { return e.Msg }

func (ConflictError) StatusCode() int { return http.StatusConflict }

// UpstreamError covers persistence layer failures, relayed as a generic
// failure. The wrapped cause is logged, not returned to the client.
type UpstreamError struct {
	Msg   string
	Cause error
}

func (e UpstreamError) Error() string { return e.Msg }

func (e UpstreamError) Unwrap() error { return e.Cause }

func (UpstreamError) StatusCode() int { return http.StatusBadGateway }
