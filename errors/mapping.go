package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// MapToHTTPStatus translates a domain error into the status code returned by the REST layer.
func MapToHTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case Is(err, ErrAuth):
		return http.StatusUnauthorized
	case Is(err, ErrAuthorization):
		return http.StatusForbidden
	case Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case Is(err, ErrValidation):
		return http.StatusBadRequest
	case Is(err, ErrRoomNotFound), Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// MapToGRPCError translates a domain error into a gRPC status error.
func MapToGRPCError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case Is(err, ErrAuth):
		return status.Error(codes.Unauthenticated, err.Error())
	case Is(err, ErrAuthorization):
		return status.Error(codes.PermissionDenied, err.Error())
	case Is(err, ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case Is(err, ErrRoomNotFound), Is(err, ErrUserNotFound):
		return status.Error(codes.NotFound, err.Error())
	case Is(err, ErrRateLimited):
		return status.Error(codes.ResourceExhausted, err.Error())
	case Is(err, ErrStorage):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

// PublicMessage returns the text that may be shown to the originator of a
// failed request. Storage and unexpected failures never leak their cause.
func PublicMessage(err error) string {
	switch {
	case Is(err, ErrStorage):
		return "Failed to send message"
	case Is(err, ErrAuth), Is(err, ErrAuthorization), Is(err, ErrValidation),
		Is(err, ErrRoomNotFound), Is(err, ErrUserNotFound), Is(err, ErrRateLimited):
		return err.Error()
	default:
		return "Server error"
	}
}
