package client

import (
	"errors"

	"github.com/revrsefr/sable/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
)

// FailError is a CHATHISTORY request rejected by the server.
type FailError struct {
	Line string
}

func (e *FailError) Error() string { return e.Line }

// mapError turns gRPC status errors into package sentinels. Other errors
// pass through.
func mapError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.Unavailable:
		return ErrUnavailable
	case codes.Unauthenticated:
		if st.Message() == common.ErrTokenExpired.Error() {
			return common.ErrTokenExpired
		}
		return ErrUnauthorized
	case codes.PermissionDenied:
		return common.ErrForbiddenRole
	case codes.ResourceExhausted:
		return ErrRateLimited
	default:
		return err
	}
}
