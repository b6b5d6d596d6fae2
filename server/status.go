package server

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/frobware/go-pfq"
)

// toStatus maps a domain error onto a gRPC status. The message keeps
// the original error text.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	return status.Error(codeOf(err), err.Error())
}

func codeOf(err error) codes.Code {
	switch {
	case errors.Is(err, pfq.ErrExists):
		return codes.AlreadyExists
	case errors.Is(err, pfq.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, pfq.ErrRejected):
		return codes.PermissionDenied
	case errors.Is(err, pfq.ErrExhausted):
		return codes.ResourceExhausted
	case errors.Is(err, pfq.ErrInvalid):
		return codes.InvalidArgument
	case errors.Is(err, errNoPeerCred):
		return codes.Unauthenticated
	case errors.Is(err, errNoHistory):
		return codes.FailedPrecondition
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}
