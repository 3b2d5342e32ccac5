package agentboot

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error kinds returned by Agent.Respond, carried as gRPC status codes.
const (
	KindInvalidRequest      = "InvalidRequest"
	KindUpstreamUnavailable = "UpstreamUnavailable"
	KindInternalError       = "InternalError"
)

var ErrMessageRequired = status.Error(codes.InvalidArgument, "Message is required")

func invalidRequest(format string, args ...any) error {
	return status.Errorf(codes.InvalidArgument, format, args...)
}

func upstreamUnavailable(err error) error {
	return status.Errorf(codes.Unavailable, "completion failed: %v", err)
}

func internalError(err error) error {
	return status.Errorf(codes.Internal, "internal error: %v", err)
}

// ErrorKind names the category of an error returned by Respond. Errors that
// carry no status are internal.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}

	switch status.Code(err) {
	case codes.InvalidArgument:
		return KindInvalidRequest
	case codes.Unavailable, codes.DeadlineExceeded:
		return KindUpstreamUnavailable
	default:
		return KindInternalError
	}
}

// toResponderError maps a completer failure onto the error taxonomy. Internal
// errors keep their code, everything else is an upstream failure. Request
// validation happens before the completer runs, so a completer can never
// report InvalidRequest.
func toResponderError(err error) error {
	if status.Code(err) == codes.Internal {
		return err
	}
	return upstreamUnavailable(err)
}
