package device

import (
	"context"
	"errors"
	"net"
)

// Transport failures. Every error returned by Client wraps one of these.
var (
	// ErrTimeout means no response arrived before the deadline. Retryable.
	ErrTimeout = errors.New("device: request timed out")
	// ErrTransport covers connection failures and non-2xx responses. Retryable.
	ErrTransport = errors.New("device: transport error")
	// ErrProtocol means the response could not be parsed as an envelope.
	ErrProtocol = errors.New("device: malformed response")
)

// IsRetryable reports whether err is a timeout or transport failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrTransport)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
