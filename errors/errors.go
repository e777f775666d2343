package errors

import (
	"errors"
	"fmt"
)

var (
	ErrIdentityRequired  = fmt.Errorf("identity required")
	ErrUnknownConnection = fmt.Errorf("unknown connection")
	ErrMalformedEvent    = fmt.Errorf("malformed event")
	ErrNotInRoom         = fmt.Errorf("connection is not in the declared room")
	ErrUnauthenticated   = fmt.Errorf("unauthenticated")
	ErrConnectionExists  = fmt.Errorf("connection already admitted")
	ErrSlowConsumer      = fmt.Errorf("connection queue full")
	ErrWorkerPanic       = fmt.Errorf("worker panic")
	ErrInvalidCursor     = fmt.Errorf("invalid history cursor")
	ErrDispatchClosed    = fmt.Errorf("dispatcher not accepting events")
)

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
