package errors

import "fmt"

var (
	ErrWorkerPanic          = fmt.Errorf("worker panic")
	ErrPersistenceTimeout   = fmt.Errorf("persistence timed out")
	ErrInvalidFrame         = fmt.Errorf("invalid frame")
	ErrUnknownEvent         = fmt.Errorf("unknown event")
	ErrConnectionClosed     = fmt.Errorf("connection closed")
	ErrInvalidFailurePolicy = fmt.Errorf("invalid failure policy")
	ErrInvalidCursor        = fmt.Errorf("invalid cursor")
)
