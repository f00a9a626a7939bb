package thumbnail

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for structurally invalid input. The
	// session is not modified.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrOperationFailure is returned when a runtime step fails: unreadable
	// or unsupported files, unwritable directories, engine failures.
	ErrOperationFailure = errors.New("operation failed")
	// ErrNoImage is returned by operations that need a loaded image.
	ErrNoImage = fmt.Errorf("%w: no image loaded", ErrOperationFailure)
)
