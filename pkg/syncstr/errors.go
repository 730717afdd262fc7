package syncstr

import (
	"errors"
	"fmt"
)

// Invalid is returned by position- and size-returning operations in place of
// an error when there is no meaningful value (not found, nil or destroyed buffer).
const Invalid = -1

var (
	// ErrAllocation reports that the allocator refused a storage request.
	ErrAllocation = errors.New("syncstr: allocation failed")
	// ErrEncoding reports that wide text could not be converted to bytes.
	ErrEncoding = errors.New("syncstr: encoding failed")
	// ErrInvalidArgument reports a nil buffer, a bad index, or a bad size.
	ErrInvalidArgument = errors.New("syncstr: invalid argument")
	// ErrEmpty reports an operation that needs content on an empty buffer.
	ErrEmpty = errors.New("syncstr: buffer is empty")
	// ErrNotFound reports a search that did not match.
	ErrNotFound = errors.New("syncstr: not found")
)

var (
	// ErrDestroyed is returned by every operation on a destroyed buffer.
	ErrDestroyed = fmt.Errorf("%w: buffer destroyed", ErrInvalidArgument)
	// ErrOutOfRange is returned when an index or start offset is past the content.
	ErrOutOfRange = fmt.Errorf("%w: index out of range", ErrInvalidArgument)
)

func allocError(n int, err error) error {
	if errors.Is(err, ErrAllocation) {
		return err
	}
	return fmt.Errorf("%w: %d bytes: %v", ErrAllocation, n, err)
}
