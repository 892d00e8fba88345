package protocol

import (
	"errors"
	"fmt"
)

// AddressRangeError indicates a page or block index that cannot be encoded
// in the one-byte address field of a bootloader command.
type AddressRangeError struct {
	// Field is "page" or "block"
	Field string

	// Index is the offending index
	Index int

	// Limit is the exclusive upper bound
	Limit int
}

func (e *AddressRangeError) Error() string {
	return fmt.Sprintf("%s %d is out of range: bootloader addresses %ss 0-%d",
		e.Field, e.Index, e.Field, e.Limit-1)
}

// IsAddressRangeError returns true if err is or wraps an *AddressRangeError.
func IsAddressRangeError(err error) bool {
	var target *AddressRangeError
	return errors.As(err, &target)
}
