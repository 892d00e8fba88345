package bootloader

import (
	"errors"
	"fmt"
)

// VerificationError indicates that a block read back from flash does not
// match the image.
type VerificationError struct {
	// Page is the page containing the block
	Page int

	// Block is the block index within the page (0-7)
	Block int

	// Offset is the first differing byte, relative to the block start
	Offset int

	Expected byte
	Actual   byte
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification failed on page %d, block %d: byte %d is 0x%02X, expected 0x%02X",
		e.Page, e.Block, e.Offset, e.Actual, e.Expected)
}

// IsVerificationError returns true if err is or wraps a *VerificationError.
func IsVerificationError(err error) bool {
	var target *VerificationError
	return errors.As(err, &target)
}
