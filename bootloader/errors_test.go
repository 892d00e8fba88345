package bootloader

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestVerificationError(t *testing.T) {
	err := &VerificationError{
		Page:     3,
		Block:    5,
		Offset:   12,
		Expected: 0xA5,
		Actual:   0x5A,
	}

	errMsg := err.Error()

	if !strings.Contains(errMsg, "verification failed on page 3, block 5") {
		t.Errorf("error message should name page and block, got: %s", errMsg)
	}

	if !strings.Contains(errMsg, "0x5A") || !strings.Contains(errMsg, "0xA5") {
		t.Errorf("error message should contain both byte values, got: %s", errMsg)
	}
}

func TestIsVerificationError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"direct", &VerificationError{Page: 1}, true},
		{"wrapped", fmt.Errorf("flash: %w", &VerificationError{Page: 1}), true},
		{"other", errors.New("verification failed"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsVerificationError(tt.err); got != tt.want {
				t.Errorf("IsVerificationError() = %v, want %v", got, tt.want)
			}
		})
	}
}
