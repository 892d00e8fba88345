// Package transport defines the USB operations the flasher needs and
// provides a libusb backend for them.
//
// The core packages never talk to libusb directly; they accept a Transport
// and the Device handles it returns. This allows the simulator package to
// stand in for real hardware in tests.
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Transport finds attached USB devices.
type Transport interface {
	// Find opens the first attached device matching vendorID and productID.
	// It returns (nil, nil) when no such device is attached.
	Find(ctx context.Context, vendorID, productID uint16) (Device, error)

	// Close releases the transport.
	Close() error
}

// Device is an exclusive handle to one opened USB device.
// Endpoints are addressed by their USB endpoint address (e.g. 0x01, 0x81).
type Device interface {
	// Write performs a bulk OUT transfer.
	Write(ctx context.Context, endpoint uint8, data []byte, timeout time.Duration) (int, error)

	// Read performs a bulk IN transfer of up to length bytes.
	Read(ctx context.Context, endpoint uint8, length int, timeout time.Duration) ([]byte, error)

	// Control performs a control transfer.
	Control(ctx context.Context, requestType, request uint8, value, index uint16, data []byte, timeout time.Duration) (int, error)

	// SetConfiguration selects the active configuration and claims the
	// interface used for bulk transfers.
	SetConfiguration() error

	// Release gives up claimed interfaces and configuration but keeps the
	// device open, so Reset can still be issued.
	Release() error

	// Reset issues a USB port reset. The device re-enumerates afterwards and
	// the handle is no longer usable for transfers.
	Reset() error

	// Close releases everything held by the handle.
	Close() error
}

var (
	// ErrTimeout is wrapped by transfers that did not complete in time.
	ErrTimeout = errors.New("transfer timed out")

	// ErrShortTransfer is wrapped by transfers that moved fewer bytes than requested.
	ErrShortTransfer = errors.New("short transfer")

	// ErrNoDevice is wrapped by transfers on a device that has gone away.
	ErrNoDevice = errors.New("device is gone")
)

// TransferError describes a failed USB transfer.
type TransferError struct {
	// Op is "write", "read" or "control"
	Op string

	// Endpoint is the endpoint address, 0 for control transfers
	Endpoint uint8

	// Err is the underlying error
	Err error
}

func (e *TransferError) Error() string {
	if e.Op == "control" {
		return fmt.Sprintf("usb control transfer failed: %v", e.Err)
	}
	return fmt.Sprintf("usb %s on endpoint 0x%02X failed: %v", e.Op, e.Endpoint, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// IsTransferError returns true if err is or wraps a *TransferError.
func IsTransferError(err error) bool {
	var target *TransferError
	return errors.As(err, &target)
}

// IsTimeout returns true if err is or wraps ErrTimeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
