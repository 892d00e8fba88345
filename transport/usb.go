package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/gousb"
	"github.com/sirupsen/logrus"
)

const (
	usbConfigNum     = 1
	usbIfaceNum      = 0
	usbAltSetting    = 0
	endpointNumMask  = 0x0F
	defaultLibusbLog = 0
)

// USBOption configures the libusb transport.
type USBOption func(*USB)

// WithUSBLogger sets the logger used by the libusb transport.
func WithUSBLogger(logger logrus.FieldLogger) USBOption {
	return func(u *USB) {
		u.log = logger
	}
}

// WithLibusbDebug sets the libusb internal debug level (0-4).
func WithLibusbDebug(level int) USBOption {
	return func(u *USB) {
		u.debug = level
	}
}

// USB is a Transport backed by libusb.
type USB struct {
	ctx   *gousb.Context
	log   logrus.FieldLogger
	debug int
}

// NewUSB initializes libusb. Close must be called to release it.
func NewUSB(opts ...USBOption) *USB {
	u := &USB{
		log:   discardLogger(),
		debug: defaultLibusbLog,
	}
	for _, opt := range opts {
		opt(u)
	}

	u.ctx = gousb.NewContext()
	if u.debug > 0 {
		u.ctx.Debug(u.debug)
	}
	return u
}

// Find opens the first device matching vendorID and productID.
func (u *USB) Find(ctx context.Context, vendorID, productID uint16) (Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log := u.log.WithField("device", fmt.Sprintf("%04x:%04x", vendorID, productID))
	dev, err := u.ctx.OpenDeviceWithVIDPID(gousb.ID(vendorID), gousb.ID(productID))
	if dev == nil {
		if err != nil {
			return nil, fmt.Errorf("open %04x:%04x: %w", vendorID, productID, err)
		}
		return nil, nil
	}
	if err != nil {
		// another device failed to open but we got the one we asked for
		log.WithError(err).Debug("ignoring error from device enumeration")
	}

	if err := dev.SetAutoDetach(true); err != nil {
		log.WithError(err).Debug("kernel driver auto-detach not supported")
	}

	log.WithField("bus", dev.Desc.Bus).WithField("address", dev.Desc.Address).Debug("device opened")
	return &usbDevice{dev: dev, log: log}, nil
}

// Close releases libusb.
func (u *USB) Close() error {
	return u.ctx.Close()
}

type usbDevice struct {
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface
	log  logrus.FieldLogger
}

func (d *usbDevice) SetConfiguration() error {
	return d.claim()
}

func (d *usbDevice) claim() error {
	if d.intf != nil {
		return nil
	}

	cfg, err := d.dev.Config(usbConfigNum)
	if err != nil {
		return fmt.Errorf("set configuration %d: %w", usbConfigNum, err)
	}
	intf, err := cfg.Interface(usbIfaceNum, usbAltSetting)
	if err != nil {
		_ = cfg.Close()
		return fmt.Errorf("claim interface %d: %w", usbIfaceNum, err)
	}

	d.cfg = cfg
	d.intf = intf
	return nil
}

func (d *usbDevice) Write(ctx context.Context, endpoint uint8, data []byte, timeout time.Duration) (int, error) {
	if err := d.claim(); err != nil {
		return 0, &TransferError{Op: "write", Endpoint: endpoint, Err: err}
	}
	ep, err := d.intf.OutEndpoint(int(endpoint & endpointNumMask))
	if err != nil {
		return 0, &TransferError{Op: "write", Endpoint: endpoint, Err: err}
	}

	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	n, err := ep.WriteContext(tctx, data)
	if err != nil {
		return n, &TransferError{Op: "write", Endpoint: endpoint, Err: classify(ctx, tctx, err)}
	}
	if n != len(data) {
		return n, &TransferError{
			Op:       "write",
			Endpoint: endpoint,
			Err:      fmt.Errorf("%w: wrote %d of %d bytes", ErrShortTransfer, n, len(data)),
		}
	}
	return n, nil
}

func (d *usbDevice) Read(ctx context.Context, endpoint uint8, length int, timeout time.Duration) ([]byte, error) {
	if err := d.claim(); err != nil {
		return nil, &TransferError{Op: "read", Endpoint: endpoint, Err: err}
	}
	ep, err := d.intf.InEndpoint(int(endpoint & endpointNumMask))
	if err != nil {
		return nil, &TransferError{Op: "read", Endpoint: endpoint, Err: err}
	}

	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	buf := make([]byte, length)
	n, err := ep.ReadContext(tctx, buf)
	if err != nil {
		return buf[:n], &TransferError{Op: "read", Endpoint: endpoint, Err: classify(ctx, tctx, err)}
	}
	return buf[:n], nil
}

func (d *usbDevice) Control(ctx context.Context, requestType, request uint8, value, index uint16, data []byte, timeout time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, &TransferError{Op: "control", Err: err}
	}

	d.dev.ControlTimeout = timeout
	n, err := d.dev.Control(requestType, request, value, index, data)
	if err != nil {
		return n, &TransferError{Op: "control", Err: classify(ctx, ctx, err)}
	}
	return n, nil
}

func (d *usbDevice) Release() error {
	if d.intf != nil {
		d.intf.Close()
		d.intf = nil
	}
	if d.cfg != nil {
		cfg := d.cfg
		d.cfg = nil
		if err := cfg.Close(); err != nil {
			return fmt.Errorf("release configuration: %w", err)
		}
	}
	return nil
}

func (d *usbDevice) Reset() error {
	return d.dev.Reset()
}

func (d *usbDevice) Close() error {
	if err := d.Release(); err != nil {
		// do not abort, the device handle still has to be closed
		d.log.WithError(err).Debug("release before close failed")
	}
	return d.dev.Close()
}

// classify maps libusb and context errors onto the transport sentinels.
func classify(parent, transfer context.Context, err error) error {
	switch {
	case parent.Err() != nil:
		return fmt.Errorf("%w: %v", parent.Err(), err)
	case errors.Is(transfer.Err(), context.DeadlineExceeded),
		errors.Is(err, gousb.ErrorTimeout),
		errors.Is(err, gousb.TransferTimedOut):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, gousb.ErrorNoDevice),
		errors.Is(err, gousb.TransferNoDevice):
		return fmt.Errorf("%w: %v", ErrNoDevice, err)
	}
	return err
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
