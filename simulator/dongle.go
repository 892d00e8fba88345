package simulator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/moffa90/go-nrfboot/protocol"
	"github.com/moffa90/go-nrfboot/transport"
)

var (
	errBusClosed    = errors.New("simulated bus is closed")
	errHandleClosed = errors.New("handle is closed")
	errStall        = errors.New("endpoint stalled")
	errNotClaimed   = errors.New("interface not claimed")
)

// TransferKind identifies a recorded transfer.
type TransferKind int

const (
	KindWrite TransferKind = iota + 1
	KindRead
	KindControl
	KindReset
)

func (k TransferKind) String() string {
	switch k {
	case KindWrite:
		return "write"
	case KindRead:
		return "read"
	case KindControl:
		return "control"
	case KindReset:
		return "reset"
	}
	return fmt.Sprintf("TransferKind(%d)", int(k))
}

// Transfer is one recorded operation on a dongle.
type Transfer struct {
	Kind        TransferKind
	Personality protocol.Personality
	Endpoint    uint8
	RequestType uint8
	Request     uint8
	Data        []byte
	Err         error
}

// Dongle is a simulated nRF24LU1+ dongle.
type Dongle struct {
	mu  sync.Mutex
	cfg dongleConfig

	personality   protocol.Personality
	visibleAt     time.Time
	generation    int
	jumpRequested bool
	configErrors  int

	flash   []byte
	page    int // page being written, -1 when idle
	block   int // next block within page
	verify  []int
	pending []byte
	writes  int
	reads   int

	transfers []Transfer
}

// NewDongle creates a simulated dongle.
func NewDongle(opts ...Option) *Dongle {
	cfg := defaultDongleConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	flash := make([]byte, cfg.flashSize)
	for i := range flash {
		flash[i] = 0xFF
	}
	copy(flash, cfg.flash)

	return &Dongle{
		cfg:          cfg,
		personality:  cfg.personality,
		configErrors: cfg.configErrors,
		flash:        flash,
		page:         -1,
	}
}

// Personality returns the personality the dongle currently runs.
func (d *Dongle) Personality() protocol.Personality {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.personality
}

// Flash returns a copy of the simulated flash.
func (d *Dongle) Flash() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.flash...)
}

// Transfers returns a copy of every recorded transfer.
func (d *Dongle) Transfers() []Transfer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Transfer(nil), d.transfers...)
}

// CommandArgs returns the argument byte of every two-byte bootloader
// command with the given code, in the order they were sent.
func (d *Dongle) CommandArgs(cmd byte) []int {
	d.mu.Lock()
	defer d.mu.Unlock()

	var args []int
	for _, t := range d.transfers {
		if t.Kind == KindWrite && t.Personality == protocol.BootloaderMode &&
			len(t.Data) == 2 && t.Data[0] == cmd {
			args = append(args, int(t.Data[1]))
		}
	}
	return args
}

// BlockWrites returns the number of 64-byte block writes the bootloader received.
func (d *Dongle) BlockWrites() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for _, t := range d.transfers {
		if t.Kind == KindWrite && t.Personality == protocol.BootloaderMode && len(t.Data) == protocol.BlockSize {
			n++
		}
	}
	return n
}

// VerifyArgs returns the second byte of every verify-page command.
func (d *Dongle) VerifyArgs() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.verify...)
}

func (d *Dongle) open(vendorID, productID uint16) transport.Device {
	d.mu.Lock()
	defer d.mu.Unlock()

	if vendorID != d.personality.VendorID() || productID != d.personality.ProductID() {
		return nil
	}
	if time.Now().Before(d.visibleAt) {
		return nil
	}
	return &handle{dongle: d, generation: d.generation}
}

func (d *Dongle) record(t Transfer) {
	d.transfers = append(d.transfers, t)
}

// reenumerate must be called with d.mu held.
func (d *Dongle) reenumerate() {
	d.generation++
	d.visibleAt = time.Now().Add(d.cfg.reenumerationDelay)
	if d.jumpRequested {
		d.personality = protocol.BootloaderMode
		d.jumpRequested = false
	}
	d.page = -1
	d.block = 0
	d.pending = nil
}

func (d *Dongle) write(endpoint uint8, data []byte) error {
	switch d.personality {
	case protocol.ApplicationModeA:
		if endpoint == protocol.EndpointOut && len(data) == 1 && data[0] == protocol.CmdJumpToBootloader {
			if d.cfg.jumpErr != nil {
				return d.cfg.jumpErr
			}
			d.jumpRequested = true
		}
		return nil
	case protocol.BootloaderMode:
		return d.bootloaderWrite(endpoint, data)
	}
	return nil
}

func (d *Dongle) bootloaderWrite(endpoint uint8, data []byte) error {
	d.writes++
	if d.writes == d.cfg.writeFaultAt {
		return d.cfg.writeFaultErr
	}
	if endpoint != protocol.EndpointOut {
		return errStall
	}
	if d.pending != nil {
		return fmt.Errorf("%w: previous response was not read", errStall)
	}

	if d.page >= 0 {
		if len(data) != protocol.BlockSize {
			return fmt.Errorf("%w: block must be %d bytes, got %d", errStall, protocol.BlockSize, len(data))
		}
		off := d.page*protocol.PageSize + d.block*protocol.BlockSize
		copy(d.flash[off:], data)
		for _, c := range d.cfg.corruptOffsets {
			if c >= off && c < off+protocol.BlockSize {
				d.flash[c] = ^data[c-off]
			}
		}
		d.block++
		if d.block == protocol.BlocksPerPage {
			d.page = -1
			d.block = 0
		}
		d.pending = ack()
		return nil
	}

	if len(data) != 2 {
		return fmt.Errorf("%w: unknown %d-byte command", errStall, len(data))
	}

	switch data[0] {
	case protocol.CmdWritePage:
		page := int(data[1])
		if (page+1)*protocol.PageSize > len(d.flash) {
			return fmt.Errorf("%w: page %d beyond flash", errStall, page)
		}
		d.page = page
		d.block = 0
		d.pending = ack()
	case protocol.CmdVerifyPage:
		d.verify = append(d.verify, int(data[1]))
		d.pending = ack()
	case protocol.CmdReadBlock:
		off := int(data[1]) * protocol.BlockSize
		d.pending = append([]byte(nil), d.flash[off:off+protocol.BlockSize]...)
	default:
		return fmt.Errorf("%w: unknown command 0x%02X", errStall, data[0])
	}
	return nil
}

func (d *Dongle) read(endpoint uint8, length int) ([]byte, error) {
	if d.personality != protocol.BootloaderMode {
		return nil, transport.ErrTimeout
	}

	d.reads++
	if d.reads == d.cfg.readTimeoutAt {
		d.pending = nil
		return nil, transport.ErrTimeout
	}
	if endpoint != protocol.EndpointIn {
		return nil, errStall
	}
	if d.pending == nil {
		return nil, transport.ErrTimeout
	}

	resp := d.pending
	d.pending = nil
	if length < len(resp) {
		resp = resp[:length]
	}
	return resp, nil
}

func (d *Dongle) control(requestType, request uint8) error {
	if d.personality == protocol.ApplicationModeB &&
		requestType == protocol.RequestTypeVendorOut && request == protocol.CmdJumpToBootloader {
		if d.cfg.jumpErr != nil {
			return d.cfg.jumpErr
		}
		d.jumpRequested = true
		return nil
	}
	return errStall
}

func ack() []byte {
	return make([]byte, protocol.ResponseSize)
}

type handle struct {
	dongle     *Dongle
	generation int
	claimed    bool
	closed     bool
}

// check must be called with the dongle lock held.
func (h *handle) check() error {
	if h.closed {
		return errHandleClosed
	}
	if h.generation != h.dongle.generation {
		return transport.ErrNoDevice
	}
	return nil
}

func (h *handle) Write(ctx context.Context, endpoint uint8, data []byte, timeout time.Duration) (int, error) {
	d := h.dongle
	d.mu.Lock()
	defer d.mu.Unlock()

	t := Transfer{Kind: KindWrite, Personality: d.personality, Endpoint: endpoint, Data: append([]byte(nil), data...)}
	err := ctx.Err()
	if err == nil {
		err = h.check()
	}
	if err == nil {
		err = d.write(endpoint, data)
	}
	t.Err = err
	d.record(t)

	if err != nil {
		return 0, &transport.TransferError{Op: "write", Endpoint: endpoint, Err: err}
	}
	return len(data), nil
}

func (h *handle) Read(ctx context.Context, endpoint uint8, length int, timeout time.Duration) ([]byte, error) {
	d := h.dongle
	d.mu.Lock()
	defer d.mu.Unlock()

	err := ctx.Err()
	if err == nil {
		err = h.check()
	}
	var resp []byte
	if err == nil {
		resp, err = d.read(endpoint, length)
	}
	d.record(Transfer{Kind: KindRead, Personality: d.personality, Endpoint: endpoint, Data: resp, Err: err})

	if err != nil {
		return nil, &transport.TransferError{Op: "read", Endpoint: endpoint, Err: err}
	}
	return resp, nil
}

func (h *handle) Control(ctx context.Context, requestType, request uint8, value, index uint16, data []byte, timeout time.Duration) (int, error) {
	d := h.dongle
	d.mu.Lock()
	defer d.mu.Unlock()

	err := ctx.Err()
	if err == nil {
		err = h.check()
	}
	if err == nil {
		err = d.control(requestType, request)
	}
	d.record(Transfer{
		Kind:        KindControl,
		Personality: d.personality,
		RequestType: requestType,
		Request:     request,
		Data:        append([]byte(nil), data...),
		Err:         err,
	})

	if err != nil {
		return 0, &transport.TransferError{Op: "control", Err: err}
	}
	return len(data), nil
}

func (h *handle) SetConfiguration() error {
	d := h.dongle
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := h.check(); err != nil {
		return err
	}
	if d.configErrors > 0 {
		d.configErrors--
		return fmt.Errorf("set configuration: %w", errNotClaimed)
	}
	h.claimed = true
	return nil
}

func (h *handle) Release() error {
	h.dongle.mu.Lock()
	defer h.dongle.mu.Unlock()
	h.claimed = false
	return nil
}

func (h *handle) Reset() error {
	d := h.dongle
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := h.check(); err != nil {
		return err
	}
	d.record(Transfer{Kind: KindReset, Personality: d.personality, Err: d.cfg.resetErr})
	d.reenumerate()
	return d.cfg.resetErr
}

func (h *handle) Close() error {
	h.dongle.mu.Lock()
	defer h.dongle.mu.Unlock()
	h.claimed = false
	h.closed = true
	return nil
}
