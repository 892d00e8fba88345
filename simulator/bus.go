// Package simulator provides an in-memory USB bus with simulated nRF24LU1+
// dongles, implementing transport.Transport.
//
// A simulated dongle starts in an application personality, honours the
// jump-to-bootloader command of that personality, re-enumerates as the
// Nordic bootloader after a reset and then implements the page write and
// readback commands against an in-memory flash:
//
//	dongle := simulator.NewDongle(simulator.WithPersonality(protocol.ApplicationModeB))
//	bus := simulator.New(dongle)
//
//	f := flasher.New(bus)
//	err := f.Flash(ctx, img)
//
//	flash := dongle.Flash() // what ended up on the device
//
// Faults such as transfer timeouts, failed jumps, failed resets and bad
// flash cells can be injected with Options. Every transfer is recorded and
// available through Dongle.Transfers.
package simulator

import (
	"context"
	"sync"

	"github.com/moffa90/go-nrfboot/transport"
)

// Lookup records one Find call on the bus.
type Lookup struct {
	VendorID  uint16
	ProductID uint16
	Found     bool
}

// Bus is a simulated USB bus.
type Bus struct {
	mu         sync.Mutex
	dongles    []*Dongle
	lookups    []Lookup
	lookupErrs []error
	closed     bool
}

// New creates a bus with the given dongles attached, in enumeration order.
func New(dongles ...*Dongle) *Bus {
	return &Bus{dongles: dongles}
}

// Attach plugs another dongle into the bus.
func (b *Bus) Attach(d *Dongle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dongles = append(b.dongles, d)
}

// FailLookups makes the next len(errs) Find calls return the given errors.
func (b *Bus) FailLookups(errs ...error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lookupErrs = append(b.lookupErrs, errs...)
}

// Lookups returns every Find call made so far.
func (b *Bus) Lookups() []Lookup {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Lookup(nil), b.lookups...)
}

// Find opens the first visible dongle matching vendorID and productID.
func (b *Bus) Find(ctx context.Context, vendorID, productID uint16) (transport.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, errBusClosed
	}

	if len(b.lookupErrs) > 0 {
		err := b.lookupErrs[0]
		b.lookupErrs = b.lookupErrs[1:]
		b.lookups = append(b.lookups, Lookup{VendorID: vendorID, ProductID: productID})
		return nil, err
	}

	for _, d := range b.dongles {
		if h := d.open(vendorID, productID); h != nil {
			b.lookups = append(b.lookups, Lookup{VendorID: vendorID, ProductID: productID, Found: true})
			return h, nil
		}
	}

	b.lookups = append(b.lookups, Lookup{VendorID: vendorID, ProductID: productID})
	return nil, nil
}

// Close closes the bus. Further lookups fail.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
