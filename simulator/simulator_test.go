package simulator

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-nrfboot/protocol"
	"github.com/moffa90/go-nrfboot/transport"
)

const timeout = protocol.DefaultTimeout

func find(t *testing.T, bus *Bus, p protocol.Personality) transport.Device {
	t.Helper()
	dev, err := bus.Find(context.Background(), p.VendorID(), p.ProductID())
	require.NoError(t, err)
	require.NotNil(t, dev, "%s not visible", p)
	return dev
}

func enterBootloader(t *testing.T, bus *Bus, p protocol.Personality) transport.Device {
	t.Helper()
	ctx := context.Background()

	app := find(t, bus, p)
	cmd, ok := p.EntryCommand()
	require.True(t, ok)
	if cmd.Kind == protocol.EntryBulk {
		_, err := app.Write(ctx, cmd.Endpoint, cmd.Payload, timeout)
		require.NoError(t, err)
	} else {
		_, err := app.Control(ctx, cmd.RequestType, cmd.Request, cmd.Value, cmd.Index, nil, timeout)
		require.NoError(t, err)
	}
	require.NoError(t, app.Release())
	require.NoError(t, app.Reset())
	require.NoError(t, app.Close())

	dev := find(t, bus, protocol.BootloaderMode)
	require.NoError(t, dev.SetConfiguration())
	return dev
}

func exchange(t *testing.T, dev transport.Device, data []byte) []byte {
	t.Helper()
	ctx := context.Background()
	_, err := dev.Write(ctx, protocol.EndpointOut, data, timeout)
	require.NoError(t, err)
	resp, err := dev.Read(ctx, protocol.EndpointIn, protocol.ResponseSize, timeout)
	require.NoError(t, err)
	return resp
}

func TestEntryCommands(t *testing.T) {
	for _, p := range protocol.ApplicationModes() {
		t.Run(p.String(), func(t *testing.T) {
			d := NewDongle(WithPersonality(p))
			bus := New(d)

			dev, err := bus.Find(context.Background(), protocol.VendorID, protocol.ProductBootloader)
			require.NoError(t, err)
			assert.Nil(t, dev, "bootloader must not be visible before the jump")

			enterBootloader(t, bus, p)
			assert.Equal(t, protocol.BootloaderMode, d.Personality())
		})
	}
}

func TestResetWithoutJumpKeepsPersonality(t *testing.T) {
	d := NewDongle(WithPersonality(protocol.ApplicationModeB))
	bus := New(d)

	dev := find(t, bus, protocol.ApplicationModeB)
	require.NoError(t, dev.Reset())
	assert.Equal(t, protocol.ApplicationModeB, d.Personality())
}

func TestWrongEntryVariantStalls(t *testing.T) {
	d := NewDongle(WithPersonality(protocol.ApplicationModeA))
	bus := New(d)

	dev := find(t, bus, protocol.ApplicationModeA)
	_, err := dev.Control(context.Background(), protocol.RequestTypeVendorOut, protocol.CmdJumpToBootloader, 0, 0, nil, timeout)
	require.Error(t, err)
	assert.True(t, transport.IsTransferError(err))
	assert.ErrorIs(t, err, errStall)
}

func TestJumpError(t *testing.T) {
	refused := errors.New("refused")
	d := NewDongle(WithPersonality(protocol.ApplicationModeA), WithJumpError(refused))
	bus := New(d)

	dev := find(t, bus, protocol.ApplicationModeA)
	_, err := dev.Write(context.Background(), protocol.EndpointOut, []byte{protocol.CmdJumpToBootloader}, timeout)
	assert.ErrorIs(t, err, refused)

	require.NoError(t, dev.Reset())
	assert.Equal(t, protocol.ApplicationModeA, d.Personality())
}

func TestResetErrorStillReenumerates(t *testing.T) {
	resetErr := errors.New("LIBUSB_ERROR_NOT_FOUND")
	d := NewDongle(WithResetError(resetErr))
	bus := New(d)

	dev := find(t, bus, protocol.ApplicationModeA)
	_, err := dev.Write(context.Background(), protocol.EndpointOut, []byte{protocol.CmdJumpToBootloader}, timeout)
	require.NoError(t, err)
	assert.ErrorIs(t, dev.Reset(), resetErr)
	assert.Equal(t, protocol.BootloaderMode, d.Personality())
}

func TestReenumerationDelay(t *testing.T) {
	d := NewDongle(WithReenumerationDelay(100 * time.Millisecond))
	bus := New(d)

	app := find(t, bus, protocol.ApplicationModeA)
	_, err := app.Write(context.Background(), protocol.EndpointOut, []byte{protocol.CmdJumpToBootloader}, timeout)
	require.NoError(t, err)
	require.NoError(t, app.Reset())

	dev, err := bus.Find(context.Background(), protocol.VendorID, protocol.ProductBootloader)
	require.NoError(t, err)
	assert.Nil(t, dev)

	time.Sleep(150 * time.Millisecond)
	find(t, bus, protocol.BootloaderMode)
}

func TestStaleHandle(t *testing.T) {
	bus := New(NewDongle())

	app := find(t, bus, protocol.ApplicationModeA)
	require.NoError(t, app.Reset())

	_, err := app.Write(context.Background(), protocol.EndpointOut, []byte{0x00}, timeout)
	assert.ErrorIs(t, err, transport.ErrNoDevice)
}

func TestWriteAndReadBack(t *testing.T) {
	d := NewDongle()
	bus := New(d)
	dev := enterBootloader(t, bus, protocol.ApplicationModeA)

	page := bytes.Repeat([]byte{0x5A}, protocol.PageSize)
	copy(page, []byte("firmware"))

	ack := exchange(t, dev, []byte{protocol.CmdWritePage, 1})
	assert.Len(t, ack, protocol.ResponseSize)
	for b := 0; b < protocol.BlocksPerPage; b++ {
		exchange(t, dev, page[b*protocol.BlockSize:(b+1)*protocol.BlockSize])
	}

	flash := d.Flash()
	assert.Equal(t, page, flash[protocol.PageSize:2*protocol.PageSize])
	assert.Equal(t, bytes.Repeat([]byte{0xFF}, protocol.PageSize), flash[:protocol.PageSize], "page 0 must stay erased")

	exchange(t, dev, []byte{protocol.CmdVerifyPage, protocol.VerifyPageArg})
	got := exchange(t, dev, []byte{protocol.CmdReadBlock, protocol.BlocksPerPage})
	assert.Equal(t, page[:protocol.BlockSize], got)

	assert.Equal(t, []int{1}, d.CommandArgs(protocol.CmdWritePage))
	assert.Equal(t, []int{0}, d.VerifyArgs())
	assert.Equal(t, []int{protocol.BlocksPerPage}, d.CommandArgs(protocol.CmdReadBlock))
	assert.Equal(t, protocol.BlocksPerPage, d.BlockWrites())
}

func TestCorruptByte(t *testing.T) {
	d := NewDongle(WithCorruptByte(70))
	bus := New(d)
	dev := enterBootloader(t, bus, protocol.ApplicationModeA)

	block := bytes.Repeat([]byte{0x11}, protocol.BlockSize)
	exchange(t, dev, []byte{protocol.CmdWritePage, 0})
	for b := 0; b < protocol.BlocksPerPage; b++ {
		exchange(t, dev, block)
	}

	flash := d.Flash()
	assert.Equal(t, byte(0xEE), flash[70])
	assert.Equal(t, byte(0x11), flash[69])
	assert.Equal(t, byte(0x11), flash[71])
}

func TestHalfDuplex(t *testing.T) {
	bus := New(NewDongle())
	dev := enterBootloader(t, bus, protocol.ApplicationModeA)
	ctx := context.Background()

	_, err := dev.Write(ctx, protocol.EndpointOut, []byte{protocol.CmdWritePage, 0}, timeout)
	require.NoError(t, err)

	_, err = dev.Write(ctx, protocol.EndpointOut, make([]byte, protocol.BlockSize), timeout)
	assert.ErrorIs(t, err, errStall)
}

func TestReadWithoutCommandTimesOut(t *testing.T) {
	bus := New(NewDongle())
	dev := enterBootloader(t, bus, protocol.ApplicationModeA)

	_, err := dev.Read(context.Background(), protocol.EndpointIn, protocol.ResponseSize, timeout)
	assert.True(t, transport.IsTimeout(err))
}

func TestFaultInjection(t *testing.T) {
	writeErr := errors.New("pipe error")

	tests := []struct {
		name  string
		opts  []Option
		check func(t *testing.T, dev transport.Device)
	}{
		{
			name: "write fault",
			opts: []Option{WithWriteFault(2, writeErr)},
			check: func(t *testing.T, dev transport.Device) {
				exchange(t, dev, []byte{protocol.CmdWritePage, 0})
				_, err := dev.Write(context.Background(), protocol.EndpointOut, make([]byte, protocol.BlockSize), timeout)
				assert.ErrorIs(t, err, writeErr)
			},
		},
		{
			name: "read timeout",
			opts: []Option{WithReadTimeout(1)},
			check: func(t *testing.T, dev transport.Device) {
				_, err := dev.Write(context.Background(), protocol.EndpointOut, []byte{protocol.CmdWritePage, 0}, timeout)
				require.NoError(t, err)
				_, err = dev.Read(context.Background(), protocol.EndpointIn, protocol.ResponseSize, timeout)
				assert.True(t, transport.IsTimeout(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := New(NewDongle(tt.opts...))
			tt.check(t, enterBootloader(t, bus, protocol.ApplicationModeA))
		})
	}
}

func TestConfigurationErrors(t *testing.T) {
	bus := New(NewDongle(WithPersonality(protocol.BootloaderMode), WithConfigurationErrors(1)))

	dev := find(t, bus, protocol.BootloaderMode)
	assert.Error(t, dev.SetConfiguration())
	assert.NoError(t, dev.SetConfiguration())
}

func TestBusLookups(t *testing.T) {
	lookupErr := errors.New("LIBUSB_ERROR_ACCESS")
	bus := New(NewDongle(WithPersonality(protocol.ApplicationModeB)))
	bus.FailLookups(lookupErr)
	ctx := context.Background()

	_, err := bus.Find(ctx, protocol.VendorID, protocol.ProductApplicationB)
	assert.ErrorIs(t, err, lookupErr)

	dev, err := bus.Find(ctx, protocol.VendorID, protocol.ProductApplicationA)
	require.NoError(t, err)
	assert.Nil(t, dev)

	dev, err = bus.Find(ctx, protocol.VendorID, protocol.ProductApplicationB)
	require.NoError(t, err)
	assert.NotNil(t, dev)

	assert.Equal(t, []Lookup{
		{VendorID: protocol.VendorID, ProductID: protocol.ProductApplicationB},
		{VendorID: protocol.VendorID, ProductID: protocol.ProductApplicationA},
		{VendorID: protocol.VendorID, ProductID: protocol.ProductApplicationB, Found: true},
	}, bus.Lookups())

	require.NoError(t, bus.Close())
	_, err = bus.Find(ctx, protocol.VendorID, protocol.ProductApplicationB)
	assert.ErrorIs(t, err, errBusClosed)
}

func TestInitialFlash(t *testing.T) {
	d := NewDongle(WithFlashSize(1024), WithFlash([]byte{1, 2, 3}))
	flash := d.Flash()

	require.Len(t, flash, 1024)
	assert.Equal(t, []byte{1, 2, 3, 0xFF}, flash[:4])
}
