// Package protocol implements the wire protocol of the Nordic nRF24LU1+ USB
// bootloader and the bootloader entry commands of the application firmwares
// that run on the same dongles.
//
// # Device Personalities
//
// A dongle enumerates under one of three USB identities depending on the
// firmware it is currently running:
//
//	ApplicationModeA  1915:0102  CrazyRadio style firmware
//	ApplicationModeB  1915:7777  RFStorm research firmware
//	BootloaderMode    1915:0101  Nordic bootloader
//
// Each application personality carries the command that asks it to jump to
// the bootloader:
//
//	cmd, ok := protocol.ApplicationModeB.EntryCommand()
//	// cmd.Kind == protocol.EntryControl, cmd.Request == 0xFF
//
// # Bootloader Protocol
//
// The bootloader speaks a half-duplex command/response protocol over bulk
// endpoints OUT 0x01 and IN 0x81. Every response is 64 bytes.
//
//	[0x02, page]     begin page write         -> 64-byte ack
//	64 raw bytes x8  page content, per block  -> 64-byte ack each
//	[0x06, 0x00]     begin verify pass        -> 64-byte ack
//	[0x03, block]    read block for readback  -> 64 bytes of flash
//
// Use the Build* functions to create command frames:
//
//	frame, err := protocol.BuildWritePageCmd(3)
//	frame, err := protocol.BuildReadBlockCmd(42)
//
// # Addressing Limits
//
// Page and block numbers travel as a single byte. BuildWritePageCmd and
// BuildReadBlockCmd return an *AddressRangeError for indices that do not fit.
package protocol
