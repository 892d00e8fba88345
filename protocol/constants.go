package protocol

import "time"

// USB identifiers of the supported dongles.
const (
	// VendorID is the Nordic Semiconductor vendor ID shared by all personalities
	VendorID = 0x1915

	// ProductApplicationA is the product ID of CrazyRadio style application firmware
	ProductApplicationA = 0x0102

	// ProductApplicationB is the product ID of RFStorm research firmware
	ProductApplicationB = 0x7777

	// ProductBootloader is the product ID of the Nordic bootloader
	ProductBootloader = 0x0101
)

// Bulk endpoint addresses used by both the bootloader and application mode A.
const (
	// EndpointOut is the host-to-device bulk endpoint (0x01)
	EndpointOut = 0x01

	// EndpointIn is the device-to-host bulk endpoint (0x81)
	EndpointIn = 0x81
)

// Flash geometry as exposed by the bootloader.
const (
	// PageSize is the size of one flash page in bytes
	PageSize = 512

	// BlockSize is the size of one transfer block in bytes
	BlockSize = 64

	// BlocksPerPage is the number of blocks making up a page
	BlocksPerPage = PageSize / BlockSize

	// ResponseSize is the fixed length of every bootloader response
	ResponseSize = 64

	// MaxPages is the number of pages addressable by the one-byte page field
	MaxPages = 256

	// MaxBlocks is the number of blocks addressable by the one-byte block field
	MaxBlocks = 256
)

// Bootloader command codes.
const (
	// CmdWritePage starts a page write; argument is the page index
	CmdWritePage = 0x02

	// CmdReadBlock requests a block for readback; argument is the global block index
	CmdReadBlock = 0x03

	// CmdVerifyPage starts a verify pass; argument is always VerifyPageArg
	CmdVerifyPage = 0x06

	// VerifyPageArg is the second byte sent with CmdVerifyPage
	VerifyPageArg = 0x00
)

// Application firmware entry command values.
const (
	// CmdJumpToBootloader asks application firmware to jump to the bootloader
	CmdJumpToBootloader = 0xFF

	// RequestTypeVendorOut is bmRequestType for a host-to-device vendor request
	RequestTypeVendorOut = 0x40
)

// Timing defaults. The transfer timeout is generous so the tool works when
// the dongle is passed through to a virtual machine.
const (
	// DefaultTimeout bounds every bulk and control transfer
	DefaultTimeout = 2500 * time.Millisecond

	// BootloaderPollTimeout is how long to wait for the bootloader to enumerate
	BootloaderPollTimeout = time.Second

	// BootloaderPollInterval is the delay between bootloader lookups
	BootloaderPollInterval = 50 * time.Millisecond
)
