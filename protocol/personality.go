package protocol

import "fmt"

// Personality is the USB identity a dongle currently enumerates with.
type Personality int

const (
	// PersonalityUnknown is any device that is not a supported dongle
	PersonalityUnknown Personality = iota

	// ApplicationModeA is CrazyRadio style firmware (1915:0102)
	ApplicationModeA

	// ApplicationModeB is RFStorm research firmware (1915:7777)
	ApplicationModeB

	// BootloaderMode is the Nordic bootloader (1915:0101)
	BootloaderMode
)

// ApplicationModes returns the application personalities in the order they
// are searched for.
func ApplicationModes() []Personality {
	return []Personality{ApplicationModeA, ApplicationModeB}
}

// PersonalityFor maps a vendor/product pair to a personality.
func PersonalityFor(vendorID, productID uint16) Personality {
	if vendorID != VendorID {
		return PersonalityUnknown
	}
	switch productID {
	case ProductApplicationA:
		return ApplicationModeA
	case ProductApplicationB:
		return ApplicationModeB
	case ProductBootloader:
		return BootloaderMode
	}
	return PersonalityUnknown
}

// VendorID returns the USB vendor ID of the personality.
func (p Personality) VendorID() uint16 {
	return VendorID
}

// ProductID returns the USB product ID of the personality, or 0 if unknown.
func (p Personality) ProductID() uint16 {
	switch p {
	case ApplicationModeA:
		return ProductApplicationA
	case ApplicationModeB:
		return ProductApplicationB
	case BootloaderMode:
		return ProductBootloader
	}
	return 0
}

// IsApplication reports whether p is one of the application firmwares.
func (p Personality) IsApplication() bool {
	return p == ApplicationModeA || p == ApplicationModeB
}

func (p Personality) String() string {
	switch p {
	case ApplicationModeA:
		return "application-a"
	case ApplicationModeB:
		return "application-b"
	case BootloaderMode:
		return "bootloader"
	}
	return fmt.Sprintf("unknown(%d)", int(p))
}

// EntryKind selects the USB transfer type used by an EntryCommand.
type EntryKind int

const (
	// EntryBulk sends Payload on a bulk OUT endpoint
	EntryBulk EntryKind = iota + 1

	// EntryControl issues a control transfer without a data stage
	EntryControl
)

func (k EntryKind) String() string {
	switch k {
	case EntryBulk:
		return "bulk"
	case EntryControl:
		return "control"
	}
	return fmt.Sprintf("EntryKind(%d)", int(k))
}

// EntryCommand describes how to ask an application firmware to jump to the
// bootloader.
type EntryCommand struct {
	Kind EntryKind

	// Endpoint and Payload are used by EntryBulk
	Endpoint uint8
	Payload  []byte

	// RequestType, Request, Value and Index are used by EntryControl
	RequestType uint8
	Request     uint8
	Value       uint16
	Index       uint16
}

// EntryCommand returns the jump-to-bootloader command for p. The second
// result is false for personalities that have no entry command.
func (p Personality) EntryCommand() (EntryCommand, bool) {
	switch p {
	case ApplicationModeA:
		return EntryCommand{
			Kind:     EntryBulk,
			Endpoint: EndpointOut,
			Payload:  []byte{CmdJumpToBootloader},
		}, true
	case ApplicationModeB:
		return EntryCommand{
			Kind:        EntryControl,
			RequestType: RequestTypeVendorOut,
			Request:     CmdJumpToBootloader,
		}, true
	}
	return EntryCommand{}, false
}
