package protocol

// BuildWritePageCmd constructs the command that starts writing a flash page.
//
// Frame structure:
//
//	[0x02][PAGE]
//
// Returns an *AddressRangeError if page does not fit in one byte.
func BuildWritePageCmd(page int) ([]byte, error) {
	if page < 0 || page >= MaxPages {
		return nil, &AddressRangeError{Field: "page", Index: page, Limit: MaxPages}
	}
	return []byte{CmdWritePage, byte(page)}, nil
}

// BuildVerifyPageCmd constructs the command sent before verifying each page.
//
// Frame structure:
//
//	[0x06][0x00]
//
// The second byte is always VerifyPageArg, whatever page is being verified.
func BuildVerifyPageCmd() []byte {
	return []byte{CmdVerifyPage, VerifyPageArg}
}

// BuildReadBlockCmd constructs the command that reads back one block.
// The block index counts across the whole image, not within a page.
//
// Frame structure:
//
//	[0x03][BLOCK]
//
// Returns an *AddressRangeError if block does not fit in one byte.
func BuildReadBlockCmd(block int) ([]byte, error) {
	if block < 0 || block >= MaxBlocks {
		return nil, &AddressRangeError{Field: "block", Index: block, Limit: MaxBlocks}
	}
	return []byte{CmdReadBlock, byte(block)}, nil
}
