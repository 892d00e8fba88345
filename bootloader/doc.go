// Package bootloader writes and verifies firmware through the Nordic
// nRF24LU1+ USB bootloader.
//
// # Overview
//
// The bootloader exposes flash as 512-byte pages split into 64-byte blocks.
// Programming runs two passes over the image:
//   - Writing: for each page, a write page command followed by its blocks
//   - Verifying: for each page, a verify header followed by a read-back of
//     every block, compared against the image
//
// Every transfer is answered with a 64-byte response that must be read
// before the next command is sent.
//
// # Basic Usage
//
//	img, err := image.Load("firmware.bin")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	dev, err := dongle.WaitForBootloader(ctx, usb)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Close()
//
//	prog := bootloader.New(dev)
//	if err := prog.Program(ctx, img); err != nil {
//	    log.Fatal(err)
//	}
//
// # Progress Tracking
//
//	prog := bootloader.New(dev,
//	    bootloader.WithProgressCallback(func(p bootloader.Progress) {
//	        fmt.Printf("[%s] %.1f%% - Page %d/%d\n",
//	            p.Phase, p.Percentage, p.CurrentPage, p.TotalPages)
//	    }),
//	)
//
// # Configuration Options
//
//	prog := bootloader.New(dev,
//	    bootloader.WithProgressCallback(progressFunc),
//	    bootloader.WithLogger(logrus.StandardLogger()),
//	    bootloader.WithTimeout(5*time.Second),
//	    bootloader.WithVerify(false),
//	)
//
// # Addressing Limits
//
// Page and block indices are sent as a single byte. Program and Validate
// reject images that need more than 256 pages, or more than 256 blocks
// when verification is enabled, before anything is written.
//
// # Error Handling
//
// The package returns:
//   - *transport.TransferError: a write or read failed or timed out
//   - *VerificationError: read-back data differs from the image
//   - *protocol.AddressRangeError: the image does not fit the address fields
package bootloader
