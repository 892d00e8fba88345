// Package image loads firmware images for the nRF24LU1+ bootloader.
//
// # Image Format
//
// The bootloader has no image header, checksum or metadata. An image is the
// raw flash content starting at address 0, zero-padded at the tail to a
// whole number of 512-byte pages:
//
//	len 1000 -> padded to 1024 -> 2 pages, 16 blocks
//
// Two input formats are accepted:
//   - raw binary (.bin or any unrecognized extension)
//   - Intel HEX (.hex, .ihex, .ihx), flattened from the lowest data address
//
// # Usage
//
// Load an image from disk:
//
//	img, err := image.Load("rfstorm.bin")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("%d bytes, %d pages\n", img.Size, img.PageCount())
//
// Slice it the way the bootloader addresses it:
//
//	for i := 0; i < img.BlockCount(); i++ {
//	    block := img.Block(i) // 64 bytes
//	}
package image
