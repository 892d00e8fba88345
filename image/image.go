package image

import (
	"github.com/moffa90/go-nrfboot/protocol"
)

// Image is a firmware image padded to the bootloader page size.
// The padded data must not be modified after construction.
type Image struct {
	// Data is the padded image, len(Data) is a multiple of protocol.PageSize
	Data []byte

	// Size is the length of the image before padding
	Size int

	// Source describes where the image came from (usually a file path)
	Source string
}

// PaddedLen returns n rounded up to the next multiple of protocol.PageSize.
func PaddedLen(n int) int {
	return n + (protocol.PageSize-n%protocol.PageSize)%protocol.PageSize
}

// New creates an image from raw bytes, copying and zero-padding them.
func New(data []byte) *Image {
	padded := make([]byte, PaddedLen(len(data)))
	copy(padded, data)
	return &Image{
		Data: padded,
		Size: len(data),
	}
}

// PageCount returns the number of pages in the padded image.
func (img *Image) PageCount() int {
	return len(img.Data) / protocol.PageSize
}

// BlockCount returns the number of blocks in the padded image.
func (img *Image) BlockCount() int {
	return img.PageCount() * protocol.BlocksPerPage
}

// Padding returns the number of zero bytes appended to the original data.
func (img *Image) Padding() int {
	return len(img.Data) - img.Size
}

// Page returns the i-th page. It panics if i is out of range.
func (img *Image) Page(i int) []byte {
	off := i * protocol.PageSize
	return img.Data[off : off+protocol.PageSize : off+protocol.PageSize]
}

// Block returns the block with global index i. It panics if i is out of range.
func (img *Image) Block(i int) []byte {
	off := i * protocol.BlockSize
	return img.Data[off : off+protocol.BlockSize : off+protocol.BlockSize]
}
