package image

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/marcinbor85/gohex"
)

// ErrEmpty is returned when an image contains no data.
var ErrEmpty = errors.New("firmware image is empty")

// ErasedByte fills gaps between Intel HEX segments, matching erased flash.
const ErasedByte = 0xFF

// Load reads a firmware image from the given file path.
// Files ending in .hex, .ihex or .ihx are parsed as Intel HEX; anything else
// is treated as a raw binary.
//
// Example:
//
//	img, err := image.Load("firmware.bin")
//	if err != nil {
//	    log.Fatal(err)
//	}
func Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if isIntelHex(path) {
		return LoadIntelHex(f, path)
	}
	return LoadReader(f, path)
}

// LoadReader reads a raw binary image from any io.Reader.
func LoadReader(r io.Reader, source string) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}

	img := New(data)
	img.Source = source
	return img, nil
}

// LoadIntelHex reads an Intel HEX image from any io.Reader. Data segments
// are flattened starting at the lowest segment address; gaps between
// segments are filled with ErasedByte.
func LoadIntelHex(r io.Reader, source string) (*Image, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return nil, fmt.Errorf("failed to parse Intel HEX: %w", err)
	}

	segments := mem.GetDataSegments()
	if len(segments) == 0 {
		return nil, ErrEmpty
	}

	start, end := segments[0].Address, segments[0].Address
	for _, seg := range segments {
		if seg.Address < start {
			start = seg.Address
		}
		if last := seg.Address + uint32(len(seg.Data)); last > end {
			end = last
		}
	}
	if start != 0 {
		return nil, fmt.Errorf("image must start at address 0x0000, lowest segment is at 0x%04X", start)
	}

	img := New(mem.ToBinary(start, end-start, ErasedByte))
	img.Source = source
	return img, nil
}

func isIntelHex(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hex", ".ihex", ".ihx":
		return true
	}
	return false
}
