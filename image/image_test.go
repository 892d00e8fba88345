package image

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-nrfboot/protocol"
)

func TestPaddedLen(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, 0},
		{1, 512},
		{511, 512},
		{512, 512},
		{513, 1024},
		{1000, 1024},
		{16384, 16384},
	}

	for _, tt := range tests {
		got := PaddedLen(tt.in)
		assert.Equal(t, tt.want, got, "PaddedLen(%d)", tt.in)
		assert.Zero(t, got%protocol.PageSize)
	}
}

func TestNewPadsWithZeros(t *testing.T) {
	for _, size := range []int{1, 64, 500, 512, 1000, 1537} {
		data := bytes.Repeat([]byte{0xA5}, size)
		img := New(data)

		require.Zero(t, len(img.Data)%protocol.PageSize, "size %d", size)
		assert.Equal(t, size, img.Size)
		assert.Equal(t, data, img.Data[:size], "original bytes must be preserved")
		for i, b := range img.Data[size:] {
			if b != 0 {
				t.Fatalf("size %d: padding byte %d = 0x%02X, want 0x00", size, i, b)
			}
		}
		assert.Equal(t, len(img.Data)-size, img.Padding())
	}
}

func TestNewCopiesInput(t *testing.T) {
	data := []byte{1, 2, 3}
	img := New(data)
	data[0] = 0xFF
	assert.Equal(t, byte(1), img.Data[0])
}

func TestPagesAndBlocks(t *testing.T) {
	data := make([]byte, 1000)
	for i := range data {
		data[i] = byte(i)
	}
	img := New(data)

	assert.Equal(t, 1024, len(img.Data))
	assert.Equal(t, 2, img.PageCount())
	assert.Equal(t, 16, img.BlockCount())

	assert.Equal(t, data[:512], img.Page(0))
	assert.Equal(t, img.Data[512:1024], img.Page(1))

	for k := 0; k < img.BlockCount(); k++ {
		block := img.Block(k)
		require.Len(t, block, protocol.BlockSize)
		assert.Equal(t, img.Data[k*64:k*64+64], block)
	}

	// blocks are capped so appending cannot clobber the next block
	b := append(img.Block(0), 0xEE)
	assert.Len(t, b, 65)
	assert.Equal(t, byte(64), img.Data[64])
}

func TestLoadReader(t *testing.T) {
	img, err := LoadReader(strings.NewReader("hello"), "mem")
	require.NoError(t, err)
	assert.Equal(t, 5, img.Size)
	assert.Equal(t, "mem", img.Source)
	assert.Equal(t, 1, img.PageCount())

	_, err = LoadReader(strings.NewReader(""), "empty")
	assert.ErrorIs(t, err, ErrEmpty)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestLoadReaderError(t *testing.T) {
	_, err := LoadReader(failingReader{}, "broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestLoadBinaryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fw.bin")
	data := bytes.Repeat([]byte{0x5A}, 700)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	img, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, img.Source)
	assert.Equal(t, 700, img.Size)
	assert.Equal(t, 2, img.PageCount())
	assert.Equal(t, data, img.Data[:700])
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.bin"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

const hexTwoSegments = ":0400000001020304F2\n" +
	":02000800AABB91\n" +
	":00000001FF\n"

func TestLoadIntelHex(t *testing.T) {
	img, err := LoadIntelHex(strings.NewReader(hexTwoSegments), "fw.hex")
	require.NoError(t, err)

	assert.Equal(t, 10, img.Size)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04, 0xFF, 0xFF, 0xFF, 0xFF, 0xAA, 0xBB}, img.Data[:10])
	assert.Equal(t, 512, len(img.Data))
	assert.Equal(t, byte(0x00), img.Data[10])
}

func TestLoadIntelHexFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fw.HEX")
	require.NoError(t, os.WriteFile(path, []byte(hexTwoSegments), 0o600))

	img, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, img.Size)
}

func TestLoadIntelHexErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "not hex",
			input: "this is not intel hex\n",
			want:  "failed to parse Intel HEX",
		},
		{
			name:  "no data",
			input: ":00000001FF\n",
			want:  ErrEmpty.Error(),
		},
		{
			name:  "does not start at zero",
			input: ":01001000559A\n:00000001FF\n",
			want:  "must start at address 0x0000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadIntelHex(strings.NewReader(tt.input), "fw.hex")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
