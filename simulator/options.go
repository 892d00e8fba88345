package simulator

import (
	"time"

	"github.com/moffa90/go-nrfboot/protocol"
)

// DefaultFlashSize is the flash size of an nRF24LU1+ (32 KiB).
const DefaultFlashSize = 32 * 1024

type dongleConfig struct {
	personality        protocol.Personality
	reenumerationDelay time.Duration
	flash              []byte
	flashSize          int
	corruptOffsets     []int
	writeFaultAt       int
	writeFaultErr      error
	readTimeoutAt      int
	jumpErr            error
	resetErr           error
	configErrors       int
}

func defaultDongleConfig() dongleConfig {
	return dongleConfig{
		personality: protocol.ApplicationModeA,
		flashSize:   DefaultFlashSize,
	}
}

// Option configures a simulated dongle.
type Option func(*dongleConfig)

// WithPersonality sets the personality the dongle starts in.
// Default is protocol.ApplicationModeA.
func WithPersonality(p protocol.Personality) Option {
	return func(c *dongleConfig) {
		c.personality = p
	}
}

// WithReenumerationDelay sets how long the dongle stays invisible after a reset.
//
// Example:
//
//	d := simulator.NewDongle(simulator.WithReenumerationDelay(300 * time.Millisecond))
func WithReenumerationDelay(delay time.Duration) Option {
	return func(c *dongleConfig) {
		c.reenumerationDelay = delay
	}
}

// WithFlashSize sets the size of the simulated flash. Default is 32 KiB.
func WithFlashSize(size int) Option {
	return func(c *dongleConfig) {
		if size > 0 {
			c.flashSize = size
		}
	}
}

// WithFlash sets the initial flash contents. The rest of the flash is erased (0xFF).
func WithFlash(data []byte) Option {
	return func(c *dongleConfig) {
		c.flash = append([]byte(nil), data...)
	}
}

// WithCorruptByte makes the flash cell at offset store the inverse of what
// is written to it.
func WithCorruptByte(offset int) Option {
	return func(c *dongleConfig) {
		c.corruptOffsets = append(c.corruptOffsets, offset)
	}
}

// WithWriteFault makes the n-th bootloader write (1-based) fail with err.
func WithWriteFault(n int, err error) Option {
	return func(c *dongleConfig) {
		c.writeFaultAt = n
		c.writeFaultErr = err
	}
}

// WithReadTimeout makes the n-th bootloader read (1-based) time out.
func WithReadTimeout(n int) Option {
	return func(c *dongleConfig) {
		c.readTimeoutAt = n
	}
}

// WithJumpError makes the application firmware reject the jump command.
func WithJumpError(err error) Option {
	return func(c *dongleConfig) {
		c.jumpErr = err
	}
}

// WithResetError makes Reset return err. The dongle still re-enumerates.
func WithResetError(err error) Option {
	return func(c *dongleConfig) {
		c.resetErr = err
	}
}

// WithConfigurationErrors makes the first n SetConfiguration calls fail.
func WithConfigurationErrors(n int) Option {
	return func(c *dongleConfig) {
		c.configErrors = n
	}
}
