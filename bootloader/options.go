package bootloader

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/moffa90/go-nrfboot/protocol"
)

// Config holds the programmer configuration.
type Config struct {
	// ProgressCallback is called during programming to report progress (optional)
	ProgressCallback ProgressCallback

	// Logger is used for logging operations
	Logger logrus.FieldLogger

	// Timeout bounds every bulk transfer
	Timeout time.Duration

	// Verify enables the read-back pass after all pages are written
	Verify bool
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Logger:  discardLogger(),
		Timeout: protocol.DefaultTimeout,
		Verify:  true,
	}
}

// Option is a functional option for configuring the Programmer.
type Option func(*Config)

// WithProgressCallback sets a callback function to track programming progress.
//
// Example:
//
//	prog := bootloader.New(device,
//	    bootloader.WithProgressCallback(func(p bootloader.Progress) {
//	        fmt.Printf("%.1f%% complete\n", p.Percentage)
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger sets a logger for the programmer operations.
//
// Example:
//
//	prog := bootloader.New(device, bootloader.WithLogger(logrus.StandardLogger()))
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithTimeout sets the per-transfer timeout. Default is 2.5s.
//
// Example:
//
//	prog := bootloader.New(device, bootloader.WithTimeout(5*time.Second))
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.Timeout = timeout
		}
	}
}

// WithVerify enables or disables the read-back verification in Program.
// Default is true.
//
// Example:
//
//	prog := bootloader.New(device, bootloader.WithVerify(false))
func WithVerify(verify bool) Option {
	return func(c *Config) {
		c.Verify = verify
	}
}
