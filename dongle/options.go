package dongle

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/moffa90/go-nrfboot/protocol"
)

// Config holds the discovery and entry configuration.
type Config struct {
	// Logger receives lookup failures and entry sequence events
	Logger logrus.FieldLogger

	// Timeout bounds the jump-to-bootloader transfer
	Timeout time.Duration

	// PollTimeout is how long WaitForBootloader keeps looking
	PollTimeout time.Duration

	// PollInterval is the delay between bootloader lookups
	PollInterval time.Duration
}

func defaultConfig() Config {
	return Config{
		Logger:       discardLogger(),
		Timeout:      protocol.DefaultTimeout,
		PollTimeout:  protocol.BootloaderPollTimeout,
		PollInterval: protocol.BootloaderPollInterval,
	}
}

func newConfig(opts []Option) Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Option is a functional option for discovery and entry.
type Option func(*Config)

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithTimeout sets the jump command transfer timeout. Default is 2.5s.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.Timeout = timeout
		}
	}
}

// WithPollTimeout sets how long to wait for the bootloader to enumerate.
// Default is 1s.
//
// Example:
//
//	dev, err := dongle.WaitForBootloader(ctx, t, dongle.WithPollTimeout(3*time.Second))
func WithPollTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.PollTimeout = timeout
		}
	}
}

// WithPollInterval sets the delay between bootloader lookups. Default is 50ms.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Config) {
		if interval > 0 {
			c.PollInterval = interval
		}
	}
}
