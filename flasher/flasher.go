// Package flasher runs the complete reflashing flow for an nRF24LU1+
// dongle: find it, switch it into the bootloader, write the image and read
// it back.
//
//	usb := transport.NewUSB()
//	defer usb.Close()
//
//	img, _ := image.Load("firmware.bin")
//	err := flasher.New(usb, flasher.WithLogger(log)).Flash(ctx, img)
//
// Every phase owns the device handle it opens and closes it before the
// next phase starts.
package flasher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/moffa90/go-nrfboot/bootloader"
	"github.com/moffa90/go-nrfboot/dongle"
	"github.com/moffa90/go-nrfboot/image"
	"github.com/moffa90/go-nrfboot/transport"
)

// ErrNoCompatibleDevice is returned when no dongle in bootloader mode shows up.
var ErrNoCompatibleDevice = errors.New("no compatible device found")

// ReplugHint is logged after a successful flash.
const ReplugHint = "please unplug your dongle or breakout board and plug it back in"

// Config holds the flasher configuration.
type Config struct {
	Logger           logrus.FieldLogger
	Timeout          time.Duration
	PollTimeout      time.Duration
	PollInterval     time.Duration
	Verify           bool
	ProgressCallback bootloader.ProgressCallback
}

func defaultConfig() Config {
	return Config{
		Logger: discardLogger(),
		Verify: true,
	}
}

// Option is a functional option for configuring the Flasher.
type Option func(*Config)

// WithLogger sets the logger passed down to every phase.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithTimeout sets the per-transfer timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithPollTimeout sets how long to wait for the bootloader to enumerate.
func WithPollTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.PollTimeout = timeout
	}
}

// WithPollInterval sets the delay between bootloader lookups.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.PollInterval = interval
	}
}

// WithVerify enables or disables the read-back pass. Default is true.
func WithVerify(verify bool) Option {
	return func(c *Config) {
		c.Verify = verify
	}
}

// WithProgressCallback sets a callback for page level progress.
func WithProgressCallback(callback bootloader.ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// Flasher reflashes dongles found on a transport.
type Flasher struct {
	transport transport.Transport
	config    Config
}

// New creates a Flasher using t to find devices.
func New(t transport.Transport, opts ...Option) *Flasher {
	if t == nil {
		panic("transport cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Flasher{
		transport: t,
		config:    cfg,
	}
}

// Flash writes img to the first compatible dongle.
//
// A dongle running application firmware is switched into the bootloader
// first. A dongle already in bootloader mode is programmed directly. Failing
// to find or switch an application-mode dongle is logged and not fatal; only
// the absence of the bootloader afterwards is.
func (f *Flasher) Flash(ctx context.Context, img *image.Image) error {
	if err := bootloader.Validate(img, f.config.Verify); err != nil {
		return err
	}

	log := f.config.Logger.WithField("image", img.Source)
	dongleOpts := f.dongleOptions()

	log.Info("looking for a dongle in application mode")
	app, personality, err := dongle.FindApplication(ctx, f.transport, dongleOpts...)
	switch {
	case err == nil:
		log.WithField("personality", personality).Info("asking dongle to enter the bootloader")
		if err := dongle.EnterBootloader(ctx, app, personality, dongleOpts...); err != nil {
			log.WithError(err).Warn("bootloader entry command failed, looking for the bootloader anyway")
		}
	case errors.Is(err, dongle.ErrDeviceNotFound):
		log.Info("no dongle in application mode, looking for the bootloader")
	default:
		return err
	}

	dev, err := dongle.WaitForBootloader(ctx, f.transport, dongleOpts...)
	if err != nil {
		if errors.Is(err, dongle.ErrDeviceNotFound) {
			return fmt.Errorf("%w: %w", ErrNoCompatibleDevice, err)
		}
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			log.WithError(err).Debug("close bootloader handle")
		}
	}()

	if err := bootloader.New(dev, f.programmerOptions()...).Program(ctx, img); err != nil {
		return err
	}

	log.Info(ReplugHint)
	return nil
}

func (f *Flasher) dongleOptions() []dongle.Option {
	return []dongle.Option{
		dongle.WithLogger(f.config.Logger),
		dongle.WithTimeout(f.config.Timeout),
		dongle.WithPollTimeout(f.config.PollTimeout),
		dongle.WithPollInterval(f.config.PollInterval),
	}
}

func (f *Flasher) programmerOptions() []bootloader.Option {
	return []bootloader.Option{
		bootloader.WithLogger(f.config.Logger),
		bootloader.WithTimeout(f.config.Timeout),
		bootloader.WithVerify(f.config.Verify),
		bootloader.WithProgressCallback(f.config.ProgressCallback),
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
