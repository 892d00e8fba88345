package main

import (
	"time"

	"github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"

	"github.com/moffa90/go-nrfboot/bootloader"
	"github.com/moffa90/go-nrfboot/flasher"
	"github.com/moffa90/go-nrfboot/internal/logs"
	"github.com/moffa90/go-nrfboot/protocol"
)

// options collects every command line setting.
type options struct {
	timeout      time.Duration
	pollTimeout  time.Duration
	pollInterval time.Duration
	noVerify     bool
	debug        bool
	libusbDebug  int
	logFile      string
	logFormat    string
}

func (o *options) flags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:        "timeout",
			EnvVars:     []string{"NRFFLASH_TIMEOUT"},
			Value:       protocol.DefaultTimeout,
			Destination: &o.timeout,
			Usage:       "Timeout for every USB transfer",
		},
		&cli.DurationFlag{
			Name:        "poll-timeout",
			EnvVars:     []string{"NRFFLASH_POLL_TIMEOUT"},
			Value:       protocol.BootloaderPollTimeout,
			Destination: &o.pollTimeout,
			Usage:       "How long to wait for the bootloader to appear after the reset",
		},
		&cli.DurationFlag{
			Name:        "poll-interval",
			EnvVars:     []string{"NRFFLASH_POLL_INTERVAL"},
			Value:       protocol.BootloaderPollInterval,
			Destination: &o.pollInterval,
			Usage:       "Delay between bootloader lookups",
		},
		&cli.BoolFlag{
			Name:        "no-verify",
			EnvVars:     []string{"NRFFLASH_NO_VERIFY"},
			Destination: &o.noVerify,
			Usage:       "Skip reading the firmware back after writing it",
		},
		&cli.BoolFlag{
			Name:        "debug",
			EnvVars:     []string{"NRFFLASH_DEBUG"},
			Destination: &o.debug,
			Usage:       "Enable debug logging",
		},
		&cli.IntFlag{
			Name:        "libusb-debug",
			EnvVars:     []string{"NRFFLASH_LIBUSB_DEBUG"},
			Destination: &o.libusbDebug,
			Usage:       "libusb log level (0-4)",
		},
		&cli.StringFlag{
			Name:        "log-file",
			EnvVars:     []string{"NRFFLASH_LOG_FILE"},
			Destination: &o.logFile,
			Usage:       "Write logs to a rotating file instead of stderr",
		},
		&cli.StringFlag{
			Name:        "log-format",
			EnvVars:     []string{"NRFFLASH_LOG_FORMAT"},
			Value:       logs.FormatText,
			Destination: &o.logFormat,
			Usage:       "Log format, text or json",
		},
	}
}

func (o *options) logOptions() logs.Options {
	return logs.Options{
		Debug:  o.debug,
		Format: o.logFormat,
		File:   o.logFile,
	}
}

func (o *options) flasherOptions(logger logrus.FieldLogger) []flasher.Option {
	return []flasher.Option{
		flasher.WithLogger(logger),
		flasher.WithTimeout(o.timeout),
		flasher.WithPollTimeout(o.pollTimeout),
		flasher.WithPollInterval(o.pollInterval),
		flasher.WithVerify(!o.noVerify),
		flasher.WithProgressCallback(func(p bootloader.Progress) {
			logger.WithFields(logrus.Fields{
				"phase": p.Phase,
				"page":  p.CurrentPage,
				"pages": p.TotalPages,
			}).Debugf("%.0f%%", p.Percentage)
		}),
	}
}
