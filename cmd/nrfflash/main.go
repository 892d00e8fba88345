// Command nrfflash writes a firmware image to an nRF24LU1+ USB radio dongle.
//
//	nrfflash [flags] <firmware.bin|firmware.hex>
//
// The dongle may be running CrazyRadio or RFStorm research firmware, or
// already sit in the Nordic bootloader.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"

	"github.com/moffa90/go-nrfboot/flasher"
	"github.com/moffa90/go-nrfboot/image"
	"github.com/moffa90/go-nrfboot/internal/logs"
	"github.com/moffa90/go-nrfboot/transport"
)

const (
	VERSION = "v0.1.0"
	appName = "nrfflash"
)

// transportFactory opens the USB transport once logging is set up.
type transportFactory func(o *options, logger logrus.FieldLogger) transport.Transport

func usbTransport(o *options, logger logrus.FieldLogger) transport.Transport {
	return transport.NewUSB(
		transport.WithUSBLogger(logger),
		transport.WithLibusbDebug(o.libusbDebug),
	)
}

func main() {
	if err := newApp(usbTransport).Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func newApp(newTransport transportFactory) *cli.App {
	var o options

	app := cli.NewApp()
	app.Name = appName
	app.Version = VERSION
	app.Usage = "Flash firmware to an nRF24LU1+ USB radio dongle"
	app.ArgsUsage = "<firmware.bin|firmware.hex>"
	app.Flags = o.flags()

	app.Action = func(c *cli.Context) error {
		if c.NArg() == 0 {
			return cli.ShowAppHelp(c)
		}
		if c.NArg() > 1 {
			return fmt.Errorf("expected one firmware file, got %d arguments", c.NArg())
		}
		return run(c.Context, &o, c.Args().First(), newTransport)
	}

	return app
}

func run(parent context.Context, o *options, path string, newTransport transportFactory) error {
	logger, closer, err := logs.New(o.logOptions())
	if err != nil {
		return err
	}
	defer closer.Close()

	img, err := image.Load(path)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"file":  img.Source,
		"bytes": img.Size,
		"pages": img.PageCount(),
	}).Info("loaded firmware image")

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	t := newTransport(o, logger)
	defer t.Close()

	if err := flasher.New(t, o.flasherOptions(logger)...).Flash(ctx, img); err != nil {
		return fmt.Errorf("flash %s: %w", img.Source, err)
	}
	return nil
}
