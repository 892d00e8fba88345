// Package dongle finds nRF24LU1+ dongles on a transport and switches them
// from application firmware into the Nordic bootloader.
//
// A typical sequence, as run by the flasher package:
//
//	app, personality, err := dongle.FindApplication(ctx, t)
//	if err == nil {
//	    if err := dongle.EnterBootloader(ctx, app, personality); err != nil {
//	        log.WithError(err).Warn("jump failed")
//	    }
//	}
//	dev, err := dongle.WaitForBootloader(ctx, t)
//
// Application firmware is looked up once per personality, in the order of
// protocol.ApplicationModes. The bootloader is polled for a short window
// because the dongle needs time to re-enumerate after the reset.
package dongle

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/moffa90/go-nrfboot/protocol"
	"github.com/moffa90/go-nrfboot/transport"
)

// ErrDeviceNotFound is returned when no matching device is attached.
var ErrDeviceNotFound = errors.New("device not found")

// FindApplication looks for a dongle running application firmware and
// returns an open handle to the first one found together with its
// personality. Lookup errors are logged and treated as absence.
func FindApplication(ctx context.Context, t transport.Transport, opts ...Option) (transport.Device, protocol.Personality, error) {
	cfg := newConfig(opts)

	for _, p := range protocol.ApplicationModes() {
		log := cfg.Logger.WithFields(logrus.Fields{
			"personality": p,
			"device":      fmt.Sprintf("%04x:%04x", p.VendorID(), p.ProductID()),
		})

		dev, err := t.Find(ctx, p.VendorID(), p.ProductID())
		if err != nil {
			if ctx.Err() != nil {
				return nil, protocol.PersonalityUnknown, ctx.Err()
			}
			log.WithError(err).Warn("device lookup failed")
			continue
		}
		if dev == nil {
			log.Debug("not present")
			continue
		}

		log.Info("found dongle in application mode")
		return dev, p, nil
	}

	return nil, protocol.PersonalityUnknown, ErrDeviceNotFound
}

// WaitForBootloader polls for the Nordic bootloader until it shows up or
// the poll window elapses, then selects its configuration.
//
// Absence, lookup errors and configuration failures inside the window are
// not fatal. When the window elapses ErrDeviceNotFound is returned; when ctx
// is cancelled its error is returned.
func WaitForBootloader(ctx context.Context, t transport.Transport, opts ...Option) (transport.Device, error) {
	cfg := newConfig(opts)
	p := protocol.BootloaderMode
	log := cfg.Logger.WithField("device", fmt.Sprintf("%04x:%04x", p.VendorID(), p.ProductID()))

	var found transport.Device
	attempts := 0
	err := wait.PollUntilContextTimeout(ctx, cfg.PollInterval, cfg.PollTimeout, true,
		func(ctx context.Context) (bool, error) {
			attempts++

			dev, err := t.Find(ctx, p.VendorID(), p.ProductID())
			if err != nil {
				log.WithError(err).Debug("bootloader lookup failed")
				return false, nil
			}
			if dev == nil {
				return false, nil
			}

			if err := dev.SetConfiguration(); err != nil {
				// still settling after re-enumeration
				log.WithError(err).Debug("set configuration failed")
				_ = dev.Close()
				return false, nil
			}

			found = dev
			return true, nil
		})

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.WithField("attempts", attempts).WithField("window", cfg.PollTimeout).Debug("bootloader did not appear")
		return nil, fmt.Errorf("bootloader %04x:%04x: %w", p.VendorID(), p.ProductID(), ErrDeviceNotFound)
	}

	log.WithField("attempts", attempts).Info("found dongle in bootloader mode")
	return found, nil
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
