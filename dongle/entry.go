package dongle

import (
	"context"
	"errors"
	"fmt"

	"github.com/moffa90/go-nrfboot/protocol"
	"github.com/moffa90/go-nrfboot/transport"
)

// ErrNoEntryCommand is returned by EnterBootloader for personalities that
// have no jump-to-bootloader command.
var ErrNoEntryCommand = errors.New("personality has no bootloader entry command")

// EnterBootloader asks the application firmware behind dev to jump to the
// bootloader, then releases and resets the device so it re-enumerates.
//
// dev is always closed on return, except when ErrNoEntryCommand is
// returned. A failed jump command is returned after the reset so the
// caller can decide whether to keep going. Reset errors are expected (the
// device often disappears mid-reset) and only logged.
func EnterBootloader(ctx context.Context, dev transport.Device, personality protocol.Personality, opts ...Option) error {
	cmd, ok := personality.EntryCommand()
	if !ok {
		return fmt.Errorf("%s: %w", personality, ErrNoEntryCommand)
	}

	cfg := newConfig(opts)
	log := cfg.Logger.WithField("personality", personality).WithField("method", cmd.Kind)

	var jumpErr error
	switch cmd.Kind {
	case protocol.EntryBulk:
		_, jumpErr = dev.Write(ctx, cmd.Endpoint, cmd.Payload, cfg.Timeout)
	case protocol.EntryControl:
		_, jumpErr = dev.Control(ctx, cmd.RequestType, cmd.Request, cmd.Value, cmd.Index, nil, cfg.Timeout)
	}
	if jumpErr != nil {
		log.WithError(jumpErr).Warn("jump to bootloader command failed")
	} else {
		log.Info("sent jump to bootloader command")
	}

	if err := dev.Release(); err != nil {
		log.WithError(err).Debug("release failed")
	}
	if err := dev.Reset(); err != nil {
		log.WithError(err).Debug("reset failed, device is probably re-enumerating")
	}
	if err := dev.Close(); err != nil {
		log.WithError(err).Debug("close failed")
	}

	if jumpErr != nil {
		return fmt.Errorf("jump to bootloader: %w", jumpErr)
	}
	return nil
}
