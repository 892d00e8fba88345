package bootloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/moffa90/go-nrfboot/image"
	"github.com/moffa90/go-nrfboot/protocol"
	"github.com/moffa90/go-nrfboot/transport"
)

// Programmer writes and verifies firmware images through the nRF24LU1+
// bootloader. The device handle must already have its configuration set.
//
// Programmer is not safe for concurrent use; the bootloader is half-duplex.
type Programmer struct {
	device transport.Device
	config Config
}

// New creates a new Programmer for a device in bootloader mode.
//
// Example:
//
//	dev, _ := dongle.WaitForBootloader(ctx, usb)
//	prog := bootloader.New(dev,
//	    bootloader.WithProgressCallback(progressFunc),
//	    bootloader.WithTimeout(5*time.Second),
//	)
func New(device transport.Device, opts ...Option) *Programmer {
	if device == nil {
		panic("device cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Programmer{
		device: device,
		config: cfg,
	}
}

// Validate checks that every page, and every block when verify is set, of
// img can be addressed by the one-byte bootloader command fields.
func Validate(img *image.Image, verify bool) error {
	if img == nil {
		return errors.New("image cannot be nil")
	}
	if n := img.PageCount(); n > 0 {
		if _, err := protocol.BuildWritePageCmd(n - 1); err != nil {
			return err
		}
	}
	if n := img.BlockCount(); verify && n > 0 {
		if _, err := protocol.BuildReadBlockCmd(n - 1); err != nil {
			return err
		}
	}
	return nil
}

// Program performs the complete programming sequence:
//  1. Validate page and block addressing
//  2. Write all pages
//  3. Read back and compare every block (unless disabled with WithVerify)
//
// Nothing is sent to the device when validation fails.
// The operation can be cancelled via context between pages.
func (p *Programmer) Program(ctx context.Context, img *image.Image) error {
	if err := Validate(img, p.config.Verify); err != nil {
		return err
	}

	startTime := time.Now()
	total := img.PageCount()
	log := p.config.Logger.WithFields(logrus.Fields{
		"pages": total,
		"bytes": img.Size,
	})

	log.Info("writing firmware")
	if err := p.writePages(ctx, img, startTime); err != nil {
		return err
	}

	if p.config.Verify {
		log.Info("verifying firmware")
		if err := p.verifyPages(ctx, img, startTime); err != nil {
			return err
		}
	} else {
		log.Warn("verification skipped")
	}

	p.reportProgress(Progress{
		Phase:        PhaseComplete,
		CurrentPage:  total,
		TotalPages:   total,
		Percentage:   100,
		BytesWritten: len(img.Data),
		ElapsedTime:  time.Since(startTime),
	})

	log.WithField("elapsed", time.Since(startTime).String()).Info("programming complete")
	return nil
}

// WritePages writes every page of img, in ascending order.
//
// Each page is started with the write page command and followed by its
// eight blocks; every transfer is acknowledged by a 64-byte response
// before the next one is sent.
func (p *Programmer) WritePages(ctx context.Context, img *image.Image) error {
	if err := Validate(img, false); err != nil {
		return err
	}
	return p.writePages(ctx, img, time.Now())
}

// VerifyPages reads every block of img back from flash and compares it,
// stopping at the first mismatch with a *VerificationError.
func (p *Programmer) VerifyPages(ctx context.Context, img *image.Image) error {
	if err := Validate(img, true); err != nil {
		return err
	}
	return p.verifyPages(ctx, img, time.Now())
}

func (p *Programmer) writePages(ctx context.Context, img *image.Image, startTime time.Time) error {
	total := img.PageCount()
	bytesWritten := 0

	for page := 0; page < total; page++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled: %w", err)
		}

		cmd, err := protocol.BuildWritePageCmd(page)
		if err != nil {
			return err
		}
		if err := p.exchange(ctx, cmd); err != nil {
			return fmt.Errorf("write page %d: %w", page, err)
		}

		data := img.Page(page)
		for block := 0; block < protocol.BlocksPerPage; block++ {
			off := block * protocol.BlockSize
			if err := p.exchange(ctx, data[off:off+protocol.BlockSize]); err != nil {
				return fmt.Errorf("write page %d, block %d: %w", page, block, err)
			}
		}

		bytesWritten += protocol.PageSize
		p.config.Logger.WithField("page", page).Debug("page written")
		p.reportProgress(Progress{
			Phase:        PhaseWriting,
			CurrentPage:  page + 1,
			TotalPages:   total,
			Percentage:   p.percentage(PhaseWriting, page+1, total),
			BytesWritten: bytesWritten,
			ElapsedTime:  time.Since(startTime),
		})
	}

	return nil
}

func (p *Programmer) verifyPages(ctx context.Context, img *image.Image, startTime time.Time) error {
	total := img.PageCount()
	global := 0

	for page := 0; page < total; page++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled: %w", err)
		}

		// the bootloader ignores the argument, every page gets the same header
		if err := p.exchange(ctx, protocol.BuildVerifyPageCmd()); err != nil {
			return fmt.Errorf("verify page %d: %w", page, err)
		}

		for block := 0; block < protocol.BlocksPerPage; block++ {
			actual, err := p.readBlock(ctx, global)
			if err != nil {
				return fmt.Errorf("verify page %d, block %d: %w", page, block, err)
			}

			expected := img.Block(global)
			if i := firstDifference(expected, actual); i >= 0 {
				p.config.Logger.WithFields(logrus.Fields{
					"page":  page,
					"block": block,
				}).Error("verification mismatch")
				return &VerificationError{
					Page:     page,
					Block:    block,
					Offset:   i,
					Expected: expected[i],
					Actual:   actual[i],
				}
			}
			global++
		}

		p.config.Logger.WithField("page", page).Debug("page verified")
		p.reportProgress(Progress{
			Phase:       PhaseVerifying,
			CurrentPage: page + 1,
			TotalPages:  total,
			Percentage:  p.percentage(PhaseVerifying, page+1, total),
			ElapsedTime: time.Since(startTime),
		})
	}

	return nil
}

// exchange writes data and reads the 64-byte acknowledgement.
func (p *Programmer) exchange(ctx context.Context, data []byte) error {
	if _, err := p.device.Write(ctx, protocol.EndpointOut, data, p.config.Timeout); err != nil {
		return err
	}
	_, err := p.read(ctx)
	return err
}

func (p *Programmer) readBlock(ctx context.Context, block int) ([]byte, error) {
	cmd, err := protocol.BuildReadBlockCmd(block)
	if err != nil {
		return nil, err
	}
	if _, err := p.device.Write(ctx, protocol.EndpointOut, cmd, p.config.Timeout); err != nil {
		return nil, err
	}
	return p.read(ctx)
}

func (p *Programmer) read(ctx context.Context) ([]byte, error) {
	resp, err := p.device.Read(ctx, protocol.EndpointIn, protocol.ResponseSize, p.config.Timeout)
	if err != nil {
		return nil, err
	}
	if len(resp) != protocol.ResponseSize {
		return nil, &transport.TransferError{
			Op:       "read",
			Endpoint: protocol.EndpointIn,
			Err: fmt.Errorf("%w: got %d of %d bytes",
				transport.ErrShortTransfer, len(resp), protocol.ResponseSize),
		}
	}
	return resp, nil
}

// percentage splits the bar evenly between writing and verifying.
func (p *Programmer) percentage(phase string, done, total int) float64 {
	frac := float64(done) / float64(total) * 100
	if !p.config.Verify {
		return frac
	}
	if phase == PhaseVerifying {
		return 50 + frac/2
	}
	return frac / 2
}

// reportProgress calls the progress callback if configured.
func (p *Programmer) reportProgress(progress Progress) {
	if p.config.ProgressCallback != nil {
		p.config.ProgressCallback(progress)
	}
}

func firstDifference(expected, actual []byte) int {
	for i := range expected {
		if i >= len(actual) || expected[i] != actual[i] {
			return i
		}
	}
	return -1
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
