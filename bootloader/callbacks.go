package bootloader

import "time"

// Programming phases reported through Progress.Phase.
const (
	PhaseWriting   = "writing"
	PhaseVerifying = "verifying"
	PhaseComplete  = "complete"
)

// Progress contains information about the programming progress.
// Passed to ProgressCallback during programming operations.
type Progress struct {
	// Phase describes the current operation phase:
	//   "writing"   - Writing flash pages
	//   "verifying" - Reading pages back
	//   "complete"  - Operation completed successfully
	Phase string

	// CurrentPage is the number of pages finished in this phase
	CurrentPage int

	// TotalPages is the number of pages in the image
	TotalPages int

	// Percentage is the completion percentage (0.0 to 100.0)
	Percentage float64

	// BytesWritten is the total number of bytes written so far
	BytesWritten int

	// ElapsedTime is the time elapsed since programming started
	ElapsedTime time.Duration
}

// ProgressCallback is called after every page to report progress.
// Implementations should return quickly to avoid stalling the transfer.
//
// Example:
//
//	prog := bootloader.New(device,
//	    bootloader.WithProgressCallback(func(p bootloader.Progress) {
//	        fmt.Printf("[%s] %.1f%% - Page %d/%d\n",
//	            p.Phase, p.Percentage, p.CurrentPage, p.TotalPages)
//	    }),
//	)
type ProgressCallback func(Progress)
