// Package swap implements the scratch-based image swap algorithm of a
// secondary-stage bootloader.
//
// # Overview
//
// The engine exchanges the contents of two flash slots — the primary
// slot, executed at boot, and the secondary slot holding a candidate
// image — through a small scratch area. The exchange is power-fail
// safe: progress is recorded in a durable trailer after every phase, so
// an interrupted swap resumes exactly where it stopped and converges to
// the same result as an uninterrupted run.
//
// # Basic Usage
//
//	eng, err := swap.New(primary, secondary, scratch)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if !eng.SlotsCompatible() {
//	    log.Fatal("slot geometry does not allow an upgrade")
//	}
//
//	bs, err := eng.ResumeStatus() // fresh status if no swap is pending
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := eng.Run(bs, copySize); err != nil {
//	    log.Fatal(err) // reset; the next boot resumes the swap
//	}
//
// # Resume
//
// On boot, ResumeStatus classifies the trailers of the primary slot and
// the scratch area and, when a swap was interrupted, reconstructs the
// granule index and phase from the progress table. Passing that status
// to Run skips completed granules and re-enters the recorded phase.
// Each phase is idempotent across restarts: the erase-then-copy
// sequence, repeated after an interruption, produces the same bytes.
//
// # Errors
//
// Errors returned by the engine are not recoverable mid-swap. The
// caller is expected to reset; the resume protocol then re-runs the
// interrupted phase. Geometry problems are reported up front by
// SlotsCompatible before anything is written.
package swap
