package swap

import (
	"github.com/loepfe/mcuboot/flash"
	"github.com/loepfe/mcuboot/trailer"
)

// copyChunkSize is the buffer size used when copying between areas.
const copyChunkSize = 1024

// Engine drives the sector-by-sector exchange of the two image slots
// through the scratch area.
type Engine struct {
	cfg    Config
	layout trailer.Layout

	primary   trailer.Region
	secondary trailer.Region
	scratch   trailer.Region
}

// New creates an engine over the three flash areas. The write
// granularity is taken as the largest granularity among the areas; the
// trailer layout is derived from it and from the configured options.
//
// Example:
//
//	eng, err := swap.New(primary, secondary, scratch,
//	    swap.WithLogger(myLogger),
//	    swap.WithValidatePrimary(true))
func New(primary, secondary, scratch flash.Area, opts ...Option) (*Engine, error) {
	if primary == nil || secondary == nil || scratch == nil {
		return nil, &BadArgsError{Reason: "nil flash area"}
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}

	writeSize := primary.AlignSize()
	for _, a := range []flash.Area{secondary, scratch} {
		if a.AlignSize() > writeSize {
			writeSize = a.AlignSize()
		}
	}
	if writeSize == 0 {
		return nil, &BadArgsError{Reason: "zero write granularity"}
	}

	layout := trailer.Layout{
		WriteSize:  writeSize,
		MaxEntries: cfg.MaxSectors,
		EncKeySize: cfg.EncKeySize,
	}

	return &Engine{
		cfg:       cfg,
		layout:    layout,
		primary:   trailer.Region{Area: primary, Layout: layout},
		secondary: trailer.Region{Area: secondary, Layout: layout},
		scratch:   trailer.Region{Area: scratch, Layout: layout, Scratch: true},
	}, nil
}

// Layout returns the trailer layout the engine operates with.
func (e *Engine) Layout() trailer.Layout {
	return e.layout
}

// PrimaryRegion returns the primary slot bound to the engine's layout.
func (e *Engine) PrimaryRegion() trailer.Region {
	return e.primary
}

// SecondaryRegion returns the secondary slot bound to the engine's
// layout.
func (e *Engine) SecondaryRegion() trailer.Region {
	return e.secondary
}

// ScratchRegion returns the scratch area bound to the engine's layout.
func (e *Engine) ScratchRegion() trailer.Region {
	return e.scratch
}

func (e *Engine) slotRegion(slot int) trailer.Region {
	if slot == PrimarySlot {
		return e.primary
	}
	return e.secondary
}

func (e *Engine) slotSectors(slot int) []flash.Sector {
	return e.slotRegion(slot).Area.Sectors()
}

// statusRegion maps a status source to the region holding the
// authoritative status.
func (e *Engine) statusRegion(source Source) trailer.Region {
	if source == SourceScratch {
		return e.scratch
	}
	return e.primary
}

// copyRegion copies size bytes from src at srcOff to dst at dstOff in
// chunks.
func (e *Engine) copyRegion(src, dst flash.Area, srcOff, dstOff, size uint32) error {
	buf := make([]byte, copyChunkSize)
	for size > 0 {
		chunk := uint32(len(buf))
		if chunk > size {
			chunk = size
		}
		if err := src.Read(srcOff, buf[:chunk]); err != nil {
			return &FlashError{Op: "copy read", Err: err}
		}
		if err := dst.Write(dstOff, buf[:chunk]); err != nil {
			return &FlashError{Op: "copy write", Err: err}
		}
		srcOff += chunk
		dstOff += chunk
		size -= chunk
	}
	return nil
}

func (e *Engine) reportProgress(p Progress) {
	if e.cfg.ProgressCallback != nil {
		e.cfg.ProgressCallback(p)
	}
}
