// Package memflash provides an in-memory simulated NOR flash device.
//
// The simulator models the properties the swap engine depends on:
// sector-granular erases, write-once cells, a device-specific erased
// value, and an ordered operation log. It can inject a failure after a
// configurable number of operations, which the tests use to simulate a
// power failure at an arbitrary point of a swap.
package memflash

import (
	"errors"
	"fmt"

	"github.com/loepfe/mcuboot/flash"
)

// ErrInjected is returned once the device's failure budget is exhausted.
// It stands in for the reset that interrupts a real swap.
var ErrInjected = errors.New("memflash: injected failure")

// Op records a single device operation for test inspection.
type Op struct {
	// Kind is "read", "write" or "erase"
	Kind string

	// Off and Len describe the affected range. Erases are logged per
	// sector so ordering (forward vs reverse) is observable.
	Off uint32
	Len uint32
}

// FaultInjector is a failure budget that can be shared between several
// devices, so a "power failure" lands at an arbitrary point of a
// multi-device operation sequence.
type FaultInjector struct {
	remaining int
	armed     bool
}

// Arm makes the next n operations succeed and everything after fail.
func (fi *FaultInjector) Arm(n int) {
	fi.remaining = n
	fi.armed = true
}

// Disarm turns injection off.
func (fi *FaultInjector) Disarm() {
	fi.armed = false
}

func (fi *FaultInjector) spend() error {
	if !fi.armed {
		return nil
	}
	if fi.remaining == 0 {
		return ErrInjected
	}
	fi.remaining--
	return nil
}

// Device is a simulated NOR flash area.
type Device struct {
	buf        []byte
	sectors    []flash.Sector
	align      uint32
	eraseValue byte

	failAfter int // remaining op budget; -1 disables injection
	injector  *FaultInjector
	ops       []Op
}

// Option configures a Device.
type Option func(*Device)

// WithAlign sets the write granularity. Default is 1.
func WithAlign(align uint32) Option {
	return func(d *Device) {
		d.align = align
	}
}

// WithEraseValue sets the erased byte value. Default is 0xFF.
func WithEraseValue(v byte) Option {
	return func(d *Device) {
		d.eraseValue = v
	}
}

// WithFaultInjector attaches a shared failure budget. It takes
// precedence over FailAfter.
func WithFaultInjector(fi *FaultInjector) Option {
	return func(d *Device) {
		d.injector = fi
	}
}

// New creates a device with the given sector sizes, laid out
// back-to-back from offset 0. The device starts fully erased.
//
// Example:
//
//	dev := memflash.New([]uint32{0x1000, 0x1000, 0x2000},
//	    memflash.WithAlign(4))
func New(sectorSizes []uint32, opts ...Option) *Device {
	d := &Device{
		align:      1,
		eraseValue: 0xFF,
		failAfter:  -1,
	}
	for _, opt := range opts {
		opt(d)
	}

	var off uint32
	for _, sz := range sectorSizes {
		d.sectors = append(d.sectors, flash.Sector{Off: off, Size: sz})
		off += sz
	}
	d.buf = make([]byte, off)
	for i := range d.buf {
		d.buf[i] = d.eraseValue
	}
	return d
}

// Uniform creates a device with count sectors of sectorSize bytes each.
func Uniform(count int, sectorSize uint32, opts ...Option) *Device {
	sizes := make([]uint32, count)
	for i := range sizes {
		sizes[i] = sectorSize
	}
	return New(sizes, opts...)
}

// FailAfter arms failure injection: the next n operations succeed, and
// every operation after that returns ErrInjected. Pass a negative n to
// disarm.
func (d *Device) FailAfter(n int) {
	d.failAfter = n
}

// Disarm disables failure injection without resetting the op log.
func (d *Device) Disarm() {
	d.failAfter = -1
}

// Ops returns the operation log.
func (d *Device) Ops() []Op {
	return d.ops
}

// ResetOps clears the operation log.
func (d *Device) ResetOps() {
	d.ops = nil
}

// Bytes returns the raw device contents. The returned slice aliases the
// device's backing store.
func (d *Device) Bytes() []byte {
	return d.buf
}

// spend consumes one unit of the failure budget. It returns ErrInjected
// when the budget is exhausted.
func (d *Device) spend() error {
	if d.injector != nil {
		return d.injector.spend()
	}
	if d.failAfter < 0 {
		return nil
	}
	if d.failAfter == 0 {
		return ErrInjected
	}
	d.failAfter--
	return nil
}

func (d *Device) Read(off uint32, buf []byte) error {
	if err := d.spend(); err != nil {
		return err
	}
	if uint64(off)+uint64(len(buf)) > uint64(len(d.buf)) {
		return &flash.BoundsError{Op: "read", Off: off, Length: uint32(len(buf)), Size: d.Size()}
	}
	d.ops = append(d.ops, Op{Kind: "read", Off: off, Len: uint32(len(buf))})
	copy(buf, d.buf[off:])
	return nil
}

func (d *Device) Write(off uint32, buf []byte) error {
	if err := d.spend(); err != nil {
		return err
	}
	if uint64(off)+uint64(len(buf)) > uint64(len(d.buf)) {
		return &flash.BoundsError{Op: "write", Off: off, Length: uint32(len(buf)), Size: d.Size()}
	}
	for i, b := range buf {
		cur := d.buf[off+uint32(i)]
		if cur != d.eraseValue && b != cur {
			return &flash.RewriteError{Off: off + uint32(i)}
		}
	}
	d.ops = append(d.ops, Op{Kind: "write", Off: off, Len: uint32(len(buf))})
	copy(d.buf[off:], buf)
	return nil
}

func (d *Device) Erase(off, length uint32, reverse bool) error {
	if uint64(off)+uint64(length) > uint64(len(d.buf)) {
		return &flash.BoundsError{Op: "erase", Off: off, Length: length, Size: d.Size()}
	}

	var covered []flash.Sector
	for _, s := range d.sectors {
		if s.Off >= off && s.End() <= off+length {
			covered = append(covered, s)
		} else if s.End() > off && s.Off < off+length {
			return fmt.Errorf("memflash: erase [0x%X, 0x%X) not sector aligned", off, off+length)
		}
	}

	if reverse {
		for i := len(covered) - 1; i >= 0; i-- {
			if err := d.eraseSector(covered[i]); err != nil {
				return err
			}
		}
		return nil
	}
	for _, s := range covered {
		if err := d.eraseSector(s); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) eraseSector(s flash.Sector) error {
	if err := d.spend(); err != nil {
		return err
	}
	d.ops = append(d.ops, Op{Kind: "erase", Off: s.Off, Len: s.Size})
	for i := s.Off; i < s.End(); i++ {
		d.buf[i] = d.eraseValue
	}
	return nil
}

func (d *Device) Size() uint32 {
	return uint32(len(d.buf))
}

func (d *Device) AlignSize() uint32 {
	return d.align
}

func (d *Device) Sectors() []flash.Sector {
	return d.sectors
}

func (d *Device) IsErased(buf []byte) bool {
	for _, b := range buf {
		if b != d.eraseValue {
			return false
		}
	}
	return true
}

// Load programs buf at off, bypassing the op log and failure budget.
// Intended for test and tool setup.
func (d *Device) Load(off uint32, buf []byte) error {
	if uint64(off)+uint64(len(buf)) > uint64(len(d.buf)) {
		return &flash.BoundsError{Op: "load", Off: off, Length: uint32(len(buf)), Size: d.Size()}
	}
	copy(d.buf[off:], buf)
	return nil
}
