// Package flash defines the flash area abstraction the swap engine and
// trailer codec operate on.
//
// An Area is a contiguous flash region addressed by offsets local to the
// region. The engine never talks to a flash controller directly; every
// read, write and erase goes through an Area implementation. Two
// implementations ship with this module:
//
//   - memflash: an in-memory simulated NOR device, used by the tests
//     and the mcuswap host tool
//   - serialflash: a region on a serial-attached programming rig
//
// Implementations must guarantee that writes of AlignSize bytes are
// atomic, that erases operate at sector granularity, and that reads
// observe prior writes.
package flash
