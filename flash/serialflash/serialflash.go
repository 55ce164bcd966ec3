package serialflash

import (
	"fmt"
	"io"

	tty "github.com/jacobsa/go-serial/serial"

	"github.com/loepfe/mcuboot/flash"
)

const maxSyncAttempts = 5

// maxTransfer bounds a single READ/WRIT transfer so frames stay well
// inside the rig's buffer.
const maxTransfer = 4096

// Device is a flash.Area backed by a window of a serial-attached rig's
// flash. Offsets are relative to the window base.
type Device struct {
	rw io.ReadWriter

	base       uint32
	size       uint32
	eraseSize  uint32
	writeSize  uint32
	eraseValue byte

	sectors []flash.Sector
}

// Open opens and configures the serial port a rig is attached to. It
// does not talk to the rig; New performs the handshake over the port.
//
// Example:
//
//	port, err := serialflash.Open("/dev/ttyACM0", 115200)
func Open(portName string, baudRate uint) (io.ReadWriteCloser, error) {
	options := tty.OpenOptions{
		PortName:              portName,
		BaudRate:              baudRate,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		InterCharacterTimeout: 100,
	}

	port, err := tty.Open(options)
	if err != nil {
		return nil, fmt.Errorf("serialflash: open %s: %w", portName, err)
	}
	return port, nil
}

// New synchronizes with the rig on rw, queries its geometry, and
// returns an Area covering the window [base, base+size) of the rig's
// flash. base and size must be erase-sector aligned.
func New(rw io.ReadWriter, base, size uint32) (*Device, error) {
	var err error
	for i := 0; i < maxSyncAttempts; i++ {
		if err = (&SyncCommand{}).Execute(rw); err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("serialflash: sync: %w", err)
	}

	info := &InfoCommand{}
	if err := info.Execute(rw); err != nil {
		return nil, fmt.Errorf("serialflash: info: %w", err)
	}

	if base%info.EraseSize != 0 || size%info.EraseSize != 0 {
		return nil, fmt.Errorf("serialflash: window [0x%X, 0x%X) not erase aligned", base, base+size)
	}
	if base < info.FlashAddr || base+size > info.FlashAddr+info.FlashSize {
		return nil, fmt.Errorf("serialflash: window [0x%X, 0x%X) outside device flash", base, base+size)
	}

	d := &Device{
		rw:         rw,
		base:       base,
		size:       size,
		eraseSize:  info.EraseSize,
		writeSize:  info.WriteSize,
		eraseValue: info.EraseValue,
	}
	for off := uint32(0); off < size; off += d.eraseSize {
		d.sectors = append(d.sectors, flash.Sector{Off: off, Size: d.eraseSize})
	}
	return d, nil
}

func (d *Device) Read(off uint32, buf []byte) error {
	if uint64(off)+uint64(len(buf)) > uint64(d.size) {
		return &flash.BoundsError{Op: "read", Off: off, Length: uint32(len(buf)), Size: d.size}
	}

	for len(buf) > 0 {
		chunk := uint32(len(buf))
		if chunk > maxTransfer {
			chunk = maxTransfer
		}
		cmd := &ReadCommand{Addr: d.base + off, Len: chunk}
		if err := cmd.Execute(d.rw); err != nil {
			return err
		}
		copy(buf, cmd.Data)
		buf = buf[chunk:]
		off += chunk
	}
	return nil
}

func (d *Device) Write(off uint32, buf []byte) error {
	if uint64(off)+uint64(len(buf)) > uint64(d.size) {
		return &flash.BoundsError{Op: "write", Off: off, Length: uint32(len(buf)), Size: d.size}
	}

	for len(buf) > 0 {
		chunk := uint32(len(buf))
		if chunk > maxTransfer {
			chunk = maxTransfer
		}
		cmd := &WriteCommand{Addr: d.base + off, Data: buf[:chunk]}
		if err := cmd.Execute(d.rw); err != nil {
			return err
		}
		buf = buf[chunk:]
		off += chunk
	}
	return nil
}

func (d *Device) Erase(off, length uint32, reverse bool) error {
	if uint64(off)+uint64(length) > uint64(d.size) {
		return &flash.BoundsError{Op: "erase", Off: off, Length: length, Size: d.size}
	}
	if off%d.eraseSize != 0 || length%d.eraseSize != 0 {
		return fmt.Errorf("serialflash: erase [0x%X, 0x%X) not sector aligned", off, off+length)
	}

	count := length / d.eraseSize
	for i := uint32(0); i < count; i++ {
		sectorOff := off + i*d.eraseSize
		if reverse {
			sectorOff = off + (count-1-i)*d.eraseSize
		}
		cmd := &EraseCommand{Addr: d.base + sectorOff, Len: d.eraseSize}
		if err := cmd.Execute(d.rw); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) Size() uint32 {
	return d.size
}

func (d *Device) AlignSize() uint32 {
	return d.writeSize
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
