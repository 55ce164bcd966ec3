package memflash

import (
	"bytes"
	"errors"
	"testing"

	"github.com/loepfe/mcuboot/flash"
)

func TestNewStartsErased(t *testing.T) {
	dev := New([]uint32{0x100, 0x200}, WithAlign(4))

	buf := make([]byte, dev.Size())
	if err := dev.Read(0, buf); err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if !dev.IsErased(buf) {
		t.Error("fresh device not erased")
	}
	if dev.Size() != 0x300 {
		t.Errorf("Size() = 0x%X, want 0x300", dev.Size())
	}
}

func TestWriteReadBack(t *testing.T) {
	dev := Uniform(2, 0x100, WithAlign(4))

	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if err := dev.Write(0x10, data); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	got := make([]byte, len(data))
	if err := dev.Read(0x10, got); err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("read back %v, want %v", got, data)
	}
}

func TestWriteOncePerErase(t *testing.T) {
	dev := Uniform(1, 0x100, WithAlign(4))

	if err := dev.Write(0, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("first Write() error: %v", err)
	}

	err := dev.Write(0, []byte{5, 6, 7, 8})
	var rewrite *flash.RewriteError
	if !errors.As(err, &rewrite) {
		t.Fatalf("second Write() error = %v, want RewriteError", err)
	}

	// Writing identical bytes is a no-op the device tolerates.
	if err := dev.Write(0, []byte{1, 2, 3, 4}); err != nil {
		t.Errorf("identical rewrite error: %v", err)
	}

	if err := dev.Erase(0, 0x100, false); err != nil {
		t.Fatalf("Erase() error: %v", err)
	}
	if err := dev.Write(0, []byte{5, 6, 7, 8}); err != nil {
		t.Errorf("Write() after erase error: %v", err)
	}
}

func TestEraseAlignment(t *testing.T) {
	dev := Uniform(4, 0x100, WithAlign(4))

	if err := dev.Erase(0x80, 0x100, false); err == nil {
		t.Error("Erase() accepted unaligned range")
	}
	if err := dev.Erase(0x100, 0x200, false); err != nil {
		t.Errorf("Erase() of aligned range error: %v", err)
	}
}

func TestReverseEraseOrder(t *testing.T) {
	dev := Uniform(4, 0x100, WithAlign(4))

	dev.ResetOps()
	if err := dev.Erase(0, 0x400, true); err != nil {
		t.Fatalf("Erase() error: %v", err)
	}

	var offs []uint32
	for _, op := range dev.Ops() {
		if op.Kind == "erase" {
			offs = append(offs, op.Off)
		}
	}
	want := []uint32{0x300, 0x200, 0x100, 0x000}
	if len(offs) != len(want) {
		t.Fatalf("erase ops = %v, want %v", offs, want)
	}
	for i := range want {
		if offs[i] != want[i] {
			t.Fatalf("erase ops = %#v, want %#v", offs, want)
		}
	}
}

func TestFailAfter(t *testing.T) {
	dev := Uniform(1, 0x100, WithAlign(4))

	dev.FailAfter(2)
	buf := make([]byte, 4)
	if err := dev.Read(0, buf); err != nil {
		t.Fatalf("op 1 error: %v", err)
	}
	if err := dev.Read(0, buf); err != nil {
		t.Fatalf("op 2 error: %v", err)
	}
	if err := dev.Read(0, buf); !errors.Is(err, ErrInjected) {
		t.Fatalf("op 3 error = %v, want ErrInjected", err)
	}

	dev.Disarm()
	if err := dev.Read(0, buf); err != nil {
		t.Errorf("Read() after disarm error: %v", err)
	}
}

func TestSharedFaultInjector(t *testing.T) {
	fi := &FaultInjector{}
	a := Uniform(1, 0x100, WithAlign(4), WithFaultInjector(fi))
	b := Uniform(1, 0x100, WithAlign(4), WithFaultInjector(fi))

	fi.Arm(2)
	buf := make([]byte, 4)
	if err := a.Read(0, buf); err != nil {
		t.Fatalf("op 1 error: %v", err)
	}
	if err := b.Read(0, buf); err != nil {
		t.Fatalf("op 2 error: %v", err)
	}
	if err := a.Read(0, buf); !errors.Is(err, ErrInjected) {
		t.Fatalf("op 3 error = %v, want ErrInjected", err)
	}

	fi.Disarm()
	if err := b.Read(0, buf); err != nil {
		t.Errorf("Read() after disarm error: %v", err)
	}
}

func TestPartialEraseOnInjection(t *testing.T) {
	dev := Uniform(4, 0x100, WithAlign(4))

	if err := dev.Write(0x000, []byte{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	if err := dev.Write(0x300, []byte{5, 6, 7, 8}); err != nil {
		t.Fatal(err)
	}

	// Allow a single sector erase, then fail: a forward erase of the
	// whole device must have cleared only the first sector.
	dev.FailAfter(1)
	if err := dev.Erase(0, 0x400, false); !errors.Is(err, ErrInjected) {
		t.Fatalf("Erase() error = %v, want ErrInjected", err)
	}
	dev.Disarm()

	buf := make([]byte, 4)
	if err := dev.Read(0, buf); err != nil {
		t.Fatal(err)
	}
	if !dev.IsErased(buf) {
		t.Error("first sector not erased before injection point")
	}
	if err := dev.Read(0x300, buf); err != nil {
		t.Fatal(err)
	}
	if dev.IsErased(buf) {
		t.Error("last sector erased past injection point")
	}
}
