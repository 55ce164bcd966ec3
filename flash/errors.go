package flash

import "fmt"

// BoundsError indicates an access outside the area, or an erase whose
// bounds do not fall on sector boundaries.
type BoundsError struct {
	Op     string
	Off    uint32
	Length uint32
	Size   uint32
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("%s out of bounds: off=0x%X len=0x%X area size=0x%X",
		e.Op, e.Off, e.Length, e.Size)
}

// RewriteError indicates a write to a cell that was already written
// since its last erase. Flash cells are write-once per erase cycle; the
// trailer protocol depends on that property.
type RewriteError struct {
	Off uint32
}

func (e *RewriteError) Error() string {
	return fmt.Sprintf("write to non-erased cell at 0x%X", e.Off)
}
