// Package trailer encodes and decodes the image trailer: the durable
// status record kept at the tail of every slot and of the scratch area.
//
// # Layout
//
// From the lowest trailer offset to the end of the region:
//
//	[PROGRESS TABLE][SWAP SIZE][ENC KEY 0][ENC KEY 1][SWAP INFO][COPY DONE][IMAGE OK][MAGIC]
//
// Every field offset is a multiple of the region's write granularity
// when that granularity is at most MagicSize (16) bytes; the magic field
// always occupies the last 16 bytes of the region.
// The progress table sits at the lowest offsets so that trailer writes
// grow monotonically toward the magic, which is written last to signal
// commitment. The encryption key fields are present only when the
// layout is built with a non-zero key size.
//
// # Erase semantics
//
// The codec never assumes a specific erased byte value. A field is
// "unset" when the region's IsErased predicate accepts its bytes; the
// progress table carries information only in the written/erased
// boundary, not in the written bit patterns.
package trailer
