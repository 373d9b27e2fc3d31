package vidra

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// ContentHash returns a stable, host-independent digest of a FrameBuffer:
// SHA-256 over little-endian (width, height, format tag) headers followed
// by the raw pixel bytes. Two buffers with identical
// dimensions, format, and pixels hash identically regardless of allocation
// history, making this safe as a cache key and a receipt field.
func ContentHash(fb *FrameBuffer) string {
	h := sha256.New()
	var header [12]byte
	binary.LittleEndian.PutUint32(header[0:4], uint32(fb.Width))
	binary.LittleEndian.PutUint32(header[4:8], uint32(fb.Height))
	binary.LittleEndian.PutUint32(header[8:12], uint32(fb.Format))
	h.Write(header[:])
	h.Write(fb.Pix)
	return hex.EncodeToString(h.Sum(nil))
}

// SequenceHash folds a sequence of per-frame ContentHash digests into a
// single digest representing the whole rendered output, by
// hashing the concatenation of each frame's raw hex digest in order.
func SequenceHash(frameHashes []string) string {
	h := sha256.New()
	for _, fh := range frameHashes {
		h.Write([]byte(fh))
	}
	return hex.EncodeToString(h.Sum(nil))
}
