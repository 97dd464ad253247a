// Package poolwriter implements a deferred-offset binary serializer.
//
// A Pool is a growing byte buffer that may contain forward references to
// sub-buffers written later. Writers reserve a 4-byte slot with WriteRef
// and keep writing into the returned Chunk; Finish walks the chunk graph
// breadth-first in descending-priority order, placing each chunk's bytes
// immediately after everything already placed and patching the reserved
// slot with the absolute offset. Identical leaf chunks collapse onto the
// same offset.
package poolwriter

import (
	"encoding/binary"
	"sort"
)

// Chunk is a growable buffer with an optional forward reference back into
// its parent. The root Chunk returned by New has no parent slot to patch.
type Chunk struct {
	buf      []byte
	ptrPos   int
	priority int
	children []*Chunk
}

// New creates a root chunk, optionally seeded with a fixed prefix (e.g.
// a four-byte file tag).
func New(prefix []byte) *Chunk {
	c := &Chunk{}
	c.buf = append(c.buf, prefix...)
	return c
}

// Write appends raw bytes to the chunk.
func (c *Chunk) Write(p []byte) {
	c.buf = append(c.buf, p...)
}

// Len reports the number of bytes written to this chunk so far, not
// counting bytes that will be added by unresolved child references.
func (c *Chunk) Len() int {
	return len(c.buf)
}

// Bytes returns the chunk's own buffer. It is only meaningful before
// Finish is called on the root; children are consumed during placement.
func (c *Chunk) Bytes() []byte {
	return c.buf
}

// WriteRef reserves a 4-byte big-endian offset slot in the current
// buffer and returns a new child chunk that will be placed at some later
// offset in the root's output. Higher priority children are placed
// earlier in the file; ties preserve the order WriteRef was called in.
func (c *Chunk) WriteRef(priority int) *Chunk {
	pos := len(c.buf)
	c.buf = append(c.buf, 0, 0, 0, 0)
	child := &Chunk{ptrPos: pos, priority: priority}
	c.children = append(c.children, child)
	return child
}

// Finish resolves every pending reference reachable from the root chunk
// and returns the completed, 16-byte-padded blob. Finish must only be
// called on a root chunk produced by New, and only once.
func (c *Chunk) Finish() []byte {
	seen := make(map[string]int)
	pending := c.children

	for len(pending) > 0 {
		sort.SliceStable(pending, func(i, j int) bool {
			return pending[i].priority > pending[j].priority
		})

		var next []*Chunk
		for _, child := range pending {
			tail := len(c.buf)
			data := child.buf

			var dataPos int
			switch {
			case len(data) == 0:
				dataPos = 0
			case len(child.children) == 0:
				key := string(data)
				if existing, ok := seen[key]; ok {
					dataPos = existing
				} else {
					dataPos = tail
					seen[key] = dataPos
					c.buf = append(c.buf, data...)
				}
			default:
				dataPos = tail
				c.buf = append(c.buf, data...)
			}

			binary.BigEndian.PutUint32(c.buf[child.ptrPos:child.ptrPos+4], uint32(dataPos))
			for _, sub := range child.children {
				sub.ptrPos += dataPos
			}
			next = append(next, child.children...)
		}
		pending = next
	}

	for len(c.buf)%16 != 0 {
		c.buf = append(c.buf, 0)
	}
	return c.buf
}
