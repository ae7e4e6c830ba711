package storage

import (
	"unsafe"

	"github.com/reldb/reldb/common"
)

// Bitmap is a structured view over bits stored in an existing buffer, such as
// the slot map at the head of a record page. It does not own the bytes.
//
// Scans work at word (uint64) granularity so that fully occupied blocks are
// skipped without inspecting individual bits.
type Bitmap struct {
	words   []uint64
	numBits int
}

// AsBitmap creates a Bitmap view over the provided byte slice.
//
// Constraints:
//  1. data must be aligned to 8 bytes to allow safe casting to uint64.
//  2. data must be large enough to contain numBits (rounded up to the nearest
//     8-byte word).
func AsBitmap(data []byte, numBits int) Bitmap {
	common.Assert(common.AlignedTo8(len(data)), "Bitmap bytes length must be aligned to 8")

	numWords := (numBits + 63) / 64
	common.Assert(len(data) >= numWords*8, "bitmap buffer too small")

	ptr := unsafe.Pointer(&data[0])
	words := unsafe.Slice((*uint64)(ptr), numWords)

	return Bitmap{
		words:   words,
		numBits: numBits,
	}
}

// SetBit sets the bit at index i to the given value.
// Returns the previous value of the bit.
func (b *Bitmap) SetBit(i int, on bool) (originalValue bool) {
	common.Assert(i >= 0 && i < b.numBits, "bit index out of bounds")
	wordIdx := i / 64
	bitIdx := uint(i % 64)
	mask := uint64(1) << bitIdx

	ptr := &b.words[wordIdx]
	originalValue = (*ptr & mask) != 0
	if on {
		*ptr |= mask
	} else {
		*ptr &^= mask
	}
	return originalValue
}

// LoadBit returns the value of the bit at index i.
func (b *Bitmap) LoadBit(i int) bool {
	common.Assert(i >= 0 && i < b.numBits, "bit index out of bounds")
	wordIdx := i / 64
	bitIdx := uint(i % 64)
	return (b.words[wordIdx] & (1 << bitIdx)) != 0
}

// FindFirstZero searches for the first bit set to 0 in the bitmap, starting
// at startHint and wrapping around to the beginning if needed.
// Returns the index of the first zero bit found, or -1 if the bitmap is full.
func (b *Bitmap) FindFirstZero(startHint int) int {
	if r := b.findFirstZeroInRange(startHint, b.numBits); r != -1 {
		return r
	}
	return b.findFirstZeroInRange(0, startHint)
}

func (b *Bitmap) findFirstZeroInRange(start, end int) int {
	common.Assert(start >= 0 && start <= end && end <= b.numBits, "invalid Bitmap range")
	if start == end {
		return -1
	}
	startWord := start / 64
	endWord := (end - 1) / 64

	for i := startWord; i <= endWord; i++ {
		word := b.words[i]

		// If word is all 1s, skip entirely
		if word == ^uint64(0) {
			continue
		}

		bitStart, bitEnd := 0, 64
		if i == startWord {
			bitStart = start % 64
		}
		if i == endWord {
			limit := end % 64
			if limit != 0 {
				bitEnd = limit
			}
		}

		for j := bitStart; j < bitEnd; j++ {
			if (word & (1 << j)) == 0 {
				return i*64 + j
			}
		}
	}
	return -1
}
