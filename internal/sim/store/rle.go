package store

import (
	"encoding/binary"
	"fmt"
)

// EncodeRLE packs palette ids as uvarint (id, run) pairs.
func EncodeRLE(ids []uint16) []byte {
	out := make([]byte, 0, 64)
	for i := 0; i < len(ids); {
		b := ids[i]
		run := 1
		for i+run < len(ids) && ids[i+run] == b {
			run++
		}
		out = binary.AppendUvarint(out, uint64(b))
		out = binary.AppendUvarint(out, uint64(run))
		i += run
	}
	return out
}

// DecodeRLE expands EncodeRLE output. want is the expected id count; a
// mismatch is an error.
func DecodeRLE(raw []byte, want int) ([]uint16, error) {
	out := make([]uint16, 0, want)
	for i := 0; i < len(raw); {
		b, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("rle: bad id varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("rle: bad run varint at %d", i)
		}
		i += n
		if b > 0xFFFF {
			return nil, fmt.Errorf("rle: block id too large: %d", b)
		}
		if uint64(len(out))+run > uint64(want) {
			return nil, fmt.Errorf("rle: more than %d ids", want)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, uint16(b))
		}
	}
	if len(out) != want {
		return nil, fmt.Errorf("rle: got %d ids, want %d", len(out), want)
	}
	return out, nil
}
