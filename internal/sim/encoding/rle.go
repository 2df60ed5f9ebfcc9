package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// Cell payload codec for voxel refreshes. The stream is base64 of a uvarint
// cell count followed by run tokens. Empty space dominates a voxel grid, so
// a run of empty cells spends a single even-tagged varint (run<<1); a run of
// solid cells uses an odd tag (run<<1 | 1) followed by the cell value.
// Decoders preallocate from the count and reject short or overlong payloads.

// Sanity cap on the declared cell count, far above any real grid.
const maxCells = 1 << 26

// EncodeRLE encodes cell values (0 = empty, material+1 otherwise).
func EncodeRLE(cells []uint16) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte
	put := func(u uint64) {
		n := binary.PutUvarint(tmp[:], u)
		buf.Write(tmp[:n])
	}

	put(uint64(len(cells)))
	for i := 0; i < len(cells); {
		v := cells[i]
		j := i + 1
		for j < len(cells) && cells[j] == v {
			j++
		}
		run := uint64(j - i)
		if v == 0 {
			put(run << 1)
		} else {
			put(run<<1 | 1)
			put(uint64(v))
		}
		i = j
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// DecodeRLE inverts EncodeRLE. Any stream that does not reproduce exactly
// the declared cell count is rejected.
func DecodeRLE(b64 string) ([]uint16, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(raw)
	count, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("cell count: %w", err)
	}
	if count > maxCells {
		return nil, fmt.Errorf("cell count %d too large", count)
	}

	out := make([]uint16, 0, count)
	for uint64(len(out)) < count {
		tag, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, fmt.Errorf("run tag: %w", err)
		}
		run := tag >> 1
		if run == 0 || uint64(len(out))+run > count {
			return nil, fmt.Errorf("run of %d does not fit %d cells", run, count)
		}
		var v uint16
		if tag&1 == 1 {
			u, err := binary.ReadUvarint(r)
			if err != nil {
				return nil, fmt.Errorf("cell value: %w", err)
			}
			if u == 0 || u > 0xFFFF {
				return nil, fmt.Errorf("cell value %d out of range", u)
			}
			v = uint16(u)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, v)
		}
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%d trailing bytes", r.Len())
	}
	return out, nil
}
