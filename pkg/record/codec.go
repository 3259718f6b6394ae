package record

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Embeddings are persisted as a little-endian float32 blob with a 4-byte
// dimension header, so a stored row can be decoded without knowing the
// sequence length up front (S varies per record).

// EncodeEmbedding serializes a token-vector sequence into a blob.
// All rows must share the same dimensionality.
func EncodeEmbedding(embedding [][]float32) ([]byte, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("cannot encode empty embedding")
	}

	dim := len(embedding[0])
	if dim == 0 {
		return nil, fmt.Errorf("cannot encode embedding with zero-width rows")
	}

	buf := make([]byte, 4+len(embedding)*dim*4)
	binary.LittleEndian.PutUint32(buf, uint32(dim))

	off := 4
	for i, row := range embedding {
		if len(row) != dim {
			return nil, fmt.Errorf("ragged embedding: row %d has %d values, expected %d", i, len(row), dim)
		}
		for _, f := range row {
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(f))
			off += 4
		}
	}

	return buf, nil
}

// DecodeEmbedding deserializes a blob produced by EncodeEmbedding.
func DecodeEmbedding(blob []byte) ([][]float32, error) {
	if len(blob) < 4 {
		return nil, fmt.Errorf("embedding blob too short: %d bytes", len(blob))
	}

	dim := int(binary.LittleEndian.Uint32(blob))
	if dim == 0 {
		return nil, fmt.Errorf("embedding blob declares zero dimension")
	}

	body := blob[4:]
	if len(body)%(dim*4) != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d for dimension %d", len(body), dim)
	}

	rows := len(body) / (dim * 4)
	embedding := make([][]float32, rows)
	off := 0
	for i := range embedding {
		row := make([]float32, dim)
		for j := range row {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(body[off:]))
			off += 4
		}
		embedding[i] = row
	}

	return embedding, nil
}
