package sqlite

import (
	"encoding/binary"
	"fmt"
	"math"
)

// vectorToBlob encodes float64 components little-endian
func vectorToBlob(vector []float64) []byte {
	if vector == nil {
		return nil
	}
	blob := make([]byte, len(vector)*8)
	for i, v := range vector {
		binary.LittleEndian.PutUint64(blob[i*8:i*8+8], math.Float64bits(v))
	}
	return blob
}

func blobToVector(blob []byte) ([]float64, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	if len(blob)%8 != 0 {
		return nil, fmt.Errorf("blob size %d is not a multiple of 8", len(blob))
	}

	vector := make([]float64, len(blob)/8)
	for i := range vector {
		vector[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8 : i*8+8]))
	}
	return vector, nil
}
