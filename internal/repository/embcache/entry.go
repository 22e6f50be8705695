package embcache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Entry layout: version byte, uint32 dimension count, little-endian float32s.
const (
	entryVersion    byte = 1
	entryHeaderSize      = 5
)

var errBadEntry = errors.New("malformed cache entry")

func encodeEntry(vec []float32) []byte {
	buf := make([]byte, entryHeaderSize+4*len(vec))
	buf[0] = entryVersion
	binary.LittleEndian.PutUint32(buf[1:], uint32(len(vec))) //nolint:gosec // embedding dims fit in uint32
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[entryHeaderSize+4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeEntry(buf []byte) ([]float32, error) {
	if len(buf) < entryHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", errBadEntry, len(buf))
	}
	if buf[0] != entryVersion {
		return nil, fmt.Errorf("%w: version %d", errBadEntry, buf[0])
	}
	dims := int(binary.LittleEndian.Uint32(buf[1:]))
	body := buf[entryHeaderSize:]
	if dims == 0 || len(body) != 4*dims {
		return nil, fmt.Errorf("%w: %d dims in %d bytes", errBadEntry, dims, len(body))
	}

	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[4*i:]))
	}
	return vec, nil
}
