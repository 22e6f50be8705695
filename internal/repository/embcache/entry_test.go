package embcache

import (
	"errors"
	"testing"
)

func TestEntry_RoundTrip(t *testing.T) {
	in := []float32{0.25, -1.5, 3}
	out, err := decodeEntry(encodeEntry(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("[%d] = %v, want %v", i, out[i], in[i])
		}
	}
}

func TestDecodeEntry_Rejects(t *testing.T) {
	valid := encodeEntry([]float32{1, 2})
	wrongVersion := append([]byte{}, valid...)
	wrongVersion[0] = 9

	tests := []struct {
		name string
		in   []byte
	}{
		{"empty", nil},
		{"short header", []byte{1, 0}},
		{"wrong version", wrongVersion},
		{"truncated body", valid[:len(valid)-1]},
		{"zero dims", []byte{1, 0, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeEntry(tt.in); !errors.Is(err, errBadEntry) {
				t.Errorf("err = %v, want errBadEntry", err)
			}
		})
	}
}
