package heuristic

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestCalculateEntropy(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		min  float64
		max  float64
	}{
		{
			name: "empty input",
			data: nil,
			min:  0,
			max:  0,
		},
		{
			name: "single repeated byte",
			data: bytes.Repeat([]byte{0x41}, 1024),
			min:  0,
			max:  0,
		},
		{
			name: "english text",
			data: []byte("the quick brown fox jumps over the lazy dog"),
			min:  3.5,
			max:  5.0,
		},
		{
			name: "two byte values",
			data: []byte{0, 1, 0, 1, 0, 1, 0, 1},
			min:  1.0,
			max:  1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateEntropy(tt.data)
			if got < tt.min || got > tt.max {
				t.Errorf("CalculateEntropy() = %v, want in [%v, %v]", got, tt.min, tt.max)
			}
		})
	}
}

func TestCalculateEntropy_AllByteValues(t *testing.T) {
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}

	got := CalculateEntropy(data)
	if got <= 7.0 || got > 8.0 {
		t.Errorf("CalculateEntropy(uniform) = %v, want in (7.0, 8.0]", got)
	}
}

func TestChunkEntropies(t *testing.T) {
	// 2.5 chunks of 256: the 128-byte tail is exactly half and kept
	data := make([]byte, 640)
	got := ChunkEntropies(data, 256)
	if len(got) != 3 {
		t.Fatalf("chunk count = %d, want 3", len(got))
	}

	// A 100-byte tail after two full chunks is dropped
	got = ChunkEntropies(make([]byte, 612), 256)
	if len(got) != 2 {
		t.Errorf("chunk count = %d, want 2", len(got))
	}

	if ChunkEntropies(nil, 256) != nil {
		t.Error("ChunkEntropies(nil) should return nil")
	}
}

func TestIsPrintable(t *testing.T) {
	tests := []struct {
		b    byte
		want bool
	}{
		{0x1f, false},
		{0x20, true},
		{'A', true},
		{'~', true},
		{0x7f, false},
		{0x80, false},
		{0x00, false},
	}

	for _, tt := range tests {
		if got := IsPrintable(tt.b); got != tt.want {
			t.Errorf("IsPrintable(0x%02x) = %v, want %v", tt.b, got, tt.want)
		}
	}
}

func TestPrintableRatio(t *testing.T) {
	if got := PrintableRatio(nil); got != 0 {
		t.Errorf("PrintableRatio(nil) = %v, want 0", got)
	}
	if got := PrintableRatio([]byte("hello")); got != 1.0 {
		t.Errorf("PrintableRatio(text) = %v, want 1.0", got)
	}
	if got := PrintableRatio([]byte{'a', 'b', 0x00, 0x01}); got != 0.5 {
		t.Errorf("PrintableRatio(mixed) = %v, want 0.5", got)
	}
}

func TestAnalyzeEntropy_Anomalies(t *testing.T) {
	// Low-entropy text followed by 512 random bytes: uneven distribution
	// plus a sudden jump between chunks
	rng := rand.New(rand.NewSource(42))
	data := bytes.Repeat([]byte("AAAA"), 128)
	noise := make([]byte, 512)
	rng.Read(noise)
	data = append(data, noise...)

	features := AnalyzeEntropy(data)
	if features.MaxChunk <= features.MinChunk {
		t.Errorf("MaxChunk = %v should exceed MinChunk = %v", features.MaxChunk, features.MinChunk)
	}

	anomalies := features.Anomalies()
	if len(anomalies) == 0 {
		t.Error("expected anomalies for mixed text/noise content")
	}
}

func TestAnalyzeEntropy_CleanText(t *testing.T) {
	data := bytes.Repeat([]byte("plain readable content "), 30)

	features := AnalyzeEntropy(data)
	if features.Global > EntropyObfuscated {
		t.Errorf("Global = %v, want below obfuscation threshold", features.Global)
	}
	if features.PrintableRatio != 1.0 {
		t.Errorf("PrintableRatio = %v, want 1.0", features.PrintableRatio)
	}
	if got := features.Anomalies(); len(got) != 0 {
		t.Errorf("Anomalies() = %v, want none", got)
	}
}

func BenchmarkCalculateEntropy(b *testing.B) {
	data := make([]byte, 64*1024)
	rand.New(rand.NewSource(1)).Read(data)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		CalculateEntropy(data)
	}
}
