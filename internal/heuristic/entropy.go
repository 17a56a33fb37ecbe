package heuristic

import (
	"fmt"
	"math"
)

// Entropy thresholds for byte-level Shannon entropy (bits, 0-8)
const (
	EntropyObfuscated    = 5.5 // likely obfuscated text
	EntropyHighlyEncoded = 6.0 // XOR and similar single-byte ciphers worth trying
	EntropyEncrypted     = 6.5 // stream-cipher territory
	EntropyPacked        = 7.0 // compressed or packed binary
)

// entropyChunkSize is the window used for localized entropy analysis
const entropyChunkSize = 256

// CalculateEntropy computes Shannon entropy over byte-value frequencies.
// Returns 0 for empty input or a single repeated byte, approaching 8 as
// the distribution flattens. O(n), no side effects.
func CalculateEntropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}

	var frequency [256]uint64
	for _, b := range data {
		frequency[b]++
	}

	length := float64(len(data))
	var entropy float64

	for _, count := range frequency {
		if count > 0 {
			p := float64(count) / length
			entropy -= p * math.Log2(p)
		}
	}

	return entropy
}

// ChunkEntropies calculates per-chunk entropy, useful for detecting
// localized obfuscation. Trailing chunks shorter than half the chunk size
// are dropped to avoid noisy tail values.
func ChunkEntropies(data []byte, chunkSize int) []float64 {
	if len(data) == 0 || chunkSize <= 0 {
		return nil
	}

	var results []float64
	for i := 0; i < len(data); i += chunkSize {
		end := i + chunkSize
		if end > len(data) {
			end = len(data)
		}
		chunk := data[i:end]
		if len(chunk) >= chunkSize/2 {
			results = append(results, CalculateEntropy(chunk))
		}
	}

	return results
}

// IsPrintable reports whether b is an ordinary, non-control ASCII byte
func IsPrintable(b byte) bool {
	return b >= 0x20 && b < 0x7f
}

// PrintableRatio returns the fraction of printable bytes; 0 for empty input
func PrintableRatio(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	printable := 0
	for _, b := range data {
		if IsPrintable(b) {
			printable++
		}
	}
	return float64(printable) / float64(len(data))
}

// EntropyFeatures contains detailed entropy analysis results
type EntropyFeatures struct {
	Global         float64   `json:"entropy"`
	ChunkEntropies []float64 `json:"chunk_entropies,omitempty"`
	MaxChunk       float64   `json:"max_chunk_entropy"`
	MinChunk       float64   `json:"min_chunk_entropy"`
	Variance       float64   `json:"variance"`
	PrintableRatio float64   `json:"printable_ratio"`
}

// AnalyzeEntropy performs global and per-chunk entropy analysis
func AnalyzeEntropy(data []byte) *EntropyFeatures {
	f := &EntropyFeatures{
		Global:         CalculateEntropy(data),
		ChunkEntropies: ChunkEntropies(data, entropyChunkSize),
		PrintableRatio: PrintableRatio(data),
	}

	if len(f.ChunkEntropies) > 0 {
		f.MinChunk = f.ChunkEntropies[0]
		f.MaxChunk = f.ChunkEntropies[0]
		var sum float64
		for _, e := range f.ChunkEntropies {
			sum += e
			if e < f.MinChunk {
				f.MinChunk = e
			}
			if e > f.MaxChunk {
				f.MaxChunk = e
			}
		}
		mean := sum / float64(len(f.ChunkEntropies))
		var variance float64
		for _, e := range f.ChunkEntropies {
			variance += (e - mean) * (e - mean)
		}
		f.Variance = variance / float64(len(f.ChunkEntropies))
	}

	return f
}

// Anomalies returns human-readable descriptions of entropy irregularities
func (f *EntropyFeatures) Anomalies() []string {
	var anomalies []string

	if f.Global > 7.5 {
		anomalies = append(anomalies, "Very high entropy - likely encrypted or compressed")
	}

	if f.Variance > 3.0 {
		anomalies = append(anomalies, "Uneven entropy distribution - mixed content types")
	}

	prev := 0.0
	for i, e := range f.ChunkEntropies {
		if i > 0 && math.Abs(e-prev) > 4.0 {
			anomalies = append(anomalies, fmt.Sprintf("Sudden entropy change at chunk %d", i))
		}
		prev = e
	}

	if f.PrintableRatio < 0.3 {
		anomalies = append(anomalies, "Low printable character ratio - likely binary data")
	}

	return anomalies
}
