package heuristic

import (
	"github.com/IvanShishkin/umbreon/pkg/models"
)

// DefaultMinStringLength is the minimum run length for string extraction
const DefaultMinStringLength = 4

// ExtractStrings scans content for maximal runs of printable characters of
// length >= minLength. Pure, stateless scan.
func ExtractStrings(content string, minLength int) []models.ExtractedString {
	if minLength <= 0 {
		minLength = DefaultMinStringLength
	}

	var strs []models.ExtractedString
	var current []byte
	start := 0

	flush := func() {
		if len(current) >= minLength {
			strs = append(strs, models.ExtractedString{
				Value:      string(current),
				Confidence: 1.0,
				Context:    "ASCII string",
				Offset:     start,
			})
		}
		current = current[:0]
	}

	for i := 0; i < len(content); i++ {
		b := content[i]
		if IsPrintable(b) {
			if len(current) == 0 {
				start = i
			}
			current = append(current, b)
		} else {
			flush()
		}
	}
	flush()

	return strs
}
