package techniques

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/IvanShishkin/umbreon/internal/heuristic"
	"github.com/IvanShishkin/umbreon/internal/signatures"
	"github.com/IvanShishkin/umbreon/pkg/models"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zipMagic  = []byte{'P', 'K', 0x03, 0x04}
)

// BinaryUnpacker handles packed and compressed binary payloads. Gzip is
// decompressed inline; known packers and PE anomalies are flagged for
// the analyst since static unpacking of UPX and friends is out of reach
// of textual rewriting.
type BinaryUnpacker struct {
	sigs *signatures.Set
}

// NewBinaryUnpacker creates a binary unpacker using the given signature set
func NewBinaryUnpacker(sigs *signatures.Set) *BinaryUnpacker {
	return &BinaryUnpacker{sigs: sigs}
}

// Name returns the technique name
func (d *BinaryUnpacker) Name() string {
	return "Binary Unpacker"
}

// peAnomalies counts structural oddities in a PE image that point at
// packing: a broken PE signature, tiny section count, zeroed timestamp,
// sections whose raw data sits at compressed-level entropy
func peAnomalies(data []byte) int {
	if len(data) < 0x40 || data[0] != 'M' || data[1] != 'Z' {
		return 0
	}
	peOffset := int(binary.LittleEndian.Uint32(data[0x3c:0x40]))
	if peOffset <= 0 || peOffset+24 > len(data) ||
		!bytes.Equal(data[peOffset:peOffset+4], []byte{'P', 'E', 0, 0}) {
		// An MZ image without a valid PE signature is itself suspicious
		return 1
	}

	anomalies := 0
	numSections := int(binary.LittleEndian.Uint16(data[peOffset+6 : peOffset+8]))
	if numSections <= 2 {
		anomalies++
	}
	timestamp := binary.LittleEndian.Uint32(data[peOffset+8 : peOffset+12])
	if timestamp == 0 {
		anomalies++
	}

	optHeaderSize := int(binary.LittleEndian.Uint16(data[peOffset+20 : peOffset+22]))
	sectionTable := peOffset + 24 + optHeaderSize
	for i := 0; i < numSections; i++ {
		hdr := sectionTable + i*40
		if hdr+40 > len(data) {
			break
		}
		rawSize := int(binary.LittleEndian.Uint32(data[hdr+16 : hdr+20]))
		rawPtr := int(binary.LittleEndian.Uint32(data[hdr+20 : hdr+24]))
		if rawSize <= 0 || rawPtr <= 0 || rawPtr+rawSize > len(data) {
			continue
		}
		if heuristic.CalculateEntropy(data[rawPtr:rawPtr+rawSize]) > heuristic.EntropyPacked {
			anomalies++
		}
	}
	return anomalies
}

// CanApply scores by strongest evidence: known packer marker or magic
// bytes, then PE anomalies, then entropy alone. Mostly-printable content
// is never treated as binary, so a marker string quoted in a script does
// not trigger the unpacker.
func (d *BinaryUnpacker) CanApply(content string) (float64, bool) {
	data := []byte(content)
	if len(data) < 4 || heuristic.PrintableRatio(data) > 0.7 {
		return 0, false
	}

	if packer, ok := d.sigs.FindPacker(data); ok {
		return packer.Confidence, true
	}
	if bytes.HasPrefix(data, gzipMagic) {
		return 0.85, true
	}
	if bytes.HasPrefix(data, zipMagic) {
		return 0.8, true
	}
	if peAnomalies(data) > 0 {
		return 0.6, true
	}
	if heuristic.CalculateEntropy(data) > heuristic.EntropyPacked {
		return 0.5, true
	}
	return 0, false
}

// Apply decompresses gzip payloads and annotates everything else
func (d *BinaryUnpacker) Apply(content string) (Result, error) {
	data := []byte(content)

	if bytes.HasPrefix(data, gzipMagic) {
		reader, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return Result{}, &models.DecodeError{Technique: d.Name(), Reason: "invalid gzip stream"}
		}
		defer reader.Close()

		plain, err := io.ReadAll(reader)
		if err != nil {
			return Result{}, &models.DecodeError{Technique: d.Name(), Reason: "gzip decompression failed"}
		}
		return Result{
			Success: true,
			Output:  string(plain),
			Context: "Decompressed gzip payload",
		}, nil
	}

	if bytes.HasPrefix(data, zipMagic) {
		// Archives can hold many members; extraction is the caller's job
		return Result{
			Success: true,
			Output:  "/* DETECTED ZIP ARCHIVE - extract members separately */\n" + content,
			Context: "Detected zip archive",
		}, nil
	}

	if packer, ok := d.sigs.FindPacker(data); ok {
		return Result{
			Success: true,
			Output:  fmt.Sprintf("/* DETECTED %s PACKER - dynamic unpacking required */\n", packer.Name) + content,
			Context: fmt.Sprintf("Detected %s packer", packer.Name),
		}, nil
	}

	if n := peAnomalies(data); n > 0 {
		return Result{
			Success: true,
			Output:  fmt.Sprintf("/* PE HEADER ANOMALIES: %d - likely packed */\n", n) + content,
			Context: "PE header anomalies suggest packing",
		}, nil
	}

	return Result{Success: false, Output: content}, nil
}

// Matches reports whether this implementation handles kind
func (d *BinaryUnpacker) Matches(kind models.TechniqueKind) bool {
	switch kind {
	case models.KindBinaryPacked,
		models.KindBinaryCompressed,
		models.KindBinaryEncrypted:
		return true
	}
	return false
}
