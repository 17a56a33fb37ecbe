package techniques

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/IvanShishkin/umbreon/internal/heuristic"
	"github.com/IvanShishkin/umbreon/pkg/models"
)

// printableTextRatio is the acceptance threshold for decoded output
const printableTextRatio = 0.8

// Base64Decoder decodes base64 runs embedded in text
type Base64Decoder struct {
	pattern *regexp.Regexp
}

// NewBase64Decoder creates a new base64 decoder
func NewBase64Decoder() *Base64Decoder {
	return &Base64Decoder{
		pattern: regexp.MustCompile(`[A-Za-z0-9+/]{20,}={0,2}`),
	}
}

// Name returns the technique name
func (d *Base64Decoder) Name() string {
	return "Base64 Decoder"
}

// CanApply checks for decodable base64 runs
func (d *Base64Decoder) CanApply(content string) (float64, bool) {
	matches := d.pattern.FindAllString(content, -1)
	if len(matches) == 0 {
		return 0, false
	}

	validCount := 0
	for _, m := range matches {
		if _, err := base64.StdEncoding.DecodeString(m); err == nil {
			validCount++
		}
	}
	if validCount == 0 {
		return 0, false
	}

	return float64(validCount) / float64(len(matches)) * 0.9, true
}

// Apply decodes each base64 run, splicing the plaintext back in place of
// the match when the result is mostly printable text
func (d *Base64Decoder) Apply(content string) (Result, error) {
	result := content
	decoded := 0

	for _, m := range d.pattern.FindAllString(content, -1) {
		raw, err := base64.StdEncoding.DecodeString(m)
		if err != nil {
			continue
		}
		if !utf8.Valid(raw) || heuristic.PrintableRatio(raw) <= printableTextRatio {
			continue
		}
		result = strings.ReplaceAll(result, m, string(raw))
		decoded++
	}

	return Result{
		Success: decoded > 0,
		Output:  result,
		Context: fmt.Sprintf("Decoded %d base64 strings", decoded),
	}, nil
}

// Matches reports whether this implementation handles kind
func (d *Base64Decoder) Matches(kind models.TechniqueKind) bool {
	return kind == models.KindBase64Encoding
}

// HexDecoder decodes \xHH escapes, 0xHH literals and bare hex runs
type HexDecoder struct {
	escapePattern     *regexp.Regexp
	literalPattern    *regexp.Regexp
	continuousPattern *regexp.Regexp
}

// NewHexDecoder creates a new hex decoder
func NewHexDecoder() *HexDecoder {
	return &HexDecoder{
		escapePattern:     regexp.MustCompile(`\\x([0-9a-fA-F]{2})`),
		literalPattern:    regexp.MustCompile(`0x([0-9a-fA-F]{2})\b`),
		continuousPattern: regexp.MustCompile(`[0-9a-fA-F]{8,}`),
	}
}

// Name returns the technique name
func (d *HexDecoder) Name() string {
	return "Hex Decoder"
}

// CanApply checks for any hex-encoded form
func (d *HexDecoder) CanApply(content string) (float64, bool) {
	if d.escapePattern.MatchString(content) ||
		d.literalPattern.MatchString(content) ||
		d.continuousPattern.MatchString(content) {
		return 0.8, true
	}
	return 0, false
}

// Apply decodes hex sequences, skipping any that yield non-printable bytes
func (d *HexDecoder) Apply(content string) (Result, error) {
	result := content
	decoded := 0

	for _, pattern := range []*regexp.Regexp{d.escapePattern, d.literalPattern} {
		for _, cap := range pattern.FindAllStringSubmatch(content, -1) {
			v, err := strconv.ParseUint(cap[1], 16, 8)
			if err != nil {
				continue
			}
			b := byte(v)
			if heuristic.IsPrintable(b) {
				result = strings.ReplaceAll(result, cap[0], string(b))
				decoded++
			}
		}
	}

	// Contiguous runs decode byte-pair-wise; abort the run on the first
	// non-printable byte.
	for _, m := range d.continuousPattern.FindAllString(result, -1) {
		if len(m)%2 != 0 {
			continue
		}
		var sb strings.Builder
		valid := true
		for i := 0; i < len(m); i += 2 {
			v, err := strconv.ParseUint(m[i:i+2], 16, 8)
			if err != nil || !heuristic.IsPrintable(byte(v)) {
				valid = false
				break
			}
			sb.WriteByte(byte(v))
		}
		if valid && sb.Len() > 0 {
			result = strings.ReplaceAll(result, m, sb.String())
			decoded++
		}
	}

	return Result{
		Success: decoded > 0,
		Output:  result,
		Context: fmt.Sprintf("Decoded %d hex sequences", decoded),
	}, nil
}

// Matches reports whether this implementation handles kind
func (d *HexDecoder) Matches(kind models.TechniqueKind) bool {
	return kind == models.KindHexEncoding
}

// UnicodeDecoder decodes \uHHHH escape sequences
type UnicodeDecoder struct {
	pattern *regexp.Regexp
}

// NewUnicodeDecoder creates a new unicode escape decoder
func NewUnicodeDecoder() *UnicodeDecoder {
	return &UnicodeDecoder{
		pattern: regexp.MustCompile(`\\u([0-9a-fA-F]{4})`),
	}
}

// Name returns the technique name
func (d *UnicodeDecoder) Name() string {
	return "Unicode Decoder"
}

// CanApply checks for \uHHHH escapes
func (d *UnicodeDecoder) CanApply(content string) (float64, bool) {
	count := len(d.pattern.FindAllString(content, -1))
	if count == 0 {
		return 0, false
	}
	confidence := float64(count) / 10.0
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence * 0.9, true
}

// Apply replaces each escape with its codepoint
func (d *UnicodeDecoder) Apply(content string) (Result, error) {
	result := content
	decoded := 0

	for _, cap := range d.pattern.FindAllStringSubmatch(content, -1) {
		code, err := strconv.ParseUint(cap[1], 16, 32)
		if err != nil {
			continue
		}
		r := rune(code)
		if !utf8.ValidRune(r) {
			continue
		}
		result = strings.ReplaceAll(result, cap[0], string(r))
		decoded++
	}

	return Result{
		Success: decoded > 0,
		Output:  result,
		Context: fmt.Sprintf("Decoded %d unicode escapes", decoded),
	}, nil
}

// Matches reports whether this implementation handles kind
func (d *UnicodeDecoder) Matches(kind models.TechniqueKind) bool {
	return kind == models.KindUnicodeEscape
}

// URLDecoder decodes %HH percent-encoding
type URLDecoder struct {
	pattern *regexp.Regexp
}

// NewURLDecoder creates a new URL decoder
func NewURLDecoder() *URLDecoder {
	return &URLDecoder{
		pattern: regexp.MustCompile(`%[0-9A-Fa-f]{2}`),
	}
}

// Name returns the technique name
func (d *URLDecoder) Name() string {
	return "URL Decoder"
}

// CanApply requires at least 3 percent-encoded sequences
func (d *URLDecoder) CanApply(content string) (float64, bool) {
	count := len(d.pattern.FindAllString(content, -1))
	if count < 3 {
		return 0, false
	}
	confidence := float64(count) / 10.0
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence * 0.8, true
}

// Apply decodes each %HH to its byte value
func (d *URLDecoder) Apply(content string) (Result, error) {
	result := content
	decoded := 0

	for _, m := range d.pattern.FindAllString(content, -1) {
		v, err := strconv.ParseUint(m[1:], 16, 8)
		if err != nil {
			continue
		}
		result = strings.ReplaceAll(result, m, string(byte(v)))
		decoded++
	}

	return Result{
		Success: decoded > 0,
		Output:  result,
		Context: fmt.Sprintf("URL decoded %d sequences", decoded),
	}, nil
}

// Matches reports whether this implementation handles kind
func (d *URLDecoder) Matches(kind models.TechniqueKind) bool {
	return kind == models.KindURLEncoding
}

// HTMLEntityDecoder decodes numeric character references and the common
// named entities
type HTMLEntityDecoder struct {
	decimalPattern *regexp.Regexp
	hexPattern     *regexp.Regexp
}

var namedEntities = [][2]string{
	{"&amp;", "&"},
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&quot;", `"`},
	{"&apos;", "'"},
	{"&nbsp;", " "},
}

// NewHTMLEntityDecoder creates a new HTML entity decoder
func NewHTMLEntityDecoder() *HTMLEntityDecoder {
	return &HTMLEntityDecoder{
		decimalPattern: regexp.MustCompile(`&#(\d+);`),
		hexPattern:     regexp.MustCompile(`&#x([0-9a-fA-F]+);`),
	}
}

// Name returns the technique name
func (d *HTMLEntityDecoder) Name() string {
	return "HTML Entity Decoder"
}

// CanApply checks for numeric or named entities
func (d *HTMLEntityDecoder) CanApply(content string) (float64, bool) {
	if d.decimalPattern.MatchString(content) || d.hexPattern.MatchString(content) {
		return 0.85, true
	}
	for _, e := range namedEntities {
		if strings.Contains(content, e[0]) {
			return 0.9, true
		}
	}
	return 0, false
}

// Apply decodes numeric references first, then named entities
func (d *HTMLEntityDecoder) Apply(content string) (Result, error) {
	result := content
	decoded := 0

	for _, cap := range d.decimalPattern.FindAllStringSubmatch(content, -1) {
		code, err := strconv.ParseUint(cap[1], 10, 32)
		if err != nil || !utf8.ValidRune(rune(code)) {
			continue
		}
		result = strings.ReplaceAll(result, cap[0], string(rune(code)))
		decoded++
	}

	for _, cap := range d.hexPattern.FindAllStringSubmatch(content, -1) {
		code, err := strconv.ParseUint(cap[1], 16, 32)
		if err != nil || !utf8.ValidRune(rune(code)) {
			continue
		}
		result = strings.ReplaceAll(result, cap[0], string(rune(code)))
		decoded++
	}

	for _, e := range namedEntities {
		if strings.Contains(result, e[0]) {
			result = strings.ReplaceAll(result, e[0], e[1])
			decoded++
		}
	}

	return Result{
		Success: decoded > 0,
		Output:  result,
		Context: fmt.Sprintf("Decoded %d HTML entities", decoded),
	}, nil
}

// Matches reports whether this implementation handles kind
func (d *HTMLEntityDecoder) Matches(kind models.TechniqueKind) bool {
	return kind == models.KindHTMLEntityEncoding
}
