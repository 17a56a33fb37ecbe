package techniques

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/IvanShishkin/umbreon/pkg/models"
)

// JSDeobfuscator rewrites common JavaScript obfuscation patterns:
// string-literal concatenation, fromCharCode calls, single-character
// bracket access chains and Function-constructor wrapping. It is textual
// rewriting, not execution.
type JSDeobfuscator struct {
	evalPattern     *regexp.Regexp
	concatPattern   *regexp.Regexp
	charCodePattern *regexp.Regexp
	arrayPattern    *regexp.Regexp
	funcPattern     *regexp.Regexp
	fingerprints    []*regexp.Regexp
}

// NewJSDeobfuscator creates a new JavaScript deobfuscator
func NewJSDeobfuscator() *JSDeobfuscator {
	return &JSDeobfuscator{
		evalPattern:     regexp.MustCompile(`(?i)eval\s*\(\s*(.+?)\s*\)`),
		concatPattern:   regexp.MustCompile(`["']([^"']+)["']\s*\+\s*["']([^"']+)["']`),
		charCodePattern: regexp.MustCompile(`String\.fromCharCode\s*\(\s*((?:\d+\s*,?\s*)+)\s*\)`),
		arrayPattern:    regexp.MustCompile(`\[["'](\w)["']\](?:\[["'](\w)["']\])+`),
		funcPattern:     regexp.MustCompile(`(?i)Function\s*\(\s*["'](.+?)["']\s*\)`),
		fingerprints: []*regexp.Regexp{
			regexp.MustCompile(`_0x[a-f0-9]+`),
			regexp.MustCompile(`\['\\x[0-9a-f]+'\]`),
			regexp.MustCompile(`atob\s*\(`),
			regexp.MustCompile(`unescape\s*\(`),
			regexp.MustCompile(`parseInt\s*\(.+?,\s*16\s*\)`),
		},
	}
}

// Name returns the technique name
func (d *JSDeobfuscator) Name() string {
	return "JavaScript Deobfuscator"
}

// CanApply accumulates confidence from obfuscation indicators
func (d *JSDeobfuscator) CanApply(content string) (float64, bool) {
	var confidence float64
	indicators := 0

	if d.evalPattern.MatchString(content) {
		confidence += 0.3
		indicators++
	}
	if d.concatPattern.MatchString(content) {
		confidence += 0.2
		indicators++
	}
	if d.charCodePattern.MatchString(content) {
		confidence += 0.3
		indicators++
	}
	for _, fp := range d.fingerprints {
		if fp.MatchString(content) {
			confidence += 0.1
			indicators++
		}
	}

	if indicators == 0 {
		return 0, false
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence, true
}

// foldConcat folds adjacent string-literal concatenation until fixpoint
func (d *JSDeobfuscator) foldConcat(content string) string {
	result := content
	for {
		caps := d.concatPattern.FindStringSubmatch(result)
		if caps == nil {
			break
		}
		combined := `"` + caps[1] + caps[2] + `"`
		result = strings.ReplaceAll(result, caps[0], combined)
	}
	return result
}

// foldCharCodes replaces fromCharCode calls with the joined characters
func (d *JSDeobfuscator) foldCharCodes(content string) string {
	result := content
	for _, cap := range d.charCodePattern.FindAllStringSubmatch(content, -1) {
		var sb strings.Builder
		for _, part := range strings.Split(cap[1], ",") {
			n, err := strconv.ParseUint(strings.TrimSpace(part), 10, 8)
			if err != nil {
				continue
			}
			sb.WriteByte(byte(n))
		}
		if sb.Len() > 0 {
			result = strings.ReplaceAll(result, cap[0], `"`+sb.String()+`"`)
		}
	}
	return result
}

// foldArrayAccess folds chains like ["e"]["v"]["a"]["l"] into a string
func (d *JSDeobfuscator) foldArrayAccess(content string) string {
	result := content
	for _, m := range d.arrayPattern.FindAllString(content, -1) {
		var sb strings.Builder
		for _, part := range strings.Split(m, "][") {
			trimmed := strings.Trim(part, `[]"'`)
			if trimmed != "" {
				sb.WriteByte(trimmed[0])
			}
		}
		if sb.Len() > 0 {
			result = strings.ReplaceAll(result, m, `"`+sb.String()+`"`)
		}
	}
	return result
}

// unwrapFunctionConstructor turns Function("code") into an inline closure
func (d *JSDeobfuscator) unwrapFunctionConstructor(content string) string {
	result := content
	for _, cap := range d.funcPattern.FindAllStringSubmatch(content, -1) {
		result = strings.ReplaceAll(result, cap[0], "(function() { "+cap[1]+" })")
	}
	return result
}

// Apply runs every rewriting pass and reports whether anything changed
func (d *JSDeobfuscator) Apply(content string) (Result, error) {
	result := content

	for _, pass := range []func(string) string{
		d.foldConcat,
		d.foldCharCodes,
		d.foldArrayAccess,
		d.unwrapFunctionConstructor,
	} {
		result = pass(result)
	}

	return Result{
		Success: result != content,
		Output:  result,
		Context: "JavaScript deobfuscation applied",
	}, nil
}

// Matches reports whether this implementation handles kind
func (d *JSDeobfuscator) Matches(kind models.TechniqueKind) bool {
	switch kind {
	case models.KindJSEvalChain,
		models.KindJSObfuscatorIO,
		models.KindJSFunctionConstructor,
		models.KindCharCodeConcat:
		return true
	}
	return false
}

// JSUnpacker recognizes the classic eval(function(p,a,c,k,e,d){...})
// packer. Full reversal needs expression evaluation, which is out of
// scope; the packer is flagged, not unpacked.
type JSUnpacker struct {
	packedPattern *regexp.Regexp
}

// NewJSUnpacker creates a new packed-JS detector
func NewJSUnpacker() *JSUnpacker {
	return &JSUnpacker{
		packedPattern: regexp.MustCompile(
			`eval\s*\(\s*function\s*\(\s*p\s*,\s*a\s*,\s*c\s*,\s*k\s*,?\s*e?\s*,?\s*[dr]?\s*\)`),
	}
}

// Name returns the technique name
func (d *JSUnpacker) Name() string {
	return "JavaScript Unpacker"
}

// CanApply matches the packer signature with high confidence
func (d *JSUnpacker) CanApply(content string) (float64, bool) {
	if d.packedPattern.MatchString(content) {
		return 0.95, true
	}
	return 0, false
}

// Apply flags packed JavaScript without attempting evaluation
func (d *JSUnpacker) Apply(content string) (Result, error) {
	if !d.packedPattern.MatchString(content) {
		return Result{Success: false, Output: content}, nil
	}
	return Result{
		Success: true,
		Output:  "/* DETECTED PACKED JS - Unpacking needed */\n" + content,
		Context: "Detected packed JavaScript",
	}, nil
}

// Matches reports whether this implementation handles kind
func (d *JSUnpacker) Matches(kind models.TechniqueKind) bool {
	return kind == models.KindJSPackedCode
}
