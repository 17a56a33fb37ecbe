package techniques

import (
	"encoding/base64"
	"regexp"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/IvanShishkin/umbreon/pkg/models"
)

// psCmdlets get their casing normalized so downstream pattern matching
// sees canonical names
var psCmdlets = []string{
	"Invoke-Expression", "Invoke-WebRequest", "Invoke-RestMethod",
	"Start-Process", "New-Object", "Get-Content", "Set-Content",
	"Add-Content", "Out-File", "Invoke-Command", "Start-BitsTransfer",
	"DownloadString", "DownloadFile",
}

// PSDeobfuscator reverses PowerShell obfuscation: -EncodedCommand
// payloads, backtick escapes, scrambled cmdlet casing, string
// concatenation and -replace chains.
type PSDeobfuscator struct {
	encodedPattern  *regexp.Regexp
	concatPattern   *regexp.Regexp
	replacePattern  *regexp.Regexp
	compressPattern *regexp.Regexp
	keywords        []string
}

// NewPSDeobfuscator creates a new PowerShell deobfuscator
func NewPSDeobfuscator() *PSDeobfuscator {
	return &PSDeobfuscator{
		encodedPattern:  regexp.MustCompile(`(?i)-e(?:nc(?:odedcommand)?)?\s+([A-Za-z0-9+/=]+)`),
		concatPattern:   regexp.MustCompile(`['"]([^'"]*)['"]\s*\+\s*['"]([^'"]*)['"]`),
		replacePattern:  regexp.MustCompile(`(?i)-replace\s+['"]([^'"]+)['"]\s*,\s*['"]([^'"]*)['"]`),
		compressPattern: regexp.MustCompile(`(?i)System\.IO\.Compression|GzipStream|DeflateStream`),
		keywords: []string{
			"iex", "invoke-expression", "downloadstring", "frombase64string",
			"bypass", "hidden", "noprofile",
		},
	}
}

// Name returns the technique name
func (d *PSDeobfuscator) Name() string {
	return "PowerShell Deobfuscator"
}

// CanApply accumulates confidence from PowerShell obfuscation markers
func (d *PSDeobfuscator) CanApply(content string) (float64, bool) {
	lower := strings.ToLower(content)
	var confidence float64

	if d.encodedPattern.MatchString(content) {
		confidence += 0.4
	}
	if d.compressPattern.MatchString(content) {
		confidence += 0.3
	}
	if d.replacePattern.MatchString(content) {
		confidence += 0.2
	}
	if strings.Contains(content, "`") && strings.Contains(lower, "invoke") {
		confidence += 0.2
	}
	for _, kw := range d.keywords {
		if strings.Contains(lower, kw) {
			confidence += 0.1
		}
	}

	if confidence == 0 {
		return 0, false
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence, true
}

// decodeUTF16LE interprets data as UTF-16LE, the encoding PowerShell
// uses for -EncodedCommand payloads
func decodeUTF16LE(data []byte) (string, bool) {
	if len(data) < 2 || len(data)%2 != 0 {
		return "", false
	}
	units := make([]uint16, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		units = append(units, uint16(data[i])|uint16(data[i+1])<<8)
	}
	decoded := string(utf16.Decode(units))
	if !utf8.ValidString(decoded) || decoded == "" {
		return "", false
	}
	return decoded, true
}

// decodeEncodedCommands expands every -EncodedCommand payload in place
func (d *PSDeobfuscator) decodeEncodedCommands(content string) (string, bool) {
	result := content
	changed := false

	for _, cap := range d.encodedPattern.FindAllStringSubmatch(content, -1) {
		raw, err := base64.StdEncoding.DecodeString(cap[1])
		if err != nil {
			continue
		}
		decoded, ok := decodeUTF16LE(raw)
		if !ok {
			// Some droppers base64 plain UTF-8 instead
			if !utf8.Valid(raw) {
				continue
			}
			decoded = string(raw)
		}
		result = strings.ReplaceAll(result, cap[0], decoded)
		changed = true
	}

	return result, changed
}

// normalizeCmdlets restores canonical cmdlet casing
func (d *PSDeobfuscator) normalizeCmdlets(content string) string {
	result := content
	lower := strings.ToLower(content)
	for _, cmdlet := range psCmdlets {
		target := strings.ToLower(cmdlet)
		idx := 0
		for {
			pos := strings.Index(lower[idx:], target)
			if pos < 0 {
				break
			}
			pos += idx
			result = result[:pos] + cmdlet + result[pos+len(cmdlet):]
			idx = pos + len(cmdlet)
		}
	}
	return result
}

// foldConcat folds adjacent string-literal concatenation until fixpoint
func (d *PSDeobfuscator) foldConcat(content string) string {
	result := content
	for {
		caps := d.concatPattern.FindStringSubmatch(result)
		if caps == nil {
			break
		}
		result = strings.ReplaceAll(result, caps[0], `'`+caps[1]+caps[2]+`'`)
	}
	return result
}

// annotateReplaceChains marks -replace transformations so the analyst
// sees what the script rewrites at runtime
func (d *PSDeobfuscator) annotateReplaceChains(content string) string {
	return d.replacePattern.ReplaceAllString(content, "/* replaces '$1' with '$2' */")
}

// Apply strips escapes and decodes payloads. Decoded -EncodedCommand
// output runs through the textual passes again since nested encoding is
// common.
func (d *PSDeobfuscator) Apply(content string) (Result, error) {
	result := content

	result, decodedPayload := d.decodeEncodedCommands(result)
	result = strings.ReplaceAll(result, "`", "")
	result = d.normalizeCmdlets(result)
	result = d.foldConcat(result)
	result = d.annotateReplaceChains(result)

	if decodedPayload {
		// Payloads frequently carry their own escapes and concatenation
		result = strings.ReplaceAll(result, "`", "")
		result = d.normalizeCmdlets(result)
		result = d.foldConcat(result)
	}

	return Result{
		Success: result != content,
		Output:  result,
		Context: "PowerShell deobfuscation applied",
	}, nil
}

// Matches reports whether this implementation handles kind
func (d *PSDeobfuscator) Matches(kind models.TechniqueKind) bool {
	switch kind {
	case models.KindPSEncodedCommand,
		models.KindPSCompressed,
		models.KindPSStringReplace,
		models.KindPSInvokeExpression:
		return true
	}
	return false
}
