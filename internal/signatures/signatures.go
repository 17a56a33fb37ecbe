package signatures

import (
	"bytes"
	"fmt"
	"regexp"
)

// SuspiciousPattern describes one textual indicator scanned for in
// deobfuscated output
type SuspiciousPattern struct {
	ID          string `yaml:"id"`
	Pattern     string `yaml:"pattern"`
	Description string `yaml:"description"`

	compiled *regexp.Regexp
}

// PackerSignature describes byte markers left by a known executable packer
type PackerSignature struct {
	Name       string   `yaml:"name"`
	Markers    []string `yaml:"markers"`
	Confidence float64  `yaml:"confidence"`
}

// Set is a compiled collection of suspicious patterns and packer markers
type Set struct {
	Suspicious []SuspiciousPattern `yaml:"suspicious_patterns"`
	Packers    []PackerSignature   `yaml:"packers"`
}

// Defaults returns the built-in signature set. It mirrors what the YAML
// files under the signatures directory would declare, so deployments
// without a signatures directory still get full coverage.
func Defaults() *Set {
	return &Set{
		Suspicious: []SuspiciousPattern{
			{ID: "script-interpreter", Pattern: `(?i)(powershell|cmd|wscript|cscript|mshta)`, Description: "Script interpreter"},
			{ID: "download-capability", Pattern: `(?i)(download|wget|curl|invoke-webrequest)`, Description: "Download capability"},
			{ID: "code-execution", Pattern: `(?i)(eval|execute|invoke-expression)`, Description: "Code execution"},
			{ID: "registry-manipulation", Pattern: `(?i)(registry|reg\s+add|reg\s+query)`, Description: "Registry manipulation"},
			{ID: "persistence", Pattern: `(?i)(scheduled\s*task|schtasks|at\s+)`, Description: "Persistence mechanism"},
			{ID: "credential-theft", Pattern: `(?i)(mimikatz|lazagne|pwdump)`, Description: "Credential theft tool"},
			{ID: "hex-payload", Pattern: `(?i)(\\x[0-9a-f]{2}){10,}`, Description: "Hex encoded payload"},
			{ID: "base64-decoding", Pattern: `(?i)(frombase64string|convert.*base64)`, Description: "Base64 decoding"},
		},
		Packers: []PackerSignature{
			{Name: "UPX", Markers: []string{"UPX!", "UPX0", "UPX1"}, Confidence: 0.9},
			{Name: "PECompact", Markers: []string{"PEC2", "PECo"}, Confidence: 0.7},
			{Name: "ASPack", Markers: []string{"ASPack"}, Confidence: 0.7},
			{Name: "NSPack", Markers: []string{"NSPack"}, Confidence: 0.7},
			{Name: "MEW", Markers: []string{"MEW"}, Confidence: 0.7},
			{Name: "Themida", Markers: []string{"Themida"}, Confidence: 0.7},
			{Name: "VMProtect", Markers: []string{"VMProtect"}, Confidence: 0.7},
		},
	}
}

// Compile compiles every suspicious pattern; invalid patterns are rejected
// so a bad signature file cannot silently drop coverage
func (s *Set) Compile() error {
	for i := range s.Suspicious {
		re, err := regexp.Compile(s.Suspicious[i].Pattern)
		if err != nil {
			return fmt.Errorf("signature %s: %w", s.Suspicious[i].ID, err)
		}
		s.Suspicious[i].compiled = re
	}
	return nil
}

// ScanSuspicious returns the descriptions of every suspicious pattern that
// matches content
func (s *Set) ScanSuspicious(content string) []string {
	var matched []string
	for i := range s.Suspicious {
		if s.Suspicious[i].compiled != nil && s.Suspicious[i].compiled.MatchString(content) {
			matched = append(matched, s.Suspicious[i].Description)
		}
	}
	return matched
}

// FindPacker scans data for known packer markers and returns the first
// match
func (s *Set) FindPacker(data []byte) (PackerSignature, bool) {
	for _, sig := range s.Packers {
		for _, marker := range sig.Markers {
			if marker != "" && bytes.Contains(data, []byte(marker)) {
				return sig, true
			}
		}
	}
	return PackerSignature{}, false
}
