package heuristic

import (
	"regexp"
)

// PatternFeatures is the feature vector produced by regex-density scans
type PatternFeatures struct {
	ObfuscationScore float64 `json:"obfuscation_score"`
	Base64Likelihood float64 `json:"base64_likelihood"`
	HexLikelihood    float64 `json:"hex_likelihood"`
	JSScore          float64 `json:"js_score"`
	PSScore          float64 `json:"ps_score"`
	SuspiciousScore  float64 `json:"suspicious_score"`
}

type weightedPattern struct {
	pattern *regexp.Regexp
	weight  float64
}

type categoryPattern struct {
	pattern  *regexp.Regexp
	weight   float64
	category string
}

// PatternDetector computes pattern-density features over text content.
// All regular expressions are compiled once; the detector is safe to share
// across concurrent calls.
type PatternDetector struct {
	base64Pattern *regexp.Regexp
	hexPattern    *regexp.Regexp
	suspicious    []categoryPattern
	jsPatterns    []weightedPattern
	psPatterns    []weightedPattern
}

// NewPatternDetector creates a detector with the built-in pattern sets
func NewPatternDetector() *PatternDetector {
	return &PatternDetector{
		base64Pattern: regexp.MustCompile(`[A-Za-z0-9+/]{20,}={0,2}`),
		hexPattern:    regexp.MustCompile(`\\x[0-9a-fA-F]{2}|0x[0-9a-fA-F]+|[0-9a-fA-F]{8,}`),
		suspicious: []categoryPattern{
			{regexp.MustCompile(`(?i)(eval|execute|invoke)`), 0.3, "code execution"},
			{regexp.MustCompile(`(?i)(download|wget|curl)`), 0.3, "download capability"},
			{regexp.MustCompile(`(?i)(cmd|powershell|bash|sh)`), 0.2, "shell execution"},
			{regexp.MustCompile(`(?i)(password|credential|token)`), 0.2, "credential access"},
			{regexp.MustCompile(`(?i)(registry|reg\s+add)`), 0.2, "registry manipulation"},
			{regexp.MustCompile(`(?i)(schtasks|crontab|systemctl)`), 0.3, "persistence"},
			{regexp.MustCompile(`(?i)(base64|atob|btoa)`), 0.2, "encoding functions"},
			{regexp.MustCompile(`(?i)(encrypt|decrypt|cipher)`), 0.2, "cryptographic operations"},
		},
		jsPatterns: []weightedPattern{
			{regexp.MustCompile(`_0x[a-f0-9]+`), 0.4},
			{regexp.MustCompile(`\['\\x[0-9a-f]+'\]`), 0.3},
			{regexp.MustCompile(`String\.fromCharCode`), 0.3},
			{regexp.MustCompile(`Function\s*\(`), 0.3},
			{regexp.MustCompile(`unescape\s*\(`), 0.2},
			{regexp.MustCompile(`parseInt\s*\(.+?,\s*16\s*\)`), 0.2},
		},
		psPatterns: []weightedPattern{
			{regexp.MustCompile(`(?i)-e(?:nc(?:odedcommand)?)?`), 0.4},
			{regexp.MustCompile(`(?i)invoke-expression|iex`), 0.3},
			{regexp.MustCompile(`(?i)\[convert\]::`), 0.3},
			{regexp.MustCompile(`(?i)-replace`), 0.2},
			{regexp.MustCompile("`"), 0.2},
			{regexp.MustCompile(`(?i)\$env:`), 0.1},
		},
	}
}

// Detect computes the full feature vector for content
func (d *PatternDetector) Detect(content string) *PatternFeatures {
	f := &PatternFeatures{
		Base64Likelihood: d.base64Likelihood(content),
		HexLikelihood:    d.hexLikelihood(content),
		JSScore:          d.jsScore(content),
		PSScore:          d.psScore(content),
		SuspiciousScore:  d.suspiciousScore(content),
	}

	maxScore := f.Base64Likelihood
	for _, s := range []float64{f.HexLikelihood, f.JSScore, f.PSScore} {
		if s > maxScore {
			maxScore = s
		}
	}
	avgScore := (f.Base64Likelihood + f.HexLikelihood + f.JSScore + f.PSScore) / 4.0
	f.ObfuscationScore = clamp01(maxScore*0.7 + avgScore*0.3)

	return f
}

func (d *PatternDetector) base64Likelihood(content string) float64 {
	matches := d.base64Pattern.FindAllString(content, -1)
	if len(matches) == 0 {
		return 0
	}

	totalLen := 0
	validCount := 0
	for _, m := range matches {
		totalLen += len(m)
		if len(m)%4 == 0 || m[len(m)-1] == '=' {
			validCount++
		}
	}

	coverage := float64(totalLen) / float64(len(content))
	validity := float64(validCount) / float64(len(matches))

	return clamp01(coverage * validity * 2.0)
}

func (d *PatternDetector) hexLikelihood(content string) float64 {
	matches := len(d.hexPattern.FindAllString(content, -1))
	if matches == 0 {
		return 0
	}

	density := float64(matches) / (float64(len(content)) / 100.0)
	return clamp01(density)
}

func (d *PatternDetector) jsScore(content string) float64 {
	var score float64
	hits := 0
	for _, wp := range d.jsPatterns {
		if wp.pattern.MatchString(content) {
			score += wp.weight
			hits++
		}
	}
	if hits >= 3 {
		score *= 1.2
	}
	return clamp01(score)
}

func (d *PatternDetector) psScore(content string) float64 {
	var score float64
	for _, wp := range d.psPatterns {
		matches := len(wp.pattern.FindAllString(content, -1))
		if matches > 0 {
			boost := 1.0 + (float64(matches)-1.0)*0.1
			if boost > 2.0 {
				boost = 2.0
			}
			score += wp.weight * boost
		}
	}
	return clamp01(score)
}

func (d *PatternDetector) suspiciousScore(content string) float64 {
	var score float64
	categories := make(map[string]struct{})
	for _, cp := range d.suspicious {
		if cp.pattern.MatchString(content) {
			score += cp.weight
			categories[cp.category] = struct{}{}
		}
	}
	if len(categories) >= 3 {
		score *= 1.3
	}
	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	if v < 0 {
		return 0
	}
	return v
}
