package heuristic

import (
	"strings"
	"testing"
)

func TestPatternDetector_Detect(t *testing.T) {
	d := NewPatternDetector()

	tests := []struct {
		name    string
		content string
		check   func(t *testing.T, f *PatternFeatures)
	}{
		{
			name:    "clean text",
			content: "nothing interesting going on here at all",
			check: func(t *testing.T, f *PatternFeatures) {
				if f.ObfuscationScore != 0 {
					t.Errorf("ObfuscationScore = %v, want 0", f.ObfuscationScore)
				}
			},
		},
		{
			name:    "base64 heavy",
			content: "SGVsbG8gV29ybGQhIFRoaXMgaXMgYSBsb25nZXIgc3RyaW5nLg==",
			check: func(t *testing.T, f *PatternFeatures) {
				if f.Base64Likelihood < 0.9 {
					t.Errorf("Base64Likelihood = %v, want >= 0.9 for pure base64", f.Base64Likelihood)
				}
				if f.ObfuscationScore < 0.5 {
					t.Errorf("ObfuscationScore = %v, want >= 0.5", f.ObfuscationScore)
				}
			},
		},
		{
			name:    "obfuscated javascript",
			content: `var _0x1a2b = String.fromCharCode(104,105); Function('return ' + unescape('%68%69'))();`,
			check: func(t *testing.T, f *PatternFeatures) {
				if f.JSScore < 0.5 {
					t.Errorf("JSScore = %v, want >= 0.5", f.JSScore)
				}
			},
		},
		{
			name:    "powershell markers",
			content: "powershell -enc SQBFAFgA -replace 'a','b' `echo $env:TEMP",
			check: func(t *testing.T, f *PatternFeatures) {
				if f.PSScore < 0.5 {
					t.Errorf("PSScore = %v, want >= 0.5", f.PSScore)
				}
			},
		},
		{
			name:    "suspicious api mix",
			content: "eval(download('http://x')); powershell schtasks /create; base64 decrypt password",
			check: func(t *testing.T, f *PatternFeatures) {
				if f.SuspiciousScore < 0.8 {
					t.Errorf("SuspiciousScore = %v, want >= 0.8 for multi-category hit", f.SuspiciousScore)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, d.Detect(tt.content))
		})
	}
}

func TestPatternDetector_HexDensity(t *testing.T) {
	d := NewPatternDetector()

	dense := strings.Repeat(`\x41\x42 `, 20)
	sparse := strings.Repeat("plain words here ", 50) + `\x41`

	if d.Detect(dense).HexLikelihood <= d.Detect(sparse).HexLikelihood {
		t.Error("dense hex content should score higher than sparse")
	}
}

func TestClamp01(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.4, 0.4},
		{1.0, 1.0},
		{3.7, 1.0},
	}

	for _, tt := range tests {
		if got := clamp01(tt.in); got != tt.want {
			t.Errorf("clamp01(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
