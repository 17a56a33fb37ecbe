package config

import (
	"testing"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.MaxLayers != 10 {
		t.Errorf("MaxLayers = %v, want 10", cfg.MaxLayers)
	}
	if cfg.MinConfidence != 0.3 {
		t.Errorf("MinConfidence = %v, want 0.3", cfg.MinConfidence)
	}
	if cfg.TimeoutMs != 30000 {
		t.Errorf("TimeoutMs = %v, want 30000", cfg.TimeoutMs)
	}
	if !cfg.ExtractStrings {
		t.Error("ExtractStrings should default to true")
	}
	if !cfg.DetectPackers {
		t.Error("DetectPackers should default to true")
	}
	if !cfg.EnableML {
		t.Error("EnableML should default to true")
	}
	if cfg.ChunkSize != 1024*1024 {
		t.Errorf("ChunkSize = %v, want 1 MiB", cfg.ChunkSize)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("UMBREON_MAX_LAYERS", "3")
	t.Setenv("UMBREON_MIN_CONFIDENCE", "0.7")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.MaxLayers != 3 {
		t.Errorf("MaxLayers = %v, want 3", cfg.MaxLayers)
	}
	if cfg.MinConfidence != 0.7 {
		t.Errorf("MinConfidence = %v, want 0.7", cfg.MinConfidence)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "zero max layers is legal",
			mutate:  func(c *Config) { c.MaxLayers = 0 },
			wantErr: false,
		},
		{
			name:    "negative min confidence",
			mutate:  func(c *Config) { c.MinConfidence = -0.1 },
			wantErr: true,
		},
		{
			name:    "min confidence above one",
			mutate:  func(c *Config) { c.MinConfidence = 1.5 },
			wantErr: true,
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.TimeoutMs = 0 },
			wantErr: true,
		},
		{
			name:    "zero min string length",
			mutate:  func(c *Config) { c.MinStringLength = 0 },
			wantErr: true,
		},
		{
			name:    "zero chunk size",
			mutate:  func(c *Config) { c.ChunkSize = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
