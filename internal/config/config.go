package config

import (
	"github.com/spf13/viper"

	"github.com/IvanShishkin/umbreon/pkg/models"
)

// Config represents the engine configuration
type Config struct {
	// Deobfuscation settings
	MaxLayers      uint32  `mapstructure:"max_layers"`      // maximum reversal layers per run
	MinConfidence  float64 `mapstructure:"min_confidence"`  // minimum detector confidence to apply a technique
	TimeoutMs      uint64  `mapstructure:"timeout_ms"`      // soft wall-clock budget per run
	ExtractStrings bool    `mapstructure:"extract_strings"` // pull printable strings from intermediate content
	DetectPackers  bool    `mapstructure:"detect_packers"`  // scan for binary packer signatures
	EnableML       bool    `mapstructure:"enable_ml"`       // attach heuristic prediction hints

	// Extraction settings
	MinStringLength int `mapstructure:"min_string_length"` // minimum printable run length

	// Streaming settings
	ChunkSize int `mapstructure:"chunk_size"` // streaming buffer threshold in bytes

	// Report settings
	ReportFormat string `mapstructure:"report_format"` // text, json, markdown
	OutputFile   string `mapstructure:"output_file"`   // output file path

	// Signature settings
	SignaturesPath string `mapstructure:"signatures_path"` // path to signatures directory
}

// LoadConfig loads configuration from environment variables and defaults
func LoadConfig() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("max_layers", 10)
	v.SetDefault("min_confidence", 0.3)
	v.SetDefault("timeout_ms", 30000)
	v.SetDefault("extract_strings", true)
	v.SetDefault("detect_packers", true)
	v.SetDefault("enable_ml", true)
	v.SetDefault("min_string_length", 4)
	v.SetDefault("chunk_size", 1024*1024)
	v.SetDefault("report_format", "text")
	v.SetDefault("signatures_path", "configs/signatures")

	// Read environment variables
	v.SetEnvPrefix("UMBREON")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects out-of-range values at configuration time rather than
// at call time. MaxLayers of zero is legal: it disables reversal and a
// run returns the original content untouched.
func (c *Config) Validate() error {
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return &models.InvalidConfigError{Field: "min_confidence", Reason: "must be in [0,1]"}
	}
	if c.TimeoutMs == 0 {
		return &models.InvalidConfigError{Field: "timeout_ms", Reason: "must be positive"}
	}
	if c.MinStringLength < 1 {
		return &models.InvalidConfigError{Field: "min_string_length", Reason: "must be at least 1"}
	}
	if c.ChunkSize < 1 {
		return &models.InvalidConfigError{Field: "chunk_size", Reason: "must be positive"}
	}
	return nil
}

// Default returns the built-in configuration without consulting the
// environment
func Default() *Config {
	return &Config{
		MaxLayers:       10,
		MinConfidence:   0.3,
		TimeoutMs:       30000,
		ExtractStrings:  true,
		DetectPackers:   true,
		EnableML:        true,
		MinStringLength: 4,
		ChunkSize:       1024 * 1024,
		ReportFormat:    "text",
		SignaturesPath:  "configs/signatures",
	}
}
