package report

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/IvanShishkin/umbreon/internal/config"
	"github.com/IvanShishkin/umbreon/pkg/models"
)

// FormatDuration formats duration to a human-readable string with max 2 decimal places
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.2fms", float64(d.Nanoseconds())/1e6)
	} else if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	mins := int(d.Minutes())
	secs := d.Seconds() - float64(mins*60)
	return fmt.Sprintf("%dm%.2fs", mins, secs)
}

// Generator renders deobfuscation results in various formats
type Generator struct {
	config *config.Config
	logger *zap.Logger
}

// NewGenerator creates a new report generator
func NewGenerator(cfg *config.Config, logger *zap.Logger) *Generator {
	return &Generator{
		config: cfg,
		logger: logger,
	}
}

// Generate renders result in the configured format, writing to the
// configured output file or stdout
func (g *Generator) Generate(result *models.DeobfuscationResult) error {
	var (
		content string
		err     error
	)

	switch g.config.ReportFormat {
	case "json":
		content, err = g.generateJSON(result)
	case "markdown", "md":
		content, err = g.generateMarkdown(result)
	case "text", "":
		content, err = g.generateText(result)
	default:
		return fmt.Errorf("unknown report format: %s", g.config.ReportFormat)
	}
	if err != nil {
		return err
	}

	return g.write(content)
}

func (g *Generator) write(content string) error {
	if g.config.OutputFile == "" {
		fmt.Print(content)
		return nil
	}

	if err := os.WriteFile(g.config.OutputFile, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	g.logger.Info("report written", zap.String("file", g.config.OutputFile))
	return nil
}
