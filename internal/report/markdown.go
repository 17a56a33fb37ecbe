package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/IvanShishkin/umbreon/pkg/models"
)

// generateMarkdown generates a Markdown report
func (g *Generator) generateMarkdown(result *models.DeobfuscationResult) (string, error) {
	var sb strings.Builder

	sb.WriteString("# Umbreon Deobfuscation Report\n\n")

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Input size | %d bytes |\n", len(result.Original)))
	sb.WriteString(fmt.Sprintf("| Output size | %d bytes |\n", len(result.Deobfuscated)))
	sb.WriteString(fmt.Sprintf("| Layers | %d |\n", result.Metadata.LayersDetected))
	sb.WriteString(fmt.Sprintf("| Confidence | %.2f |\n", result.Confidence))
	sb.WriteString(fmt.Sprintf("| Entropy before | %.3f |\n", result.Metadata.EntropyBefore))
	sb.WriteString(fmt.Sprintf("| Entropy after | %.3f |\n", result.Metadata.EntropyAfter))
	sb.WriteString(fmt.Sprintf("| Duration | %s |\n\n",
		FormatDuration(time.Duration(result.Metadata.ProcessingTimeMs)*time.Millisecond)))

	if len(result.TechniquesApplied) > 0 {
		sb.WriteString("## Techniques Applied\n\n")
		sb.WriteString("| Layer | Technique | Confidence | Context |\n")
		sb.WriteString("|-------|-----------|------------|--------|\n")
		for _, at := range result.TechniquesApplied {
			sb.WriteString(fmt.Sprintf("| %d | %s | %.2f | %s |\n",
				at.Layer, at.Technique.Kind.Name(), at.Confidence, at.Context))
		}
		sb.WriteString("\n")
	}

	if len(result.Metadata.SuspiciousPatterns) > 0 {
		sb.WriteString("## Suspicious Patterns\n\n")
		for _, p := range result.Metadata.SuspiciousPatterns {
			sb.WriteString(fmt.Sprintf("- %s\n", p))
		}
		sb.WriteString("\n")
	}

	if len(result.Metadata.ExtractedStrings) > 0 {
		sb.WriteString("## Extracted Strings\n\n")
		for _, es := range result.Metadata.ExtractedStrings {
			sb.WriteString(fmt.Sprintf("- `%s` (offset %d)\n", es.Value, es.Offset))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Deobfuscated Content\n\n")
	sb.WriteString("```\n")
	sb.WriteString(result.Deobfuscated)
	sb.WriteString("\n```\n")

	return sb.String(), nil
}
