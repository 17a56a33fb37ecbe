package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/IvanShishkin/umbreon/pkg/models"
)

// generateText generates a plain text report
func (g *Generator) generateText(result *models.DeobfuscationResult) (string, error) {
	var sb strings.Builder

	sb.WriteString("=" + strings.Repeat("=", 78) + "\n")
	sb.WriteString("  UMBREON DEOBFUSCATION REPORT\n")
	sb.WriteString("=" + strings.Repeat("=", 78) + "\n\n")

	sb.WriteString("SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 79) + "\n")
	sb.WriteString(fmt.Sprintf("Input Size:       %d bytes\n", len(result.Original)))
	sb.WriteString(fmt.Sprintf("Output Size:      %d bytes\n", len(result.Deobfuscated)))
	sb.WriteString(fmt.Sprintf("Layers:           %d\n", result.Metadata.LayersDetected))
	sb.WriteString(fmt.Sprintf("Confidence:       %.2f\n", result.Confidence))
	sb.WriteString(fmt.Sprintf("Entropy:          %.3f -> %.3f\n",
		result.Metadata.EntropyBefore, result.Metadata.EntropyAfter))
	sb.WriteString(fmt.Sprintf("Duration:         %s\n",
		FormatDuration(time.Duration(result.Metadata.ProcessingTimeMs)*time.Millisecond)))
	sb.WriteString("\n")

	if len(result.TechniquesApplied) > 0 {
		sb.WriteString("TECHNIQUES APPLIED\n")
		sb.WriteString(strings.Repeat("-", 79) + "\n")
		for _, at := range result.TechniquesApplied {
			sb.WriteString(fmt.Sprintf("  [layer %d] %-32s confidence %.2f\n",
				at.Layer, at.Technique.Kind.Name(), at.Confidence))
			if at.Context != "" {
				sb.WriteString(fmt.Sprintf("            %s\n", at.Context))
			}
		}
		sb.WriteString("\n")
	}

	if len(result.Metadata.SuspiciousPatterns) > 0 {
		sb.WriteString("SUSPICIOUS PATTERNS\n")
		sb.WriteString(strings.Repeat("-", 79) + "\n")
		for _, p := range result.Metadata.SuspiciousPatterns {
			sb.WriteString(fmt.Sprintf("  ! %s\n", p))
		}
		sb.WriteString("\n")
	}

	if len(result.Metadata.ExtractedStrings) > 0 {
		sb.WriteString(fmt.Sprintf("EXTRACTED STRINGS (%d)\n", len(result.Metadata.ExtractedStrings)))
		sb.WriteString(strings.Repeat("-", 79) + "\n")
		for _, es := range result.Metadata.ExtractedStrings {
			value := es.Value
			if len(value) > 60 {
				value = value[:60] + "..."
			}
			sb.WriteString(fmt.Sprintf("  @%-8d %s\n", es.Offset, value))
		}
		sb.WriteString("\n")
	}

	if ml := result.Metadata.MLPredictions; ml != nil {
		sb.WriteString("HEURISTIC PREDICTIONS\n")
		sb.WriteString(strings.Repeat("-", 79) + "\n")
		sb.WriteString(fmt.Sprintf("  Obfuscation probability: %.2f\n", ml.ObfuscationProbability))
		sb.WriteString(fmt.Sprintf("  Malware probability:     %.2f\n", ml.MalwareProbability))
		sb.WriteString("\n")
	}

	sb.WriteString("DEOBFUSCATED CONTENT\n")
	sb.WriteString(strings.Repeat("-", 79) + "\n")
	sb.WriteString(result.Deobfuscated)
	sb.WriteString("\n")

	return sb.String(), nil
}
