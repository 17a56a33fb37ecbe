package report

import (
	"encoding/json"
	"fmt"

	"github.com/IvanShishkin/umbreon/pkg/models"
)

// generateJSON generates a JSON report
func (g *Generator) generateJSON(result *models.DeobfuscationResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}
	return string(data) + "\n", nil
}
