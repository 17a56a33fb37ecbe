package techniques

import (
	"github.com/IvanShishkin/umbreon/pkg/models"
)

// Result is the outcome of one technique application
type Result struct {
	Success bool
	Output  string
	Context string
	// Applied is set when the technique resolved a keyed variant (e.g.
	// the recovered XOR key); the chain records it in the audit trail
	// instead of the bare kind it looked up.
	Applied *models.Technique
}

// Technique is the capability set shared by every reversal strategy.
// Detection (CanApply) must be side-effect-free; application must be
// deterministic for the same input. Implementations hold only compiled
// patterns and constant tables, so they are safe for concurrent reuse.
type Technique interface {
	// Name returns the human-readable technique name
	Name() string

	// CanApply reports whether the technique believes it can reverse
	// content, and with what confidence in [0,1]
	CanApply(content string) (float64, bool)

	// Apply attempts the reversal. Failures are recoverable: the caller
	// skips the technique and continues with others.
	Apply(content string) (Result, error)

	// Matches reports whether this implementation handles the given kind
	Matches(kind models.TechniqueKind) bool
}
