package deobfuscator

import (
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/IvanShishkin/umbreon/internal/config"
	"github.com/IvanShishkin/umbreon/internal/deobfuscator/techniques"
	"github.com/IvanShishkin/umbreon/internal/heuristic"
	"github.com/IvanShishkin/umbreon/internal/signatures"
	"github.com/IvanShishkin/umbreon/pkg/models"
)

// Chain applies techniques iteratively in the analyzer's recommended
// order, re-analyzing its own output after each productive pass. Layer
// count and wall clock bound the run; a single pass with no progress
// ends it.
type Chain struct {
	cfg      config.Config
	analyzer *ObfuscationAnalyzer
	dispatch map[models.TechniqueKind]techniques.Technique
	sigs     *signatures.Set
	logger   *zap.Logger

	quotedPattern *regexp.Regexp
}

// NewChain builds the chain and its kind-to-implementation dispatch
// table. Every declared kind gets a handler here; a kind without one is
// a wiring bug and shows up immediately in tests.
func NewChain(cfg config.Config, sigs *signatures.Set, analyzer *ObfuscationAnalyzer, logger *zap.Logger) *Chain {
	impls := []techniques.Technique{
		techniques.NewBase64Decoder(),
		techniques.NewHexDecoder(),
		techniques.NewUnicodeDecoder(),
		techniques.NewURLDecoder(),
		techniques.NewHTMLEntityDecoder(),
		techniques.NewXORDecryptor(),
		techniques.NewRC4Decryptor(),
		techniques.NewJSDeobfuscator(),
		techniques.NewJSUnpacker(),
		techniques.NewPSDeobfuscator(),
	}
	if cfg.DetectPackers {
		impls = append(impls, techniques.NewBinaryUnpacker(sigs))
	}

	dispatch := make(map[models.TechniqueKind]techniques.Technique)
	for _, kind := range models.AllKinds() {
		for _, impl := range impls {
			if impl.Matches(kind) {
				dispatch[kind] = impl
				break
			}
		}
	}

	return &Chain{
		cfg:           cfg,
		analyzer:      analyzer,
		dispatch:      dispatch,
		sigs:          sigs,
		logger:        logger,
		quotedPattern: regexp.MustCompile(`["']([^"']{4,})["']`),
	}
}

// Run deobfuscates content following the given analysis. It returns
// models.ErrTimeout only when the budget expires before any productive
// pass completes; later passes keep the partial result instead.
func (c *Chain) Run(content string, analysis *models.ObfuscationAnalysis) (*models.DeobfuscationResult, error) {
	start := time.Now()
	budget := time.Duration(c.cfg.TimeoutMs) * time.Millisecond

	entropyBefore := heuristic.CalculateEntropy([]byte(content))

	current := content
	layer := 0
	var trail []models.AppliedTechnique
	var extracted []models.ExtractedString
	timedOut := false

passes:
	for pass := 0; ; pass++ {
		passStart := layer

		for _, tech := range analysis.RecommendedOrder {
			if uint32(layer) >= c.cfg.MaxLayers {
				break
			}

			impl, ok := c.dispatch[tech.Kind]
			if !ok {
				c.logger.Warn("no implementation for technique", zap.String("kind", string(tech.Kind)))
				continue
			}

			confidence, applicable := impl.CanApply(current)
			if applicable && confidence >= c.cfg.MinConfidence {
				result, err := impl.Apply(current)
				if err != nil {
					// Technique failures are recoverable; continue with the rest
					c.logger.Debug("technique failed",
						zap.String("technique", impl.Name()),
						zap.Error(err))
				} else if result.Success && result.Output != current {
					if c.cfg.ExtractStrings {
						extracted = append(extracted, c.extractQuoted(result.Output)...)
					}
					applied := tech
					if result.Applied != nil {
						applied = *result.Applied
					}
					trail = append(trail, models.AppliedTechnique{
						Technique:  applied,
						Confidence: confidence,
						Layer:      layer,
						Context:    result.Context,
					})
					current = result.Output
					layer++
				}
			}

			// Cooperative check between steps only; a technique's own work
			// is not preemptible
			if time.Since(start) > budget {
				if pass == 0 {
					return nil, models.ErrTimeout
				}
				timedOut = true
				break passes
			}
		}

		if layer == passStart || uint32(layer) >= c.cfg.MaxLayers {
			break
		}

		analysis = c.analyzer.Analyze(current)
		if len(analysis.DetectedTechniques) == 0 {
			break
		}
	}

	if timedOut {
		c.logger.Debug("timeout during re-analysis pass, keeping partial result",
			zap.Int("layers", layer))
	}

	entropyAfter := heuristic.CalculateEntropy([]byte(current))

	metadata := models.Metadata{
		EntropyBefore:      entropyBefore,
		EntropyAfter:       entropyAfter,
		LayersDetected:     layer,
		ProcessingTimeMs:   time.Since(start).Milliseconds(),
		SuspiciousPatterns: c.sigs.ScanSuspicious(current),
		ExtractedStrings:   extracted,
	}
	// Hints must describe the final output, not whatever intermediate
	// content the last re-analysis saw
	if c.cfg.EnableML && c.analyzer.predictor != nil {
		metadata.MLPredictions = c.analyzer.predictor.Predict(current)
	}

	return &models.DeobfuscationResult{
		Original:          content,
		Deobfuscated:      current,
		TechniquesApplied: trail,
		Confidence:        c.overallConfidence(trail, entropyBefore, entropyAfter),
		Metadata:          metadata,
	}, nil
}

// extractQuoted pulls quoted string literals out of freshly decoded
// content; these frequently hold the payload's real strings
func (c *Chain) extractQuoted(content string) []models.ExtractedString {
	var out []models.ExtractedString
	for _, idx := range c.quotedPattern.FindAllStringSubmatchIndex(content, -1) {
		out = append(out, models.ExtractedString{
			Value:      content[idx[2]:idx[3]],
			Confidence: 0.8,
			Context:    "Quoted string",
			Offset:     idx[2],
		})
	}
	return out
}

// overallConfidence blends mean applied-technique confidence with the
// observed entropy drop
func (c *Chain) overallConfidence(trail []models.AppliedTechnique, before, after float64) float64 {
	if len(trail) == 0 {
		return 0
	}

	sum := 0.0
	for _, at := range trail {
		sum += at.Confidence
	}
	mean := sum / float64(len(trail))

	improvement := 0.0
	if before > 0 && before > after {
		improvement = (before - after) / before
	}

	confidence := 0.7*mean + 0.3*improvement
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}
