package deobfuscator

import (
	"sync"

	"go.uber.org/zap"

	"github.com/IvanShishkin/umbreon/internal/config"
	"github.com/IvanShishkin/umbreon/internal/heuristic"
	"github.com/IvanShishkin/umbreon/internal/signatures"
	"github.com/IvanShishkin/umbreon/pkg/models"
)

// Engine is the public face of the deobfuscation pipeline. It is
// stateless beyond its configuration value; every call is a fresh,
// self-contained run, safe for concurrent use.
type Engine struct {
	mu       sync.RWMutex
	cfg      config.Config
	sigs     *signatures.Set
	analyzer *ObfuscationAnalyzer
	chain    *Chain
	logger   *zap.Logger
}

// NewEngine creates an engine with the given configuration and
// signature set
func NewEngine(cfg *config.Config, sigs *signatures.Set, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:    *cfg,
		sigs:   sigs,
		logger: logger,
	}
	e.rebuild()
	return e, nil
}

// rebuild constructs the analyzer and chain from the current config.
// Caller holds the write lock (or is the constructor).
func (e *Engine) rebuild() {
	var predictor *heuristic.Predictor
	if e.cfg.EnableML {
		predictor = heuristic.NewPredictor()
	}
	e.analyzer = NewObfuscationAnalyzer(e.sigs, predictor)
	e.chain = NewChain(e.cfg, e.sigs, e.analyzer, e.logger)
}

// Analyze detects obfuscation techniques without reversing anything
func (e *Engine) Analyze(content string) *models.ObfuscationAnalysis {
	e.mu.RLock()
	analyzer := e.analyzer
	e.mu.RUnlock()

	return analyzer.Analyze(content)
}

// Deobfuscate runs the full pipeline: analysis, then the bounded chain
func (e *Engine) Deobfuscate(content string) (*models.DeobfuscationResult, error) {
	e.mu.RLock()
	analyzer := e.analyzer
	chain := e.chain
	e.mu.RUnlock()

	analysis := analyzer.Analyze(content)

	e.logger.Debug("starting deobfuscation",
		zap.Int("content_size", len(content)),
		zap.Int("techniques_detected", len(analysis.DetectedTechniques)),
		zap.Float64("complexity", analysis.ComplexityScore))

	result, err := chain.Run(content, analysis)
	if err != nil {
		return nil, err
	}

	e.logger.Info("deobfuscation complete",
		zap.Int("layers", result.Metadata.LayersDetected),
		zap.Float64("confidence", result.Confidence),
		zap.Int64("elapsed_ms", result.Metadata.ProcessingTimeMs))

	return result, nil
}

// AnalyzeEntropy returns the entropy feature breakdown for content
func (e *Engine) AnalyzeEntropy(content string) *heuristic.EntropyFeatures {
	return heuristic.AnalyzeEntropy([]byte(content))
}

// ExtractStrings scans content for printable runs
func (e *Engine) ExtractStrings(content string) []models.ExtractedString {
	e.mu.RLock()
	minLength := e.cfg.MinStringLength
	e.mu.RUnlock()

	return heuristic.ExtractStrings(content, minLength)
}

// ExtractIOCs scans content for URLs, IPs and file paths
func (e *Engine) ExtractIOCs(content string) []string {
	return heuristic.ExtractIOCs(content)
}

// Config returns a copy of the current configuration
func (e *Engine) Config() config.Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// UpdateConfig swaps the engine's settings. In-flight calls keep the
// analyzer and chain they started with.
func (e *Engine) UpdateConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = *cfg
	e.rebuild()
	return nil
}

// SupportedTechniques lists every technique kind the engine can detect
func (e *Engine) SupportedTechniques() []models.TechniqueKind {
	return models.AllKinds()
}
