package deobfuscator

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/IvanShishkin/umbreon/internal/config"
	"github.com/IvanShishkin/umbreon/internal/heuristic"
	"github.com/IvanShishkin/umbreon/pkg/models"
)

func newTestChain(t *testing.T, cfg config.Config) (*Chain, *ObfuscationAnalyzer) {
	t.Helper()
	sigs := compiledSignatures(t)
	analyzer := NewObfuscationAnalyzer(sigs, nil)
	return NewChain(cfg, sigs, analyzer, zap.NewNop()), analyzer
}

func TestChain_DispatchCoversAllKinds(t *testing.T) {
	chain, _ := newTestChain(t, *config.Default())

	for _, kind := range models.AllKinds() {
		if _, ok := chain.dispatch[kind]; !ok {
			t.Errorf("no implementation registered for %s", kind)
		}
	}
}

func TestChain_Base64Roundtrip(t *testing.T) {
	chain, analyzer := newTestChain(t, *config.Default())

	content := "SGVsbG8gV29ybGQhIFRoaXMgaXMgYSBsb25nZXIgc3RyaW5nLg=="
	result, err := chain.Run(content, analyzer.Analyze(content))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Deobfuscated != "Hello World! This is a longer string." {
		t.Errorf("Deobfuscated = %q", result.Deobfuscated)
	}
	if result.Original != content {
		t.Errorf("Original = %q, want the input preserved", result.Original)
	}
	if len(result.TechniquesApplied) == 0 {
		t.Fatal("TechniquesApplied is empty")
	}
	if result.TechniquesApplied[0].Layer != 0 {
		t.Errorf("first Layer = %d, want 0", result.TechniquesApplied[0].Layer)
	}
	if result.Confidence <= 0.5 {
		t.Errorf("Confidence = %v, want > 0.5", result.Confidence)
	}
	if result.Metadata.LayersDetected < 1 {
		t.Errorf("LayersDetected = %d, want >= 1", result.Metadata.LayersDetected)
	}
	if result.Metadata.EntropyBefore <= 0 {
		t.Errorf("EntropyBefore = %v, want > 0", result.Metadata.EntropyBefore)
	}
}

func TestChain_ZeroMaxLayers(t *testing.T) {
	cfg := *config.Default()
	cfg.MaxLayers = 0
	chain, analyzer := newTestChain(t, cfg)

	content := "SGVsbG8gV29ybGQhIFRoaXMgaXMgYSBsb25nZXIgc3RyaW5nLg=="
	result, err := chain.Run(content, analyzer.Analyze(content))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Deobfuscated != content {
		t.Errorf("Deobfuscated = %q, want original untouched", result.Deobfuscated)
	}
	if len(result.TechniquesApplied) != 0 {
		t.Errorf("TechniquesApplied = %v, want none", result.TechniquesApplied)
	}
	if result.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0", result.Confidence)
	}
}

func TestChain_ZeroBudgetTimesOut(t *testing.T) {
	cfg := *config.Default()
	cfg.TimeoutMs = 0
	chain, analyzer := newTestChain(t, cfg)

	content := "SGVsbG8gV29ybGQhIFRoaXMgaXMgYSBsb25nZXIgc3RyaW5nLg=="
	result, err := chain.Run(content, analyzer.Analyze(content))
	if !errors.Is(err, models.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if result != nil {
		t.Error("result should be nil when the first pass times out")
	}
}

func TestChain_ExtractQuoted(t *testing.T) {
	chain, _ := newTestChain(t, *config.Default())

	extracted := chain.extractQuoted(`x = "longstring"; y = 'abcd'`)
	if len(extracted) != 2 {
		t.Fatalf("extracted %d strings, want 2", len(extracted))
	}
	if extracted[0].Value != "longstring" || extracted[0].Offset != 5 {
		t.Errorf("extracted[0] = %+v", extracted[0])
	}
	if extracted[1].Value != "abcd" || extracted[1].Offset != 23 {
		t.Errorf("extracted[1] = %+v", extracted[1])
	}
	for _, es := range extracted {
		if es.Confidence != 0.8 {
			t.Errorf("Confidence = %v, want 0.8", es.Confidence)
		}
	}

	if got := chain.extractQuoted(`too = 'abc'`); got != nil {
		t.Errorf("short literals should not be extracted, got %v", got)
	}
}

func TestChain_PredictionsDescribeFinalContent(t *testing.T) {
	cfg := *config.Default()
	cfg.MaxLayers = 1
	sigs := compiledSignatures(t)
	analyzer := NewObfuscationAnalyzer(sigs, heuristic.NewPredictor())
	chain := NewChain(cfg, sigs, analyzer, zap.NewNop())

	// base64 wrapping hex escapes; the layer cap ends the run without a
	// final re-analysis
	content := "XHg0OFx4NjVceDZjXHg2Y1x4NmY="
	result, err := chain.Run(content, analyzer.Analyze(content))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Metadata.LayersDetected != 1 {
		t.Fatalf("LayersDetected = %d, want 1", result.Metadata.LayersDetected)
	}

	got := result.Metadata.MLPredictions
	if got == nil {
		t.Fatal("MLPredictions is nil with enable_ml set")
	}
	want := heuristic.NewPredictor().Predict(result.Deobfuscated)
	if got.ObfuscationProbability != want.ObfuscationProbability ||
		got.MalwareProbability != want.MalwareProbability {
		t.Errorf("predictions = %+v, want predictions for the final content %+v", got, want)
	}
}

func TestChain_OverallConfidence(t *testing.T) {
	chain, _ := newTestChain(t, *config.Default())

	if got := chain.overallConfidence(nil, 6.0, 4.0); got != 0 {
		t.Errorf("confidence = %v, want 0 for empty trail", got)
	}

	trail := []models.AppliedTechnique{
		{Confidence: 1.0},
		{Confidence: 0.5},
	}
	// mean 0.75, improvement (6-4.5)/6 = 0.25
	got := chain.overallConfidence(trail, 6.0, 4.5)
	want := 0.7*0.75 + 0.3*0.25
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("confidence = %v, want %v", got, want)
	}
}
