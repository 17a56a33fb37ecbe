package heuristic

import (
	"github.com/IvanShishkin/umbreon/pkg/models"
)

// Predictor derives classifier-style hints from entropy and pattern
// features. It is purely heuristic; the deobfuscation pipeline does not
// depend on its output.
type Predictor struct {
	patterns *PatternDetector
}

// NewPredictor creates a predictor with the built-in pattern sets
func NewPredictor() *Predictor {
	return &Predictor{
		patterns: NewPatternDetector(),
	}
}

// Predict computes obfuscation, per-technique and malware probabilities
func (p *Predictor) Predict(content string) *models.MLPredictions {
	entropy := AnalyzeEntropy([]byte(content))
	features := p.patterns.Detect(content)

	return &models.MLPredictions{
		ObfuscationProbability: p.obfuscationProbability(entropy, features),
		TechniqueProbabilities: p.techniqueProbabilities(entropy, features),
		MalwareProbability:     p.malwareProbability(entropy, features),
	}
}

func (p *Predictor) obfuscationProbability(entropy *EntropyFeatures, features *PatternFeatures) float64 {
	var score float64

	switch {
	case entropy.Global > EntropyHighlyEncoded:
		score += 0.3
	case entropy.Global > 5.0:
		score += 0.2
	}

	if entropy.Variance > 2.0 {
		score += 0.2
	}

	score += features.ObfuscationScore * 0.5

	return clamp01(score)
}

func (p *Predictor) techniqueProbabilities(entropy *EntropyFeatures, features *PatternFeatures) map[string]float64 {
	probs := map[string]float64{
		string(models.KindBase64Encoding):   features.Base64Likelihood,
		string(models.KindHexEncoding):      features.HexLikelihood,
		string(models.KindJSEvalChain):      features.JSScore,
		string(models.KindPSEncodedCommand): features.PSScore,
	}

	if entropy.Global > EntropyEncrypted {
		probs[string(models.KindXOREncryption)] = clamp01((entropy.Global - EntropyEncrypted) / 1.5)
	}
	if entropy.Global > EntropyPacked && entropy.PrintableRatio < 0.5 {
		probs[string(models.KindBinaryPacked)] = clamp01(entropy.Global / 8.0)
	}

	return probs
}

func (p *Predictor) malwareProbability(entropy *EntropyFeatures, features *PatternFeatures) float64 {
	// Suspicious API density is the strongest signal; obfuscation alone
	// is common in legitimate minified code.
	score := features.SuspiciousScore*0.6 + features.ObfuscationScore*0.3
	if entropy.Global > EntropyPacked {
		score += 0.1
	}
	return clamp01(score)
}
