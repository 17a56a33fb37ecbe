package deobfuscator

import (
	"regexp"
	"sort"

	"github.com/IvanShishkin/umbreon/internal/deobfuscator/techniques"
	"github.com/IvanShishkin/umbreon/internal/heuristic"
	"github.com/IvanShishkin/umbreon/internal/signatures"
	"github.com/IvanShishkin/umbreon/pkg/models"
)

// techniquePriority orders detected techniques for application. Lower
// numbers run earlier: outer textual encodings first, ciphers and
// script rewriting after.
var techniquePriority = map[models.TechniqueKind]int{
	models.KindURLEncoding:      1,
	models.KindBase64Encoding:   2,
	models.KindHexEncoding:      3,
	models.KindUnicodeEscape:    4,
	models.KindCharCodeConcat:   5,
	models.KindXOREncryption:    6,
	models.KindJSEvalChain:      7,
	models.KindPSEncodedCommand: 8,
}

const unknownPriority = 99

// detector pairs a technique kind with its detection rule
type detector struct {
	kind   models.TechniqueKind
	detect func(content string) (float64, bool)
}

// ObfuscationAnalyzer runs every technique detector over content and
// derives an application order and a complexity score
type ObfuscationAnalyzer struct {
	detectors       []detector
	base64Pattern   *regexp.Regexp
	hexPattern      *regexp.Regexp
	unicodePattern  *regexp.Regexp
	urlPattern      *regexp.Regexp
	charCodePattern *regexp.Regexp
	evalPattern     *regexp.Regexp
	predictor       *heuristic.Predictor
}

// NewObfuscationAnalyzer creates an analyzer backed by the given
// signature set. predictor may be nil, in which case analyses carry no
// ML hints.
func NewObfuscationAnalyzer(sigs *signatures.Set, predictor *heuristic.Predictor) *ObfuscationAnalyzer {
	a := &ObfuscationAnalyzer{
		base64Pattern:   regexp.MustCompile(`[A-Za-z0-9+/]{20,}={0,2}`),
		hexPattern:      regexp.MustCompile(`\\x[0-9a-fA-F]{2}|0x[0-9a-fA-F]{2}\b|[0-9a-fA-F]{8,}`),
		unicodePattern:  regexp.MustCompile(`\\u[0-9a-fA-F]{4}`),
		urlPattern:      regexp.MustCompile(`%[0-9A-Fa-f]{2}`),
		charCodePattern: regexp.MustCompile(`fromCharCode\s*\(\s*\d+\s*(?:,\s*\d+\s*){2,}\)`),
		evalPattern:     regexp.MustCompile(`(?i)eval\s*\(`),
		predictor:       predictor,
	}

	xor := techniques.NewXORDecryptor()
	rc4 := techniques.NewRC4Decryptor()
	ps := techniques.NewPSDeobfuscator()
	binary := techniques.NewBinaryUnpacker(sigs)

	a.detectors = []detector{
		{models.KindURLEncoding, a.detectURL},
		{models.KindBase64Encoding, a.detectBase64},
		{models.KindHexEncoding, a.detectHex},
		{models.KindUnicodeEscape, a.detectUnicode},
		{models.KindCharCodeConcat, a.detectCharCode},
		{models.KindXOREncryption, xor.CanApply},
		{models.KindRC4Encryption, rc4.CanApply},
		{models.KindJSEvalChain, a.detectEval},
		{models.KindPSEncodedCommand, ps.CanApply},
		{models.KindBinaryPacked, binary.CanApply},
	}

	return a
}

func (a *ObfuscationAnalyzer) detectBase64(content string) (float64, bool) {
	matches := a.base64Pattern.FindAllString(content, -1)
	if len(matches) == 0 || len(content) == 0 {
		return 0, false
	}
	total := 0
	for _, m := range matches {
		total += len(m)
	}
	coverage := float64(total) / float64(len(content))
	confidence := 2 * coverage
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence, true
}

func (a *ObfuscationAnalyzer) detectHex(content string) (float64, bool) {
	if a.hexPattern.MatchString(content) {
		return 0.8, true
	}
	return 0, false
}

func (a *ObfuscationAnalyzer) detectUnicode(content string) (float64, bool) {
	count := len(a.unicodePattern.FindAllString(content, -1))
	if count == 0 {
		return 0, false
	}
	confidence := float64(count) / 10.0
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence * 0.9, true
}

func (a *ObfuscationAnalyzer) detectURL(content string) (float64, bool) {
	count := len(a.urlPattern.FindAllString(content, -1))
	if count < 5 {
		return 0, false
	}
	confidence := float64(count) / 20.0
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence * 0.8, true
}

func (a *ObfuscationAnalyzer) detectCharCode(content string) (float64, bool) {
	if a.charCodePattern.MatchString(content) {
		return 0.95, true
	}
	return 0, false
}

func (a *ObfuscationAnalyzer) detectEval(content string) (float64, bool) {
	if a.evalPattern.MatchString(content) {
		return 0.7, true
	}
	return 0, false
}

// Analyze runs every detector once and assembles the full analysis
func (a *ObfuscationAnalyzer) Analyze(content string) *models.ObfuscationAnalysis {
	var detected []models.DetectedTechnique

	for _, d := range a.detectors {
		if confidence, ok := d.detect(content); ok && confidence > 0 {
			detected = append(detected, models.DetectedTechnique{
				Technique:  models.Technique{Kind: d.kind},
				Confidence: confidence,
			})
		}
	}

	sort.SliceStable(detected, func(i, j int) bool {
		return detected[i].Confidence > detected[j].Confidence
	})

	order := make([]models.Technique, 0, len(detected))
	for _, dt := range detected {
		order = append(order, dt.Technique)
	}
	sort.SliceStable(order, func(i, j int) bool {
		return priorityOf(order[i].Kind) < priorityOf(order[j].Kind)
	})

	analysis := &models.ObfuscationAnalysis{
		DetectedTechniques: detected,
		RecommendedOrder:   order,
		ComplexityScore:    a.complexityScore(content, detected),
	}
	if a.predictor != nil {
		analysis.MLHints = a.predictor.Predict(content)
	}
	return analysis
}

func priorityOf(kind models.TechniqueKind) int {
	if p, ok := techniquePriority[kind]; ok {
		return p
	}
	return unknownPriority
}

// complexityScore blends mean detector confidence with the entropy level
func (a *ObfuscationAnalyzer) complexityScore(content string, detected []models.DetectedTechnique) float64 {
	if len(detected) == 0 {
		return 0
	}

	sum := 0.0
	for _, dt := range detected {
		sum += dt.Confidence
	}
	mean := sum / float64(len(detected))

	entropyPart := heuristic.CalculateEntropy([]byte(content)) / 8.0
	if entropyPart > 1.0 {
		entropyPart = 1.0
	}

	score := 0.7*mean + 0.3*entropyPart
	if score > 1.0 {
		score = 1.0
	}
	return score
}
