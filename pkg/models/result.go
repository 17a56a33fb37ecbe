package models

// DetectedTechnique pairs a technique with the detector's confidence
type DetectedTechnique struct {
	Technique  Technique `json:"technique"`
	Confidence float64   `json:"confidence"`
}

// ObfuscationAnalysis is the result of running every detector over content.
// It is produced fresh per call and never mutated afterwards.
type ObfuscationAnalysis struct {
	DetectedTechniques []DetectedTechnique `json:"detected_techniques"`
	RecommendedOrder   []Technique         `json:"recommended_order"`
	ComplexityScore    float64             `json:"complexity_score"`
	MLHints            *MLPredictions      `json:"ml_hints,omitempty"`
}

// AppliedTechnique records one successful reversal step. Entries are
// append-only and form an ordered audit trail; Layer values are
// non-decreasing within a trail.
type AppliedTechnique struct {
	Technique  Technique `json:"technique"`
	Confidence float64   `json:"confidence"`
	Layer      int       `json:"layer"`
	Context    string    `json:"context,omitempty"`
}

// DeobfuscationResult is the outcome of one top-level deobfuscation run
type DeobfuscationResult struct {
	Original          string             `json:"original"`
	Deobfuscated      string             `json:"deobfuscated"`
	TechniquesApplied []AppliedTechnique `json:"techniques_applied"`
	Confidence        float64            `json:"confidence"`
	Metadata          Metadata           `json:"metadata"`
}

// Metadata carries per-run measurements and side findings
type Metadata struct {
	EntropyBefore      float64           `json:"entropy_before"`
	EntropyAfter       float64           `json:"entropy_after"`
	LayersDetected     int               `json:"layers_detected"`
	ProcessingTimeMs   int64             `json:"processing_time_ms"`
	SuspiciousPatterns []string          `json:"suspicious_patterns"`
	ExtractedStrings   []ExtractedString `json:"extracted_strings"`
	MLPredictions      *MLPredictions    `json:"ml_predictions,omitempty"`
}

// ExtractedString is a printable substring pulled from intermediate or
// final content
type ExtractedString struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Context    string  `json:"context"`
	Offset     int     `json:"offset"`
}

// MLPredictions holds heuristic classifier hints. Absence of these never
// changes deobfuscation results.
type MLPredictions struct {
	ObfuscationProbability float64            `json:"obfuscation_probability"`
	TechniqueProbabilities map[string]float64 `json:"technique_probabilities"`
	MalwareProbability     float64            `json:"malware_probability"`
}

// StreamingChunk is the per-chunk outcome of the streaming deobfuscator
type StreamingChunk struct {
	Offset int                  `json:"offset"`
	Size   int                  `json:"size"`
	Result *DeobfuscationResult `json:"result,omitempty"`
	Error  string               `json:"error,omitempty"`
}
