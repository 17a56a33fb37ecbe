package heuristic

import (
	"math/rand"
	"testing"

	"github.com/IvanShishkin/umbreon/pkg/models"
)

func TestPredictor_CleanVsObfuscated(t *testing.T) {
	p := NewPredictor()

	clean := p.Predict("an entirely ordinary paragraph of readable prose")
	obfuscated := p.Predict(`eval(atob("SGVsbG8gV29ybGQhIFRoaXMgaXMgYSBsb25nZXIgc3RyaW5nLg=="))`)

	if clean.ObfuscationProbability >= obfuscated.ObfuscationProbability {
		t.Errorf("clean probability %v should be below obfuscated %v",
			clean.ObfuscationProbability, obfuscated.ObfuscationProbability)
	}
	if clean.MalwareProbability >= obfuscated.MalwareProbability {
		t.Errorf("clean malware probability %v should be below obfuscated %v",
			clean.MalwareProbability, obfuscated.MalwareProbability)
	}
}

func TestPredictor_TechniqueProbabilities(t *testing.T) {
	p := NewPredictor()

	got := p.Predict("SGVsbG8gV29ybGQhIFRoaXMgaXMgYSBsb25nZXIgc3RyaW5nLg==")

	if got.TechniqueProbabilities[string(models.KindBase64Encoding)] <= 0 {
		t.Error("expected nonzero base64 probability")
	}
	if got.TechniqueProbabilities[string(models.KindPSEncodedCommand)] > 0.2 {
		t.Errorf("PS probability = %v, want near zero for base64-only content",
			got.TechniqueProbabilities[string(models.KindPSEncodedCommand)])
	}
}

func TestPredictor_HighEntropyBinary(t *testing.T) {
	p := NewPredictor()

	data := make([]byte, 4096)
	rand.New(rand.NewSource(7)).Read(data)

	got := p.Predict(string(data))
	if _, ok := got.TechniqueProbabilities[string(models.KindXOREncryption)]; !ok {
		t.Error("expected XOR probability for high-entropy content")
	}
	if _, ok := got.TechniqueProbabilities[string(models.KindBinaryPacked)]; !ok {
		t.Error("expected packed probability for high-entropy binary content")
	}
}
