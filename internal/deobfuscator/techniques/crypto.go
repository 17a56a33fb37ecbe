package techniques

import (
	"crypto/rc4"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/IvanShishkin/umbreon/internal/heuristic"
	"github.com/IvanShishkin/umbreon/pkg/models"
)

// commonXORKeys are single-byte keys seen in commodity malware, tried
// before falling back to brute force
var commonXORKeys = []byte{
	0x00, 0x01, 0x13, 0x37, 0x42, 0x69, 0xAA, 0xCC, 0xDD, 0xEE, 0xFF,
	0x12, 0x34, 0x56, 0x78, 0x9A, 0xBC, 0xDE, 0xF0,
}

// commonTokens guard the XOR brute force against false positives: a
// candidate key is only accepted if the plaintext contains one of these
var commonTokens = []string{
	"the", "and", "is", "in", "to", "of", "var", "function", "return",
}

// XORDecryptor recovers single-byte XOR encryption
type XORDecryptor struct{}

// NewXORDecryptor creates a new XOR decryptor
func NewXORDecryptor() *XORDecryptor {
	return &XORDecryptor{}
}

// Name returns the technique name
func (d *XORDecryptor) Name() string {
	return "XOR Decryptor"
}

func xorBytes(data []byte, key byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ key
	}
	return out
}

// scoreCandidate rates a decryption candidate. Printable ratio alone is
// ambiguous: several keys can map text onto the printable range, so a
// recognizable token earns a bonus that lets the real plaintext win.
func scoreCandidate(plain []byte) float64 {
	ratio := heuristic.PrintableRatio(plain)
	if ratio <= 0.7 {
		return 0
	}
	text := string(plain)
	for _, token := range commonTokens {
		if strings.Contains(text, token) {
			return ratio + 0.25
		}
	}
	return ratio
}

// detectKey tries the common-key list first, then brute-forces all 256
// byte values when the input is long enough. Brute-force candidates must
// produce a recognizable token to be accepted.
func (d *XORDecryptor) detectKey(data []byte) (byte, float64, bool) {
	var bestKey byte
	bestScore := 0.0
	found := false

	for _, key := range commonXORKeys {
		score := scoreCandidate(xorBytes(data, key))
		if score > 0 && score > bestScore {
			bestScore = score
			bestKey = key
			found = true
		}
	}

	if len(data) > 50 {
		for k := 0; k < 256; k++ {
			plain := xorBytes(data, byte(k))
			score := scoreCandidate(plain)
			// Brute-force hits need the token bonus to count
			if score <= 1.0 || score <= bestScore {
				continue
			}
			bestScore = score
			bestKey = byte(k)
			found = true
		}
	}

	return bestKey, bestScore, found
}

// CanApply only attempts XOR when global entropy suggests encryption
func (d *XORDecryptor) CanApply(content string) (float64, bool) {
	data := []byte(content)

	if heuristic.CalculateEntropy(data) <= heuristic.EntropyHighlyEncoded {
		return 0, false
	}

	if _, score, ok := d.detectKey(data); ok {
		confidence := score * 0.9
		if confidence > 1.0 {
			confidence = 1.0
		}
		return confidence, true
	}
	return 0, false
}

// Apply decrypts with the detected key and records it in the trail
func (d *XORDecryptor) Apply(content string) (Result, error) {
	data := []byte(content)

	key, _, ok := d.detectKey(data)
	if !ok {
		return Result{}, &models.DecodeError{Technique: d.Name(), Reason: "no suitable XOR key found"}
	}

	plain := xorBytes(data, key)
	if !utf8.Valid(plain) {
		return Result{}, &models.DecodeError{Technique: d.Name(), Reason: "XOR result is not valid text"}
	}

	return Result{
		Success: true,
		Output:  string(plain),
		Context: fmt.Sprintf("XOR decrypted with key 0x%02X", key),
		Applied: &models.Technique{Kind: models.KindXOREncryption, Key: []byte{key}},
	}, nil
}

// Matches reports whether this implementation handles kind
func (d *XORDecryptor) Matches(kind models.TechniqueKind) bool {
	return kind == models.KindXOREncryption
}

// commonRC4Keys is the dictionary tried against suspected RC4 ciphertext
var commonRC4Keys = []string{
	"key", "password", "secret", "malware", "infected",
	"encrypt", "decode", "1234567890", "qwerty",
}

// RC4Decryptor mounts a dictionary attack against RC4-encrypted content
type RC4Decryptor struct{}

// NewRC4Decryptor creates a new RC4 decryptor
func NewRC4Decryptor() *RC4Decryptor {
	return &RC4Decryptor{}
}

// Name returns the technique name
func (d *RC4Decryptor) Name() string {
	return "RC4 Decryptor"
}

// tryCommonKeys returns the first key whose plaintext is mostly printable
func (d *RC4Decryptor) tryCommonKeys(data []byte) (string, []byte, bool) {
	for _, key := range commonRC4Keys {
		cipher, err := rc4.NewCipher([]byte(key))
		if err != nil {
			continue
		}
		plain := make([]byte, len(data))
		cipher.XORKeyStream(plain, data)

		if heuristic.PrintableRatio(plain) > 0.8 {
			return key, plain, true
		}
	}
	return "", nil, false
}

// CanApply requires stream-cipher-level entropy and enough data for the
// printable-ratio check to be meaningful
func (d *RC4Decryptor) CanApply(content string) (float64, bool) {
	data := []byte(content)

	if heuristic.CalculateEntropy(data) <= heuristic.EntropyEncrypted || len(data) <= 50 {
		return 0, false
	}

	if _, _, ok := d.tryCommonKeys(data); ok {
		return 0.8, true
	}
	// High entropy alone is weak evidence without a successful decrypt
	return 0.3, true
}

// Apply decrypts with the first dictionary key that yields readable text
func (d *RC4Decryptor) Apply(content string) (Result, error) {
	data := []byte(content)

	key, plain, ok := d.tryCommonKeys(data)
	if !ok {
		return Result{}, &models.DecodeError{Technique: d.Name(), Reason: "no common RC4 key matched"}
	}

	return Result{
		Success: true,
		Output:  string(plain),
		Context: fmt.Sprintf("RC4 decrypted with key %q", key),
	}, nil
}

// Matches reports whether this implementation handles kind
func (d *RC4Decryptor) Matches(kind models.TechniqueKind) bool {
	return kind == models.KindRC4Encryption
}
