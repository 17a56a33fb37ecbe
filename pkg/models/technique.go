package models

// TechniqueKind identifies a specific obfuscation transform
type TechniqueKind string

const (
	// Encoding techniques
	KindBase64Encoding     TechniqueKind = "base64_encoding"
	KindHexEncoding        TechniqueKind = "hex_encoding"
	KindUnicodeEscape      TechniqueKind = "unicode_escape"
	KindURLEncoding        TechniqueKind = "url_encoding"
	KindHTMLEntityEncoding TechniqueKind = "html_entity_encoding"
	KindCharCodeConcat     TechniqueKind = "charcode_concat"

	// Encryption techniques
	KindXOREncryption TechniqueKind = "xor_encryption"
	KindRC4Encryption TechniqueKind = "rc4_encryption"

	// JavaScript specific
	KindJSEvalChain           TechniqueKind = "js_eval_chain"
	KindJSObfuscatorIO        TechniqueKind = "js_obfuscator_io"
	KindJSFunctionConstructor TechniqueKind = "js_function_constructor"
	KindJSPackedCode          TechniqueKind = "js_packed_code"

	// PowerShell specific
	KindPSEncodedCommand   TechniqueKind = "ps_encoded_command"
	KindPSCompressed       TechniqueKind = "ps_compressed"
	KindPSStringReplace    TechniqueKind = "ps_string_replace"
	KindPSInvokeExpression TechniqueKind = "ps_invoke_expression"

	// Binary techniques
	KindBinaryPacked     TechniqueKind = "binary_packed"
	KindBinaryCompressed TechniqueKind = "binary_compressed"
	KindBinaryEncrypted  TechniqueKind = "binary_encrypted"
)

// Technique is the immutable identity of a detected or applied transform.
// Key is populated only for keyed variants (currently XOR).
type Technique struct {
	Kind TechniqueKind `json:"kind"`
	Key  []byte        `json:"key,omitempty"`
}

// techniqueNames maps kinds to human-readable names
var techniqueNames = map[TechniqueKind]string{
	KindBase64Encoding:        "Base64 Encoding",
	KindHexEncoding:           "Hex Encoding",
	KindUnicodeEscape:         "Unicode Escape",
	KindURLEncoding:           "URL Encoding",
	KindHTMLEntityEncoding:    "HTML Entity Encoding",
	KindCharCodeConcat:        "Character Code Concatenation",
	KindXOREncryption:         "XOR Encryption",
	KindRC4Encryption:         "RC4 Encryption",
	KindJSEvalChain:           "JavaScript Eval Chain",
	KindJSObfuscatorIO:        "JavaScript Obfuscator.io",
	KindJSFunctionConstructor: "JavaScript Function Constructor",
	KindJSPackedCode:          "JavaScript Packed Code",
	KindPSEncodedCommand:      "PowerShell Encoded Command",
	KindPSCompressed:          "PowerShell Compression",
	KindPSStringReplace:       "PowerShell String Replace",
	KindPSInvokeExpression:    "PowerShell Invoke Expression",
	KindBinaryPacked:          "Binary Packing",
	KindBinaryCompressed:      "Binary Compression",
	KindBinaryEncrypted:       "Binary Encryption",
}

// Name returns the human-readable technique name
func (t TechniqueKind) Name() string {
	if name, ok := techniqueNames[t]; ok {
		return name
	}
	return string(t)
}

// AllKinds returns every supported technique kind in a stable order
func AllKinds() []TechniqueKind {
	return []TechniqueKind{
		KindBase64Encoding,
		KindHexEncoding,
		KindUnicodeEscape,
		KindURLEncoding,
		KindHTMLEntityEncoding,
		KindCharCodeConcat,
		KindXOREncryption,
		KindRC4Encryption,
		KindJSEvalChain,
		KindJSObfuscatorIO,
		KindJSFunctionConstructor,
		KindJSPackedCode,
		KindPSEncodedCommand,
		KindPSCompressed,
		KindPSStringReplace,
		KindPSInvokeExpression,
		KindBinaryPacked,
		KindBinaryCompressed,
		KindBinaryEncrypted,
	}
}
