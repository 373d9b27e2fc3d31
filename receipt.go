package vidra

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Receipt is the signed record produced at the edge of a render batch:
// `{ vlt_id, ir_hash, output_hash, hardware, render_duration_ms,
// timestamp, signature }`. The core computes every field except signature,
// which the caller supplies a private key for.
type Receipt struct {
	VltID            string `json:"vlt_id"`
	IRHash           string `json:"ir_hash"`
	OutputHash       string `json:"output_hash"`
	Hardware         string `json:"hardware"`
	RenderDurationMs int64  `json:"render_duration_ms"`
	Timestamp        int64  `json:"timestamp"`
	Signature        string `json:"signature,omitempty"`
}

// canonicalBytes returns the deterministic byte sequence the signature
// covers: every field except Signature itself, in a fixed field order, so
// signing is reproducible regardless of map iteration or JSON key ordering.
func (r Receipt) canonicalBytes() []byte {
	unsigned := r
	unsigned.Signature = ""
	b, _ := json.Marshal(unsigned) // struct with fixed field order and tags; never fails
	return b
}

// Sign computes an Ed25519 signature over r's canonical serialization and
// returns a copy of r with Signature populated.
func (r Receipt) Sign(priv ed25519.PrivateKey) Receipt {
	sig := ed25519.Sign(priv, r.canonicalBytes())
	r.Signature = hex.EncodeToString(sig)
	return r
}

// Verify reports whether r's signature is valid for pub.
func (r Receipt) Verify(pub ed25519.PublicKey) bool {
	sig, err := hex.DecodeString(r.Signature)
	if err != nil {
		return false
	}
	unsigned := r
	unsigned.Signature = ""
	return ed25519.Verify(pub, unsigned.canonicalBytes(), sig)
}

// WriteReceipt writes r as JSON to ~/.vidra/receipts/<r.VltID>.json,
// creating the directory if needed.
func WriteReceipt(r Receipt) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("receipt: resolving home directory: %w", err)
	}
	dir := filepath.Join(home, ".vidra", "receipts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("receipt: creating %s: %w", dir, err)
	}
	path := filepath.Join(dir, r.VltID+".json")
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("receipt: marshaling %s: %w", r.VltID, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("receipt: writing %s: %w", path, err)
	}
	return nil
}
