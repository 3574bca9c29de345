package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
)

func encodeSig(sig []byte) string {
	return base64.StdEncoding.EncodeToString(sig)
}

func decodeSig(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// GenerateKey produces a new Ed25519 key pair, primarily for tests and
// bootstrap tooling.
func GenerateKey() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return ed25519.GenerateKey(rand.Reader)
}
