// Package crypto provides the Ed25519 signing primitives used across the
// integrity plane: separate key rings for events, receipts, delegation
// tokens, and policy-integrity (consent proofs), each declaring an active
// key id plus verify-only keys to allow rotation.
package crypto

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"swapmesh/core/canon"
)

// ErrUnknownKeyID is returned when a signature references a key id the ring
// does not recognize.
var ErrUnknownKeyID = errors.New("crypto: unknown_key_id")

// ErrBadSignature is returned when a signature fails to verify against a
// known key.
var ErrBadSignature = errors.New("crypto: bad_signature")

// Alg is the only supported signature algorithm.
const Alg = "ed25519"

// Signature is the wire representation of an Ed25519 signature, matching
// core/types.Signature's shape without importing it (keeps crypto
// dependency-free of the domain types).
type Signature struct {
	KeyID string
	Alg   string
	Sig   string
}

// Ring is a rotation-aware Ed25519 key ring: one active signing key plus any
// number of verify-only public keys, keyed by key id.
type Ring struct {
	activeKeyID string
	activeKey   ed25519.PrivateKey
	verifiers   map[string]ed25519.PublicKey
}

// NewRing constructs a ring with the given active signing key and
// verify-only key set. The active key's own public half is always
// registered as a verifier under activeKeyID.
func NewRing(activeKeyID string, activeKey ed25519.PrivateKey, verifiers map[string]ed25519.PublicKey) (*Ring, error) {
	if activeKeyID == "" {
		return nil, errors.New("crypto: active key id required")
	}
	if len(activeKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("crypto: invalid active key size %d", len(activeKey))
	}
	merged := make(map[string]ed25519.PublicKey, len(verifiers)+1)
	for id, pub := range verifiers {
		merged[id] = pub
	}
	merged[activeKeyID] = activeKey.Public().(ed25519.PublicKey)
	return &Ring{activeKeyID: activeKeyID, activeKey: activeKey, verifiers: merged}, nil
}

// ActiveKeyID returns the ring's current signing key id.
func (r *Ring) ActiveKeyID() string {
	if r == nil {
		return ""
	}
	return r.activeKeyID
}

// SignCanonical canonicalizes payload and signs it with the active key,
// returning the resulting signature.
func (r *Ring) SignCanonical(payload interface{}) (Signature, error) {
	if r == nil {
		return Signature{}, errors.New("crypto: nil ring")
	}
	data, err := canon.Marshal(payload)
	if err != nil {
		return Signature{}, err
	}
	return r.SignBytes(data), nil
}

// SignBytes signs raw bytes with the active key.
func (r *Ring) SignBytes(data []byte) Signature {
	sig := ed25519.Sign(r.activeKey, data)
	return Signature{KeyID: r.activeKeyID, Alg: Alg, Sig: encodeSig(sig)}
}

// VerifyCanonical canonicalizes payload and verifies sig against it.
func (r *Ring) VerifyCanonical(payload interface{}, sig Signature) error {
	if r == nil {
		return errors.New("crypto: nil ring")
	}
	data, err := canon.Marshal(payload)
	if err != nil {
		return err
	}
	return r.VerifyBytes(data, sig)
}

// VerifyBytes verifies sig against raw bytes.
func (r *Ring) VerifyBytes(data []byte, sig Signature) error {
	if sig.Alg != "" && sig.Alg != Alg {
		return fmt.Errorf("crypto: unsupported_alg %q", sig.Alg)
	}
	pub, ok := r.verifiers[sig.KeyID]
	if !ok {
		return ErrUnknownKeyID
	}
	raw, err := decodeSig(sig.Sig)
	if err != nil {
		return fmt.Errorf("crypto: %w: %v", ErrBadSignature, err)
	}
	if !ed25519.Verify(pub, data, raw) {
		return ErrBadSignature
	}
	return nil
}
