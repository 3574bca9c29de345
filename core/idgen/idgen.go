// Package idgen computes the deterministic, content-derived ids used
// throughout the engine: proposal ids, event ids, and receipt ids are all
// 12-hex SHA-256 prefixes of their canonical inputs, so byte-equal replays
// yield byte-equal ids.
package idgen

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"swapmesh/core/canon"
)

// HexPrefix12 returns the first 12 hex characters (6 bytes) of the SHA-256
// digest of data.
func HexPrefix12(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:12]
}

// ProposalID computes the proposal id: a 12-hex SHA-256 prefix of the
// canonicalized cycle intent-id list, in cycle order.
func ProposalID(intentIDs []string) (string, error) {
	data, err := canon.Marshal(intentIDs)
	if err != nil {
		return "", err
	}
	return HexPrefix12(data), nil
}

// EventID computes the deterministic event id from its type, correlation id,
// and a type-specific dedup key.
func EventID(eventType, correlationID, key string) string {
	joined := strings.Join([]string{eventType, correlationID, key}, "|")
	return HexPrefix12([]byte(joined))
}

// ReceiptID computes the deterministic receipt id.
func ReceiptID(cycleID, finalState string) string {
	joined := cycleID + "|" + finalState
	return "receipt_" + HexPrefix12([]byte(joined))
}
