package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for digests. The version suffix leaves room for a
// future encoding change.
const (
	DomainAction = "rewind/action/v1"
	DomainState  = "rewind/state/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ActionDigest returns a stable content hash of a, replay flag included.
// Journals record it so that two traces can be compared without
// re-encoding every payload.
func ActionDigest(a Action) (string, error) {
	canonical, err := MarshalCanonical(a)
	if err != nil {
		return "", fmt.Errorf("ActionDigest: %w", err)
	}
	return hashWithDomain(DomainAction, canonical), nil
}

// StateDigest hashes an encoded state snapshot.
func StateDigest(canonical []byte) string {
	return hashWithDomain(DomainState, canonical)
}

// MustActionDigest is like ActionDigest but panics on error.
// Use only in tests or when a is known to be encodable.
func MustActionDigest(a Action) string {
	d, err := ActionDigest(a)
	if err != nil {
		panic(err)
	}
	return d
}
