package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content digests.
// The version suffix enables future algorithm migration.
const (
	DomainCursorState = "rxnenum/cursor/v1"
	DomainLibrary     = "rxnenum/library/v1"
	DomainPool        = "rxnenum/pool/v1"
	DomainResult      = "rxnenum/result/v1"
)

// HashWithDomain computes SHA-256 over domain + 0x00 + data.
// The null separator prevents domain/data boundary ambiguity.
func HashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest canonicalizes v and hashes it under domain.
func Digest(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", domain, err)
	}
	return HashWithDomain(domain, canonical), nil
}

// PoolDigest identifies the contents of a reagent pool. Two pools with the
// same candidates in the same order share a digest.
func PoolDigest(candidates []Candidate) (string, error) {
	arr := make(IRArray, len(candidates))
	for i, c := range candidates {
		arr[i] = c.ToIR()
	}
	return Digest(DomainPool, arr)
}

// ResultDigest identifies the products of one enumeration step. Used to
// verify that a resumed run reproduces the outputs it recorded.
func ResultDigest(r *Result) (string, error) {
	return Digest(DomainResult, r.ToIR())
}
