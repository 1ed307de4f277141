package evm

import "golang.org/x/crypto/sha3"

// Keccak256 hashes the concatenation of the given chunks with the legacy
// Keccak-256 variant used on-chain (pre-NIST padding), not SHA3-256.
func Keccak256(chunks ...[]byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	for _, c := range chunks {
		h.Write(c)
	}
	var out [32]byte
	h.Sum(out[:0])
	return out
}
