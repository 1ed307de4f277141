package evm

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// personalMessagePrefix is prepended before signing, matching the
// eth_sign / personal_sign convention for 32-byte payloads.
const personalMessagePrefix = "\x19Ethereum Signed Message:\n32"

// Signature is a recoverable secp256k1 signature in contract-friendly form.
// S is always in the lower half of the curve order and V is 27 or 28.
type Signature struct {
	V uint8
	R [32]byte
	S [32]byte
}

// Signer holds the oracle's secp256k1 key and produces signatures a
// solidity ecrecover accepts.
type Signer struct {
	priv *secp256k1.PrivateKey
	addr [20]byte
}

// NewSigner parses a 0x-prefixed or bare 64-hex-char private key.
func NewSigner(privateKeyHex string) (*Signer, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	if len(raw) != 64 {
		return nil, fmt.Errorf("evm: private key has wrong length")
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("evm: private key is not hex: %w", err)
	}
	priv := secp256k1.PrivKeyFromBytes(b)
	if priv.Key.IsZero() {
		return nil, fmt.Errorf("evm: private key is zero")
	}
	return &Signer{priv: priv, addr: pubKeyAddress(priv.PubKey())}, nil
}

// Address returns the signer's 20-byte account address.
func (s *Signer) Address() [20]byte { return s.addr }

// SignHash prefixes the digest with the personal-message header, hashes it
// again, and signs deterministically (RFC 6979). The result recovers to
// Address() under ecrecover.
func (s *Signer) SignHash(digest [32]byte) (Signature, error) {
	prefixed := Keccak256([]byte(personalMessagePrefix), digest[:])
	compact := secpecdsa.SignCompact(s.priv, prefixed[:], false)
	// SignCompact layout: [recovery+27, R(32), S(32)] with low-S already
	// enforced by the library.
	var sig Signature
	sig.V = compact[0]
	copy(sig.R[:], compact[1:33])
	copy(sig.S[:], compact[33:65])
	return sig, nil
}

// RecoverAddress returns the address whose key produced sig over digest,
// applying the same personal-message prefix as SignHash.
func RecoverAddress(digest [32]byte, sig Signature) ([20]byte, error) {
	var zero [20]byte
	if sig.V != 27 && sig.V != 28 {
		return zero, fmt.Errorf("evm: recovery id %d out of range", sig.V)
	}
	prefixed := Keccak256([]byte(personalMessagePrefix), digest[:])
	compact := make([]byte, 65)
	compact[0] = sig.V
	copy(compact[1:33], sig.R[:])
	copy(compact[33:65], sig.S[:])
	pub, _, err := secpecdsa.RecoverCompact(compact, prefixed[:])
	if err != nil {
		return zero, fmt.Errorf("evm: recover: %w", err)
	}
	return pubKeyAddress(pub), nil
}

func pubKeyAddress(pub *secp256k1.PublicKey) [20]byte {
	// Address is the last 20 bytes of keccak over the uncompressed point
	// without the 0x04 tag byte.
	uncompressed := pub.SerializeUncompressed()
	h := Keccak256(uncompressed[1:])
	var addr [20]byte
	copy(addr[:], h[12:])
	return addr
}
