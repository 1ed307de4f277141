package evm

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// Solidity abi.encode for the fixed attestation tuple
// (bytes32, address, address, uint256, uint256, bytes32, bytes32, string, uint256).
// Static fields occupy one 32-byte head slot each; the string is dynamic and
// its head slot carries the byte offset of its length-prefixed tail.

const slot = 32

// AttestationTuple carries the nine encoded fields in declaration order.
// The layout replicates the vault contract's _buildSigningHash exactly;
// any divergence makes every signature unverifiable on-chain.
type AttestationTuple struct {
	EventID     [32]byte
	Volunteer   [20]byte
	Beneficiary [20]byte
	ScoreScaled *big.Int
	RewardWei   *big.Int
	ProofHash   [32]byte
	EventHash   [32]byte
	Nonce       string
	ExpiresAt   *big.Int
}

// Encode produces the abi.encode byte layout for the tuple. Values that do
// not fit their declared width are rejected rather than truncated.
func (t AttestationTuple) Encode() ([]byte, error) {
	if err := checkUint256("score_scaled", t.ScoreScaled); err != nil {
		return nil, err
	}
	if err := checkUint256("reward_wei", t.RewardWei); err != nil {
		return nil, err
	}
	if err := checkUint256("expires_at", t.ExpiresAt); err != nil {
		return nil, err
	}

	// 9 head slots; the string tail follows the last head.
	headLen := 9 * slot
	buf := make([]byte, 0, headLen+slot+padLen(len(t.Nonce)))

	buf = append(buf, t.EventID[:]...)
	buf = appendAddress(buf, t.Volunteer)
	buf = appendAddress(buf, t.Beneficiary)
	buf = appendUint256(buf, t.ScoreScaled)
	buf = appendUint256(buf, t.RewardWei)
	buf = append(buf, t.ProofHash[:]...)
	buf = append(buf, t.EventHash[:]...)
	buf = appendUint256(buf, big.NewInt(int64(headLen)))
	buf = appendUint256(buf, t.ExpiresAt)

	buf = appendUint256(buf, big.NewInt(int64(len(t.Nonce))))
	buf = append(buf, t.Nonce...)
	if pad := padLen(len(t.Nonce)) - len(t.Nonce); pad > 0 {
		buf = append(buf, make([]byte, pad)...)
	}
	return buf, nil
}

// SigningHash is the keccak of the encoded tuple, the digest the oracle
// signs and the contract rebuilds.
func (t AttestationTuple) SigningHash() ([32]byte, error) {
	encoded, err := t.Encode()
	if err != nil {
		return [32]byte{}, err
	}
	return Keccak256(encoded), nil
}

func padLen(n int) int {
	if n%slot == 0 {
		return n
	}
	return n + slot - n%slot
}

func appendAddress(buf []byte, a [20]byte) []byte {
	buf = append(buf, make([]byte, 12)...)
	return append(buf, a[:]...)
}

func appendUint256(buf []byte, v *big.Int) []byte {
	var word [32]byte
	v.FillBytes(word[:])
	return append(buf, word[:]...)
}

func checkUint256(field string, v *big.Int) error {
	if v == nil {
		return fmt.Errorf("evm: %s is nil", field)
	}
	if v.Sign() < 0 {
		return fmt.Errorf("evm: %s is negative", field)
	}
	if v.BitLen() > 256 {
		return fmt.Errorf("evm: %s exceeds uint256", field)
	}
	return nil
}

// ParseAddress decodes a 0x-prefixed or bare 40-hex-char address.
func ParseAddress(s string) ([20]byte, error) {
	var a [20]byte
	raw := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(raw) != 40 {
		return a, fmt.Errorf("evm: address %q has wrong length", s)
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return a, fmt.Errorf("evm: address %q is not hex: %w", s, err)
	}
	copy(a[:], b)
	return a, nil
}

// ParseHash32 decodes a 0x-prefixed or bare 64-hex-char word.
func ParseHash32(s string) ([32]byte, error) {
	var h [32]byte
	raw := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(raw) != 64 {
		return h, fmt.Errorf("evm: hash %q has wrong length", s)
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return h, fmt.Errorf("evm: hash %q is not hex: %w", s, err)
	}
	copy(h[:], b)
	return h, nil
}

// HexAddress renders an address with the 0x prefix, lowercased.
func HexAddress(a [20]byte) string {
	return "0x" + hex.EncodeToString(a[:])
}

// HexHash32 renders a 32-byte word with the 0x prefix.
func HexHash32(h [32]byte) string {
	return "0x" + hex.EncodeToString(h[:])
}
