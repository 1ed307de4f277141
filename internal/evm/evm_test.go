package evm

import (
	"bytes"
	"encoding/hex"
	"math/big"
	"testing"
)

func TestKeccak256EmptyInput(t *testing.T) {
	// Legacy Keccak-256 of the empty string, distinct from SHA3-256.
	want := "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"
	got := Keccak256()
	if hex.EncodeToString(got[:]) != want {
		t.Fatalf("keccak256(\"\") = %x, want %s", got, want)
	}
}

func TestEncodeTupleLayout(t *testing.T) {
	nonce := "3f2a6c1db0e94b5f8c7d2e1a4b6c8d9e"
	tuple := AttestationTuple{
		ScoreScaled: big.NewInt(8234),
		RewardWei:   big.NewInt(42),
		Nonce:       nonce,
		ExpiresAt:   big.NewInt(1700000000),
	}
	tuple.EventID[0] = 0xaa
	tuple.Volunteer[19] = 0x01
	tuple.Beneficiary[19] = 0x02
	tuple.ProofHash[31] = 0xbb
	tuple.EventHash[31] = 0xcc

	enc, err := tuple.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// 9 head slots + string length slot + padded data slots.
	if len(enc) != 11*32 {
		t.Fatalf("encoded length = %d, want %d", len(enc), 11*32)
	}

	word := func(i int) []byte { return enc[i*32 : (i+1)*32] }

	if word(0)[0] != 0xaa {
		t.Fatalf("event id slot corrupted: %x", word(0))
	}
	if !bytes.Equal(word(1)[:12], make([]byte, 12)) || word(1)[31] != 0x01 {
		t.Fatalf("volunteer not left padded: %x", word(1))
	}
	if word(2)[31] != 0x02 {
		t.Fatalf("beneficiary slot corrupted: %x", word(2))
	}
	if got := new(big.Int).SetBytes(word(3)); got.Int64() != 8234 {
		t.Fatalf("score slot = %v", got)
	}
	if got := new(big.Int).SetBytes(word(4)); got.Int64() != 42 {
		t.Fatalf("reward slot = %v", got)
	}
	if word(5)[31] != 0xbb || word(6)[31] != 0xcc {
		t.Fatalf("hash slots corrupted: %x %x", word(5), word(6))
	}
	// Dynamic string head points at the tail right after the heads.
	if got := new(big.Int).SetBytes(word(7)); got.Int64() != 9*32 {
		t.Fatalf("string offset = %v, want %d", got, 9*32)
	}
	if got := new(big.Int).SetBytes(word(8)); got.Int64() != 1700000000 {
		t.Fatalf("expiry slot = %v", got)
	}
	if got := new(big.Int).SetBytes(word(9)); got.Int64() != int64(len(nonce)) {
		t.Fatalf("string length slot = %v", got)
	}
	data := word(10)
	if string(data[:len(nonce)]) != nonce {
		t.Fatalf("string data slot = %q", data)
	}
	for _, b := range data[len(nonce):] {
		if b != 0 {
			t.Fatalf("string tail not zero padded: %x", data)
		}
	}
}

func TestEncodeTupleRejectsBadInts(t *testing.T) {
	tuple := AttestationTuple{
		ScoreScaled: big.NewInt(-1),
		RewardWei:   big.NewInt(0),
		ExpiresAt:   big.NewInt(0),
	}
	if _, err := tuple.Encode(); err == nil {
		t.Fatalf("expected error for negative uint256")
	}
	tuple.ScoreScaled = nil
	if _, err := tuple.Encode(); err == nil {
		t.Fatalf("expected error for nil uint256")
	}
	tuple.ScoreScaled = new(big.Int).Lsh(big.NewInt(1), 256)
	if _, err := tuple.Encode(); err == nil {
		t.Fatalf("expected error for oversized uint256")
	}
}

func TestSignerDeterministicAndRecoverable(t *testing.T) {
	signer, err := NewSigner("0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	digest := Keccak256([]byte("attestation payload"))
	sig1, err := signer.SignHash(digest)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sig2, err := signer.SignHash(digest)
	if err != nil {
		t.Fatalf("sign again: %v", err)
	}
	if sig1 != sig2 {
		t.Fatalf("signatures not deterministic: %v vs %v", sig1, sig2)
	}
	if sig1.V != 27 && sig1.V != 28 {
		t.Fatalf("recovery id = %d, want 27 or 28", sig1.V)
	}

	// Low-S: S must be at most half the curve order.
	halfN, _ := new(big.Int).SetString("7fffffffffffffffffffffffffffffff5d576e7357a4501ddfe92f46681b20a0", 16)
	if new(big.Int).SetBytes(sig1.S[:]).Cmp(halfN) > 0 {
		t.Fatalf("S not normalized: %x", sig1.S)
	}

	addr, err := RecoverAddress(digest, sig1)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if addr != signer.Address() {
		t.Fatalf("recovered %x, want %x", addr, signer.Address())
	}
}

func TestSignerKnownAddress(t *testing.T) {
	// Well-known test vector key and its account address.
	signer, err := NewSigner("4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	if got := HexAddress(signer.Address()); got != "0x2c7536e3605d9c16a7a3d7b1898e529396a65c23" {
		t.Fatalf("address = %s", got)
	}
}

func TestParseAddressAndHash(t *testing.T) {
	if _, err := ParseAddress("0x2c7536e3605d9c16a7a3d7b1898e529396a65c23"); err != nil {
		t.Fatalf("parse address: %v", err)
	}
	if _, err := ParseAddress("0xdeadbeef"); err == nil {
		t.Fatalf("expected short address to fail")
	}
	if _, err := ParseHash32("0x" + "11" + "22"); err == nil {
		t.Fatalf("expected short hash to fail")
	}
	h, err := ParseHash32("0x" + "00" + "112233445566778899aabbccddeeff00112233445566778899aabbccddeeff")
	if err != nil {
		t.Fatalf("parse hash: %v", err)
	}
	if h[0] != 0x00 || h[31] != 0xff {
		t.Fatalf("hash bytes wrong: %x", h)
	}
}

func TestRecoverRejectsBadRecoveryID(t *testing.T) {
	digest := Keccak256([]byte("x"))
	if _, err := RecoverAddress(digest, Signature{V: 2}); err == nil {
		t.Fatalf("expected error for v=2")
	}
}
