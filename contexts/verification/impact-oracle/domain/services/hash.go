package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"satin/internal/evm"
)

// EventHashInput holds the canonical fields fingerprinted on-chain.
type EventHashInput struct {
	EventID            string
	VolunteerAddress   string
	BeneficiaryZKPHash string
	ActionType         string
	ImpactScore        float64
	IPFSMediaCID       string
	ActionTimestampUTC string
	Latitude           float64
	Longitude          float64
}

// EventHash produces the deterministic keccak256 fingerprint of one impact
// event: a JSON object with lexicographically sorted keys, compact
// separators, and every value rendered as a string. The byte layout is
// frozen; the contract stores this hash verbatim.
func EventHash(in EventHashInput) string {
	var b strings.Builder
	b.WriteByte('{')
	writeField(&b, "action_timestamp_utc", in.ActionTimestampUTC, false)
	writeField(&b, "action_type", in.ActionType, false)
	writeField(&b, "beneficiary_zkp_hash", in.BeneficiaryZKPHash, false)
	writeField(&b, "event_id", in.EventID, false)
	writeField(&b, "gps_lat", formatFloat(round6(in.Latitude)), false)
	writeField(&b, "gps_lon", formatFloat(round6(in.Longitude)), false)
	writeField(&b, "impact_score", formatFloat(in.ImpactScore), false)
	writeField(&b, "ipfs_media_cid", in.IPFSMediaCID, false)
	writeField(&b, "satin_version", Version, false)
	writeField(&b, "volunteer_address", strings.ToLower(in.VolunteerAddress), true)
	b.WriteByte('}')

	digest := evm.Keccak256([]byte(b.String()))
	return fmt.Sprintf("%x", digest[:])
}

func writeField(b *strings.Builder, key, value string, last bool) {
	b.WriteByte('"')
	b.WriteString(key)
	b.WriteString(`":`)
	b.WriteString(strconv.Quote(value))
	if !last {
		b.WriteByte(',')
	}
}

// formatFloat renders a float the way the frozen hash format expects:
// shortest representation, but integral values keep a trailing ".0".
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// ZKProofHash binds the beneficiary's privacy hash to the event identity.
func ZKProofHash(beneficiaryZKPHash, eventID string) [32]byte {
	return evm.Keccak256([]byte(beneficiaryZKPHash + eventID))
}

// BeneficiaryZKPHash derives the privacy-preserving identity commitment
// from a beneficiary address.
func BeneficiaryZKPHash(beneficiaryAddress string) string {
	digest := evm.Keccak256([]byte(strings.ToLower(beneficiaryAddress)))
	return fmt.Sprintf("%x", digest[:])
}

// EventIDBytes32 packs a dashless UUID into a right-aligned bytes32.
func EventIDBytes32(eventID string) ([32]byte, error) {
	hex := strings.ReplaceAll(eventID, "-", "")
	if len(hex) > 64 {
		return [32]byte{}, fmt.Errorf("event id %q too long for bytes32", eventID)
	}
	padded := strings.Repeat("0", 64-len(hex)) + hex
	return evm.ParseHash32(padded)
}
