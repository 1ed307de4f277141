package entities

import "time"

// WarningCode is the closed set of soft-finding codes the screening
// pipeline can emit. Every penalty carries one of these.
type WarningCode string

const (
	WarningNoCaptureMetadata   WarningCode = "no_exif_metadata"
	WarningPhotoStale          WarningCode = "photo_too_old"
	WarningPhotoVeryStale      WarningCode = "photo_very_old"
	WarningGPSMismatch         WarningCode = "gps_mismatch"
	WarningPossiblyEdited      WarningCode = "ela_possibly_edited"
	WarningSuspiciousEdit      WarningCode = "ela_suspicious"
	WarningLiveCaptureDiscount WarningCode = "live_capture_discount"
)

// Warning is a structured soft finding: the code, the penalty it
// contributed, and a human-readable reason.
type Warning struct {
	Code   WarningCode
	Amount float64
	Reason string
}

// BlockCode identifies why a submission was refused outright.
type BlockCode string

const (
	BlockAgentBanned         BlockCode = "agent_banned"
	BlockRateLimited         BlockCode = "rate_limit_exceeded"
	BlockSelfDuplicate       BlockCode = "duplicate_evidence_self"
	BlockThirdPartyDuplicate BlockCode = "duplicate_evidence_third_party"
	BlockImageReuse          BlockCode = "near_duplicate_image"
)

// Finding is the outcome of the full screening pipeline. A hard block
// short-circuits the remaining checks and makes the penalty irrelevant.
type Finding struct {
	OK          bool
	BlockCode   BlockCode
	BlockReason string
	Warnings    []Warning
	Penalty     float64
}

// Fingerprint is a perceptual digest of submitted image evidence, kept for
// a trailing window to catch cross-address reuse.
type Fingerprint struct {
	FingerprintID string
	AgentAddress  string
	EventID       string
	Hash          []uint64
	Bits          int
	CreatedAt     time.Time
}

// AbuseState tracks per-address misconduct counters.
type AbuseState struct {
	AgentAddress      string
	RejectionStreak   int
	ManipulationCount int
	Banned            bool
	BannedAt          *time.Time
	UpdatedAt         time.Time
}

// PhotoMetadata is what the capture-metadata extractor recovered from
// image bytes. Missing fields stay nil.
type PhotoMetadata struct {
	HasMetadata bool
	TakenAt     *time.Time
	Latitude    *float64
	Longitude   *float64
}

// ELAVerdict classifies the re-encode divergence measurement.
type ELAVerdict string

const (
	ELAAuthentic      ELAVerdict = "authentic"
	ELAPossiblyEdited ELAVerdict = "possibly_edited"
	ELASuspicious     ELAVerdict = "suspicious"
	ELAUnknown        ELAVerdict = "unknown"
)

// CaptureSource distinguishes in-app camera captures from gallery uploads.
type CaptureSource string

const (
	SourceLiveCapture CaptureSource = "live_capture"
	SourceGallery     CaptureSource = "gallery"
)
