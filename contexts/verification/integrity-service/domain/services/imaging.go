package services

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"github.com/corona10/goimagehash"
	"github.com/rwcarlsen/goexif/exif"

	"satin/contexts/verification/integrity-service/domain/entities"
)

const (
	// 16x16 difference hash: fine enough to survive recompression and
	// mild crops while separating genuinely different scenes.
	fingerprintSize = 16

	elaQuality             = 75
	elaAuthenticCeiling    = 15.0
	elaPossiblyEditedLimit = 35.0
)

// ExtractMetadata pulls capture timestamp and embedded GPS from image
// bytes. Absence of metadata is a valid result, not an error.
func ExtractMetadata(data []byte) entities.PhotoMetadata {
	meta := entities.PhotoMetadata{}
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return meta
	}
	meta.HasMetadata = true
	if taken, err := x.DateTime(); err == nil {
		meta.TakenAt = &taken
	}
	if lat, lon, err := x.LatLong(); err == nil {
		meta.Latitude = &lat
		meta.Longitude = &lon
	}
	return meta
}

// Fingerprint computes the perceptual difference hash of the image.
func Fingerprint(data []byte) ([]uint64, int, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("decode image: %w", err)
	}
	hash, err := goimagehash.ExtDifferenceHash(img, fingerprintSize, fingerprintSize)
	if err != nil {
		return nil, 0, fmt.Errorf("difference hash: %w", err)
	}
	return hash.GetHash(), hash.Bits(), nil
}

// FingerprintDistance is the Hamming distance between two stored
// fingerprints. Mismatched widths report an error.
func FingerprintDistance(a []uint64, aBits int, b []uint64, bBits int) (int, error) {
	left := goimagehash.NewExtImageHash(a, goimagehash.DHash, aBits)
	right := goimagehash.NewExtImageHash(b, goimagehash.DHash, bBits)
	return left.Distance(right)
}

// ErrorLevel re-encodes the image at a lower JPEG quality and measures the
// mean per-channel divergence from the original. Edited regions were saved
// at a different quality level and diverge more than untouched ones.
func ErrorLevel(data []byte) (float64, entities.ELAVerdict, error) {
	orig, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, entities.ELAUnknown, fmt.Errorf("decode image: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, orig, &jpeg.Options{Quality: elaQuality}); err != nil {
		return 0, entities.ELAUnknown, fmt.Errorf("re-encode: %w", err)
	}
	recompressed, err := jpeg.Decode(&buf)
	if err != nil {
		return 0, entities.ELAUnknown, fmt.Errorf("decode re-encoded: %w", err)
	}

	bounds := orig.Bounds()
	var sum float64
	var samples int
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r1, g1, b1, _ := orig.At(x, y).RGBA()
			r2, g2, b2, _ := recompressed.At(x, y).RGBA()
			sum += absDelta(r1, r2) + absDelta(g1, g2) + absDelta(b1, b2)
			samples += 3
		}
	}
	if samples == 0 {
		return 0, entities.ELAUnknown, fmt.Errorf("empty image")
	}

	mean := sum / float64(samples)
	return mean, ClassifyErrorLevel(mean), nil
}

// ClassifyErrorLevel bands the mean re-encode divergence: below 15 the
// image is treated as authentic, 15 to 35 as possibly edited, 35 and up
// as suspicious.
func ClassifyErrorLevel(mean float64) entities.ELAVerdict {
	switch {
	case mean < elaAuthenticCeiling:
		return entities.ELAAuthentic
	case mean < elaPossiblyEditedLimit:
		return entities.ELAPossiblyEdited
	default:
		return entities.ELASuspicious
	}
}

func absDelta(a, b uint32) float64 {
	// RGBA returns 16-bit channels; compare in 8-bit space.
	av := float64(a >> 8)
	bv := float64(b >> 8)
	if av > bv {
		return av - bv
	}
	return bv - av
}
