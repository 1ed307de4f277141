package commands_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
	"time"

	integrityservice "satin/contexts/verification/integrity-service"
	"satin/contexts/verification/integrity-service/application/commands"
	"satin/contexts/verification/integrity-service/domain/entities"
)

func fixedClock(module integrityservice.Module, at time.Time) {
	module.Store.NowFunc = func() time.Time { return at }
}

func encodeJPEG(t *testing.T, paint func(x, y int) color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, paint(x, y))
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func grayImage(t *testing.T) []byte {
	return encodeJPEG(t, func(x, y int) color.Color {
		return color.Gray{Y: 128}
	})
}

func splitImage(t *testing.T) []byte {
	return encodeJPEG(t, func(x, y int) color.Color {
		if x < 32 {
			return color.Gray{Y: 250}
		}
		return color.Gray{Y: 5}
	})
}

func TestScreenRateLimitBlocksSixthSubmission(t *testing.T) {
	module := integrityservice.NewInMemoryModule(nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fixedClock(module, now)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		finding, err := module.Screen.Screen(ctx, commands.ScreenCommand{
			AgentAddress: "0xAA11",
			EventID:      "evt",
			ContentHash:  "",
		})
		if err != nil {
			t.Fatalf("screen %d: %v", i, err)
		}
		if !finding.OK {
			t.Fatalf("screen %d unexpectedly blocked: %s", i, finding.BlockReason)
		}
	}

	finding, err := module.Screen.Screen(ctx, commands.ScreenCommand{AgentAddress: "0xAA11"})
	if err != nil {
		t.Fatalf("sixth screen: %v", err)
	}
	if finding.OK || finding.BlockCode != entities.BlockRateLimited {
		t.Fatalf("sixth submission not rate limited: %+v", finding)
	}
}

func TestScreenDuplicateContentHash(t *testing.T) {
	module := integrityservice.NewInMemoryModule(nil)
	fixedClock(module, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	hash := "0x" + "ab12" + "00112233445566778899aabbccddeeff00112233445566778899aabbccdd"
	first, err := module.Screen.Screen(ctx, commands.ScreenCommand{
		AgentAddress: "0xAAAA", ContentHash: hash,
	})
	if err != nil || !first.OK {
		t.Fatalf("first submission rejected: %+v err=%v", first, err)
	}

	self, err := module.Screen.Screen(ctx, commands.ScreenCommand{
		AgentAddress: "0xaaaa", ContentHash: hash,
	})
	if err != nil {
		t.Fatalf("self resubmission: %v", err)
	}
	if self.OK || self.BlockCode != entities.BlockSelfDuplicate {
		t.Fatalf("self duplicate not flagged as self: %+v", self)
	}

	other, err := module.Screen.Screen(ctx, commands.ScreenCommand{
		AgentAddress: "0xBBBB", ContentHash: hash,
	})
	if err != nil {
		t.Fatalf("third-party resubmission: %v", err)
	}
	if other.OK || other.BlockCode != entities.BlockThirdPartyDuplicate {
		t.Fatalf("third-party duplicate not flagged: %+v", other)
	}
}

func TestScreenZeroHashExemptFromDedup(t *testing.T) {
	module := integrityservice.NewInMemoryModule(nil)
	fixedClock(module, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	zero := "0000000000000000000000000000000000000000000000000000000000000000"
	for i, agent := range []string{"0xAAAA", "0xBBBB"} {
		finding, err := module.Screen.Screen(ctx, commands.ScreenCommand{
			AgentAddress: agent, ContentHash: zero,
		})
		if err != nil {
			t.Fatalf("zero-hash submission %d: %v", i, err)
		}
		if !finding.OK {
			t.Fatalf("zero-hash submission %d blocked: %+v", i, finding)
		}
	}
}

func TestScreenNearDuplicateImageAcrossAddresses(t *testing.T) {
	module := integrityservice.NewInMemoryModule(nil)
	fixedClock(module, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()
	img := grayImage(t)

	first, err := module.Screen.Screen(ctx, commands.ScreenCommand{
		AgentAddress: "0xAAAA",
		ContentHash:  "1111111111111111111111111111111111111111111111111111111111111111",
		Image:        img,
		Source:       entities.SourceGallery,
	})
	if err != nil || !first.OK {
		t.Fatalf("first image submission rejected: %+v err=%v", first, err)
	}

	// Same pixels under a different content hash from another address.
	second, err := module.Screen.Screen(ctx, commands.ScreenCommand{
		AgentAddress: "0xBBBB",
		ContentHash:  "2222222222222222222222222222222222222222222222222222222222222222",
		Image:        img,
		Source:       entities.SourceGallery,
	})
	if err != nil {
		t.Fatalf("second image submission: %v", err)
	}
	if second.OK || second.BlockCode != entities.BlockImageReuse {
		t.Fatalf("visual reuse not blocked: %+v", second)
	}

	// The same address resubmitting its own visual is not a reuse block.
	selfAgain, err := module.Screen.Screen(ctx, commands.ScreenCommand{
		AgentAddress: "0xAAAA",
		ContentHash:  "3333333333333333333333333333333333333333333333333333333333333333",
		Image:        img,
		Source:       entities.SourceGallery,
	})
	if err != nil {
		t.Fatalf("self visual resubmission: %v", err)
	}
	if !selfAgain.OK {
		t.Fatalf("own-image resubmission blocked: %+v", selfAgain)
	}

	// A visually distant image from a third address passes.
	distinct, err := module.Screen.Screen(ctx, commands.ScreenCommand{
		AgentAddress: "0xCCCC",
		ContentHash:  "4444444444444444444444444444444444444444444444444444444444444444",
		Image:        splitImage(t),
		Source:       entities.SourceGallery,
	})
	if err != nil {
		t.Fatalf("distinct image submission: %v", err)
	}
	if !distinct.OK {
		t.Fatalf("distinct image blocked: %+v", distinct)
	}
}

func TestScreenGalleryImageWithoutMetadataPenalized(t *testing.T) {
	module := integrityservice.NewInMemoryModule(nil)
	fixedClock(module, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	finding, err := module.Screen.Screen(context.Background(), commands.ScreenCommand{
		AgentAddress: "0xAAAA",
		ContentHash:  "5555555555555555555555555555555555555555555555555555555555555555",
		Image:        grayImage(t),
		Source:       entities.SourceGallery,
	})
	if err != nil {
		t.Fatalf("screen: %v", err)
	}
	if !finding.OK {
		t.Fatalf("submission blocked: %+v", finding)
	}
	found := false
	for _, w := range finding.Warnings {
		if w.Code == entities.WarningNoCaptureMetadata {
			found = true
			if w.Amount != 0.15 {
				t.Fatalf("metadata penalty = %v, want 0.15", w.Amount)
			}
		}
	}
	if !found {
		t.Fatalf("missing metadata warning not emitted: %+v", finding.Warnings)
	}
	if finding.Penalty < 0.15 {
		t.Fatalf("penalty %v below metadata contribution", finding.Penalty)
	}
	if finding.Penalty > 0.60 {
		t.Fatalf("penalty %v above cap", finding.Penalty)
	}
}

func TestScreenLiveCaptureSkipsMetadataAndDiscounts(t *testing.T) {
	module := integrityservice.NewInMemoryModule(nil)
	fixedClock(module, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	finding, err := module.Screen.Screen(context.Background(), commands.ScreenCommand{
		AgentAddress: "0xAAAA",
		ContentHash:  "6666666666666666666666666666666666666666666666666666666666666666",
		Image:        grayImage(t),
		Source:       entities.SourceLiveCapture,
	})
	if err != nil {
		t.Fatalf("screen: %v", err)
	}
	if !finding.OK {
		t.Fatalf("live capture blocked: %+v", finding)
	}
	for _, w := range finding.Warnings {
		if w.Code == entities.WarningNoCaptureMetadata {
			t.Fatalf("live capture penalized for missing metadata: %+v", finding.Warnings)
		}
	}
}

func TestBannedAgentRefusedUpFront(t *testing.T) {
	module := integrityservice.NewInMemoryModule(nil)
	fixedClock(module, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := module.Abuse.RecordRejection(ctx, "0xAAAA"); err != nil {
			t.Fatalf("record rejection %d: %v", i, err)
		}
	}
	state, found, err := module.Store.Get(ctx, "0xAAAA")
	if err != nil || !found {
		t.Fatalf("abuse state missing: %v", err)
	}
	if !state.Banned {
		t.Fatalf("agent not banned after streak: %+v", state)
	}

	finding, err := module.Screen.Screen(ctx, commands.ScreenCommand{AgentAddress: "0xAAAA"})
	if err != nil {
		t.Fatalf("screen banned agent: %v", err)
	}
	if finding.OK || finding.BlockCode != entities.BlockAgentBanned {
		t.Fatalf("banned agent not refused: %+v", finding)
	}

	if err := module.Abuse.ClearCounters(ctx, "0xAAAA"); err != nil {
		t.Fatalf("clear counters: %v", err)
	}
	cleared, _, err := module.Store.Get(ctx, "0xAAAA")
	if err != nil {
		t.Fatalf("get cleared state: %v", err)
	}
	if cleared.Banned || cleared.RejectionStreak != 0 {
		t.Fatalf("counters not cleared: %+v", cleared)
	}
}
