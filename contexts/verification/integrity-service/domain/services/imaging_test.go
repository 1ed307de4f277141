package services_test

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"satin/contexts/verification/integrity-service/domain/entities"
	"satin/contexts/verification/integrity-service/domain/services"
)

func TestClassifyErrorLevelBands(t *testing.T) {
	cases := []struct {
		mean float64
		want entities.ELAVerdict
	}{
		{0, entities.ELAAuthentic},
		{14.99, entities.ELAAuthentic},
		{15, entities.ELAPossiblyEdited},
		{34.99, entities.ELAPossiblyEdited},
		{35, entities.ELASuspicious},
		{120, entities.ELASuspicious},
	}
	for _, c := range cases {
		if got := services.ClassifyErrorLevel(c.mean); got != c.want {
			t.Fatalf("ClassifyErrorLevel(%v) = %q, want %q", c.mean, got, c.want)
		}
	}
}

func TestErrorLevelUniformImageIsAuthentic(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	mean, verdict, err := services.ErrorLevel(buf.Bytes())
	if err != nil {
		t.Fatalf("ErrorLevel: %v", err)
	}
	if verdict != entities.ELAAuthentic {
		t.Fatalf("verdict = %q (mean %.2f), want authentic", verdict, mean)
	}
	if mean >= 15 {
		t.Fatalf("mean divergence = %.2f, want below the authentic ceiling", mean)
	}
}

func TestErrorLevelRejectsNonImage(t *testing.T) {
	if _, verdict, err := services.ErrorLevel([]byte("not an image")); err == nil {
		t.Fatal("expected decode error")
	} else if verdict != entities.ELAUnknown {
		t.Fatalf("verdict = %q, want unknown on decode failure", verdict)
	}
}
