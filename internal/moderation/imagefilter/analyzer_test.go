package imagefilter

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// checkerTemplate builds a high-contrast pattern so correlation has signal.
func checkerTemplate(size int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := uint8(20)
			if (x/4+y/4)%2 == 0 {
				v = 230
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// imageWithTemplate pastes the template into a light background at (offX, offY).
func imageWithTemplate(template *image.Gray, w, h, offX, offY int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: 180})
		}
	}
	tb := template.Bounds()
	for y := 0; y < tb.Dy(); y++ {
		for x := 0; x < tb.Dx(); x++ {
			img.SetGray(offX+x, offY+y, template.GrayAt(x, y))
		}
	}
	return img
}

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "rival.png"), encodePNG(t, checkerTemplate(16)), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	analyzer := NewAnalyzer(dir)
	if analyzer.TemplateCount() != 1 {
		t.Fatalf("template count = %d, want 1", analyzer.TemplateCount())
	}
	return analyzer
}

func TestClassifyDetectsLogo(t *testing.T) {
	t.Parallel()

	analyzer := newTestAnalyzer(t)
	data := encodePNG(t, imageWithTemplate(checkerTemplate(16), 64, 64, 10, 10))

	result, err := analyzer.Classify(data, "")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if result.IsSafe || !result.HasCompetitorLogo {
		t.Fatalf("exact logo embed not flagged: %+v", result)
	}
	if result.Reason != "competitor_logo" {
		t.Fatalf("reason = %q, want competitor_logo", result.Reason)
	}
	if result.Width != 64 || result.Height != 64 {
		t.Fatalf("dimensions = %dx%d, want 64x64", result.Width, result.Height)
	}
}

func TestClassifyCleanImage(t *testing.T) {
	t.Parallel()

	analyzer := newTestAnalyzer(t)
	blank := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			blank.SetGray(x, y, color.Gray{Y: 200})
		}
	}

	result, err := analyzer.Classify(encodePNG(t, blank), "")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !result.IsSafe || result.HasCompetitorLogo {
		t.Fatalf("uniform image flagged: %+v", result)
	}
	if result.Reason != "safe" {
		t.Fatalf("reason = %q, want safe", result.Reason)
	}
}

func TestClassifyEducationalFlag(t *testing.T) {
	t.Parallel()

	analyzer := newTestAnalyzer(t)
	data := encodePNG(t, imageWithTemplate(checkerTemplate(16), 64, 64, 4, 4))

	tests := []struct {
		name            string
		caption         string
		wantEducational bool
	}{
		{name: "empty caption defaults to educational", caption: "", wantEducational: true},
		{name: "study caption", caption: "please solve this question", wantEducational: true},
		{name: "unrelated caption", caption: "look at this", wantEducational: false},
		{name: "conversational study words are not enough", caption: "help with my doubt", wantEducational: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result, err := analyzer.Classify(data, tt.caption)
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if result.IsEducational != tt.wantEducational {
				t.Fatalf("IsEducational = %v, want %v", result.IsEducational, tt.wantEducational)
			}
		})
	}
}

func TestClassifyDecodeError(t *testing.T) {
	t.Parallel()

	analyzer := newTestAnalyzer(t)
	if _, err := analyzer.Classify([]byte("definitely not an image"), ""); err == nil {
		t.Fatal("expected a decode error")
	}
}

func TestMissingLogosDirectory(t *testing.T) {
	t.Parallel()

	analyzer := NewAnalyzer(filepath.Join(t.TempDir(), "nope"))
	if analyzer.TemplateCount() != 0 {
		t.Fatalf("template count = %d, want 0", analyzer.TemplateCount())
	}

	data := encodePNG(t, imageWithTemplate(checkerTemplate(16), 64, 64, 10, 10))
	result, err := analyzer.Classify(data, "")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !result.IsSafe {
		t.Fatal("no templates loaded means nothing can be flagged")
	}
}
