// Package imagefilter flags competitor-logo content in images via multi-scale
// grayscale template matching against a set of reference logos.
package imagefilter

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/image/draw"

	"github.com/prepguard/prepguard/internal/moderation/patterns"
)

const (
	// Non-educational images get the wide net: small or resized logos should
	// still be caught when there is no trust signal in the caption.
	lenientThreshold = 0.8
	// Educational images only fail on near-exact matches, screenshots of
	// legitimate study material must not trip the matcher.
	strictThreshold = 0.9
)

var (
	lenientScales = []float64{0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0, 1.1, 1.2}
	strictScales  = []float64{0.8, 0.9, 1.0, 1.1, 1.2}
)

type Result struct {
	IsSafe            bool
	HasCompetitorLogo bool
	IsEducational     bool
	Width             int
	Height            int
	Reason            string
}

type Analyzer struct {
	templates map[string]*image.Gray
}

// NewAnalyzer loads every decodable image in logosDir as a reference
// template. A missing directory is not an error, the analyzer just never
// flags anything.
func NewAnalyzer(logosDir string) *Analyzer {
	a := &Analyzer{templates: map[string]*image.Gray{}}
	entry := log.WithField("object", "ImageAnalyzer")

	entries, err := os.ReadDir(logosDir)
	if err != nil {
		entry.WithField("dir", logosDir).Warn("logos directory not available")
		return a
	}

	for _, item := range entries {
		if item.IsDir() {
			continue
		}
		name := item.Name()
		switch strings.ToLower(filepath.Ext(name)) {
		case ".png", ".jpg", ".jpeg", ".gif", ".bmp":
		default:
			continue
		}
		data, err := os.ReadFile(filepath.Join(logosDir, name))
		if err != nil {
			entry.WithError(err).WithField("logo", name).Error("cant read logo template")
			continue
		}
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			entry.WithError(err).WithField("logo", name).Error("cant decode logo template")
			continue
		}
		key := strings.TrimSuffix(name, filepath.Ext(name))
		a.templates[key] = toGray(img)
		entry.WithField("logo", key).Debug("loaded logo template")
	}
	entry.Infof("loaded %d competitor logo templates", len(a.templates))
	return a
}

// TemplateCount returns the number of loaded reference logos.
func (a *Analyzer) TemplateCount() int {
	return len(a.templates)
}

// Classify decides whether imageData is safe to keep. An empty caption is
// treated as educational, the common case of a bare question photo. Decode
// failures are returned as errors, never as a silent safe verdict.
func (a *Analyzer) Classify(imageData []byte, caption string) (Result, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return Result{}, fmt.Errorf("decode image: %w", err)
	}

	isEducational := strings.TrimSpace(caption) == "" || patterns.HasEducationalCaption(caption)

	gray := toGray(img)
	threshold, scales := lenientThreshold, lenientScales
	if isEducational {
		threshold, scales = strictThreshold, strictScales
	}

	hasLogo := false
	for name, template := range a.templates {
		if confidence, scale, ok := a.matchTemplate(gray, template, threshold, scales); ok {
			log.WithFields(log.Fields{
				"logo":       name,
				"confidence": fmt.Sprintf("%.2f", confidence),
				"scale":      scale,
			}).Info("detected competitor logo")
			hasLogo = true
			break
		}
	}

	bounds := img.Bounds()
	result := Result{
		IsSafe:            !hasLogo,
		HasCompetitorLogo: hasLogo,
		IsEducational:     isEducational,
		Width:             bounds.Dx(),
		Height:            bounds.Dy(),
		Reason:            "safe",
	}
	if hasLogo {
		result.Reason = "competitor_logo"
	}
	return result, nil
}

// matchTemplate runs normalized cross-correlation at every requested scale and
// reports the first scale that crosses the threshold. Scales where the resized
// template would not fit inside the image are skipped.
func (a *Analyzer) matchTemplate(img, template *image.Gray, threshold float64, scales []float64) (float64, float64, bool) {
	imgW, imgH := img.Bounds().Dx(), img.Bounds().Dy()
	tmplW, tmplH := template.Bounds().Dx(), template.Bounds().Dy()
	if tmplW > imgW || tmplH > imgH {
		return 0, 0, false
	}

	for _, scale := range scales {
		w := int(float64(tmplW) * scale)
		h := int(float64(tmplH) * scale)
		if w < 1 || h < 1 || w > imgW || h > imgH {
			continue
		}
		resized := resizeGray(template, w, h)
		if peak := correlationPeak(img, resized); peak >= threshold {
			return peak, scale, true
		}
	}
	return 0, 0, false
}

// correlationPeak returns the maximum zero-mean normalized cross-correlation
// of template over every position in img.
func correlationPeak(img, template *image.Gray) float64 {
	imgW, imgH := img.Bounds().Dx(), img.Bounds().Dy()
	tmplW, tmplH := template.Bounds().Dx(), template.Bounds().Dy()

	tmplMean := grayMean(template)
	tmplNorm := make([]float64, tmplW*tmplH)
	var tmplEnergy float64
	for y := 0; y < tmplH; y++ {
		for x := 0; x < tmplW; x++ {
			v := float64(template.GrayAt(x, y).Y) - tmplMean
			tmplNorm[y*tmplW+x] = v
			tmplEnergy += v * v
		}
	}
	if tmplEnergy == 0 {
		return 0
	}

	best := -1.0
	for offY := 0; offY <= imgH-tmplH; offY++ {
		for offX := 0; offX <= imgW-tmplW; offX++ {
			var patchSum float64
			for y := 0; y < tmplH; y++ {
				for x := 0; x < tmplW; x++ {
					patchSum += float64(img.GrayAt(offX+x, offY+y).Y)
				}
			}
			patchMean := patchSum / float64(tmplW*tmplH)

			var dot, patchEnergy float64
			for y := 0; y < tmplH; y++ {
				for x := 0; x < tmplW; x++ {
					p := float64(img.GrayAt(offX+x, offY+y).Y) - patchMean
					dot += p * tmplNorm[y*tmplW+x]
					patchEnergy += p * p
				}
			}
			if patchEnergy == 0 {
				continue
			}
			score := dot / math.Sqrt(tmplEnergy*patchEnergy)
			if score > best {
				best = score
			}
		}
	}
	return best
}

func grayMean(img *image.Gray) float64 {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	var sum float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum += float64(img.GrayAt(x, y).Y)
		}
	}
	return sum / float64(w*h)
}

func toGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.SetGray(x-bounds.Min.X, y-bounds.Min.Y, color.GrayModel.Convert(img.At(x, y)).(color.Gray))
		}
	}
	return gray
}

func resizeGray(img *image.Gray, w, h int) *image.Gray {
	resized := image.NewGray(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(resized, resized.Bounds(), img, img.Bounds(), draw.Over, nil)
	return resized
}
