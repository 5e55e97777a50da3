// Package renderer draws a PNG overview of a finished mix: the peak
// envelope, crossfade regions and a tempo label per track.
package renderer

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/linuxmatters/jivemix/internal/pipeline"
)

// Default image geometry
const (
	DefaultWidth  = 1280
	DefaultHeight = 320
	margin        = 16
	labelSize     = 14.0
)

var (
	backgroundColor = color.RGBA{R: 0x12, G: 0x12, B: 0x1A, A: 0xFF}
	fadeColor       = color.RGBA{R: 0x2E, G: 0x22, B: 0x44, A: 0xFF}
	markerColor     = color.RGBA{R: 0xB3, G: 0x88, B: 0xFF, A: 0xFF}
	labelColor      = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	axisColor       = color.RGBA{R: 0x3A, G: 0x3A, B: 0x3A, A: 0xFF}

	// One envelope colour per track, cycled
	trackColors = []color.RGBA{
		{R: 0x00, G: 0xE5, B: 0xFF, A: 0xFF},
		{R: 0xFF, G: 0x3E, B: 0xA5, A: 0xFF},
		{R: 0xFF, G: 0xB3, B: 0x00, A: 0xFF},
		{R: 0x69, G: 0xF0, B: 0xAE, A: 0xFF},
	}
)

// ErrEmptyMix is returned when there is nothing to draw
var ErrEmptyMix = errors.New("mix has no audio")

// Render draws the waveform overview of report's mix at the given size
func Render(report *pipeline.Report, width, height int) (*image.RGBA, error) {
	if report == nil || report.Mix.Frames() == 0 || report.Mix.Channels <= 0 {
		return nil, ErrEmptyMix
	}
	if width <= 2*margin || height <= 2*margin {
		return nil, fmt.Errorf("waveform size %dx%d is too small", width, height)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	plotWidth := width - 2*margin
	total := report.MixDuration
	if total <= 0 {
		total = report.Mix.Duration()
	}
	xOf := func(d time.Duration) int {
		return margin + int(float64(plotWidth)*float64(d)/float64(total))
	}

	starts := append([]time.Duration{0}, report.Transitions()...)

	// Crossfade regions behind the envelope
	for _, at := range starts[1:] {
		x0, x1 := xOf(at), xOf(at+report.Crossfade)
		fill := image.Rect(x0, margin, max(x1, x0+1), height-margin)
		draw.Draw(img, fill, image.NewUniform(fadeColor), image.Point{}, draw.Src)
	}

	mid := height / 2
	for x := margin; x < width-margin; x++ {
		img.SetRGBA(x, mid, axisColor)
	}

	peaks := columnPeaks(report.Mix.Samples, report.Mix.Channels, plotWidth)
	half := float64(height/2 - margin)
	for col, peak := range peaks {
		x := margin + col
		at := time.Duration(float64(total) * (float64(col) + 0.5) / float64(plotWidth))
		c := trackColors[trackAt(starts, at)%len(trackColors)]

		h := int(math.Round(peak * half))
		for y := mid - h; y <= mid+h; y++ {
			img.SetRGBA(x, y, c)
		}
	}

	// Transition markers at the start of each fade
	for _, at := range starts[1:] {
		x := xOf(at)
		for y := margin; y < height-margin; y++ {
			img.SetRGBA(x, y, markerColor)
		}
	}

	face, err := loadFace(labelSize)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	for i, tr := range report.Tracks {
		if i >= len(starts) {
			break
		}
		label := fmt.Sprintf("%d · %g BPM", i+1, tr.BPM)
		drawLabel(img, face, label, xOf(starts[i])+4, margin+int(labelSize))
	}

	return img, nil
}

// Save renders report's overview and writes it to path as PNG
func Save(path string, report *pipeline.Report) error {
	img, err := Render(report, DefaultWidth, DefaultHeight)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".jivemix-waveform-*.png")
	if err != nil {
		return fmt.Errorf("create waveform: %w", err)
	}
	tmpPath := tmp.Name()

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encode waveform: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write waveform: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("move waveform into place: %w", err)
	}
	return nil
}

// columnPeaks reduces interleaved samples to the absolute peak of each of
// columns equal slices, clamped to 1
func columnPeaks(samples []float64, channels, columns int) []float64 {
	frames := len(samples) / channels
	peaks := make([]float64, columns)
	if frames == 0 {
		return peaks
	}

	for col := range peaks {
		start := col * frames / columns
		end := (col + 1) * frames / columns
		if end <= start {
			end = min(start+1, frames)
		}
		peak := 0.0
		for _, s := range samples[start*channels : end*channels] {
			peak = max(peak, math.Abs(s))
		}
		peaks[col] = min(peak, 1)
	}
	return peaks
}

// trackAt returns the index of the track playing at mix position at.
// During a crossfade the incoming track wins.
func trackAt(starts []time.Duration, at time.Duration) int {
	idx := 0
	for i, s := range starts {
		if at >= s {
			idx = i
		}
	}
	return idx
}

func loadFace(size float64) (font.Face, error) {
	parsed, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return truetype.NewFace(parsed, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	}), nil
}

// measureText returns the rendered width of text
func measureText(face font.Face, text string) int {
	d := &font.Drawer{Face: face}
	bounds, _ := d.BoundString(text)
	return (bounds.Max.X - bounds.Min.X).Ceil()
}

// drawLabel draws text with its baseline at (x, baselineY), pulled left if
// it would run off the right edge
func drawLabel(img *image.RGBA, face font.Face, text string, x, baselineY int) {
	if text == "" {
		return
	}
	if w := measureText(face, text); x+w > img.Bounds().Dx()-margin {
		x = max(margin, img.Bounds().Dx()-margin-w)
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelColor),
		Face: face,
		Dot:  freetype.Pt(x, baselineY),
	}
	d.DrawString(text)
}
