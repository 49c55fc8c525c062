// Package source provides FrameSample producers for the scan loop: a
// directory of JPEG files for demos and a static in-memory source for tests.
// Real camera capture is platform glue outside this repository.
package source

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	xdraw "golang.org/x/image/draw"

	"lumen/internal/pipeline"
)

// DirectorySource loops over the JPEG files of a directory, decoding and
// downscaling each to an analysis-sized RGBA buffer. The encoded bytes keep
// the original file content.
type DirectorySource struct {
	files         []string
	analysisWidth int
	logger        *log.Logger

	mu   sync.Mutex
	next int
}

// NewDirectorySource creates a source over dir. analysisWidth is the width
// frames are downscaled to before motion/quality analysis; height follows the
// aspect ratio.
func NewDirectorySource(dir string, analysisWidth int, logger *log.Logger) (*DirectorySource, error) {
	if logger == nil {
		logger = log.Default()
	}
	if analysisWidth < 16 {
		analysisWidth = 320
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.ToLower(e.Name())
		if strings.HasSuffix(name, ".jpg") || strings.HasSuffix(name, ".jpeg") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	if len(files) == 0 {
		return nil, fmt.Errorf("no JPEG frames in %s", dir)
	}

	return &DirectorySource{
		files:         files,
		analysisWidth: analysisWidth,
		logger:        logger,
	}, nil
}

// NextFrame returns the next frame in the loop, or nil if the current file
// cannot be read or decoded.
func (s *DirectorySource) NextFrame() *pipeline.FrameSample {
	s.mu.Lock()
	path := s.files[s.next]
	s.next = (s.next + 1) % len(s.files)
	s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Printf("[Source] Failed to read %s: %v", path, err)
		return nil
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		s.logger.Printf("[Source] Failed to decode %s: %v", path, err)
		return nil
	}

	rgba := downscale(img, s.analysisWidth)
	return &pipeline.FrameSample{
		Pixels:    rgba.Pix,
		Width:     rgba.Bounds().Dx(),
		Height:    rgba.Bounds().Dy(),
		Encoded:   data,
		Timestamp: time.Now(),
	}
}

// downscale resamples img to the given width, preserving aspect ratio
func downscale(img image.Image, width int) *image.RGBA {
	b := img.Bounds()
	if b.Dx() <= width {
		rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		xdraw.Draw(rgba, rgba.Bounds(), img, b.Min, xdraw.Src)
		return rgba
	}

	height := b.Dy() * width / b.Dx()
	if height < 1 {
		height = 1
	}
	rgba := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(rgba, rgba.Bounds(), img, b, xdraw.Src, nil)
	return rgba
}

// StaticSource cycles over a fixed set of samples. Nil entries are passed
// through, which exercises the scanner's no-frame-available path.
type StaticSource struct {
	mu      sync.Mutex
	samples []*pipeline.FrameSample
	next    int
}

// NewStaticSource creates a source over the given samples
func NewStaticSource(samples ...*pipeline.FrameSample) *StaticSource {
	return &StaticSource{samples: samples}
}

// NextFrame returns the next sample in the cycle
func (s *StaticSource) NextFrame() *pipeline.FrameSample {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.samples) == 0 {
		return nil
	}
	sample := s.samples[s.next]
	s.next = (s.next + 1) % len(s.samples)
	return sample
}

// Append adds samples to the cycle
func (s *StaticSource) Append(samples ...*pipeline.FrameSample) {
	s.mu.Lock()
	s.samples = append(s.samples, samples...)
	s.mu.Unlock()
}
