package pipeline

import (
	"math"
)

// Brightness scoring band: average luminance inside [brightnessLow,
// brightnessHigh] scores 1.0, below is scaled toward zero, above is penalized
// by the excess over the band relative to the remaining headroom.
const (
	brightnessLow  = 50.0
	brightnessHigh = 200.0

	sharpnessWeight  = 0.7
	brightnessWeight = 0.3
)

// QualityAssessor scores a single frame for sharpness and brightness.
// Sharpness is an approximate gradient magnitude from a Sobel 3x3 kernel over
// luminance, sampled on a sparse grid for cost control. Brightness is the
// average luminance over a coarse sample, scored against an optimal band.
type QualityAssessor struct {
	threshold float64
}

// NewQualityAssessor creates a quality assessor admitting frames whose
// combined score exceeds threshold.
func NewQualityAssessor(threshold float64) *QualityAssessor {
	return &QualityAssessor{threshold: threshold}
}

// Evaluate scores the frame and reports whether it clears the quality
// threshold. The combined score is always within [0,1].
func (q *QualityAssessor) Evaluate(frame *FrameSample) (bool, float64) {
	score := q.Score(frame)
	return score > q.threshold, score
}

// Score computes the weighted sharpness/brightness score for a frame
func (q *QualityAssessor) Score(frame *FrameSample) float64 {
	sharp := q.sharpness(frame)
	bright := q.brightness(frame)
	score := sharpnessWeight*sharp + brightnessWeight*bright
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}

// sharpness approximates the mean Sobel gradient magnitude over luminance,
// skipping every other column. Border rows and columns are excluded from the
// sum; lumAt treats out-of-bounds samples as zero so a short buffer degrades
// instead of failing.
func (q *QualityAssessor) sharpness(frame *FrameSample) float64 {
	w, h := frame.Width, frame.Height
	if w < 3 || h < 3 {
		return 0
	}

	var sum float64
	var count int
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x += 2 {
			gx := -lumAt(frame, x-1, y-1) + lumAt(frame, x+1, y-1) +
				-2*lumAt(frame, x-1, y) + 2*lumAt(frame, x+1, y) +
				-lumAt(frame, x-1, y+1) + lumAt(frame, x+1, y+1)
			gy := -lumAt(frame, x-1, y-1) - 2*lumAt(frame, x, y-1) - lumAt(frame, x+1, y-1) +
				lumAt(frame, x-1, y+1) + 2*lumAt(frame, x, y+1) + lumAt(frame, x+1, y+1)
			sum += math.Sqrt(gx*gx + gy*gy)
			count++
		}
	}
	if count == 0 {
		return 0
	}

	avg := sum / float64(count) / 255
	if avg > 1 {
		avg = 1
	}
	return avg
}

// brightness scores the average luminance of a coarse pixel sample against
// the optimal band.
func (q *QualityAssessor) brightness(frame *FrameSample) float64 {
	const step = 8 * 4 // every 8th pixel

	var sum float64
	var count int
	for i := 0; i+3 < len(frame.Pixels); i += step {
		sum += Luminance(frame.Pixels[i], frame.Pixels[i+1], frame.Pixels[i+2])
		count++
	}
	if count == 0 {
		return 0
	}
	avg := sum / float64(count)

	switch {
	case avg < brightnessLow:
		return avg / brightnessLow
	case avg > brightnessHigh:
		score := 1 - (avg-brightnessHigh)/(255-brightnessHigh)
		if score < 0 {
			score = 0
		}
		return score
	default:
		return 1
	}
}

// lumAt returns the luminance of the pixel at (x, y), or zero when the
// coordinate falls outside the buffer.
func lumAt(frame *FrameSample, x, y int) float64 {
	if x < 0 || y < 0 || x >= frame.Width || y >= frame.Height {
		return 0
	}
	i := (y*frame.Width + x) * 4
	if i+3 >= len(frame.Pixels) {
		return 0
	}
	return Luminance(frame.Pixels[i], frame.Pixels[i+1], frame.Pixels[i+2])
}
