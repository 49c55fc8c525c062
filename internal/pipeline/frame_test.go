package pipeline

import (
	"time"
)

// uniformFrame builds a frame filled with a single RGB value.
func uniformFrame(w, h int, r, g, b byte) *FrameSample {
	px := make([]byte, w*h*4)
	for i := 0; i < len(px); i += 4 {
		px[i] = r
		px[i+1] = g
		px[i+2] = b
		px[i+3] = 255
	}
	return &FrameSample{
		Pixels:    px,
		Width:     w,
		Height:    h,
		Encoded:   []byte("encoded-frame"),
		Timestamp: time.Now(),
	}
}

// grayFrame builds a frame with equal RGB channels, so luminance equals the
// channel value.
func grayFrame(w, h int, v byte) *FrameSample {
	return uniformFrame(w, h, v, v, v)
}

// noiseFrame builds a frame with deterministic pseudo-noise around mid
// luminance, giving high gradient content while staying inside the optimal
// brightness band.
func noiseFrame(w, h int) *FrameSample {
	px := make([]byte, w*h*4)
	for p := 0; p < w*h; p++ {
		v := byte(64 + (p*37+p*p*13)%128)
		i := p * 4
		px[i] = v
		px[i+1] = v
		px[i+2] = v
		px[i+3] = 255
	}
	return &FrameSample{
		Pixels:    px,
		Width:     w,
		Height:    h,
		Encoded:   []byte("noise-frame"),
		Timestamp: time.Now(),
	}
}
