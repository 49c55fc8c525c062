// Package overlay annotates encoded frames with detection bounding boxes for
// the snapshot surface.
package overlay

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"lumen/internal/pipeline"
)

var boxColor = color.RGBA{0, 255, 0, 255}

// Annotate draws detection boxes and labels on a JPEG frame and returns the
// re-encoded image. Detections without a bounding box get a label in the top
// left corner. On decode or encode failure the original bytes are returned
// unchanged.
func Annotate(jpegData []byte, detections []pipeline.Detection) []byte {
	if len(detections) == 0 {
		return jpegData
	}

	img, err := jpeg.Decode(bytes.NewReader(jpegData))
	if err != nil {
		return jpegData
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)

	w := bounds.Dx()
	h := bounds.Dy()

	for i, det := range detections {
		label := fmt.Sprintf("%s %.0f%%", det.Name, det.Confidence*100)

		if det.BoundingBox == nil {
			drawLabel(rgba, 4, 14+i*16, label, boxColor)
			continue
		}

		// Boxes are normalized [0,1]; scale to pixels.
		x := int(det.BoundingBox.Left * float64(w))
		y := int(det.BoundingBox.Top * float64(h))
		bw := int(det.BoundingBox.Width * float64(w))
		bh := int(det.BoundingBox.Height * float64(h))

		drawBox(rgba, x, y, bw, bh, boxColor, 2)
		drawLabel(rgba, x, y-5, label, boxColor)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgba, &jpeg.Options{Quality: 85}); err != nil {
		return jpegData
	}
	return buf.Bytes()
}

// drawBox draws a rectangle outline on the image
func drawBox(img *image.RGBA, x, y, w, h int, c color.RGBA, thickness int) {
	bounds := img.Bounds()

	for t := 0; t < thickness; t++ {
		for i := x; i < x+w && i < bounds.Max.X; i++ {
			if i < 0 {
				continue
			}
			if y+t >= 0 && y+t < bounds.Max.Y {
				img.Set(i, y+t, c)
			}
			if y+h-t >= 0 && y+h-t < bounds.Max.Y {
				img.Set(i, y+h-t, c)
			}
		}
		for j := y; j < y+h && j < bounds.Max.Y; j++ {
			if j < 0 {
				continue
			}
			if x+t >= 0 && x+t < bounds.Max.X {
				img.Set(x+t, j, c)
			}
			if x+w-t >= 0 && x+w-t < bounds.Max.X {
				img.Set(x+w-t, j, c)
			}
		}
	}
}

// drawLabel draws text with a dark background strip
func drawLabel(img *image.RGBA, x, y int, label string, c color.RGBA) {
	if y < 10 {
		y = 10
	}
	if x < 0 {
		x = 0
	}

	bgColor := color.RGBA{0, 0, 0, 180}
	textWidth := len(label) * 7
	for dy := -2; dy < 12; dy++ {
		for dx := -2; dx < textWidth+2; dx++ {
			px, py := x+dx, y+dy
			if px >= 0 && px < img.Bounds().Max.X && py >= 0 && py < img.Bounds().Max.Y {
				img.Set(px, py, bgColor)
			}
		}
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y + 10)},
	}
	d.DrawString(label)
}
