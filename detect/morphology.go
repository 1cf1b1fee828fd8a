// Package detect implements the field-position detector: the layout + OCR
// algorithm that locates input slots (underlines and boxes) on a rasterized
// form page, pairs them with nearby labels and reports a font hint.
//
// All coordinates produced by this package are image-pixel coordinates with
// the origin at the top-left of the page raster.
package detect

import (
	"image"
	"image/color"
)

// binaryThreshold separates ink from paper in the grayscale page.
const binaryThreshold = 128

// Segment is an axis-aligned rectangle in image pixels.
type Segment struct {
	X, Y, W, H int
}

// CenterX returns the horizontal center of the segment.
func (s Segment) CenterX() float64 { return float64(s.X) + float64(s.W)/2 }

// CenterY returns the vertical center of the segment.
func (s Segment) CenterY() float64 { return float64(s.Y) + float64(s.H)/2 }

// Grayscale converts any image to 8-bit grayscale.
func Grayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

// binarize produces an ink mask: true where the pixel is darker than the
// threshold. The mask is indexed [y][x] over the image bounds translated to
// the origin.
func binarize(gray *image.Gray) [][]bool {
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	mask := make([][]bool, h)
	for y := 0; y < h; y++ {
		row := make([]bool, w)
		for x := 0; x < w; x++ {
			if gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y < binaryThreshold {
				row[x] = true
			}
		}
		mask[y] = row
	}
	return mask
}

// erodeHorizontal keeps a pixel only when the whole horizontal window of
// width kernel centered on it is ink.
func erodeHorizontal(mask [][]bool, kernel int) [][]bool {
	h := len(mask)
	if h == 0 {
		return mask
	}
	w := len(mask[0])
	half := kernel / 2
	out := make([][]bool, h)
	for y := 0; y < h; y++ {
		row := make([]bool, w)
		// sliding run length of consecutive ink pixels ending at x
		run := 0
		for x := 0; x < w; x++ {
			if mask[y][x] {
				run++
			} else {
				run = 0
			}
			if run >= kernel {
				center := x - half
				if center >= 0 && center < w {
					row[center] = true
				}
			}
		}
		out[y] = row
	}
	return out
}

// dilateHorizontal sets every pixel whose horizontal window of width kernel
// contains ink.
func dilateHorizontal(mask [][]bool, kernel int) [][]bool {
	h := len(mask)
	if h == 0 {
		return mask
	}
	w := len(mask[0])
	half := kernel / 2
	out := make([][]bool, h)
	for y := 0; y < h; y++ {
		row := make([]bool, w)
		for x := 0; x < w; x++ {
			if !mask[y][x] {
				continue
			}
			lo := x - half
			if lo < 0 {
				lo = 0
			}
			hi := x + half
			if hi >= w {
				hi = w - 1
			}
			for i := lo; i <= hi; i++ {
				row[i] = true
			}
		}
		out[y] = row
	}
	return out
}

// openHorizontal applies a morphological opening with a horizontal 1xN
// kernel, repeated for the given number of iterations. Opening removes
// everything narrower than the kernel, leaving long horizontal strokes.
func openHorizontal(mask [][]bool, kernel, iterations int) [][]bool {
	out := mask
	for i := 0; i < iterations; i++ {
		out = erodeHorizontal(out, kernel)
	}
	for i := 0; i < iterations; i++ {
		out = dilateHorizontal(out, kernel)
	}
	return out
}

// connectedComponents extracts bounding boxes of 4-connected ink regions.
func connectedComponents(mask [][]bool) []Segment {
	h := len(mask)
	if h == 0 {
		return nil
	}
	w := len(mask[0])
	labels := make([][]int, h)
	for y := range labels {
		labels[y] = make([]int, w)
	}

	var segments []Segment
	next := 0
	var stack [][2]int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !mask[y][x] || labels[y][x] != 0 {
				continue
			}
			next++
			minX, minY, maxX, maxY := x, y, x, y
			stack = stack[:0]
			stack = append(stack, [2]int{x, y})
			labels[y][x] = next
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				px, py := p[0], p[1]
				if px < minX {
					minX = px
				}
				if px > maxX {
					maxX = px
				}
				if py < minY {
					minY = py
				}
				if py > maxY {
					maxY = py
				}
				for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
					nx, ny := px+d[0], py+d[1]
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					if mask[ny][nx] && labels[ny][nx] == 0 {
						labels[ny][nx] = next
						stack = append(stack, [2]int{nx, ny})
					}
				}
			}
			segments = append(segments, Segment{
				X: minX,
				Y: minY,
				W: maxX - minX + 1,
				H: maxY - minY + 1,
			})
		}
	}
	return segments
}

// fillRatio returns the fraction of ink pixels inside the segment.
func fillRatio(mask [][]bool, s Segment) float64 {
	count := 0
	for y := s.Y; y < s.Y+s.H && y < len(mask); y++ {
		for x := s.X; x < s.X+s.W && x < len(mask[y]); x++ {
			if mask[y][x] {
				count++
			}
		}
	}
	area := s.W * s.H
	if area == 0 {
		return 0
	}
	return float64(count) / float64(area)
}
