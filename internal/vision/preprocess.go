package vision

import "image"

func preprocessForDetection(img image.Image, targetW, targetH int) []float32 {
	return toFloat32CHW(img, targetW, targetH, 127.5, 128.0)
}

func preprocessForEmbedding(img image.Image, targetW, targetH int) []float32 {
	return toFloat32CHW(img, targetW, targetH, 127.5, 127.5)
}

// toFloat32CHW converts an image to normalized CHW float32:
//
//	pixel = (pixel - mean) / std
func toFloat32CHW(img image.Image, targetW, targetH int, mean, std float32) []float32 {
	resized := resizeNearest(img, targetW, targetH)
	bounds := resized.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	data := make([]float32, 3*h*w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := resized.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()

			idx := y*w + x
			data[0*h*w+idx] = (float32(r>>8) - mean) / std
			data[1*h*w+idx] = (float32(g>>8) - mean) / std
			data[2*h*w+idx] = (float32(b>>8) - mean) / std
		}
	}
	return data
}

// resizeNearest performs nearest-neighbour resize. Fast, and the models are
// tolerant of the quality loss.
func resizeNearest(img image.Image, targetW, targetH int) image.Image {
	bounds := img.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	for y := 0; y < targetH; y++ {
		for x := 0; x < targetW; x++ {
			srcX := bounds.Min.X + x*srcW/targetW
			srcY := bounds.Min.Y + y*srcH/targetH
			dst.Set(x, y, img.At(srcX, srcY))
		}
	}
	return dst
}

// cropFace extracts the face region with 10% padding on each side, clamped
// to image bounds. Returns nil when the clamped region is empty.
func cropFace(img image.Image, bbox [4]float32) image.Image {
	bounds := img.Bounds()

	x1 := clampI(int(bbox[0]), bounds.Min.X, bounds.Max.X)
	y1 := clampI(int(bbox[1]), bounds.Min.Y, bounds.Max.Y)
	x2 := clampI(int(bbox[2]), bounds.Min.X, bounds.Max.X)
	y2 := clampI(int(bbox[3]), bounds.Min.Y, bounds.Max.Y)

	w := x2 - x1
	h := y2 - y1
	if w <= 0 || h <= 0 {
		return nil
	}

	x1 = clampI(x1-w/10, bounds.Min.X, bounds.Max.X)
	y1 = clampI(y1-h/10, bounds.Min.Y, bounds.Max.Y)
	x2 = clampI(x2+w/10, bounds.Min.X, bounds.Max.X)
	y2 = clampI(y2+h/10, bounds.Min.Y, bounds.Max.Y)

	crop := image.NewRGBA(image.Rect(0, 0, x2-x1, y2-y1))
	for cy := y1; cy < y2; cy++ {
		for cx := x1; cx < x2; cx++ {
			crop.Set(cx-x1, cy-y1, img.At(cx, cy))
		}
	}
	return crop
}

func clampI(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
