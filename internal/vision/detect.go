package vision

import (
	"fmt"
	"math"
	"sort"

	ort "github.com/yalue/onnxruntime_go"
)

// Detection is one raw face detection in original-image pixel coordinates.
type Detection struct {
	BBox       [4]float32 // x1, y1, x2, y2
	Confidence float32
}

// Detector runs RetinaFace (det_10g) face detection via ONNX Runtime.
type Detector struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	scoreTensors []*ort.Tensor[float32]
	boxTensors   []*ort.Tensor[float32]
	threshold    float32
	inputW       int
	inputH       int
}

// det_10g emits anchor-based outputs at three strides, two anchors per cell.
var detStrides = []int{8, 16, 32}

const detAnchors = 2

// NewDetector loads the RetinaFace ONNX model.
func NewDetector(modelPath string, threshold float32) (*Detector, error) {
	inputW, inputH := 640, 640

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(inputH), int64(inputW)))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	// Score and box output counts per stride: (640/s)^2 * anchors.
	type out struct {
		name string
		rows int64
		cols int64
	}
	outs := []out{
		{"448", 12800, 1}, // scores, stride 8
		{"471", 3200, 1},  // scores, stride 16
		{"494", 800, 1},   // scores, stride 32
		{"451", 12800, 4}, // boxes, stride 8
		{"474", 3200, 4},  // boxes, stride 16
		{"497", 800, 4},   // boxes, stride 32
	}

	names := make([]string, len(outs))
	tensors := make([]*ort.Tensor[float32], len(outs))
	values := make([]ort.Value, len(outs))
	for i, o := range outs {
		names[i] = o.name
		t, err := ort.NewEmptyTensor[float32](ort.NewShape(o.rows, o.cols))
		if err != nil {
			for j := 0; j < i; j++ {
				tensors[j].Destroy()
			}
			inputTensor.Destroy()
			return nil, fmt.Errorf("create output tensor %s: %w", o.name, err)
		}
		tensors[i] = t
		values[i] = t
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input.1"},
		names,
		[]ort.Value{inputTensor},
		values,
		nil,
	)
	if err != nil {
		inputTensor.Destroy()
		for _, t := range tensors {
			t.Destroy()
		}
		return nil, fmt.Errorf("create detector session: %w", err)
	}

	return &Detector{
		session:      session,
		inputTensor:  inputTensor,
		scoreTensors: tensors[:3],
		boxTensors:   tensors[3:],
		threshold:    threshold,
		inputW:       inputW,
		inputH:       inputH,
	}, nil
}

// Detect runs face detection on a preprocessed CHW input.
// origW/origH scale the decoded boxes back to source-image coordinates.
func (d *Detector) Detect(input []float32, origW, origH int) ([]Detection, error) {
	copy(d.inputTensor.GetData(), input)

	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("run detection: %w", err)
	}

	return suppress(d.decode(origW, origH), 0.4), nil
}

// decode walks the anchor grid at every stride and keeps boxes above the
// confidence threshold, scaled to original image coordinates.
func (d *Detector) decode(origW, origH int) []Detection {
	var dets []Detection

	scaleW := float32(origW) / float32(d.inputW)
	scaleH := float32(origH) / float32(d.inputH)

	for si, stride := range detStrides {
		scores := d.scoreTensors[si].GetData()
		boxes := d.boxTensors[si].GetData()

		cells := d.inputW / stride
		st := float32(stride)

		idx := 0
		for cy := 0; cy < cells; cy++ {
			for cx := 0; cx < cells; cx++ {
				for a := 0; a < detAnchors; a++ {
					if scores[idx] >= d.threshold {
						ax := float32(cx) * st
						ay := float32(cy) * st

						x1 := clampF((ax-boxes[idx*4+0]*st)*scaleW, 0, float32(origW))
						y1 := clampF((ay-boxes[idx*4+1]*st)*scaleH, 0, float32(origH))
						x2 := clampF((ax+boxes[idx*4+2]*st)*scaleW, 0, float32(origW))
						y2 := clampF((ay+boxes[idx*4+3]*st)*scaleH, 0, float32(origH))

						dets = append(dets, Detection{
							BBox:       [4]float32{x1, y1, x2, y2},
							Confidence: scores[idx],
						})
					}
					idx++
				}
			}
		}
	}

	return dets
}

func (d *Detector) Close() {
	if d.session != nil {
		d.session.Destroy()
	}
	if d.inputTensor != nil {
		d.inputTensor.Destroy()
	}
	for _, t := range d.scoreTensors {
		t.Destroy()
	}
	for _, t := range d.boxTensors {
		t.Destroy()
	}
}

// suppress performs non-maximum suppression, keeping the highest-confidence
// box of every overlapping cluster.
func suppress(dets []Detection, iouThreshold float32) []Detection {
	if len(dets) == 0 {
		return dets
	}

	sort.Slice(dets, func(i, j int) bool {
		return dets[i].Confidence > dets[j].Confidence
	})

	keep := make([]bool, len(dets))
	for i := range keep {
		keep[i] = true
	}
	for i := range dets {
		if !keep[i] {
			continue
		}
		for j := i + 1; j < len(dets); j++ {
			if keep[j] && iou(dets[i].BBox, dets[j].BBox) > iouThreshold {
				keep[j] = false
			}
		}
	}

	out := dets[:0]
	for i, det := range dets {
		if keep[i] {
			out = append(out, det)
		}
	}
	return out
}

func iou(a, b [4]float32) float32 {
	x1 := float32(math.Max(float64(a[0]), float64(b[0])))
	y1 := float32(math.Max(float64(a[1]), float64(b[1])))
	x2 := float32(math.Min(float64(a[2]), float64(b[2])))
	y2 := float32(math.Min(float64(a[3]), float64(b[3])))

	inter := float32(math.Max(0, float64(x2-x1))) * float32(math.Max(0, float64(y2-y1)))

	areaA := (a[2] - a[0]) * (a[3] - a[1])
	areaB := (b[2] - b[0]) * (b[3] - b[1])

	union := areaA + areaB - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func clampF(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
