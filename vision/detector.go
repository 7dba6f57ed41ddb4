package vision

import (
	"image"
	"log"

	"gocv.io/x/gocv"
)

// DNNFaceDetector locates faces with an SSD-style DNN model. Detection is
// run on a downsampled copy of the frame for throughput; box coordinates
// are rescaled back to full-frame space before being returned.
type DNNFaceDetector struct {
	Net     gocv.Net
	Enabled bool

	// configuration parameters used during detection
	InputSizeW    int
	InputSizeH    int
	ScaleFactor   float64
	MeanVal       gocv.Scalar
	ConfThreshold float32
	DetectScale   float64 // frame downsample factor before detection, (0,1]
}

// NewDNNFaceDetector loads the DNN face detection model. detectScale is
// the downsample factor applied to frames before detection (1.0 disables
// downsampling).
func NewDNNFaceDetector(configPath, modelPath string, detectScale float64) *DNNFaceDetector {
	if configPath == "" || modelPath == "" {
		log.Println("detection(dnn): config or model path is empty, disabling DNN detector")
		return &DNNFaceDetector{Enabled: false}
	}

	net := gocv.ReadNet(modelPath, configPath)
	if net.Empty() {
		log.Printf("detection(dnn): ERROR loading network model: config=%s, model=%s", configPath, modelPath)
		return &DNNFaceDetector{Enabled: false}
	}
	log.Printf("detection(dnn): successfully loaded face detection model")

	cudaBackendErr := net.SetPreferableBackend(gocv.NetBackendCUDA)
	cudaTargetErr := net.SetPreferableTarget(gocv.NetTargetCUDA)

	if cudaBackendErr == nil && cudaTargetErr == nil {
		log.Println("detection(dnn): Set backend/target to CUDA")
	} else {
		if cudaBackendErr != nil {
			log.Printf("detection(dnn): CUDA Backend not available or failed: %v. Using default backend.", cudaBackendErr)
		}
		if cudaTargetErr != nil {
			log.Printf("detection(dnn): CUDA Target not available or failed: %v. Using default target.", cudaTargetErr)
		}

		net.SetPreferableBackend(gocv.NetBackendDefault)
		net.SetPreferableTarget(gocv.NetTargetCPU)
		log.Println("detection(dnn): Set backend/target to CPU (Default)")
	}

	if detectScale <= 0 || detectScale > 1 {
		detectScale = 1.0
	}

	return &DNNFaceDetector{
		Net:           net,
		Enabled:       true,
		InputSizeW:    300,
		InputSizeH:    300,
		ScaleFactor:   1.0,
		MeanVal:       gocv.NewScalar(104.0, 177.0, 123.0, 0),
		ConfThreshold: 0.5,
		DetectScale:   detectScale,
	}
}

func (d *DNNFaceDetector) Close() {
	if d != nil && d.Enabled {
		d.Net.Close()
		log.Println("detection(dnn): closed network")
		d.Enabled = false
	}
}

// Locate runs face detection, downsampling first when DetectScale < 1 and
// mapping boxes back to full-frame coordinates.
func (d *DNNFaceDetector) Locate(img gocv.Mat) []DetectionResult {
	if d == nil || !d.Enabled || img.Empty() {
		return nil
	}

	if d.DetectScale >= 1.0 {
		return d.detect(img, float32(img.Cols()), float32(img.Rows()))
	}

	small := gocv.NewMat()
	defer small.Close()
	gocv.Resize(img, &small, image.Point{}, d.DetectScale, d.DetectScale, gocv.InterpolationLinear)

	results := d.detect(small, float32(small.Cols()), float32(small.Rows()))

	// rescale boxes to full-frame space
	inv := 1.0 / d.DetectScale
	for i := range results {
		results[i].X = int(float64(results[i].X) * inv)
		results[i].Y = int(float64(results[i].Y) * inv)
		results[i].W = int(float64(results[i].W) * inv)
		results[i].H = int(float64(results[i].H) * inv)
	}
	return results
}

// detect runs the forward pass on one image and returns boxes in that
// image's coordinate space.
func (d *DNNFaceDetector) detect(img gocv.Mat, imgWidth, imgHeight float32) []DetectionResult {
	blob := gocv.BlobFromImage(img, d.ScaleFactor, image.Pt(d.InputSizeW, d.InputSizeH), d.MeanVal, false, false)
	defer blob.Close()

	d.Net.SetInput(blob, "")
	detectionsMat := d.Net.Forward("")
	defer detectionsMat.Close()

	results := []DetectionResult{}

	sizes := detectionsMat.Size()
	if len(sizes) < 4 {
		log.Printf("detection(dnn): unexpected output shape %v", sizes)
		return results
	}

	// SSD output rows: [img_id, class_id, confidence, left, top, right, bottom]
	numDetections := sizes[2]
	flat := detectionsMat.Reshape(1, numDetections)
	defer flat.Close()

	for i := 0; i < numDetections; i++ {
		confidence := flat.GetFloatAt(i, 2)
		if confidence < d.ConfThreshold {
			continue
		}

		x1 := flat.GetFloatAt(i, 3) * imgWidth
		y1 := flat.GetFloatAt(i, 4) * imgHeight
		x2 := flat.GetFloatAt(i, 5) * imgWidth
		y2 := flat.GetFloatAt(i, 6) * imgHeight

		// clamp to image boundaries
		x1 = clampFloat32(x1, 0, imgWidth)
		y1 = clampFloat32(y1, 0, imgHeight)
		x2 = clampFloat32(x2, 0, imgWidth)
		y2 = clampFloat32(y2, 0, imgHeight)
		if x2 <= x1 || y2 <= y1 {
			continue
		}

		results = append(results, DetectionResult{
			X:          int(x1),
			Y:          int(y1),
			W:          int(x2 - x1),
			H:          int(y2 - y1),
			Confidence: confidence,
		})
	}

	return results
}

func clampFloat32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
