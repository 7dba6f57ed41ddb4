package vision

import (
	"errors"
	"fmt"
	"image"
	"log"
	"math"
	"os"

	"gocv.io/x/gocv"
)

// ErrEmbedderDisabled is returned when embedding is requested but no
// model was loaded.
var ErrEmbedderDisabled = errors.New("face embedder is not enabled")

// FaceEmbedder computes fixed-length, L2-normalized face embeddings from
// face regions using a recognition DNN (FaceNet, ArcFace or similar).
type FaceEmbedder struct {
	Net       gocv.Net
	Enabled   bool
	ModelName string

	// Configuration parameters
	InputSizeW int
	InputSizeH int
	MeanVal    gocv.Scalar

	// locator used by EncodeFile to find the face inside a saved crop
	locator Locator
}

// NewFaceEmbedder loads a face embedding model (ArcFace, FaceNet, etc.).
// The locator is only needed for EncodeFile; passing nil makes EncodeFile
// treat the entire image as the face region, which is correct for
// enrollment crops.
func NewFaceEmbedder(modelPath, modelName string, locator Locator) *FaceEmbedder {
	if modelPath == "" {
		log.Println("recognition: model path is empty, disabling face embedding")
		return &FaceEmbedder{Enabled: false}
	}

	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		log.Printf("recognition: ERROR - Model file does not exist: %s", modelPath)
		return &FaceEmbedder{Enabled: false}
	}

	net := gocv.ReadNet(modelPath, "")
	if net.Empty() {
		log.Printf("recognition: ERROR - ReadNet returned an empty network for %s. Check file path and integrity.", modelName)
		return &FaceEmbedder{Enabled: false}
	}
	log.Printf("recognition: successfully loaded %s model", modelName)

	cudaBackendErr := net.SetPreferableBackend(gocv.NetBackendCUDA)
	cudaTargetErr := net.SetPreferableTarget(gocv.NetTargetCUDA)
	if cudaBackendErr == nil && cudaTargetErr == nil {
		log.Printf("recognition: Set backend/target to CUDA for %s", modelName)
	} else {
		net.SetPreferableBackend(gocv.NetBackendDefault)
		net.SetPreferableTarget(gocv.NetTargetCPU)
		log.Printf("recognition: Set backend/target to CPU (Default) for %s", modelName)
	}

	var inputSizeW, inputSizeH int
	switch modelName {
	case "arcface":
		inputSizeW, inputSizeH = 112, 112
	case "facenet":
		inputSizeW, inputSizeH = 160, 160
	default:
		inputSizeW, inputSizeH = 112, 112
	}

	return &FaceEmbedder{
		Net:        net,
		Enabled:    true,
		ModelName:  modelName,
		InputSizeW: inputSizeW,
		InputSizeH: inputSizeH,
		MeanVal:    gocv.NewScalar(0, 0, 0, 0),
		locator:    locator,
	}
}

func (f *FaceEmbedder) Close() {
	if f != nil && f.Enabled {
		f.Net.Close()
		log.Printf("recognition: closed %s network", f.ModelName)
		f.Enabled = false
	}
}

// Encode computes one embedding per box from the full-resolution frame,
// preserving box order. A box that cannot be embedded yields a nil vector
// at its index rather than failing the batch.
func (f *FaceEmbedder) Encode(img gocv.Mat, boxes []DetectionResult) ([][]float32, error) {
	if f == nil || !f.Enabled {
		return nil, ErrEmbedderDisabled
	}
	if img.Empty() {
		return nil, fmt.Errorf("cannot encode faces in an empty frame")
	}

	embeddings := make([][]float32, len(boxes))
	for i, box := range boxes {
		rect := image.Rect(box.X, box.Y, box.X+box.W, box.Y+box.H).Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))
		if rect.Empty() {
			continue
		}
		region := img.Region(rect)
		embeddings[i] = f.embedRegion(region)
		region.Close()
	}
	return embeddings, nil
}

// EncodeFile decodes an image from disk and returns the embedding of the
// first face found in it. Returns a nil vector (and nil error) when no
// face is present, so callers can skip the image with a warning.
func (f *FaceEmbedder) EncodeFile(path string) ([]float32, error) {
	if f == nil || !f.Enabled {
		return nil, ErrEmbedderDisabled
	}

	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		return nil, fmt.Errorf("could not decode image %s", path)
	}
	defer img.Close()

	if f.locator != nil {
		boxes := f.locator.Locate(img)
		if len(boxes) == 0 {
			return nil, nil
		}
		box := boxes[0]
		rect := image.Rect(box.X, box.Y, box.X+box.W, box.Y+box.H).Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))
		if rect.Empty() {
			return nil, nil
		}
		region := img.Region(rect)
		defer region.Close()
		return f.embedRegion(region), nil
	}

	// enrollment crops are already tight face regions
	return f.embedRegion(img), nil
}

// embedRegion preprocesses one face region and runs the forward pass.
func (f *FaceEmbedder) embedRegion(faceRegion gocv.Mat) []float32 {
	if faceRegion.Empty() {
		return nil
	}

	rgb := gocv.NewMat()
	defer rgb.Close()
	if faceRegion.Channels() == 3 {
		gocv.CvtColor(faceRegion, &rgb, gocv.ColorBGRToRGB)
	} else {
		faceRegion.CopyTo(&rgb)
	}

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(rgb, &resized, image.Pt(f.InputSizeW, f.InputSizeH), 0, 0, gocv.InterpolationLinear)

	// scale pixel values to [0,1]; the nets expect normalized input
	blob := gocv.BlobFromImage(resized, 1.0/255.0, image.Pt(f.InputSizeW, f.InputSizeH), f.MeanVal, false, false)
	defer blob.Close()

	f.Net.SetInput(blob, "")
	output := f.Net.Forward("")
	defer output.Close()

	embedding := flattenOutput(output)
	if len(embedding) == 0 {
		log.Printf("recognition: WARNING - empty embedding output from %s", f.ModelName)
		return nil
	}
	return normalizeEmbedding(embedding)
}

// flattenOutput extracts the embedding vector from the model output
func flattenOutput(output gocv.Mat) []float32 {
	if len(output.Size()) == 0 {
		return nil
	}

	flattened := output.Reshape(1, 1)
	defer flattened.Close()

	embeddingSize := flattened.Cols()
	embedding := make([]float32, embeddingSize)
	for i := 0; i < embeddingSize; i++ {
		embedding[i] = flattened.GetFloatAt(0, i)
	}
	return embedding
}

// normalizeEmbedding scales the vector to unit length so dot products are
// cosine similarities and classifier inputs are comparable across frames.
func normalizeEmbedding(embedding []float32) []float32 {
	var norm float32
	for _, val := range embedding {
		norm += val * val
	}
	norm = float32(math.Sqrt(float64(norm)))
	if norm == 0 {
		return embedding
	}

	normalized := make([]float32, len(embedding))
	for i, val := range embedding {
		normalized[i] = val / norm
	}
	return normalized
}
