package training

import (
	"encoding/gob"
	"fmt"
	"math"
	"math/rand"
	"os"
)

// SoftmaxClassifier is a multinomial logistic regression model over face
// embeddings. It produces calibrated class probabilities, which lets the
// recognition engine apply a confidence threshold.
//
// Fields are exported for gob serialization.
type SoftmaxClassifier struct {
	Weights  [][]float64 // one row per class, Dim+1 columns (bias last)
	ClassIDs []int       // class label for each weight row
	Dim      int         // embedding dimensionality
}

// Fit trains the classifier with mini-batch-free gradient descent. The
// seed fixes the shuffle order so repeated runs on the same data produce
// the same model.
func Fit(samples [][]float32, labels []int, seed int64) (*SoftmaxClassifier, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no training samples")
	}
	if len(samples) != len(labels) {
		return nil, fmt.Errorf("sample/label count mismatch: %d vs %d", len(samples), len(labels))
	}

	dim := len(samples[0])
	classIDs := uniqueSorted(labels)
	if len(classIDs) < 2 {
		return nil, fmt.Errorf("need at least 2 classes, got %d", len(classIDs))
	}
	classIndex := make(map[int]int, len(classIDs))
	for i, id := range classIDs {
		classIndex[id] = i
	}

	weights := make([][]float64, len(classIDs))
	for i := range weights {
		weights[i] = make([]float64, dim+1)
	}

	rng := rand.New(rand.NewSource(seed))
	order := rng.Perm(len(samples))

	const (
		epochs       = 200
		learningRate = 0.5
		l2           = 1e-4
	)

	probs := make([]float64, len(classIDs))
	for epoch := 0; epoch < epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		lr := learningRate / (1 + 0.01*float64(epoch))

		for _, idx := range order {
			x := samples[idx]
			target := classIndex[labels[idx]]
			scoreInto(probs, weights, x)
			softmaxInPlace(probs)

			for c := range weights {
				grad := probs[c]
				if c == target {
					grad -= 1
				}
				row := weights[c]
				for d := 0; d < dim; d++ {
					row[d] -= lr * (grad*float64(x[d]) + l2*row[d])
				}
				row[dim] -= lr * grad
			}
		}
	}

	return &SoftmaxClassifier{Weights: weights, ClassIDs: classIDs, Dim: dim}, nil
}

// Predict returns the most likely class label and its probability.
func (m *SoftmaxClassifier) Predict(embedding []float32) (int, float64, error) {
	if len(embedding) != m.Dim {
		return 0, 0, fmt.Errorf("embedding dimension %d does not match model dimension %d", len(embedding), m.Dim)
	}

	probs := make([]float64, len(m.Weights))
	scoreInto(probs, m.Weights, embedding)
	softmaxInPlace(probs)

	best := 0
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return m.ClassIDs[best], probs[best], nil
}

// Classes returns the class labels the model was trained on, ascending.
func (m *SoftmaxClassifier) Classes() []int {
	out := make([]int, len(m.ClassIDs))
	copy(out, m.ClassIDs)
	return out
}

func scoreInto(dst []float64, weights [][]float64, x []float32) {
	dim := len(x)
	for c, row := range weights {
		score := row[dim]
		for d := 0; d < dim; d++ {
			score += row[d] * float64(x[d])
		}
		dst[c] = score
	}
}

func softmaxInPlace(scores []float64) {
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}
	var sum float64
	for i, s := range scores {
		scores[i] = math.Exp(s - max)
		sum += scores[i]
	}
	for i := range scores {
		scores[i] /= sum
	}
}

func uniqueSorted(labels []int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// SaveClassifier gob-encodes the model, writing through a temp file so the
// artifact on disk is always complete.
func SaveClassifier(m *SoftmaxClassifier, path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create classifier file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(m); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode classifier: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close classifier file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize classifier file: %w", err)
	}
	return nil
}

// LoadClassifier reads a model written by SaveClassifier.
func LoadClassifier(path string) (*SoftmaxClassifier, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open classifier file: %w", err)
	}
	defer f.Close()

	var m SoftmaxClassifier
	if err := gob.NewDecoder(f).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode classifier: %w", err)
	}
	return &m, nil
}
