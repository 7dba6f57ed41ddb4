package training

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeClusters builds well-separated samples around one center per class.
func makeClusters(centers [][]float32, perClass int) ([][]float32, []int) {
	rng := rand.New(rand.NewSource(7))
	var samples [][]float32
	var labels []int
	for class, center := range centers {
		for i := 0; i < perClass; i++ {
			sample := make([]float32, len(center))
			for d := range center {
				sample[d] = center[d] + float32(rng.NormFloat64())*0.05
			}
			samples = append(samples, sample)
			labels = append(labels, class)
		}
	}
	return samples, labels
}

func TestFitSeparableClusters(t *testing.T) {
	centers := [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
	}
	samples, labels := makeClusters(centers, 20)

	model, err := Fit(samples, labels, 42)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, model.Classes())

	for i, sample := range samples {
		predicted, prob, err := model.Predict(sample)
		require.NoError(t, err)
		assert.Equal(t, labels[i], predicted)
		assert.Greater(t, prob, 0.5)
	}
}

func TestFitNeedsTwoClasses(t *testing.T) {
	samples := [][]float32{{1, 0}, {1, 0.1}}
	_, err := Fit(samples, []int{5, 5}, 42)
	assert.Error(t, err)
}

func TestFitIsDeterministic(t *testing.T) {
	centers := [][]float32{{1, 0}, {0, 1}}
	samples, labels := makeClusters(centers, 10)

	a, err := Fit(samples, labels, 42)
	require.NoError(t, err)
	b, err := Fit(samples, labels, 42)
	require.NoError(t, err)
	assert.Equal(t, a.Weights, b.Weights)
}

func TestPredictRejectsWrongDimension(t *testing.T) {
	centers := [][]float32{{1, 0}, {0, 1}}
	samples, labels := makeClusters(centers, 10)
	model, err := Fit(samples, labels, 42)
	require.NoError(t, err)

	_, _, err = model.Predict([]float32{1, 2, 3})
	assert.Error(t, err)
}

func TestClassifierSaveLoadRoundTrip(t *testing.T) {
	centers := [][]float32{{1, 0}, {0, 1}}
	samples, labels := makeClusters(centers, 10)
	model, err := Fit(samples, labels, 42)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "face_classifier.gob")
	require.NoError(t, SaveClassifier(model, path))

	loaded, err := LoadClassifier(path)
	require.NoError(t, err)
	assert.Equal(t, model.Classes(), loaded.Classes())
	assert.Equal(t, model.Dim, loaded.Dim)

	predicted, _, err := loaded.Predict(samples[0])
	require.NoError(t, err)
	assert.Equal(t, labels[0], predicted)
}
