package training

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/facette/natsort"

	"github.com/yacine-dev/attendclass/config"
	"github.com/yacine-dev/attendclass/models"
	"github.com/yacine-dev/attendclass/vision"
)

// ErrInsufficientData indicates the dataset holds no encodable samples.
var ErrInsufficientData = errors.New("no usable face samples in dataset")

// ErrNeedTwoIdentities indicates the dataset covers fewer than two people.
var ErrNeedTwoIdentities = errors.New("training requires samples for at least 2 identities")

// Phase names reported through the progress callback.
const (
	PhaseScanning   = "scanning"
	PhaseEncoding   = "encoding"
	PhaseSplitting  = "splitting"
	PhaseFitting    = "fitting"
	PhaseEvaluating = "evaluating"
	PhaseSaving     = "saving"
)

// ProgressFunc receives phase updates during a training run. done/total
// are only meaningful during the encoding phase.
type ProgressFunc func(phase string, done, total int)

// Result summarizes a completed training run.
type Result struct {
	HoldoutAccuracy float64
	Classes         int
	Samples         int
}

// Trainer walks the dataset, encodes every sample image and fits the
// classifier. Artifacts are only written when the whole run succeeds, so
// a failed run never clobbers a previously trained model.
type Trainer struct {
	Config  *config.Config
	Encoder vision.FileEncoder
}

func NewTrainer(cfg *config.Config, encoder vision.FileEncoder) *Trainer {
	return &Trainer{Config: cfg, Encoder: encoder}
}

type datasetClass struct {
	personID uint
	name     string
	kind     models.PersonKind
	images   []string
}

// Train runs the full pipeline. The progress callback may be nil.
func (t *Trainer) Train(progress ProgressFunc) (*Result, error) {
	report := func(phase string, done, total int) {
		if progress != nil {
			progress(phase, done, total)
		}
	}

	report(PhaseScanning, 0, 0)
	classes, err := t.scanDataset()
	if err != nil {
		return nil, err
	}
	if len(classes) == 0 {
		return nil, ErrInsufficientData
	}

	totalImages := 0
	for _, c := range classes {
		totalImages += len(c.images)
	}

	report(PhaseEncoding, 0, totalImages)
	var (
		samples  [][]float32
		labels   []int
		labelMap = make(LabelMap)
		encoded  = 0
	)
	for label, class := range classes {
		classSamples := 0
		for _, path := range class.images {
			embedding, err := t.Encoder.EncodeFile(path)
			encoded++
			report(PhaseEncoding, encoded, totalImages)
			if err != nil {
				log.Printf("training: skipping %s: %v", path, err)
				continue
			}
			if embedding == nil {
				log.Printf("training: no face found in %s, skipping", path)
				continue
			}
			samples = append(samples, embedding)
			labels = append(labels, label)
			classSamples++
		}
		if classSamples == 0 {
			log.Printf("training: WARNING - no usable samples for %s %d (%s)", class.kind, class.personID, class.name)
			continue
		}
		if classSamples < t.Config.MinSamplesPerClass {
			log.Printf("training: WARNING - %s %d (%s) has only %d samples, recommended minimum is %d",
				class.kind, class.personID, class.name, classSamples, t.Config.MinSamplesPerClass)
		}
		labelMap[label] = LabelEntry{PersonID: class.personID, Name: class.name, Kind: class.kind}
	}

	if len(samples) == 0 {
		return nil, ErrInsufficientData
	}
	if len(labelMap) < 2 {
		return nil, ErrNeedTwoIdentities
	}

	report(PhaseSplitting, 0, 0)
	trainX, trainY, testX, testY := splitHoldout(samples, labels, t.Config.HoldoutRatio, t.Config.TrainSeed)

	report(PhaseFitting, 0, 0)
	model, err := Fit(trainX, trainY, t.Config.TrainSeed)
	if err != nil {
		return nil, fmt.Errorf("failed to fit classifier: %w", err)
	}

	report(PhaseEvaluating, 0, 0)
	accuracy := evaluate(model, testX, testY)
	log.Printf("training: holdout accuracy %.2f%% over %d samples, %d classes",
		accuracy*100, len(samples), len(labelMap))

	report(PhaseSaving, 0, 0)
	if err := SaveClassifier(model, t.Config.ClassifierPath); err != nil {
		return nil, err
	}
	if err := SaveLabelMap(labelMap, t.Config.LabelMapPath); err != nil {
		return nil, err
	}

	return &Result{
		HoldoutAccuracy: accuracy,
		Classes:         len(labelMap),
		Samples:         len(samples),
	}, nil
}

// scanDataset enumerates person folders under the students and teachers
// dataset roots. Students come first so labels stay stable between runs
// over an unchanged dataset.
func (t *Trainer) scanDataset() ([]datasetClass, error) {
	var classes []datasetClass
	roots := []struct {
		path string
		kind models.PersonKind
	}{
		{t.Config.StudentsPath, models.KindStudent},
		{t.Config.TeachersPath, models.KindTeacher},
	}

	for _, root := range roots {
		entries, err := os.ReadDir(root.path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read dataset directory %s: %w", root.path, err)
		}

		var names []string
		for _, entry := range entries {
			if entry.IsDir() {
				names = append(names, entry.Name())
			}
		}
		natsort.Sort(names)

		for _, name := range names {
			personID, displayName, ok := parseFolderName(name)
			if !ok {
				log.Printf("training: ignoring dataset folder %s (expected <id>_<name>)", name)
				continue
			}
			images, err := listImages(filepath.Join(root.path, name))
			if err != nil {
				return nil, err
			}
			if len(images) == 0 {
				continue
			}
			classes = append(classes, datasetClass{
				personID: personID,
				name:     displayName,
				kind:     root.kind,
				images:   images,
			})
		}
	}
	return classes, nil
}

func parseFolderName(name string) (uint, string, bool) {
	parts := strings.SplitN(name, "_", 2)
	if len(parts) != 2 {
		return 0, "", false
	}
	id, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return 0, "", false
	}
	return uint(id), parts[1], true
}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sample directory %s: %w", dir, err)
	}

	var images []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png":
			images = append(images, entry.Name())
		}
	}
	natsort.Sort(images)

	for i, name := range images {
		images[i] = filepath.Join(dir, name)
	}
	return images, nil
}

// splitHoldout carves off a holdout set per class with a deterministic
// shuffle. Stratifying by class guarantees every labeled identity keeps
// at least one training sample, so the fitted classifier's classes always
// cover the label map regardless of how small a class is.
func splitHoldout(samples [][]float32, labels []int, ratio float64, seed int64) ([][]float32, []int, [][]float32, []int) {
	rng := rand.New(rand.NewSource(seed))

	byClass := make(map[int][]int)
	for i, label := range labels {
		byClass[label] = append(byClass[label], i)
	}
	classes := uniqueSorted(labels)

	var trainX, testX [][]float32
	var trainY, testY []int
	for _, class := range classes {
		idxs := byClass[class]
		rng.Shuffle(len(idxs), func(i, j int) { idxs[i], idxs[j] = idxs[j], idxs[i] })

		holdout := int(float64(len(idxs)) * ratio)
		if holdout >= len(idxs) {
			holdout = len(idxs) - 1
		}
		for i, idx := range idxs {
			if i < holdout {
				testX = append(testX, samples[idx])
				testY = append(testY, labels[idx])
			} else {
				trainX = append(trainX, samples[idx])
				trainY = append(trainY, labels[idx])
			}
		}
	}
	return trainX, trainY, testX, testY
}

func evaluate(model *SoftmaxClassifier, testX [][]float32, testY []int) float64 {
	if len(testX) == 0 {
		return 0
	}
	correct := 0
	for i, x := range testX {
		predicted, _, err := model.Predict(x)
		if err == nil && predicted == testY[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(testX))
}
