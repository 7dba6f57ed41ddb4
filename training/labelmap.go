// Package training builds the face classifier from the enrollment dataset
// and persists the trained artifacts.
package training

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yacine-dev/attendclass/models"
)

// LabelEntry maps a numeric class label back to a person.
type LabelEntry struct {
	PersonID uint              `json:"person_id"`
	Name     string            `json:"name"`
	Kind     models.PersonKind `json:"kind"`
}

// LabelMap maps class labels produced by the classifier to label entries.
type LabelMap map[int]LabelEntry

// SaveLabelMap writes the label map as JSON, using a temp-file rename so a
// crash never leaves a truncated map next to a valid classifier.
func SaveLabelMap(labels LabelMap, path string) error {
	data, err := json.MarshalIndent(labels, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize label map: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write label map: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize label map: %w", err)
	}
	return nil
}

// LoadLabelMap reads a label map previously written by SaveLabelMap.
func LoadLabelMap(path string) (LabelMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read label map %s: %w", filepath.Base(path), err)
	}

	var labels LabelMap
	if err := json.Unmarshal(data, &labels); err != nil {
		return nil, fmt.Errorf("failed to parse label map: %w", err)
	}
	return labels, nil
}
