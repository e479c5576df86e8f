package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/symptom-dx-server/internal/dataset"
)

// ArtifactName is the file name of a saved model inside the model directory.
const ArtifactName = "model.json"

// ErrModelNotFound is returned by Load when no artifact exists.
var ErrModelNotFound = errors.New("model artifact not found")

// Train fits a model on records. Records without symptoms are skipped.
func Train(records []dataset.Record, alpha float64) (*Model, error) {
	docs := make([]string, 0, len(records))
	labels := make([]string, 0, len(records))
	for _, r := range records {
		if len(r.Symptoms) == 0 {
			continue
		}
		docs = append(docs, r.Text())
		labels = append(labels, r.Disease)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no records with symptoms to train on")
	}

	vectorizer := FitVectorizer(docs)
	vectors := make([]map[int]float64, len(docs))
	for i, doc := range docs {
		vectors[i] = vectorizer.Transform(doc)
	}

	m, err := fit(vectors, labels, vectorizer.Size(), alpha)
	if err != nil {
		return nil, err
	}
	m.Vectorizer = vectorizer
	m.TrainedAt = time.Now().UTC()
	return m, nil
}

// Split deterministically holds out every fifth record for evaluation.
func Split(records []dataset.Record) (train, test []dataset.Record) {
	for i, r := range records {
		if i%5 == 4 {
			test = append(test, r)
		} else {
			train = append(train, r)
		}
	}
	return train, test
}

// Evaluate returns the share of records whose disease is the model's top label.
func Evaluate(ctx context.Context, m *Model, records []dataset.Record) (float64, error) {
	var total, correct int
	for _, r := range records {
		if len(r.Symptoms) == 0 {
			continue
		}
		label, err := m.Predict(ctx, r.Symptoms)
		if err != nil {
			return 0, err
		}
		total++
		if label == r.Disease {
			correct++
		}
	}
	if total == 0 {
		return 0, fmt.Errorf("no records to evaluate")
	}
	return float64(correct) / float64(total), nil
}

// Save writes the model to dir/model.json, replacing any previous artifact.
func Save(m *Model, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ArtifactName+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write model: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, ArtifactName)); err != nil {
		return fmt.Errorf("failed to install model: %w", err)
	}
	return nil
}

// Load reads dir/model.json. A missing artifact yields ErrModelNotFound.
func Load(dir string) (*Model, error) {
	path := filepath.Join(dir, ArtifactName)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read model: %w", err)
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	if m.Version != modelVersion {
		return nil, fmt.Errorf("unsupported model version %d", m.Version)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("model artifact %s is invalid: %w", path, err)
	}
	return &m, nil
}
