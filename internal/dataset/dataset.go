// Package dataset reads the disease/symptom table used to build the symptom
// catalogue and to train the local classifier.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Record is one row of the table: a disease and the symptoms observed with it.
type Record struct {
	Disease  string
	Symptoms []string
}

// Text joins the symptoms with spaces, the form fed to the vectorizer.
func (r Record) Text() string {
	return strings.Join(r.Symptoms, " ")
}

// Dataset is a loaded table.
type Dataset struct {
	Path    string
	Records []Record
}

// ErrNoCSV is returned when a directory holds no CSV file.
var ErrNoCSV = errors.New("no csv file found")

// preferredNames are tried in order after the symptom+disease name match.
var preferredNames = []string{"dataset.csv", "Symptom2Disease.csv"}

// Discover resolves path to a CSV file. A file path is returned as is. For a
// directory the first match wins: a .csv whose name contains both "symptom"
// and "disease", then dataset.csv, then Symptom2Disease.csv, then any .csv
// found while walking the tree.
func Discover(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return path, nil
	}

	var csvFiles []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(p), ".csv") {
			csvFiles = append(csvFiles, p)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walk %s: %w", path, err)
	}

	for _, f := range csvFiles {
		name := strings.ToLower(filepath.Base(f))
		if strings.Contains(name, "symptom") && strings.Contains(name, "disease") {
			return f, nil
		}
	}
	for _, name := range preferredNames {
		candidate := filepath.Join(path, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	if len(csvFiles) > 0 {
		return csvFiles[0], nil
	}
	return "", fmt.Errorf("%w in %s", ErrNoCSV, path)
}

// Load discovers and reads the table at path.
func Load(path string) (*Dataset, error) {
	file, err := Discover(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(file), err)
	}
	defer f.Close()

	records, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(file), err)
	}
	return &Dataset{Path: file, Records: records}, nil
}

// Read parses a CSV table. The disease column is "Disease" or else the first
// header containing "disease"; every header containing "symptom" is a
// symptom column. Values are trimmed and lowercased, blank symptom cells are
// skipped and rows without a disease are ignored.
func Read(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("empty dataset")
	}
	if err != nil {
		return nil, err
	}

	diseaseCol, symptomCols := detectColumns(header)
	if diseaseCol < 0 {
		return nil, fmt.Errorf("no disease column in header %v", header)
	}
	if len(symptomCols) == 0 {
		return nil, fmt.Errorf("no symptom columns in header %v", header)
	}

	var records []Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		disease := cleanCell(cell(row, diseaseCol))
		if disease == "" {
			continue
		}
		rec := Record{Disease: disease}
		for _, col := range symptomCols {
			if s := cleanCell(cell(row, col)); s != "" {
				rec.Symptoms = append(rec.Symptoms, s)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func detectColumns(header []string) (int, []int) {
	disease := -1
	for i, h := range header {
		if strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) == "Disease" {
			disease = i
			break
		}
	}
	if disease < 0 {
		for i, h := range header {
			if strings.Contains(strings.ToLower(h), "disease") {
				disease = i
				break
			}
		}
	}

	var symptoms []int
	for i, h := range header {
		if i != disease && strings.Contains(strings.ToLower(h), "symptom") {
			symptoms = append(symptoms, i)
		}
	}
	return disease, symptoms
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func cleanCell(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CollectSymptoms returns the sorted set of distinct symptoms across records.
func CollectSymptoms(records []Record) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		for _, s := range r.Symptoms {
			seen[s] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Symptoms returns the distinct symptoms of the dataset.
func (d *Dataset) Symptoms() []string {
	return CollectSymptoms(d.Records)
}

// Diseases returns the sorted set of distinct disease labels.
func (d *Dataset) Diseases() []string {
	seen := make(map[string]struct{})
	for _, r := range d.Records {
		seen[r.Disease] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
