package claims

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format identifies the encoding of a dataset file
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// FormatFromPath infers the dataset format from a file extension
func FormatFromPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".json":
		return FormatJSON, true
	case ".csv":
		return FormatCSV, true
	default:
		return "", false
	}
}

// LoadFromDirectory discovers and loads all dataset files from a directory
func LoadFromDirectory(dirPath string) ([]DatasetWithFile, []ValidationError) {
	var datasets []DatasetWithFile
	var errors []ValidationError

	files, err := discoverDatasetFiles(dirPath)
	if err != nil {
		errors = append(errors, ValidationError{
			File:    dirPath,
			Message: fmt.Sprintf("failed to read directory: %v", err),
		})
		return nil, errors
	}

	for _, file := range files {
		dataset, err := ParseFile(file)
		if err != nil {
			errors = append(errors, ValidationError{
				File:    file,
				Message: fmt.Sprintf("failed to parse dataset: %v", err),
			})
			continue
		}
		datasets = append(datasets, DatasetWithFile{
			Dataset: dataset,
			File:    file,
		})
	}

	return datasets, errors
}

// discoverDatasetFiles finds all YAML, JSON and CSV files in a directory
func discoverDatasetFiles(dirPath string) ([]string, error) {
	var files []string

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if _, ok := FormatFromPath(path); ok {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

// ParseFile reads and parses a single dataset file
func ParseFile(filePath string) (*Dataset, error) {
	format, ok := FormatFromPath(filePath)
	if !ok {
		return nil, fmt.Errorf("unsupported dataset file extension: %s", filepath.Ext(filePath))
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	return Parse(data, format, datasetNameFromPath(filePath))
}

// Parse decodes a dataset from raw bytes. defaultName is used when the
// document carries no metadata.name (always the case for CSV).
func Parse(data []byte, format Format, defaultName string) (*Dataset, error) {
	var dataset *Dataset
	var err error

	switch format {
	case FormatCSV:
		dataset, err = parseCSV(data)
	case FormatYAML, FormatJSON:
		dataset, err = parseDocument(data)
	default:
		return nil, fmt.Errorf("unsupported dataset format: %q", format)
	}
	if err != nil {
		return nil, err
	}

	if dataset.Metadata.Name == "" {
		dataset.Metadata.Name = defaultName
	}
	return dataset, nil
}

// parseDocument decodes a YAML or JSON dataset document. Column presence is
// checked on the untyped tree so that an absent column is told apart from an
// empty one.
func parseDocument(data []byte) (*Dataset, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if err := checkColumnsPresent(raw); err != nil {
		return nil, err
	}

	var dataset Dataset
	if err := yaml.Unmarshal(data, &dataset); err != nil {
		return nil, err
	}
	return &dataset, nil
}

func checkColumnsPresent(raw map[string]interface{}) error {
	columns, ok := raw["columns"].(map[string]interface{})
	if !ok {
		return &ShapeError{Column: "columns", Row: -1, Reason: "document has no columns mapping"}
	}
	for _, name := range RequiredColumns {
		if _, ok := columns[name]; !ok {
			return &ShapeError{Column: name, Row: -1, Reason: "required column is absent"}
		}
	}
	return nil
}

func datasetNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
