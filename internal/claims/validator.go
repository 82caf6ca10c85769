package claims

import (
	"bytes"
	_ "embed"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

//go:embed schemas/claims_v1.json
var schemaJSON []byte

const schemaResource = "claims_v1.json"

// Validator handles dataset validation
type Validator struct {
	schema *jsonschema.Schema
}

var (
	defaultOnce      sync.Once
	defaultValidator *Validator
	defaultErr       error
)

// DefaultValidator returns a shared validator compiled once from the
// embedded schema
func DefaultValidator() (*Validator, error) {
	defaultOnce.Do(func() {
		defaultValidator, defaultErr = NewValidator()
	})
	return defaultValidator, defaultErr
}

// NewValidator creates a validator backed by the embedded claims/v1 schema
func NewValidator() (*Validator, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaResource, doc); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	schema, err := compiler.Compile(schemaResource)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &Validator{schema: schema}, nil
}

// ValidateDirectory validates every dataset file in a directory and checks
// that dataset names are unique across files
func (v *Validator) ValidateDirectory(dirPath string) []ValidationError {
	files, err := discoverDatasetFiles(dirPath)
	if err != nil {
		return []ValidationError{{
			File:    dirPath,
			Message: fmt.Sprintf("failed to read directory: %v", err),
		}}
	}

	var allErrors []ValidationError
	nameSeen := make(map[string]string)

	for _, file := range files {
		dataset, fileErrors := v.validateFile(file)
		allErrors = append(allErrors, fileErrors...)
		if dataset == nil {
			continue
		}

		name := dataset.Metadata.Name
		if prevFile, exists := nameSeen[name]; exists {
			allErrors = append(allErrors, ValidationError{
				File:    file,
				Path:    "metadata.name",
				Message: fmt.Sprintf("duplicate dataset name %q (also in %s)", name, filepath.Base(prevFile)),
			})
		} else {
			nameSeen[name] = file
		}
	}

	return allErrors
}

// ValidateFile validates a single dataset file
func (v *Validator) ValidateFile(filePath string) []ValidationError {
	_, errors := v.validateFile(filePath)
	return errors
}

// LoadFile validates a single dataset file and returns the parsed dataset.
// The dataset is nil when the file failed schema validation or parsing.
func (v *Validator) LoadFile(filePath string) (*Dataset, []ValidationError) {
	return v.validateFile(filePath)
}

// validateFile reads a dataset file and runs ValidateData on its contents
func (v *Validator) validateFile(file string) (*Dataset, []ValidationError) {
	format, ok := FormatFromPath(file)
	if !ok {
		return nil, []ValidationError{{File: file, Message: "unsupported file extension"}}
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, []ValidationError{{File: file, Message: fmt.Sprintf("failed to read file: %v", err)}}
	}

	return v.ValidateData(file, data, format, datasetNameFromPath(file))
}

// ValidateData runs schema validation (documents only), parsing and the
// value rules over raw dataset bytes. source names the origin in errors;
// defaultName is used when the document carries no metadata.name. The
// dataset is nil when it could not be parsed.
func (v *Validator) ValidateData(source string, data []byte, format Format, defaultName string) (*Dataset, []ValidationError) {
	if format != FormatCSV {
		if schemaErrors := v.validateSchema(source, data); len(schemaErrors) > 0 {
			return nil, schemaErrors
		}
	}

	dataset, err := Parse(data, format, defaultName)
	if err != nil {
		return nil, []ValidationError{{
			File:    source,
			Message: fmt.Sprintf("failed to parse dataset: %v", err),
		}}
	}

	return dataset, ValidateDataset(source, dataset)
}

// validateSchema validates a raw dataset document against the JSON schema
func (v *Validator) validateSchema(file string, data []byte) []ValidationError {
	var errors []ValidationError

	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		errors = append(errors, ValidationError{
			File:    file,
			Message: fmt.Sprintf("failed to parse document: %v", err),
		})
		return errors
	}

	if err := v.schema.Validate(doc); err != nil {
		if validationErr, ok := err.(*jsonschema.ValidationError); ok {
			errors = append(errors, extractSchemaErrors(file, validationErr)...)
		} else {
			errors = append(errors, ValidationError{
				File:    file,
				Message: err.Error(),
			})
		}
	}

	return errors
}

// extractSchemaErrors converts JSON schema validation errors to ValidationErrors
func extractSchemaErrors(file string, err *jsonschema.ValidationError) []ValidationError {
	var errors []ValidationError

	path := strings.Join(err.InstanceLocation, ".")
	if path == "" {
		path = "(root)"
	}

	errors = append(errors, ValidationError{
		File:    file,
		Path:    path,
		Message: err.Error(),
	})

	for _, cause := range err.Causes {
		errors = append(errors, extractSchemaErrors(file, cause)...)
	}

	return errors
}

// ValidateDataset applies the value rules the schema cannot express: equal
// column lengths, unique positive claim ids, finite non-negative amounts
// and premiums, and non-negative processing days.
func ValidateDataset(file string, dataset *Dataset) []ValidationError {
	var errors []ValidationError
	cols := dataset.Columns

	if err := cols.checkLengths(); err != nil {
		errors = append(errors, ValidationError{
			File:    file,
			Path:    "columns",
			Message: err.Error(),
		})
		return errors
	}

	idSeen := make(map[int64]int, cols.Len())
	for i, id := range cols.ClaimID {
		if id <= 0 {
			errors = append(errors, ValidationError{
				File:    file,
				Path:    fmt.Sprintf("columns.%s[%d]", ColumnClaimID, i),
				Message: fmt.Sprintf("claim_id must be positive, got %d", id),
			})
		}
		if prev, exists := idSeen[id]; exists {
			errors = append(errors, ValidationError{
				File:    file,
				Path:    fmt.Sprintf("columns.%s[%d]", ColumnClaimID, i),
				Message: fmt.Sprintf("duplicate claim_id %d (also at row %d)", id, prev),
			})
		} else {
			idSeen[id] = i
		}
	}

	for i := 0; i < cols.Len(); i++ {
		if a := cols.ClaimAmount[i]; a != nil && !isFinite(*a) {
			errors = append(errors, ValidationError{
				File:    file,
				Path:    fmt.Sprintf("columns.%s[%d]", ColumnClaimAmount, i),
				Message: fmt.Sprintf("claim_amount must be a finite number, got %g", *a),
			})
		} else if a != nil && *a < 0 {
			errors = append(errors, ValidationError{
				File:    file,
				Path:    fmt.Sprintf("columns.%s[%d]", ColumnClaimAmount, i),
				Message: fmt.Sprintf("claim_amount must be non-negative, got %g", *a),
			})
		}
		if p := cols.Premium[i]; p != nil && !isFinite(*p) {
			errors = append(errors, ValidationError{
				File:    file,
				Path:    fmt.Sprintf("columns.%s[%d]", ColumnPremium, i),
				Message: fmt.Sprintf("premium must be a finite number, got %g", *p),
			})
		} else if p != nil && *p < 0 {
			errors = append(errors, ValidationError{
				File:    file,
				Path:    fmt.Sprintf("columns.%s[%d]", ColumnPremium, i),
				Message: fmt.Sprintf("premium must be non-negative, got %g", *p),
			})
		}
		if d := cols.ProcessingDays[i]; d < 0 {
			errors = append(errors, ValidationError{
				File:    file,
				Path:    fmt.Sprintf("columns.%s[%d]", ColumnProcessingDays, i),
				Message: fmt.Sprintf("processing_days must be non-negative, got %d", d),
			})
		}
	}

	return errors
}

func isFinite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}
