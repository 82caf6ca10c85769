package file

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/samijaber1/aegis-claims/internal/claims"
)

// ErrDatasetNotFound is returned when no dataset has the requested name
var ErrDatasetNotFound = errors.New("dataset not found")

// Adapter serves claims datasets from a directory of YAML, JSON and CSV files.
// Files are re-read on every fetch so edits are picked up by the next refresh.
type Adapter struct {
	dir string

	mu     sync.RWMutex
	files  map[string]string
	static map[string]*claims.Dataset
}

// NewAdapter creates a file adapter rooted at dir. An empty dir serves only
// datasets registered with SetDataset.
func NewAdapter(dir string) *Adapter {
	return &Adapter{
		dir:    dir,
		files:  make(map[string]string),
		static: make(map[string]*claims.Dataset),
	}
}

// SetDataset registers an in-memory dataset (useful for testing)
func (a *Adapter) SetDataset(dataset *claims.Dataset) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.static[dataset.Metadata.Name] = dataset
}

// Scan rebuilds the name to file index from the directory
func (a *Adapter) Scan() error {
	if a.dir == "" {
		return nil
	}

	datasets, loadErrors := claims.LoadFromDirectory(a.dir)
	for _, e := range loadErrors {
		log.Printf("Warning: skipping %s", e.Error())
	}

	files := make(map[string]string, len(datasets))
	for _, d := range datasets {
		name := d.Dataset.Metadata.Name
		if prev, exists := files[name]; exists {
			log.Printf("Warning: dataset %s defined in both %s and %s, using the first", name, prev, d.File)
			continue
		}
		files[name] = d.File
	}

	a.mu.Lock()
	a.files = files
	a.mu.Unlock()

	if len(datasets) == 0 && len(loadErrors) > 0 {
		return fmt.Errorf("no readable datasets in %s: %d errors", a.dir, len(loadErrors))
	}
	return nil
}

// ListDatasets returns the names of every available dataset, sorted
func (a *Adapter) ListDatasets(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := a.Scan(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, len(a.files)+len(a.static))
	for name := range a.static {
		names = append(names, name)
	}
	for name := range a.files {
		if _, shadowed := a.static[name]; !shadowed {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// FetchDataset loads and validates the named dataset
func (a *Adapter) FetchDataset(ctx context.Context, name string) (*claims.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	dataset, isStatic := a.static[name]
	path, isFile := a.files[name]
	a.mu.RUnlock()

	if isStatic {
		return dataset, nil
	}
	if !isFile {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, name)
	}

	validator, err := claims.DefaultValidator()
	if err != nil {
		return nil, err
	}

	dataset, errs := validator.LoadFile(path)
	if len(errs) > 0 {
		return nil, fmt.Errorf("dataset %s is invalid: %w", name, errs[0])
	}

	return dataset, nil
}
