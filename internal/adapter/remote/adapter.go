package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/samijaber1/aegis-claims/internal/claims"
)

// Config holds remote adapter configuration
type Config struct {
	URL            string
	Timeout        time.Duration
	MaxConcurrency int64
	RetryCount     int
	RetryDelay     time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig(baseURL string) Config {
	return Config{
		URL:            baseURL,
		Timeout:        10 * time.Second,
		MaxConcurrency: 4,
		RetryCount:     1,
		RetryDelay:     100 * time.Millisecond,
	}
}

// ListResponse is the body of GET {URL}/datasets
type ListResponse struct {
	Datasets []string `json:"datasets"`
}

// Adapter fetches claims datasets from an HTTP endpoint.
// GET {URL}/datasets lists names, GET {URL}/datasets/{name} returns one
// dataset as YAML, JSON or CSV according to its Content-Type.
type Adapter struct {
	config Config
	client *http.Client
	sem    *semaphore.Weighted
}

// NewAdapter creates a new remote adapter
func NewAdapter(config Config) *Adapter {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 1
	}
	return &Adapter{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		sem: semaphore.NewWeighted(config.MaxConcurrency),
	}
}

// ListDatasets returns the dataset names published by the endpoint, sorted
func (a *Adapter) ListDatasets(ctx context.Context) ([]string, error) {
	body, _, err := a.get(ctx, "/datasets")
	if err != nil {
		return nil, err
	}

	var resp ListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse dataset list: %w", err)
	}

	sort.Strings(resp.Datasets)
	return resp.Datasets, nil
}

// FetchDataset downloads, parses and validates the named dataset
func (a *Adapter) FetchDataset(ctx context.Context, name string) (*claims.Dataset, error) {
	body, contentType, err := a.get(ctx, "/datasets/"+url.PathEscape(name))
	if err != nil {
		return nil, err
	}

	validator, err := claims.DefaultValidator()
	if err != nil {
		return nil, err
	}

	source := a.config.URL + "/datasets/" + name
	dataset, errs := validator.ValidateData(source, body, formatFromContentType(contentType), name)
	if len(errs) > 0 {
		return nil, fmt.Errorf("dataset %s is invalid: %w", name, errs[0])
	}

	return dataset, nil
}

// get performs a GET with bounded concurrency and retry
func (a *Adapter) get(ctx context.Context, path string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	if err := a.sem.Acquire(ctx, 1); err != nil {
		return nil, "", fmt.Errorf("semaphore acquire: %w", err)
	}
	defer a.sem.Release(1)

	fullURL := strings.TrimSuffix(a.config.URL, "/") + path

	var lastErr error
	for attempt := 0; attempt <= a.config.RetryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, "", ctx.Err()
			case <-time.After(a.config.RetryDelay):
			}
		}

		body, contentType, err := a.execute(ctx, fullURL)
		if err == nil {
			return body, contentType, nil
		}
		lastErr = err
	}

	return nil, "", fmt.Errorf("fetch failed after %d attempts: %w", a.config.RetryCount+1, lastErr)
}

// execute performs a single request
func (a *Adapter) execute(ctx context.Context, fullURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/yaml, text/csv")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("http status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, resp.Header.Get("Content-Type"), nil
}

// formatFromContentType maps a media type to a dataset format, JSON by default
func formatFromContentType(contentType string) claims.Format {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return claims.FormatJSON
	}

	switch mediaType {
	case "text/csv":
		return claims.FormatCSV
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return claims.FormatYAML
	default:
		return claims.FormatJSON
	}
}
