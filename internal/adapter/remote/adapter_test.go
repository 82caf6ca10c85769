package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samijaber1/aegis-claims/internal/claims"
)

const csvBody = "claim_id,policy_id,region,claim_type,claim_amount,premium,claim_status,processing_days\n" +
	"1,P1,Dubai,Motor,12000,10000,approved,12\n" +
	"2,P2,Sharjah,Medical,,9000,pending,4\n"

const yamlBody = `apiVersion: claims/v1
kind: ClaimsDataset
metadata:
  name: from-yaml
columns:
  claim_id: [1]
  policy_id: ["P1"]
  region: ["Dubai"]
  claim_type: ["Motor"]
  claim_amount: [100]
  premium: [50]
  claim_status: ["approved"]
  processing_days: [3]
`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/datasets", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ListResponse{Datasets: []string{"yaml-set", "csv-set"}})
	})
	mux.HandleFunc("/datasets/csv-set", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Write([]byte(csvBody))
	})
	mux.HandleFunc("/datasets/yaml-set", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.Write([]byte(yamlBody))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestAdapter_ListDatasets(t *testing.T) {
	server := newTestServer(t)
	adapter := NewAdapter(DefaultConfig(server.URL))

	names, err := adapter.ListDatasets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"csv-set", "yaml-set"}, names)
}

func TestAdapter_FetchDataset(t *testing.T) {
	server := newTestServer(t)
	adapter := NewAdapter(DefaultConfig(server.URL))
	ctx := context.Background()

	t.Run("csv", func(t *testing.T) {
		dataset, err := adapter.FetchDataset(ctx, "csv-set")
		require.NoError(t, err)
		assert.Equal(t, "csv-set", dataset.Metadata.Name)
		assert.Equal(t, 2, dataset.Columns.Len())
		assert.Nil(t, dataset.Columns.ClaimAmount[1])
	})

	t.Run("yaml", func(t *testing.T) {
		dataset, err := adapter.FetchDataset(ctx, "yaml-set")
		require.NoError(t, err)
		assert.Equal(t, "from-yaml", dataset.Metadata.Name)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := adapter.FetchDataset(ctx, "missing")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "http status 404")
	})
}

func TestAdapter_Retry(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Fail first attempt, succeed on second
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(csvBody))
	}))
	defer server.Close()

	config := DefaultConfig(server.URL)
	config.RetryCount = 1
	config.RetryDelay = 10 * time.Millisecond
	adapter := NewAdapter(config)

	dataset, err := adapter.FetchDataset(context.Background(), "flaky")
	require.NoError(t, err)
	assert.Equal(t, 2, dataset.Columns.Len())
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestAdapter_RetryExhausted(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	config := DefaultConfig(server.URL)
	config.RetryCount = 2
	config.RetryDelay = time.Millisecond
	adapter := NewAdapter(config)

	_, err := adapter.FetchDataset(context.Background(), "down")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestAdapter_ConcurrencyLimit(t *testing.T) {
	var inFlight, maxInFlight int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)

		for {
			seen := atomic.LoadInt32(&maxInFlight)
			if current <= seen || atomic.CompareAndSwapInt32(&maxInFlight, seen, current) {
				break
			}
		}

		time.Sleep(20 * time.Millisecond)
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(csvBody))
	}))
	defer server.Close()

	config := DefaultConfig(server.URL)
	config.MaxConcurrency = 2
	adapter := NewAdapter(config)

	done := make(chan error, 6)
	for i := 0; i < 6; i++ {
		go func() {
			_, err := adapter.FetchDataset(context.Background(), "any")
			done <- err
		}()
	}
	for i := 0; i < 6; i++ {
		require.NoError(t, <-done)
	}

	assert.LessOrEqual(t, atomic.LoadInt32(&maxInFlight), int32(2))
}

func TestAdapter_InvalidDataset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("claim_id,policy_id,region,claim_type,claim_amount,premium,claim_status,processing_days\n1,P1,Dubai,Motor,-5,10,approved,1\n"))
	}))
	defer server.Close()

	_, err := NewAdapter(DefaultConfig(server.URL)).FetchDataset(context.Background(), "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid")
}

func TestAdapter_SchemaViolation(t *testing.T) {
	wrongVersion := strings.Replace(yamlBody, "claims/v1", "claims/v9", 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.Write([]byte(wrongVersion))
	}))
	defer server.Close()

	_, err := NewAdapter(DefaultConfig(server.URL)).FetchDataset(context.Background(), "from-yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apiVersion")
}

func TestAdapter_NonFiniteCSV(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("claim_id,policy_id,region,claim_type,claim_amount,premium,claim_status,processing_days\n1,P1,Dubai,Motor,inf,10,approved,1\n"))
	}))
	defer server.Close()

	_, err := NewAdapter(DefaultConfig(server.URL)).FetchDataset(context.Background(), "inf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not finite")
}

func TestFormatFromContentType(t *testing.T) {
	tests := []struct {
		contentType string
		expected    claims.Format
	}{
		{"text/csv", claims.FormatCSV},
		{"text/csv; charset=utf-8", claims.FormatCSV},
		{"application/yaml", claims.FormatYAML},
		{"text/x-yaml", claims.FormatYAML},
		{"application/json", claims.FormatJSON},
		{"", claims.FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatFromContentType(tt.contentType))
		})
	}
}
