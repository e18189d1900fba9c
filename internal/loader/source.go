package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"immopilot/server/config"
)

// Source opens the raw delimited resource of one data vintage.
type Source interface {
	Open(ctx context.Context, vintage config.Vintage) (io.ReadCloser, error)
}

// HTTPSource fetches vintage resources over HTTP. URLs without a scheme
// are treated as local file paths, which the tests and offline setups use.
type HTTPSource struct {
	client *http.Client
}

func NewHTTPSource(timeout time.Duration) *HTTPSource {
	return &HTTPSource{client: &http.Client{Timeout: timeout}}
}

func (s *HTTPSource) Open(ctx context.Context, vintage config.Vintage) (io.ReadCloser, error) {
	if !strings.HasPrefix(vintage.URL, "http://") && !strings.HasPrefix(vintage.URL, "https://") {
		file, err := os.Open(vintage.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to open vintage file %q: %w", vintage.URL, err)
		}
		return file, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, vintage.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for vintage %s: %w", vintage.Name, err)
	}
	req.Header.Set("User-Agent", "ImmoPilot Market Analyzer/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch vintage %s: %w", vintage.Name, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("vintage %s returned status %d", vintage.Name, resp.StatusCode)
	}
	return resp.Body, nil
}
