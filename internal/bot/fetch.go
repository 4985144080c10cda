package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrDownloadTooLarge is returned when an attachment exceeds the size limit
var ErrDownloadTooLarge = errors.New("attachment exceeds download limit")

// Fetcher retrieves attachment bytes
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher downloads attachments over HTTP
type HTTPFetcher struct {
	client  *http.Client
	maxSize int64
}

// NewHTTPFetcher creates a fetcher that refuses bodies larger than maxSize
func NewHTTPFetcher(maxSize int64) *HTTPFetcher {
	return &HTTPFetcher{
		client:  &http.Client{Timeout: 30 * time.Second},
		maxSize: maxSize,
	}
}

// Fetch downloads url
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	if resp.ContentLength > f.maxSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrDownloadTooLarge, resp.ContentLength)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}
	if int64(len(data)) > f.maxSize {
		return nil, ErrDownloadTooLarge
	}

	return data, nil
}
