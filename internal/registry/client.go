// Package registry provides a client for the Hugging Face Hub public API.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound indicates the registry has no dataset with the given id.
// The Hub answers 401 rather than 404 for gated or private repos, so
// both are treated as a miss.
var ErrNotFound = errors.New("registry: dataset not found")

const defaultListLimit = 50

// DatasetInfo mirrors the subset of the Hub dataset payload the service uses.
type DatasetInfo struct {
	ID           string     `json:"id"`
	Description  *string    `json:"description"`
	Downloads    *int64     `json:"downloads"`
	LastModified *time.Time `json:"lastModified"`
	CardData     *CardData  `json:"cardData"`
}

// CardData carries size metadata from the dataset card.
type CardData struct {
	SizeBytes  *int64 `json:"size"`
	NumSamples *int64 `json:"num_samples"`
}

// Size returns the card-declared byte size, if any.
func (d *DatasetInfo) Size() *int64 {
	if d.CardData == nil {
		return nil
	}
	return d.CardData.SizeBytes
}

// Samples returns the card-declared sample count, if any.
func (d *DatasetInfo) Samples() *int64 {
	if d.CardData == nil {
		return nil
	}
	return d.CardData.NumSamples
}

// Client calls the Hub API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient constructs a Client for the given base URL with an explicit
// request timeout.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// ListDatasets returns registry metadata matching the optional search
// term, capped at limit entries (the registry default of 50 when zero).
func (c *Client) ListDatasets(ctx context.Context, search string, limit int) ([]DatasetInfo, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	endpoint := c.baseURL + "/api/datasets"
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	q.Set("limit", strconv.Itoa(limit))

	body, err := c.get(ctx, endpoint+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	var infos []DatasetInfo
	if err := json.Unmarshal(body, &infos); err != nil {
		return nil, fmt.Errorf("decode dataset list: %w", err)
	}
	return infos, nil
}

// GetDataset fetches detailed metadata for one dataset by "owner/name" id.
func (c *Client) GetDataset(ctx context.Context, hfID string) (*DatasetInfo, error) {
	body, err := c.get(ctx, c.baseURL+"/api/datasets/"+hfID)
	if err != nil {
		return nil, err
	}
	var info DatasetInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decode dataset info: %w", err)
	}
	return &info, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrNotFound
	default:
		c.logger.Warn("registry returned unexpected status", "status", resp.StatusCode, "url", endpoint)
		return nil, fmt.Errorf("registry status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read registry response: %w", err)
	}
	return body, nil
}
