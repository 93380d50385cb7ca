package relayer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	cfgtypes "github.com/kysee/forcerelay/provers/types"
)

// APIFetcher implements Fetcher by calling Beacon API REST endpoint
type APIFetcher struct {
	BaseURL string
	Client  *http.Client
}

var _ cfgtypes.Fetcher = (*APIFetcher)(nil)

// NewAPIFetcher creates a new APIFetcher with the given base URL
func NewAPIFetcher(baseURL string) *APIFetcher {
	return &APIFetcher{
		BaseURL: baseURL,
		Client:  &http.Client{},
	}
}

func (a *APIFetcher) get(ctx context.Context, path string, out interface{}) error {
	endpoint, err := url.Parse(a.BaseURL)
	if err != nil {
		return errors.Wrap(err, "invalid base URL")
	}
	endpoint.Path = path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")
	resp, err := a.Client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}
	if resp.StatusCode == http.StatusNotFound {
		return errors.Wrapf(ErrNotFound, "%s: %s", path, string(body))
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}
	return nil
}

// Block retrieves a beacon block by slot
// GET /eth/v2/beacon/blocks/{slot}
// The version is checked before the body is decoded as a Capella block.
func (a *APIFetcher) Block(ctx context.Context, slot uint64) (*cfgtypes.BlockAPIResponse, error) {
	var raw json.RawMessage
	if err := a.get(ctx, fmt.Sprintf("/eth/v2/beacon/blocks/%d", slot), &raw); err != nil {
		return nil, err
	}
	var envelope struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, errors.Wrap(err, "failed to parse response")
	}
	if envelope.Version != "" && envelope.Version != "capella" {
		return nil, errors.Errorf("unsupported block version %q at slot %d", envelope.Version, slot)
	}
	var blockResponse cfgtypes.BlockAPIResponse
	if err := json.Unmarshal(raw, &blockResponse); err != nil {
		return nil, errors.Wrapf(err, "failed to parse capella block at slot %d", slot)
	}
	return &blockResponse, nil
}

// Header retrieves a beacon block header by slot
// GET /eth/v1/beacon/headers/{slot}
func (a *APIFetcher) Header(ctx context.Context, slot uint64) (*cfgtypes.HeaderAPIResponse, error) {
	var headerResponse cfgtypes.HeaderAPIResponse
	if err := a.get(ctx, fmt.Sprintf("/eth/v1/beacon/headers/%d", slot), &headerResponse); err != nil {
		return nil, err
	}
	return &headerResponse, nil
}
