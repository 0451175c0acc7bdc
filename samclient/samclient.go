// Package samclient talks to a SAM-style medication database service to
// resolve CNK product codes to their canonical VMP grouping codes.
package samclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/giygas/adherence-api/adherence/entities"
	"github.com/giygas/adherence-api/interfaces"
	"github.com/giygas/adherence-api/logging"
)

// Compile-time check to ensure Client implements CodeResolver
var _ interfaces.CodeResolver = (*Client)(nil)

// maxResponseSize caps the decoded response body. A batch never carries
// more than a patient's medication schedule, so 4MB is generous.
const maxResponseSize = 4 * 1024 * 1024

// Client resolves product codes through the batch endpoint of a SAM
// database service.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a resolver client against the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type batchRequest struct {
	Cnks []string `json:"cnks"`
}

type batchResponse struct {
	Results []batchResult `json:"results"`
}

type batchResult struct {
	Cnk string           `json:"cnk"`
	Vmp entities.VMPCode `json:"vmp"`
}

// ResolveBatch sends all codes in one request and returns the resolved
// canonical code per CNK. Codes missing from the response are "not
// found" and simply absent from the map. Any transport or decode error
// fails the whole batch; the caller decides how to degrade.
func (c *Client) ResolveBatch(ctx context.Context, cnks []string) (map[string]entities.VMPCode, error) {
	if len(cnks) == 0 {
		return map[string]entities.VMPCode{}, nil
	}

	body, err := json.Marshal(batchRequest{Cnks: cnks})
	if err != nil {
		return nil, fmt.Errorf("failed to encode batch request: %w", err)
	}

	url := c.baseURL + "/vmp-codes/batch"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build batch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("batch lookup against %s failed: %w", url, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn("Failed to close batch response body", "error", err)
		}
	}()

	if resp.StatusCode == http.StatusNotFound {
		// The service knows none of the codes. A normal empty state.
		return map[string]entities.VMPCode{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("batch lookup returned status %d", resp.StatusCode)
	}

	var decoded batchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode batch response: %w", err)
	}

	resolved := make(map[string]entities.VMPCode, len(decoded.Results))
	for _, r := range decoded.Results {
		if r.Cnk == "" || !r.Vmp.IsKnown() {
			continue
		}
		resolved[entities.NormalizeCNK(r.Cnk)] = r.Vmp
	}

	logging.Debug("Batch code resolution completed",
		"requested", len(cnks),
		"resolved", len(resolved),
		"duration", time.Since(start).String())

	return resolved, nil
}
