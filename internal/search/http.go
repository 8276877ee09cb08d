package search

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/young1lin/civicsource/internal/models"
)

const (
	maxResponseBytes = 5 * 1024 * 1024
	maxErrorBodyLen  = 512
)

// doJSON sends req and decodes a 2xx JSON body into out. Every failure is
// returned as an *UpstreamError tagged with the provider.
func doJSON(client *http.Client, source models.Source, req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return &UpstreamError{Provider: source, Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &UpstreamError{Provider: source, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UpstreamError{Provider: source, StatusCode: resp.StatusCode, Body: excerpt(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &UpstreamError{Provider: source, StatusCode: resp.StatusCode, Body: excerpt(body), Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	return nil
}

func excerpt(body []byte) string {
	if len(body) > maxErrorBodyLen {
		return string(body[:maxErrorBodyLen]) + "..."
	}
	return string(body)
}
