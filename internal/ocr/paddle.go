package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// PaddleClient calls a PaddleOCR-compatible HTTP service: base64 image in,
// a JSON document with a results array of recognized fragments out.
type PaddleClient struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewPaddleClient creates a client for the given endpoint.
func NewPaddleClient(url string, timeout time.Duration, logger *zap.Logger) *PaddleClient {
	return &PaddleClient{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type paddleRequest struct {
	Images []string `json:"images"`
}

type paddleResponse struct {
	Results []json.RawMessage `json:"results"`
}

// Recognize posts the image and joins the recognized text lines. The
// service returns fragments either as bare strings or as objects with a
// text field; both shapes are accepted.
func (c *PaddleClient) Recognize(ctx context.Context, imageData []byte) (string, error) {
	payload, err := json.Marshal(paddleRequest{
		Images: []string{base64.StdEncoding.EncodeToString(imageData)},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("OCR service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OCR service returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var parsed paddleResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("invalid OCR response: %w", err)
	}
	if parsed.Results == nil {
		// No results array at all; hand back the raw document.
		return string(body), nil
	}

	lines := make([]string, 0, len(parsed.Results))
	for _, raw := range parsed.Results {
		var obj struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(raw, &obj); err == nil && obj.Text != "" {
			lines = append(lines, obj.Text)
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			lines = append(lines, s)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// Close satisfies Engine; the HTTP client holds no persistent state.
func (c *PaddleClient) Close() error { return nil }
