package facerec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/algohackers/saarthi-vault/internal/errs"
	"github.com/algohackers/saarthi-vault/internal/model"
)

// Client calls an external recognizer service over HTTP. The service owns
// face detection and embedding computation; the vault only consumes the
// resulting vectors.
type Client struct {
	baseURL string
	hc      *http.Client
}

// NewClient constructs a recognizer client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		hc:      &http.Client{Timeout: timeout},
	}
}

type embedRequest struct {
	Image []byte `json:"image"` // base64 on the wire
}

type embedResponse struct {
	Detected  bool            `json:"detected"`
	Embedding model.Embedding `json:"embedding"`
}

// Extract posts the image to the recognizer and returns its embedding.
// errs.ErrNoSubjectDetected when the service reports no usable face.
func (c *Client) Extract(ctx context.Context, image []byte) (model.Embedding, error) {
	body, err := json.Marshal(embedRequest{Image: image})
	if err != nil {
		return nil, fmt.Errorf("recognizer: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("recognizer: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("recognizer: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("recognizer: unexpected status %d", resp.StatusCode)
	}

	var er embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("recognizer: decode response: %w", err)
	}
	if !er.Detected || len(er.Embedding) == 0 {
		return nil, errs.ErrNoSubjectDetected
	}
	return er.Embedding, nil
}
