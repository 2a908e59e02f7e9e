package providers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

// ImageConfig points at an OpenAI-compatible image generation endpoint
type ImageConfig struct {
	Endpoint  string
	APIKey    string
	Model     string
	Size      string
	RateLimit float64
	Timeout   time.Duration
}

// ImageClient generates images and returns the decoded bytes
type ImageClient struct {
	cfg  ImageConfig
	http *HTTPClient
}

type imageRequest struct {
	Model          string `json:"model,omitempty"`
	Prompt         string `json:"prompt"`
	Size           string `json:"size,omitempty"`
	N              int    `json:"n"`
	ResponseFormat string `json:"response_format"`
}

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// NewImageClient builds a client from configuration
func NewImageClient(cfg ImageConfig) *ImageClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if cfg.Size == "" {
		cfg.Size = "1024x1024"
	}
	return &ImageClient{cfg: cfg, http: NewHTTPClient(cfg.Timeout, cfg.RateLimit)}
}

// Configured reports whether the client has an endpoint and key
func (c *ImageClient) Configured() bool {
	return c != nil && c.cfg.Endpoint != "" && c.cfg.APIKey != ""
}

// Generate renders prompt in the given style and returns PNG bytes
func (c *ImageClient) Generate(ctx context.Context, prompt, style string) ([]byte, error) {
	if !c.Configured() {
		return nil, errors.New("image client misconfigured")
	}
	if style != "" {
		prompt = fmt.Sprintf("%s. Style: %s.", prompt, style)
	}

	var resp imageResponse
	err := c.http.PostJSON(ctx, c.cfg.Endpoint,
		map[string]string{"Authorization": "Bearer " + c.cfg.APIKey},
		imageRequest{
			Model:          c.cfg.Model,
			Prompt:         prompt,
			Size:           c.cfg.Size,
			N:              1,
			ResponseFormat: "b64_json",
		}, &resp)
	if err != nil {
		return nil, fmt.Errorf("image generation: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, errors.New("image generation returned no data")
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return data, nil
}
