package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.getimg.ai/v1"
	defaultTimeout = 60 * time.Second

	// CodeInvalidImage is returned when the source image cannot be used.
	CodeInvalidImage = "parameter_invalid_image"
)

// ErrUnavailable marks timeouts and transport failures; callers may retry.
var ErrUnavailable = errors.New("image generation unavailable")

// APIError is an error answer from the provider.
type APIError struct {
	Status  int    `json:"-"`
	Type    string `json:"type"`
	Code    string `json:"code"`
	Param   string `json:"param"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("getimg: %s (%s, status %d)", e.Message, e.Code, e.Status)
}

// Result is a generated image.
type Result struct {
	URL  string  `json:"url"`
	Seed int64   `json:"seed"`
	Cost float64 `json:"cost"`
}

// Options are the fixed SDXL parameters sent with every request.
type Options struct {
	Model          string  `json:"model"`
	NegativePrompt string  `json:"negative_prompt"`
	Steps          int     `json:"steps"`
	Guidance       float64 `json:"guidance"`
	OutputFormat   string  `json:"output_format"`
	Scheduler      string  `json:"scheduler"`
	ResponseFormat string  `json:"response_format"`
}

// DefaultOptions mirrors the production generation settings.
func DefaultOptions() Options {
	return Options{
		Model:          "stable-diffusion-xl-v1-0",
		NegativePrompt: "Disfigured, cartoon, blurry, nude, exaggerated features, unnatural expressions",
		Steps:          40,
		Guidance:       7.5,
		OutputFormat:   "jpeg",
		Scheduler:      "euler",
		ResponseFormat: "url",
	}
}

// Client calls the getimg.ai stable-diffusion-xl endpoints.
type Client struct {
	baseURL string
	token   string
	opts    Options
	http    *http.Client
}

// NewClient creates a generation client.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		opts:    DefaultOptions(),
		http:    &http.Client{Timeout: timeout},
	}
}

type textToImageRequest struct {
	Options
	Prompt string `json:"prompt"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type imageToImageRequest struct {
	Options
	Prompt string `json:"prompt"`
	Image  string `json:"image"`
}

// TextToImage generates an image of width x height from prompt.
func (c *Client) TextToImage(ctx context.Context, prompt string, width, height int) (*Result, error) {
	return c.post(ctx, "/stable-diffusion-xl/text-to-image", textToImageRequest{
		Options: c.opts,
		Prompt:  prompt,
		Width:   width,
		Height:  height,
	})
}

// ImageToImage restyles image (base64 or URL) following prompt.
func (c *Client) ImageToImage(ctx context.Context, prompt, image string) (*Result, error) {
	return c.post(ctx, "/stable-diffusion-xl/image-to-image", imageToImageRequest{
		Options: c.opts,
		Prompt:  prompt,
		Image:   image,
	})
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("getimg: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("getimg: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		var netErr net.Error
		if errors.As(err, &netErr) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, fmt.Errorf("getimg: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	var decoded struct {
		Result
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
		}
		return nil, fmt.Errorf("getimg: decode response (status %d): %w", resp.StatusCode, err)
	}

	if decoded.Error != nil {
		decoded.Error.Status = resp.StatusCode
		return nil, decoded.Error
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 || decoded.URL == "" {
		return nil, &APIError{Status: resp.StatusCode, Code: "generation_failed", Message: "no image returned"}
	}

	return &decoded.Result, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
