// Package gemini is a minimal client for the image-capable generateContent
// endpoint used to produce headshots.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.0-flash-exp"
	defaultTimeout = 60 * time.Second
)

var (
	// ErrUnavailable marks timeouts and transport failures.
	ErrUnavailable = errors.New("gemini unavailable")
	// ErrNoImage is returned when the model answers without image data.
	ErrNoImage = errors.New("gemini returned no image")
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini: %s (status %d)", e.Message, e.Status)
}

// Image is generated image data.
type Image struct {
	Data     []byte
	MimeType string
}

// DataURL encodes the image as a data: URL.
func (i *Image) DataURL() string {
	return "data:" + i.MimeType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Client calls generateContent for a single model.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

// NewClient creates a client. Empty values fall back to defaults.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		http:    &http.Client{Timeout: timeout},
	}
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature        float64  `json:"temperature"`
	MaxOutputTokens    int      `json:"maxOutputTokens"`
	ResponseModalities []string `json:"responseModalities"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

// GenerateImage sends prompt with a JPEG source image and returns the first
// image part of the answer.
func (c *Client) GenerateImage(ctx context.Context, prompt string, jpeg []byte) (*Image, error) {
	payload := generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: prompt},
				{InlineData: &inlineData{MimeType: "image/jpeg", Data: base64.StdEncoding.EncodeToString(jpeg)}},
			},
		}},
		GenerationConfig: generationConfig{
			Temperature:        0.3,
			MaxOutputTokens:    8192,
			ResponseModalities: []string{"Text", "Image"},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("gemini: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gemini: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) || errors.As(err, &netErr) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, fmt.Errorf("gemini: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		msg := gjson.GetBytes(raw, "error.message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{Status: resp.StatusCode, Message: msg}
	}

	var img *Image
	gjson.GetBytes(raw, "candidates.0.content.parts").ForEach(func(_, p gjson.Result) bool {
		data := p.Get("inlineData.data")
		if !data.Exists() {
			data = p.Get("inline_data.data")
		}
		if !data.Exists() || data.String() == "" {
			return true
		}
		decoded, decErr := base64.StdEncoding.DecodeString(data.String())
		if decErr != nil {
			return true
		}
		mime := p.Get("inlineData.mimeType").String()
		if mime == "" {
			mime = "image/png"
		}
		img = &Image{Data: decoded, MimeType: mime}
		return false
	})
	if img == nil {
		return nil, ErrNoImage
	}
	return img, nil
}
