package push

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	messagingScope = "https://www.googleapis.com/auth/firebase.messaging"
	defaultBaseURL = "https://fcm.googleapis.com"
	sendTimeout    = 10 * time.Second
)

// Notifier delivers a push message. Implementations must be safe for concurrent use.
type Notifier interface {
	Send(ctx context.Context, msg *PushMessage) error
}

// FCMConfig holds Firebase Cloud Messaging configuration
type FCMConfig struct {
	ProjectID string
	// ServiceAccountKey is the base64 encoded service account JSON.
	ServiceAccountKey string
	// BaseURL overrides the FCM host (tests).
	BaseURL string
}

// FCMClient sends push notifications via the FCM HTTP v1 API
type FCMClient struct {
	projectID  string
	baseURL    string
	httpClient *http.Client
}

// NewFCMClient creates a new FCM client authorised with the service account.
func NewFCMClient(ctx context.Context, cfg FCMConfig) (*FCMClient, error) {
	if cfg.ProjectID == "" || cfg.ServiceAccountKey == "" {
		return nil, fmt.Errorf("fcm: project id and service account key are required")
	}

	keyJSON, err := base64.StdEncoding.DecodeString(cfg.ServiceAccountKey)
	if err != nil {
		return nil, fmt.Errorf("fcm: decode service account key: %w", err)
	}

	jwtCfg, err := google.JWTConfigFromJSON(keyJSON, messagingScope)
	if err != nil {
		return nil, fmt.Errorf("fcm: parse service account key: %w", err)
	}

	return newFCMClient(cfg, jwtCfg.TokenSource(ctx)), nil
}

func newFCMClient(cfg FCMConfig, ts oauth2.TokenSource) *FCMClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	client := &http.Client{Timeout: sendTimeout}
	if ts != nil {
		client.Transport = &oauth2.Transport{Source: oauth2.ReuseTokenSource(nil, ts)}
	}

	return &FCMClient{
		projectID:  cfg.ProjectID,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// PushMessage represents a push notification
type PushMessage struct {
	Token string // Device token
	Title string
	Body  string
	Data  map[string]string
}

type fcmRequest struct {
	Message fcmMessage `json:"message"`
}

type fcmMessage struct {
	Token        string            `json:"token"`
	Notification *fcmNotification  `json:"notification,omitempty"`
	Data         map[string]string `json:"data,omitempty"`
	Android      *fcmAndroid       `json:"android,omitempty"`
	APNS         *fcmAPNS          `json:"apns,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmAndroid struct {
	Priority string `json:"priority,omitempty"`
}

type fcmAPNS struct {
	Payload apnsPayload `json:"payload"`
}

type apnsPayload struct {
	Aps apnsAps `json:"aps"`
}

type apnsAps struct {
	Sound string `json:"sound,omitempty"`
}

// Send sends a push notification
func (c *FCMClient) Send(ctx context.Context, msg *PushMessage) error {
	if msg == nil || msg.Token == "" {
		return fmt.Errorf("fcm: empty device token")
	}

	body, err := json.Marshal(fcmRequest{
		Message: fcmMessage{
			Token:        msg.Token,
			Notification: &fcmNotification{Title: msg.Title, Body: msg.Body},
			Data:         msg.Data,
			Android:      &fcmAndroid{Priority: "high"},
			APNS:         &fcmAPNS{Payload: apnsPayload{Aps: apnsAps{Sound: "default"}}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal FCM request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/projects/%s/messages:send", c.baseURL, c.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send FCM request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("FCM returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	return nil
}

// Dispatcher sends notifications in the background and only logs failures;
// delivery never affects the request that triggered it.
type Dispatcher struct {
	notifier Notifier
	inflight sync.WaitGroup
}

// NewDispatcher wraps notifier. A nil notifier disables delivery.
func NewDispatcher(notifier Notifier) *Dispatcher {
	return &Dispatcher{notifier: notifier}
}

// Notify fires msg asynchronously.
func (d *Dispatcher) Notify(msg *PushMessage) {
	if d == nil || d.notifier == nil || msg == nil || msg.Token == "" {
		return
	}
	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := d.notifier.Send(ctx, msg); err != nil {
			log.Warn().Err(err).Str("title", msg.Title).Msg("Push notification failed")
		}
	}()
}

// Wait blocks until every in-flight notification has finished or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	if d == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
