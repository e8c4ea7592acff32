// Package webhook tells callers that a queued conversion has finished.
//
// Each notification is a single POST of the conversion record. There are
// no retries; the outcome is stored on the conversion so callers can poll
// it if their endpoint was down.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/Shimizu-Technology/smartconverter-api/internal/models"
)

// Delivery outcomes recorded on the conversion.
const (
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
)

// SignatureHeader carries the hex HMAC-SHA256 of the body when a secret is
// configured.
const SignatureHeader = "X-Webhook-Signature"

// ErrInvalidURL is returned by ValidateURL.
var ErrInvalidURL = errors.New("webhook_url must be an absolute http or https URL")

// Recorder stores delivery outcomes.
type Recorder interface {
	RecordWebhook(ctx context.Context, id, status string) error
}

// Service handles webhook notification delivery.
type Service struct {
	recorder Recorder
	secret   string
	client   *http.Client

	wg         sync.WaitGroup
	shutdownCh chan struct{} // Signals pending deliveries to stop
	closeOnce  sync.Once
}

// New creates a new webhook service. An empty secret sends unsigned
// requests.
func New(recorder Recorder, secret string) *Service {
	return &Service{
		recorder: recorder,
		secret:   secret,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		shutdownCh: make(chan struct{}),
	}
}

// ValidateURL accepts absolute http and https URLs.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidURL
	}
	return nil
}

// SignPayload creates an HMAC-SHA256 signature for a payload.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Notify sends cv to its webhook URL in the background. Conversions that
// are not final or have no URL are ignored.
func (s *Service) Notify(cv models.Conversion) {
	var event string
	switch cv.Status {
	case models.StatusCompleted:
		event = models.EventConversionCompleted
	case models.StatusFailed:
		event = models.EventConversionFailed
	default:
		return
	}
	if cv.WebhookURL == "" {
		return
	}

	body, err := json.Marshal(models.WebhookPayload{
		Event:     event,
		Data:      cv,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		log.Printf("⚠️  Failed to marshal webhook payload: %v", err)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.send(cv.ID, cv.WebhookURL, event, body)
	}()
}

// Shutdown waits for deliveries in flight. When ctx ends first they are
// aborted, recorded as failed and ctx's error is returned.
func (s *Service) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.closeOnce.Do(func() { close(s.shutdownCh) })
		<-done
		return ctx.Err()
	}
}

// send makes the one delivery attempt and records how it went.
func (s *Service) send(id, target, event string, body []byte) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.shutdownCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	status := StatusDelivered
	code, err := s.deliver(ctx, target, body)
	switch {
	case err != nil:
		status = StatusFailed
		log.Printf("⚠️  Webhook delivery failed: %s → %s: %v", event, target, err)
	case code < 200 || code >= 300:
		status = StatusFailed
		log.Printf("⚠️  Webhook delivery failed: %s → %s: HTTP %d", event, target, code)
	default:
		log.Printf("✅ Webhook delivered: %s → %s", event, target)
	}

	if s.recorder == nil {
		return
	}
	rctx, rcancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer rcancel()
	if err := s.recorder.RecordWebhook(rctx, id, status); err != nil {
		log.Printf("⚠️  Failed to record webhook for %s: %v", id, err)
	}
}

// deliver sends a single HTTP POST with the payload.
func (s *Service) deliver(ctx context.Context, target string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "SmartConverter-Webhook/1.0")
	if s.secret != "" {
		req.Header.Set(SignatureHeader, SignPayload(body, s.secret))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}
