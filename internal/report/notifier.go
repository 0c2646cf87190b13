package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/capture-sizing/internal/sizing"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/logger"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/utils"
)

// ErrInvalidURL is returned for a callback URL that is not absolute http(s).
var ErrInvalidURL = errors.New("invalid callback URL")

// Payload is the JSON body posted when a design run finishes.
type Payload struct {
	SessionID        string             `json:"session_id"`
	Status           string             `json:"status"`
	Evaluations      uint64             `json:"evaluations"`
	Design           map[string]float64 `json:"design,omitempty"`
	Error            string             `json:"error,omitempty"`
	StartedAtUnixMs  int64              `json:"started_at_unix_ms,omitempty"`
	FinishedAtUnixMs int64              `json:"finished_at_unix_ms,omitempty"`
	Timestamp        int64              `json:"timestamp"`
}

// NewPayload builds the callback body for a run outcome.
func NewPayload(rep *sizing.DesignReport, runErr error) Payload {
	p := Payload{Timestamp: time.Now().UTC().UnixMilli(), Status: string(sizing.StatusAborted)}
	if rep != nil {
		p.SessionID = rep.SessionID
		p.Status = string(rep.Status)
		p.Evaluations = rep.Evaluations
		p.Design = make(map[string]float64, len(rep.Design))
		for _, v := range rep.Design {
			p.Design[v.Name] = v.Value
		}
		if !rep.Started.IsZero() {
			p.StartedAtUnixMs = rep.Started.UTC().UnixMilli()
		}
		if !rep.Finished.IsZero() {
			p.FinishedAtUnixMs = rep.Finished.UTC().UnixMilli()
		}
	}
	if runErr != nil {
		p.Error = runErr.Error()
	}
	return p
}

// Notifier posts run outcomes to a callback URL.
type Notifier struct {
	httpClient *http.Client
	backoff    utils.BackoffStrategy
	attempts   int
	secret     string
}

// NewNotifier returns a notifier retrying attempts times with backoff.
func NewNotifier(backoff utils.BackoffStrategy, attempts int, secret string) *Notifier {
	if backoff == nil {
		backoff = utils.NewExponentialBackoff(time.Second, 10*time.Second, 2.0, false)
	}
	return &Notifier{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		backoff:  backoff,
		attempts: attempts,
		secret:   secret,
	}
}

// Notify posts payload to callbackURL and blocks until it was accepted or
// every attempt failed. "{session_id}" in the URL is replaced.
func (n *Notifier) Notify(ctx context.Context, callbackURL string, payload Payload) error {
	if callbackURL == "" {
		return nil
	}
	finalURL := strings.ReplaceAll(callbackURL, "{session_id}", payload.SessionID)
	if err := validateCallbackURL(finalURL); err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}

	err = utils.Retry(ctx, n.backoff, n.attempts, func(attempt int) (bool, error) {
		if attempt > 0 {
			logger.Debug("retrying notification", "callback_url", finalURL, "session_id", payload.SessionID, "attempt", attempt)
		}
		return n.post(ctx, finalURL, body)
	})
	if err != nil {
		logger.Error("failed to send notification", "callback_url", finalURL, "session_id", payload.SessionID, "error", err)
		return err
	}
	logger.Info("notification sent", "session_id", payload.SessionID, "status", payload.Status)
	return nil
}

// post sends one request. Transport errors, 429 and 5xx are retryable.
func (n *Notifier) post(ctx context.Context, target string, body []byte) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "capture-sizing/1.0")
	if n.secret != "" {
		req.Header.Set("X-Capture-Callback-Secret", n.secret)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return true, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return false, nil
	}

	b, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
	err = fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
	return retryable, err
}

func validateCallbackURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https, got %q", ErrInvalidURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%w: missing hostname", ErrInvalidURL)
	}
	return nil
}
