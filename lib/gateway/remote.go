package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-pkgz/repeater"

	"github.com/umputun/spamdash/lib/msgcheck"
)

//go:generate moq --out mocks/http_client.go --pkg mocks --skip-ensure --with-resets . HTTPClient

// HTTPClient is an interface for http client, satisfied by http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// RemoteConfig defines remote gateway parameters
type RemoteConfig struct {
	URL        string        // prediction endpoint, receives POST {"message": "..."}
	Timeout    time.Duration // per attempt timeout, used only if HTTPClient is not set
	Retries    int           // extra attempts on connectivity errors
	RetryDelay time.Duration // delay between attempts
	HTTPClient HTTPClient
}

// Remote is a gateway calling a prediction service over HTTP
type Remote struct {
	RemoteConfig
}

const maxRemoteBody = 64 * 1024

type predictRequest struct {
	Message string `json:"message"`
}

// NewRemote makes a remote gateway with defaults for missing parameters
func NewRemote(cfg RemoteConfig) *Remote {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Remote{RemoteConfig: cfg}
}

// Name returns backend name
func (r *Remote) Name() string { return "remote" }

// Infer sends the message to the remote service. Only connectivity failures are retried,
// a non-success answer is returned as *msgcheck.RemoteError right away.
func (r *Remote) Infer(ctx context.Context, msg string) (msgcheck.Result, error) {
	if err := validate(msg); err != nil {
		return msgcheck.Result{}, err
	}
	body, err := json.Marshal(predictRequest{Message: msg})
	if err != nil {
		return msgcheck.Result{}, fmt.Errorf("can't marshal request: %w", err)
	}

	var res msgcheck.Result
	var finalErr error // non-retryable error of the last attempt
	attempt := 0
	err = repeater.NewDefault(r.Retries+1, r.RetryDelay).Do(ctx, func() error {
		attempt++
		var sendErr error
		res, sendErr = r.send(ctx, body)
		if isConnectivity(sendErr) {
			log.Printf("[DEBUG] remote attempt %d to %s failed: %v", attempt, r.URL, sendErr)
			return sendErr
		}
		finalErr = sendErr
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !isConnectivity(err) {
			return msgcheck.Result{}, ctxErr
		}
		return msgcheck.Result{}, err
	}
	if finalErr != nil {
		return msgcheck.Result{}, finalErr
	}
	return res, nil
}

func (r *Remote) send(ctx context.Context, body []byte) (msgcheck.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewReader(body))
	if err != nil {
		return msgcheck.Result{}, fmt.Errorf("can't make request to %s: %w", r.URL, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return msgcheck.Result{}, ctxErr
		}
		return msgcheck.Result{}, &msgcheck.ConnectivityError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteBody))
	if err != nil {
		return msgcheck.Result{}, &msgcheck.ConnectivityError{Err: fmt.Errorf("can't read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return msgcheck.Result{}, &msgcheck.RemoteError{Status: resp.StatusCode, Body: string(data)}
	}
	return decodePrediction(resp.StatusCode, data)
}

// decodePrediction parses {"prediction": "SPAM", "probabilities": {"SPAM": 0.9, "HAM": 0.1}}.
// Anything else, including missing fields, is a remote error with the received status and body.
func decodePrediction(status int, data []byte) (msgcheck.Result, error) {
	malformed := &msgcheck.RemoteError{Status: status, Body: string(data)}
	var resp struct {
		Prediction    *string `json:"prediction"`
		Probabilities *struct {
			Spam *float64 `json:"SPAM"`
			Ham  *float64 `json:"HAM"`
		} `json:"probabilities"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return msgcheck.Result{}, malformed
	}
	if resp.Prediction == nil || resp.Probabilities == nil || resp.Probabilities.Spam == nil || resp.Probabilities.Ham == nil {
		return msgcheck.Result{}, malformed
	}
	label, err := msgcheck.ParseLabel(*resp.Prediction)
	if err != nil {
		return msgcheck.Result{}, malformed
	}
	probs := msgcheck.Probabilities{Spam: *resp.Probabilities.Spam, Ham: *resp.Probabilities.Ham}
	if err := probs.Validate(); err != nil {
		return msgcheck.Result{}, malformed
	}
	return msgcheck.Result{Label: label, Probabilities: probs}, nil
}

func isConnectivity(err error) bool {
	var connErr *msgcheck.ConnectivityError
	return errors.As(err, &connErr)
}
