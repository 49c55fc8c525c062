package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"time"
)

// ServiceDetection is a single detection as returned by the service.
// Confidence uses the service's native 0-100 scale.
type ServiceDetection struct {
	Name              string      `json:"name"`
	ConfidencePercent float64     `json:"confidence_percent"`
	BoundingBox       *ServiceBox `json:"bounding_box,omitempty"`
}

// ServiceBox is a normalized bounding box as returned by the service
type ServiceBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Result is the decoded response of a recognition call
type Result struct {
	Detections      []ServiceDetection `json:"detections"`
	Count           int                `json:"count"`
	InferenceTimeMs float32            `json:"inference_time_ms"`
}

// serviceError is the error payload the service returns alongside non-2xx
// statuses.
type serviceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// healthResponse is the /health probe payload
type healthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

// Client calls the remote recognition service over HTTP
type Client struct {
	endpoint string
	model    string
	client   *http.Client

	mu          sync.RWMutex
	healthCheck time.Time
}

// NewClient creates a recognition client for the given service endpoint and
// model identifier.
func NewClient(endpoint, model string) *Client {
	return &Client{
		endpoint: endpoint,
		model:    model,
		client: &http.Client{
			Timeout: 15 * time.Second, // inference can be slow
		},
	}
}

// IsHealthy checks the service /health probe, caching a positive answer for
// 30 seconds.
func (c *Client) IsHealthy(ctx context.Context) bool {
	c.mu.RLock()
	if time.Since(c.healthCheck) < 30*time.Second {
		c.mu.RUnlock()
		return true
	}
	c.mu.RUnlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil || !health.ModelLoaded {
		return false
	}

	c.mu.Lock()
	c.healthCheck = time.Now()
	c.mu.Unlock()
	return true
}

// Detect submits image bytes and a confidence floor (0-100) and returns the
// service's detections. Failures are returned as a classified *Error.
func (c *Client) Detect(ctx context.Context, imageBytes []byte, minConfidencePercent float64) (*Result, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	fw, err := w.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to build request body: %w", err)
	}
	fw.Write(imageBytes)

	w.WriteField("model", c.model)
	w.WriteField("min_confidence", fmt.Sprintf("%.1f", minConfidencePercent))
	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/detect", &b)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &Error{Code: CodeNetwork, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyResponse(resp)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &Error{Code: CodeServerError, Status: resp.StatusCode, Message: fmt.Sprintf("malformed response: %v", err)}
	}

	return &result, nil
}

// classifyResponse maps a non-2xx response to the error taxonomy. The service
// error code in the body takes precedence over the bare HTTP status since it
// distinguishes conditions that share a status, like a deployed-but-stopped
// model.
func classifyResponse(resp *http.Response) *Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var se serviceError
	if err := json.Unmarshal(body, &se); err == nil && se.Code != "" {
		if code, ok := knownServiceCodes[se.Code]; ok {
			return &Error{Code: code, Status: resp.StatusCode, Message: se.Message}
		}
	}

	msg := se.Message
	if msg == "" {
		msg = string(body)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &Error{Code: CodeRateLimited, Status: resp.StatusCode, Message: msg}
	case resp.StatusCode == http.StatusBadRequest:
		return &Error{Code: CodeBadRequest, Status: resp.StatusCode, Message: msg}
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return &Error{Code: CodeAccessDenied, Status: resp.StatusCode, Message: msg}
	case resp.StatusCode == http.StatusNotFound:
		return &Error{Code: CodeModelNotFound, Status: resp.StatusCode, Message: msg}
	case resp.StatusCode == http.StatusPaymentRequired:
		return &Error{Code: CodeLimitExceeded, Status: resp.StatusCode, Message: msg}
	case resp.StatusCode >= 500:
		return &Error{Code: CodeServerError, Status: resp.StatusCode, Message: msg}
	}
	return &Error{Code: CodeBadRequest, Status: resp.StatusCode, Message: msg}
}

var knownServiceCodes = map[string]Code{
	"rate_limited":      CodeRateLimited,
	"bad_request":       CodeBadRequest,
	"model_not_found":   CodeModelNotFound,
	"model_not_running": CodeModelNotRunning,
	"access_denied":     CodeAccessDenied,
	"limit_exceeded":    CodeLimitExceeded,
}
