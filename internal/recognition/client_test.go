package recognition

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_DetectSuccess(t *testing.T) {
	t.Parallel()

	var gotModel, gotConfidence string
	var gotFile []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/detect", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		gotModel = r.FormValue("model")
		gotConfidence = r.FormValue("min_confidence")
		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		buf := make([]byte, 16)
		n, _ := file.Read(buf)
		gotFile = buf[:n]

		json.NewEncoder(w).Encode(Result{
			Detections: []ServiceDetection{
				{Name: "Acme", ConfidencePercent: 91.5, BoundingBox: &ServiceBox{Left: 0.1, Top: 0.2, Width: 0.3, Height: 0.4}},
			},
			Count:           1,
			InferenceTimeMs: 42,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "logo-v2")
	result, err := c.Detect(context.Background(), []byte("jpeg-bytes"), 60)
	require.NoError(t, err)

	assert.Equal(t, "logo-v2", gotModel)
	assert.Equal(t, "60.0", gotConfidence)
	assert.Equal(t, []byte("jpeg-bytes"), gotFile)

	require.Len(t, result.Detections, 1)
	assert.Equal(t, "Acme", result.Detections[0].Name)
	assert.InDelta(t, 91.5, result.Detections[0].ConfidencePercent, 1e-9)
	require.NotNil(t, result.Detections[0].BoundingBox)
	assert.InDelta(t, 0.3, result.Detections[0].BoundingBox.Width, 1e-9)
}

func TestClient_DetectStatusClassification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		status   int
		body     string
		wantCode Code
	}{
		{"rate limited", http.StatusTooManyRequests, `{"message":"slow down"}`, CodeRateLimited},
		{"bad request", http.StatusBadRequest, `{"message":"not an image"}`, CodeBadRequest},
		{"unauthorized", http.StatusUnauthorized, "", CodeAccessDenied},
		{"forbidden", http.StatusForbidden, "", CodeAccessDenied},
		{"model missing", http.StatusNotFound, "", CodeModelNotFound},
		{"quota", http.StatusPaymentRequired, "", CodeLimitExceeded},
		{"internal", http.StatusInternalServerError, "", CodeServerError},
		{"bad gateway", http.StatusBadGateway, "", CodeServerError},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "logo-v2")
			_, err := c.Detect(context.Background(), []byte("x"), 60)
			require.Error(t, err)

			var re *Error
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tc.wantCode, re.Code)
			assert.Equal(t, tc.status, re.Status)
		})
	}
}

func TestClient_DetectBodyCodeOverridesStatus(t *testing.T) {
	t.Parallel()

	// A stopped model comes back as a plain 400; the body code is the only
	// way to tell it apart from malformed input.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"model_not_running","message":"model is stopped"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "logo-v2")
	_, err := c.Detect(context.Background(), []byte("x"), 60)

	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, CodeModelNotRunning, re.Code)
	assert.Equal(t, "model is stopped", re.Message)
	assert.False(t, re.Retryable())
}

func TestClient_DetectUnknownBodyCodeFallsBackToStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"code":"weird_new_code","message":"shrug"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "logo-v2")
	_, err := c.Detect(context.Background(), []byte("x"), 60)

	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, CodeServerError, re.Code)
	assert.Equal(t, "shrug", re.Message)
}

func TestClient_DetectNetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := NewClient(srv.URL, "logo-v2")
	_, err := c.Detect(context.Background(), []byte("x"), 60)

	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, CodeNetwork, re.Code)
	assert.Zero(t, re.Status)
	assert.True(t, re.Retryable())
}

func TestClient_DetectMalformedResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not json"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "logo-v2")
	_, err := c.Detect(context.Background(), []byte("x"), 60)

	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, CodeServerError, re.Code)
}

func TestClient_IsHealthy(t *testing.T) {
	t.Parallel()

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		calls++
		json.NewEncoder(w).Encode(healthResponse{Status: "ok", ModelLoaded: true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "logo-v2")
	assert.True(t, c.IsHealthy(context.Background()))

	// A positive answer is cached, the probe is not hit again.
	assert.True(t, c.IsHealthy(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestClient_IsHealthyModelNotLoaded(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(healthResponse{Status: "ok", ModelLoaded: false})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "logo-v2")
	assert.False(t, c.IsHealthy(context.Background()))
}

func TestClient_IsHealthyServiceDown(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "logo-v2")
	assert.False(t, c.IsHealthy(context.Background()))
}
