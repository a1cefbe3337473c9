package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/zmb3/spotify/v2"
	"go.uber.org/zap"

	"spotifydlp/internal/core"
)

type endpointKey struct{}

// withEndpoint labels the requests made with ctx for metrics.
func withEndpoint(ctx context.Context, endpoint string) context.Context {
	return context.WithValue(ctx, endpointKey{}, endpoint)
}

// catalogTransport authorizes each Web API request with the session token and turns every
// error envelope or non-success status into a *core.RequestError. Envelopes sent with a
// success status are caught too, which the API client would otherwise decode as data.
type catalogTransport struct {
	base     http.RoundTripper
	session  TokenProvider
	basePath string
	metrics  core.MetricsRecorder
	logger   *zap.Logger
}

func (t *catalogTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	token, err := t.session.Token(ctx)
	if err != nil {
		return nil, err
	}

	authorized := req.Clone(ctx)
	authorized.Header.Set("Authorization", "Bearer "+token)
	authorized.Header.Set("Accept", "application/json")

	resp, err := t.base.RoundTrip(authorized)
	if err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", req.URL.Path, err)
	}

	path := strings.TrimPrefix(req.URL.Path, t.basePath)
	endpoint, _ := ctx.Value(endpointKey{}).(string)

	t.metrics.RecordRequest(endpoint, resp.StatusCode)
	t.logger.Debug("Catalog request",
		zap.String("path", path),
		zap.String("query", req.URL.RawQuery),
		zap.Int("status", resp.StatusCode))

	if reqErr := responseError(path, resp, body); reqErr != nil {
		return nil, reqErr
	}

	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	return resp, nil
}

// errorEnvelope is the "error" member of a failed response. The API sends either a bare
// string or an object with status and message.
type errorEnvelope struct {
	Error json.RawMessage `json:"error"`
}

// responseError translates an error envelope or a non-success status into a RequestError.
func responseError(path string, resp *http.Response, body []byte) *core.RequestError {
	success := resp.StatusCode >= 200 && resp.StatusCode < 300

	var envelope errorEnvelope
	if json.Unmarshal(body, &envelope) == nil && len(envelope.Error) > 0 && !bytes.Equal(envelope.Error, []byte("null")) {
		status := 0
		if !success {
			status = resp.StatusCode
		}

		var message string
		if json.Unmarshal(envelope.Error, &message) == nil {
			return &core.RequestError{Path: path, Status: status, Message: message}
		}

		var apiErr spotify.Error
		if json.Unmarshal(envelope.Error, &apiErr) == nil {
			if apiErr.Status != 0 {
				status = apiErr.Status
			}
			if apiErr.Message == "" {
				apiErr.Message = reasonPhrase(resp)
			}
			return &core.RequestError{Path: path, Status: status, Message: apiErr.Message}
		}
	}

	if success {
		return nil
	}
	return &core.RequestError{Path: path, Status: resp.StatusCode, Message: reasonPhrase(resp)}
}

func reasonPhrase(resp *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return reason
}

// catalogError strips the *url.Error the HTTP client wraps transport failures in, so
// request, auth and context errors reach the caller as they were raised. A spotify.Error
// decoded by the API client itself is translated as well.
func catalogError(path string, err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}

	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		return &core.RequestError{Path: path, Status: apiErr.Status, Message: apiErr.Message}
	}
	return err
}
