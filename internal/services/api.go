// HTTP [Transport] for the JSON proxy in front of the media library
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/gmx/internal/shared"
)

const defaultBaseURL string = "http://localhost:8080"

// HTTPTransport sends operations to the proxy described by [Routes].
type HTTPTransport struct {
	baseURL    string
	httpClient *http.Client
	session    SessionProvider
	logger     *log.Logger
}

// NewHTTPTransport creates a transport for baseURL. A nil client uses [http.DefaultClient]; a nil session sends
// unauthenticated requests.
func NewHTTPTransport(baseURL string, client *http.Client, session SessionProvider, logger *log.Logger) *HTTPTransport {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}

	return &HTTPTransport{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		session:    session,
		logger:     logger,
	}
}

// NewHTTPClient returns a client with the given timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// Send builds the request for kind, applies the session and returns the raw response.
func (t *HTTPTransport) Send(ctx context.Context, kind OpKind, params Params) (*RawResponse, error) {
	route, ok := Routes[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no route for %s", shared.ErrNotImplemented, kind)
	}

	req, err := t.newRequest(ctx, route, kind, params)
	if err != nil {
		return nil, err
	}

	if t.session != nil {
		if err := t.session.Apply(req); err != nil {
			return nil, fmt.Errorf("failed to apply session: %w", err)
		}
	}

	start := time.Now()
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	t.logger.Debug("sent", "op", kind, "method", req.Method, "path", req.URL.Path,
		"status", resp.StatusCode, "bytes", len(body), "took", time.Since(start))

	return &RawResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func (t *HTTPTransport) newRequest(ctx context.Context, route Route, kind OpKind, params Params) (*http.Request, error) {
	values := make(map[string]any, len(params.Values))
	for k, v := range params.Values {
		values[k] = v
	}

	path := route.Pattern
	for _, name := range route.Wildcards() {
		v, ok := values[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s requires %s", shared.ErrMissingArgument, kind, name)
		}
		path = strings.Replace(path, "{"+name+"}", url.PathEscape(fmt.Sprint(v)), 1)
		delete(values, name)
	}
	fullURL := t.baseURL + path

	var (
		body        io.Reader
		contentType string
	)

	switch {
	case params.File != nil:
		buf, ct, err := multipartBody(params.File, values)
		if err != nil {
			return nil, err
		}
		body, contentType = buf, ct
	case route.Method == http.MethodGet || route.Method == http.MethodDelete:
		if len(values) > 0 {
			q := url.Values{}
			for k, v := range values {
				q.Set(k, fmt.Sprint(v))
			}
			fullURL += "?" + q.Encode()
		}
	default:
		data, err := json.Marshal(values)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body, contentType = bytes.NewReader(data), "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, route.Method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// multipartBody writes the file under [ParamFile] and the remaining values as form fields.
// The source name travels as [ParamName] since multipart keeps only the base of a file name.
func multipartBody(src FileSource, values map[string]any) (*bytes.Buffer, string, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, "", fmt.Errorf("failed to open %s: %w", src.Name(), err)
	}
	defer rc.Close()

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	if _, ok := values[ParamName]; !ok {
		values[ParamName] = src.Name()
	}
	for k, v := range values {
		if err := w.WriteField(k, fmt.Sprint(v)); err != nil {
			return nil, "", fmt.Errorf("failed to write form field: %w", err)
		}
	}

	part, err := w.CreateFormFile(ParamFile, src.Name())
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, rc); err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", src.Name(), err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish upload body: %w", err)
	}

	return buf, w.FormDataContentType(), nil
}
