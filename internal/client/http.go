package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/alfredjeanlab/qna/internal/model"
)

// maxEventSize bounds one SSE line; a snapshot of the whole board arrives
// as a single data line.
const maxEventSize = 8 << 20

// HTTPClient implements Client using the qna HTTP/JSON API and its SSE feed.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	opts       options

	mu    sync.RWMutex
	token string
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string, opts ...Option) *HTTPClient {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
		opts:       o,
	}
}

// SetToken replaces the bearer token used for later requests.
func (c *HTTPClient) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *HTTPClient) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Questions ---

func (c *HTTPClient) AddQuestion(ctx context.Context, text string) error {
	_, err := c.CreateQuestion(ctx, text)
	return err
}

func (c *HTTPClient) SaveAnswer(ctx context.Context, id string, answer *string) error {
	_, err := c.SetAnswer(ctx, id, answer)
	return err
}

func (c *HTTPClient) CreateQuestion(ctx context.Context, text string) (*model.Question, error) {
	var q model.Question
	if err := c.doJSON(ctx, http.MethodPost, "/v1/questions", map[string]string{"text": text}, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (c *HTTPClient) SetAnswer(ctx context.Context, id string, answer *string) (*model.Question, error) {
	body := struct {
		Answer *string `json:"answer"`
	}{answer}
	var q model.Question
	if err := c.doJSON(ctx, http.MethodPut, "/v1/questions/"+url.PathEscape(id)+"/answer", body, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (c *HTTPClient) GetQuestion(ctx context.Context, id string) (*model.Question, error) {
	var q model.Question
	if err := c.doJSON(ctx, http.MethodGet, "/v1/questions/"+url.PathEscape(id), nil, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (c *HTTPClient) ListQuestions(ctx context.Context) (model.Snapshot, error) {
	var snap model.Snapshot
	err := c.doJSON(ctx, http.MethodGet, "/v1/questions", nil, &snap)
	return snap, err
}

// --- Identity ---

func (c *HTTPClient) Whoami(ctx context.Context) (*Whoami, error) {
	var w Whoami
	if err := c.doJSON(ctx, http.MethodGet, "/v1/whoami", nil, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// AnonymousToken is the server's answer to an anonymous sign-in.
type AnonymousToken struct {
	UID       string    `json:"uid"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SignInAnonymously asks the server for a fresh anonymous identity. The
// client keeps using its current token; callers decide whether to adopt
// the new one.
func (c *HTTPClient) SignInAnonymously(ctx context.Context) (*AnonymousToken, error) {
	var t AnonymousToken
	if err := c.doJSON(ctx, http.MethodPost, "/v1/identity/anonymous", nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Viewers returns the admin-only presence summary as raw JSON.
func (c *HTTPClient) Viewers(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, "/v1/viewers", nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// --- Live feed ---

func (c *HTTPClient) Stream(ctx context.Context, onState func(bool)) <-chan model.Snapshot {
	return follow(ctx, c.opts, c.openStream, onState)
}

// openStream opens the SSE feed and returns a reader of its snapshot events.
func (c *HTTPClient) openStream(ctx context.Context) (recvFunc, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/questions/stream", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	if tok := c.bearer(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, readAPIError(resp)
	}

	// Unblock the scanner when ctx ends.
	stop := context.AfterFunc(ctx, func() { resp.Body.Close() })

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	return func() (model.Snapshot, error) {
		for {
			event, data, err := nextEvent(sc)
			if err != nil {
				stop()
				resp.Body.Close()
				return model.Snapshot{}, err
			}
			if event != "snapshot" {
				continue
			}
			var snap model.Snapshot
			if err := json.Unmarshal(data, &snap); err != nil {
				stop()
				resp.Body.Close()
				return model.Snapshot{}, fmt.Errorf("decoding snapshot: %w", err)
			}
			return snap, nil
		}
	}, nil
}

// nextEvent reads one SSE event. Multiple data lines are joined with
// newlines; comments and unknown fields are skipped.
func nextEvent(sc *bufio.Scanner) (event string, data []byte, err error) {
	var buf bytes.Buffer
	seen := false
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			if seen {
				if event == "" {
					event = "message"
				}
				return event, buf.Bytes(), nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			event = value
			seen = true
		case "data":
			if buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			buf.WriteString(value)
			seen = true
		}
	}
	if err := sc.Err(); err != nil {
		return "", nil, err
	}
	return "", nil, io.EOF
}

// --- Errors ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsForbidden reports whether err is a 403 from the server.
func IsForbidden(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden
}

// readAPIError builds an APIError from a failed response.
func readAPIError(resp *http.Response) error {
	respBody, _ := io.ReadAll(resp.Body)
	var errResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.bearer(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return readAPIError(resp)
	}
	if resp.StatusCode == http.StatusNoContent || result == nil {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
