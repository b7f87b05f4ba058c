package coach

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/everlift-app/everlift/pkg/domain/model"
)

const defaultTimeout = 30 * time.Second

// Client is the HTTP implementation of Backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ Backend = &Client{}

type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(cl *Client) {
		if d > 0 {
			cl.httpClient.Timeout = d
		}
	}
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	cl := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

// Chat posts one user turn to the backend.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal chat request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build chat request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var resp ChatResponse
	if err := c.do(httpReq, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History fetches the backend-declared transcript for reconciliation.
func (c *Client) History(ctx context.Context, q HistoryQuery) ([]model.Message, error) {
	params := url.Values{}
	params.Set("user_id", q.UserID)
	if q.Topic != "" {
		params.Set("topic", q.Topic)
	}
	if q.Coach != "" {
		params.Set("coach", q.Coach)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/history?"+params.Encode(), nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build history request")
	}

	var resp struct {
		Messages []WireMessage `json:"messages"`
	}
	if err := c.do(httpReq, &resp); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	messages := make([]model.Message, 0, len(resp.Messages))
	for _, wm := range resp.Messages {
		messages = append(messages, wm.ToMessage(now))
	}
	return messages, nil
}

// Voice submits captured audio as a multipart form. The audio reader is fully
// consumed here; closing it remains the caller's responsibility.
func (c *Client) Voice(ctx context.Context, req *VoiceRequest) (*VoiceResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := map[string]string{
		"user_id":      req.UserID,
		"coach":        req.Coach,
		"topic":        req.Topic,
		"profile_json": req.ProfileJSON,
	}
	for field, value := range fields {
		if value == "" {
			continue
		}
		if err := mw.WriteField(field, value); err != nil {
			return nil, goerr.Wrap(err, "failed to write voice form field", goerr.V("field", field))
		}
	}

	filename := req.Filename
	if filename == "" {
		filename = "voice.webm"
	}
	part, err := mw.CreateFormFile("audio", filename)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create voice form file")
	}
	if _, err := io.Copy(part, req.Audio); err != nil {
		return nil, goerr.Wrap(err, "failed to copy voice payload")
	}
	if err := mw.Close(); err != nil {
		return nil, goerr.Wrap(err, "failed to finalize voice form")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/voice", &buf)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build voice request")
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	var resp VoiceResponse
	if err := c.do(httpReq, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do executes the request and decodes the JSON body into out, classifying
// failures into the gateway sentinel errors.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransport(err, req.URL.Path)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail := readErrorDetail(resp.Body)
		return goerr.Wrap(ErrServer, "coach backend rejected the request",
			goerr.V("status", resp.StatusCode),
			goerr.V("path", req.URL.Path),
			goerr.V("detail", detail))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return goerr.Wrap(ErrServer, "failed to decode coach backend response",
			goerr.V("path", req.URL.Path),
			goerr.V("decode_error", err.Error()))
	}
	return nil
}

func classifyTransport(err error, path string) error {
	kind := ErrNetwork
	if errors.Is(err, context.DeadlineExceeded) {
		kind = ErrTimeout
	} else {
		var uerr *url.Error
		if errors.As(err, &uerr) && uerr.Timeout() {
			kind = ErrTimeout
		}
	}
	return goerr.Wrap(kind, "coach backend request failed",
		goerr.V("path", path),
		goerr.V("cause", err.Error()))
}

// readErrorDetail pulls a structured error payload if the backend sent one.
func readErrorDetail(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Detail != "" {
			return payload.Detail
		}
	}
	return strings.TrimSpace(string(body))
}
