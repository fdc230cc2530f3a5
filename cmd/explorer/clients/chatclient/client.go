package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"doha-explorer/cmd/internal/httpclient"
	"doha-explorer/cmd/internal/trace"
	"doha-explorer/config"
)

const (
	defaultPath = "/api/chat"
	maxBodySize = 1 << 20
)

// ErrCanceled 는 호출자가 요청을 취소했을 때 반환된다. context.Canceled 를 감싼다.
var ErrCanceled = fmt.Errorf("chat request canceled: %w", context.Canceled)

// ErrEmptyReply 는 2xx 응답에 reply 가 비어 있을 때 반환된다.
var ErrEmptyReply = errors.New("chat api returned an empty reply")

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
}

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("chat api request failed: status=%d body=%s", e.StatusCode, e.Body)
}

// TokenSource 는 요청마다 Authorization 헤더에 실을 ID 토큰을 돌려준다.
// 빈 문자열이면 헤더를 붙이지 않는다.
type TokenSource func() string

type Client struct {
	base  *httpclient.BaseClient
	path  string
	token TokenSource
}

type Option func(*Client)

// WithTokenSource 는 Bearer 토큰 공급자를 지정한다.
func WithTokenSource(src TokenSource) Option {
	return func(c *Client) { c.token = src }
}

// WithHTTPClient 는 내부 http.Client 를 교체한다. 테스트용.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.base.HTTPClient = hc }
}

// New 는 chat_api 설정으로 클라이언트를 만든다.
func New(cfg config.ChatAPIConfig, opts ...Option) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	p := cfg.Path
	if p == "" {
		p = defaultPath
	}
	c := &Client{
		base: httpclient.NewBaseClient(httpclient.New(httpclient.Config{Timeout: timeout}), cfg.BaseURL),
		path: p,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete 는 message 를 채팅 API 로 보내고 reply 를 돌려준다.
//
// ctx 가 취소되면 ErrCanceled 를, 2xx 가 아닌 응답은 *HTTPError 를 반환한다.
// 데드라인 초과는 일반 실패로 취급한다.
func (c *Client) Complete(ctx context.Context, message string) (string, error) {
	buf, err := json.Marshal(ChatRequest{Message: message})
	if err != nil {
		return "", err
	}

	ctx = trace.Ensure(ctx)
	req, err := c.base.NewRequest(ctx, http.MethodPost, c.path, nil, bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.base.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return "", ErrCanceled
		}
		return "", fmt.Errorf("chat api request: %w", err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if readErr != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return "", ErrCanceled
		}
		return "", fmt.Errorf("chat api response read failed: %w", readErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out ChatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("chat api response decode failed: %w", err)
	}
	if strings.TrimSpace(out.Reply) == "" {
		return "", ErrEmptyReply
	}
	return out.Reply, nil
}
