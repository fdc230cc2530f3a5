package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"doha-explorer/cmd/internal/trace"
	"doha-explorer/config"
)

const maxBodyLog = 1024

// redactedFields 는 로그에 원문을 남기지 않는 JSON 필드다. 채팅 본문이 여기에 해당한다.
var redactedFields = []string{"message", "reply"}

// Config 는 HTTP 클라이언트 공통 설정이다.
type Config struct {
	Timeout time.Duration
	// Transport 가 nil 이면 http.DefaultTransport 를 사용한다.
	Transport http.RoundTripper
}

// loggingRoundTripper 는 모든 outbound 호출에 X-Request-Id / X-Span-Id 를 붙이고
// 결과를 구조화 로그로 남긴다.
type loggingRoundTripper struct {
	inner http.RoundTripper
}

func (l *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	requestID, spanID := trace.NextSpanID(req.Context())
	if h := req.Header.Get(trace.HeaderRequestID); h != "" && trace.RequestIDFromContext(req.Context()) == "" {
		requestID = h
	}
	req.Header.Set(trace.HeaderRequestID, requestID)
	req.Header.Set(trace.HeaderSpanID, spanID)

	bodySnippet := snippet(req)

	resp, err := l.inner.RoundTrip(req)
	fields := config.Fields{
		"method":     req.Method,
		"url":        req.URL.String(),
		"duration":   time.Since(start).String(),
		"request_id": requestID,
		"span_id":    spanID,
	}
	if bodySnippet != "" {
		fields["body"] = bodySnippet
	}
	if err != nil {
		fields["error"] = err.Error()
		// 사용자가 취소한 요청은 실패로 보지 않는다.
		if req.Context().Err() == context.Canceled {
			config.DebugWithFields("httpclient request cancelled", fields)
		} else {
			config.ErrorWithFields("httpclient request failed", fields)
		}
		return nil, err
	}

	fields["status"] = resp.StatusCode
	config.DebugWithFields("httpclient request success", fields)
	return resp, nil
}

// snippet 은 요청 바디 앞부분을 읽어 로그용 문자열로 돌려주고 Body 를 복원한다.
func snippet(req *http.Request) string {
	if req.Body == nil || req.Body == http.NoBody {
		return ""
	}
	bodyBytes, err := io.ReadAll(req.Body)
	if err != nil {
		return ""
	}
	req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	out := redact(bodyBytes)
	if len(out) > maxBodyLog {
		return string(out[:maxBodyLog])
	}
	return string(out)
}

// redact 는 JSON 객체 바디의 redactedFields 값을 길이 표시로 바꾼다.
// JSON 객체가 아니면 그대로 돌려준다.
func redact(body []byte) []byte {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return body
	}
	changed := false
	for _, key := range redactedFields {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			continue
		}
		masked, _ := json.Marshal(fmt.Sprintf("[redacted %d chars]", len([]rune(text))))
		obj[key] = masked
		changed = true
	}
	if !changed {
		return body
	}
	out, err := json.Marshal(obj)
	if err != nil {
		return body
	}
	return out
}

// BaseClient 는 http.Client 와 baseURL 을 묶어 요청 생성을 돕는다.
type BaseClient struct {
	HTTPClient *http.Client
	BaseURL    string
}

// NewBaseClient 는 httpClient 가 nil 이면 기본 클라이언트를 사용한다.
func NewBaseClient(httpClient *http.Client, baseURL string) *BaseClient {
	if httpClient == nil {
		httpClient = NewDefault()
	}
	return &BaseClient{HTTPClient: httpClient, BaseURL: baseURL}
}

// NewRequest 는 baseURL 에 relPath 를 이어 붙인 요청을 만든다.
// relPath 에 쿼리(?)가 섞이면 path.Join 이 이를 망가뜨리므로 에러를 반환한다.
func (c *BaseClient) NewRequest(ctx context.Context, method, relPath string, query url.Values, body io.Reader) (*http.Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.Contains(relPath, "?") {
		return nil, fmt.Errorf("httpclient: relPath must not contain query string (use query parameter instead): %s", relPath)
	}
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, err
	}
	if relPath != "" {
		base.Path = path.Join("/", base.Path, relPath)
	}
	if query != nil {
		base.RawQuery = query.Encode()
	}
	return http.NewRequestWithContext(ctx, method, base.String(), body)
}

func (c *BaseClient) Do(req *http.Request) (*http.Response, error) {
	return c.HTTPClient.Do(req)
}

// New 는 주어진 설정으로 로깅 round-tripper 가 붙은 http.Client 를 만든다.
// Timeout 이 0 이면 10초를 사용한다.
func New(cfg Config) *http.Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: &loggingRoundTripper{inner: transport},
	}
}

func NewDefault() *http.Client {
	return New(Config{})
}
