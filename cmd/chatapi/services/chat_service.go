package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/mongo"

	"doha-explorer/cmd/chatapi/llm"
	"doha-explorer/cmd/internal/trace"
	"doha-explorer/config"
	"doha-explorer/models"
)

const aiLogTimeout = 3 * time.Second

// AILogWriter 는 AI 사용 로그 저장소다. repositories.AILogRepository 가 구현한다.
type AILogWriter interface {
	Insert(ctx context.Context, log models.AILog) (*mongo.InsertOneResult, error)
}

type ChatService struct {
	llm    llm.Client
	logs   AILogWriter
	maxLen int
	now    func() time.Time
}

type ChatError struct {
	StatusCode int
	ErrorCode  string
	Cause      error
}

func (e *ChatError) Error() string {
	if e == nil {
		return "chat_failed"
	}
	return e.ErrorCode
}

func (e *ChatError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewChatService 는 logs 가 nil 이면 AI 로그를 남기지 않는다.
func NewChatService(client llm.Client, logs AILogWriter, maxLen int) *ChatService {
	return &ChatService{llm: client, logs: logs, maxLen: maxLen, now: time.Now}
}

// Chat 은 message 에 대한 답변을 생성한다. 성공/실패와 관계 없이 AI 로그를 남긴다.
func (s *ChatService) Chat(ctx context.Context, userID, message string) (string, *ChatError) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", &ChatError{StatusCode: http.StatusBadRequest, ErrorCode: "invalid_request"}
	}
	if s.maxLen > 0 && utf8.RuneCountInString(message) > s.maxLen {
		return "", &ChatError{StatusCode: http.StatusBadRequest, ErrorCode: "message_too_long"}
	}

	requestedAt := s.now()
	res, err := s.llm.Generate(ctx, message)
	completedAt := s.now()

	s.writeLog(ctx, userID, message, res, err, requestedAt, completedAt)

	if err != nil {
		return "", classify(ctx, err)
	}
	return res.Text, nil
}

func classify(ctx context.Context, err error) *ChatError {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		// 클라이언트가 연결을 끊은 경우. nginx 관례를 따라 499 를 쓴다.
		return &ChatError{StatusCode: 499, ErrorCode: "client_closed_request", Cause: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &ChatError{StatusCode: http.StatusServiceUnavailable, ErrorCode: "chat_unavailable", Cause: err}
	default:
		return &ChatError{StatusCode: http.StatusInternalServerError, ErrorCode: "chat_failed", Cause: err}
	}
}

func (s *ChatService) writeLog(ctx context.Context, userID, prompt string, res *llm.Result, genErr error, requestedAt, completedAt time.Time) {
	requestID := trace.RequestIDFromContext(ctx)
	entry := models.AILog{
		ModelName:   s.llm.Model(),
		UserID:      userID,
		RequestID:   requestID,
		DurationMs:  completedAt.Sub(requestedAt).Milliseconds(),
		InputPrompt: prompt,
		RequestedAt: requestedAt,
		CompletedAt: completedAt,
	}
	if res != nil {
		entry.OutputResponse = res.Text
		entry.ModelVersion = res.ModelVersion
		entry.InputTokens = res.Usage.InputTokens
		entry.OutputTokens = res.Usage.OutputTokens
		entry.TotalTokens = res.Usage.TotalTokens
	}
	if genErr != nil {
		msg := genErr.Error()
		entry.ErrorMessage = &msg
	}

	config.InfoWithFields("llm completion", config.Fields{
		"request_id":    requestID,
		"user_id":       userID,
		"model":         entry.ModelName,
		"model_version": entry.ModelVersion,
		"duration_ms":   entry.DurationMs,
		"total_tokens":  entry.TotalTokens,
		"llm_succeeded": genErr == nil,
	})

	if s.logs == nil {
		return
	}
	// 요청이 취소돼도 로그는 남긴다.
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), aiLogTimeout)
	defer cancel()
	if _, err := s.logs.Insert(logCtx, entry); err != nil {
		config.WarnWithFields("ai log insert failed", config.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		})
	}
}
