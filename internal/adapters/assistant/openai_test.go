package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	openai "tg-repost-bot/internal/infra/openai"
)

type stubChatClient struct {
	captured openai.ChatCompletionRequest
	reply    string
	err      error
}

func (s *stubChatClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.captured = req
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{
		{Message: openai.ChatMessage{Role: "assistant", Content: s.reply}},
	}}, nil
}

func TestCompleteReturnsTrimmedReply(t *testing.T) {
	client := &stubChatClient{reply: "  готовый текст поста \n"}
	a := NewOpenAI(client, "gpt-4.1-mini", time.Second)

	got, err := a.Complete(context.Background(), "сделай короче")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if got != "готовый текст поста" {
		t.Fatalf("ожидали обрезанный ответ, получили %q", got)
	}
	if len(client.captured.Messages) != 2 || client.captured.Messages[0].Role != openai.RoleSystem {
		t.Fatal("ожидали системный промпт перед запросом подписчика")
	}
	if client.captured.Messages[1].Content != "сделай короче" {
		t.Fatalf("ожидали запрос подписчика, получили %q", client.captured.Messages[1].Content)
	}
}

func TestCompleteRejectsEmptyPrompt(t *testing.T) {
	a := NewOpenAI(&stubChatClient{}, "", time.Second)
	if _, err := a.Complete(context.Background(), "   "); err == nil {
		t.Fatal("ожидали ошибку для пустого запроса")
	}
}

func TestCompletePropagatesClientError(t *testing.T) {
	client := &stubChatClient{err: errors.New("rate limit")}
	a := NewOpenAI(client, "", time.Second)
	if _, err := a.Complete(context.Background(), "вопрос"); err == nil {
		t.Fatal("ожидали ошибку клиента")
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	a := NewOpenAI(&emptyChatClient{}, "", time.Second)
	if _, err := a.Complete(context.Background(), "вопрос"); err == nil {
		t.Fatal("ожидали ошибку при пустом ответе модели")
	}
}

type emptyChatClient struct{}

func (emptyChatClient) CreateChatCompletion(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return openai.ChatCompletionResponse{}, nil
}
