package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tg-repost-bot/internal/domain"
)

func newTestManager(sessions *stubSessions, transport *stubTransport) *Manager {
	return NewManager(ManagerConfig{
		Sessions:     sessions,
		Transport:    transport,
		Log:          zerolog.Nop(),
		Tick:         time.Hour,
		BetweenPosts: time.Millisecond,
	})
}

func TestManagerAttachCreatesSessionOnce(t *testing.T) {
	sessions := newStubSessions()
	m := newTestManager(sessions, newStubTransport())
	defer m.Stop()

	rt, err := m.Attach(context.Background(), 1)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if rt.ChatID != 1 || rt.Machine == nil {
		t.Fatal("ожидали рантайм с автоматом страниц")
	}
	if sessions.createCalls != 1 {
		t.Fatalf("ожидали одно создание сессии, получили %d", sessions.createCalls)
	}

	again, err := m.Attach(context.Background(), 1)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if again != rt {
		t.Fatal("повторный Attach должен вернуть тот же рантайм")
	}
	if sessions.createCalls != 1 {
		t.Fatalf("повторный Attach не должен создавать сессию, создано %d", sessions.createCalls)
	}
}

func TestManagerAttachKeepsExistingSession(t *testing.T) {
	sessions := newStubSessions()
	sessions.sessions[1] = domain.Session{ChatID: 1, SubscribedChannels: []string{"demo"}}
	m := newTestManager(sessions, newStubTransport())
	defer m.Stop()

	if _, err := m.Attach(context.Background(), 1); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if sessions.createCalls != 0 {
		t.Fatal("существующая сессия не должна пересоздаваться")
	}
}

func TestManagerAttachPropagatesRepoError(t *testing.T) {
	sessions := newStubSessions()
	sessions.getSessionErr = errors.New("БД недоступна")
	m := newTestManager(sessions, newStubTransport())
	defer m.Stop()

	if _, err := m.Attach(context.Background(), 1); err == nil {
		t.Fatal("ожидали ошибку чтения сессии")
	}
	if _, ok := m.Runtime(1); ok {
		t.Fatal("рантайм не должен регистрироваться при ошибке")
	}
}

func TestManagerDeletePostRemovesTrackedMessages(t *testing.T) {
	sessions := newStubSessions()
	transport := newStubTransport()
	m := newTestManager(sessions, transport)
	defer m.Stop()

	link := "https://t.me/demo/1"
	_ = sessions.AppendPost(context.Background(), 1, domain.Post{Link: link, Description: "текст"})
	m.Tracker().Record(1, link, []domain.MessageRef{{MessageID: 10}, {MessageID: 11, HasButtons: true}})

	if err := m.DeletePost(context.Background(), 1, link); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !sessions.deleted[postKey(1, link)] {
		t.Fatal("пост должен быть помечен удалённым")
	}
	if len(transport.deletedIDs) != 2 {
		t.Fatalf("ожидали удаление 2 сообщений, удалено %d", len(transport.deletedIDs))
	}
	if got := m.Tracker().Refs(1, link); got != nil {
		t.Fatal("запись составной доставки должна забираться при удалении")
	}
}

func TestManagerDeletePostSurvivesTransportFailure(t *testing.T) {
	sessions := newStubSessions()
	transport := newStubTransport()
	transport.deleteErr = errors.New("сообщение слишком старое")
	m := newTestManager(sessions, transport)
	defer m.Stop()

	link := "https://t.me/demo/1"
	_ = sessions.AppendPost(context.Background(), 1, domain.Post{Link: link})
	m.Tracker().Record(1, link, []domain.MessageRef{{MessageID: 10}})

	if err := m.DeletePost(context.Background(), 1, link); err != nil {
		t.Fatalf("неудача снятия сообщения не должна быть ошибкой: %v", err)
	}
	if !sessions.deleted[postKey(1, link)] {
		t.Fatal("пост помечается удалённым даже если сообщение осталось в чате")
	}
}

func TestManagerDeletePostUnknownLink(t *testing.T) {
	sessions := newStubSessions()
	m := newTestManager(sessions, newStubTransport())
	defer m.Stop()

	err := m.DeletePost(context.Background(), 1, "https://t.me/demo/404")
	if !errors.Is(err, domain.ErrPostNotFound) {
		t.Fatalf("ожидали ErrPostNotFound, получили %v", err)
	}
}
