package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tg-repost-bot/internal/domain"
)

type stubSessions struct {
	mu       sync.Mutex
	sessions map[int64]domain.Session
	posts    map[string]domain.Post
	deleted  map[string]bool

	getSessionErr error
	createCalls   int
}

func newStubSessions() *stubSessions {
	return &stubSessions{
		sessions: make(map[int64]domain.Session),
		posts:    make(map[string]domain.Post),
		deleted:  make(map[string]bool),
	}
}

func postKey(chatID int64, link string) string {
	return fmt.Sprintf("%d|%s", chatID, link)
}

func (s *stubSessions) GetSession(_ context.Context, chatID int64) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getSessionErr != nil {
		return domain.Session{}, s.getSessionErr
	}
	sess, ok := s.sessions[chatID]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return sess, nil
}

func (s *stubSessions) CreateSession(_ context.Context, chatID int64) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	sess := domain.Session{ChatID: chatID}
	s.sessions[chatID] = sess
	return sess, nil
}

func (s *stubSessions) ListSessions(context.Context) ([]domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []domain.Session
	for _, sess := range s.sessions {
		list = append(list, sess)
	}
	return list, nil
}

func (s *stubSessions) SetSubscribedChannels(context.Context, int64, []string) error { return nil }
func (s *stubSessions) SetOwnedChannels(context.Context, int64, []string) error      { return nil }
func (s *stubSessions) RemoveSubscribedChannel(context.Context, string) error        { return nil }
func (s *stubSessions) SetDeliveryPaused(context.Context, int64, bool) error         { return nil }

func (s *stubSessions) AppendPost(_ context.Context, chatID int64, post domain.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[postKey(chatID, post.Link)] = post
	return nil
}

func (s *stubSessions) GetPost(_ context.Context, chatID int64, link string) (domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[postKey(chatID, link)]
	if !ok {
		return domain.Post{}, domain.ErrPostNotFound
	}
	return post, nil
}

func (s *stubSessions) SetPostDelivered(context.Context, int64, string, bool) error { return nil }

func (s *stubSessions) SetPostDeleted(_ context.Context, chatID int64, link string, deleted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := postKey(chatID, link)
	post, ok := s.posts[key]
	if !ok {
		return domain.ErrPostNotFound
	}
	post.Deleted = deleted
	s.posts[key] = post
	s.deleted[key] = deleted
	return nil
}

func (s *stubSessions) SetPostDescription(_ context.Context, chatID int64, link, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := postKey(chatID, link)
	post, ok := s.posts[key]
	if !ok {
		return domain.ErrPostNotFound
	}
	post.Description = description
	s.posts[key] = post
	return nil
}

func (s *stubSessions) AddPostMedia(context.Context, int64, string, domain.MediaItem) error {
	return nil
}
func (s *stubSessions) RemovePostMedia(context.Context, int64, string, string) error { return nil }

type published struct {
	channel string
	post    domain.Post
}

type stubTransport struct {
	mu          sync.Mutex
	published   []published
	publishedCh chan struct{}
	deletedIDs  []int
	deleteErr   error
}

func newStubTransport() *stubTransport {
	return &stubTransport{publishedCh: make(chan struct{}, 8)}
}

func (t *stubTransport) SendText(context.Context, int64, string) (domain.MessageRef, error) {
	return domain.MessageRef{}, nil
}

func (t *stubTransport) SendPost(context.Context, int64, domain.Post, bool) ([]domain.MessageRef, error) {
	return nil, nil
}

func (t *stubTransport) DeleteMessage(_ context.Context, _ int64, messageID int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.deleteErr != nil {
		return t.deleteErr
	}
	t.deletedIDs = append(t.deletedIDs, messageID)
	return nil
}

func (t *stubTransport) PublishPost(_ context.Context, channel string, post domain.Post) error {
	t.mu.Lock()
	t.published = append(t.published, published{channel: channel, post: post})
	t.mu.Unlock()
	t.publishedCh <- struct{}{}
	return nil
}

func (t *stubTransport) publishedPosts() []published {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]published(nil), t.published...)
}

func TestSchedulerPublishesLatestRevision(t *testing.T) {
	sessions := newStubSessions()
	transport := newStubTransport()
	_ = sessions.AppendPost(context.Background(), 1, domain.Post{Link: "https://t.me/demo/1", Description: "черновик"})

	s := NewScheduler(sessions, transport, nil, zerolog.Nop())
	defer s.Stop()
	s.Schedule(1, "https://t.me/demo/1", "mychannel", 30*time.Millisecond)

	// Правка после постановки таймера: публикуется последняя редакция.
	if err := sessions.SetPostDescription(context.Background(), 1, "https://t.me/demo/1", "финальный текст"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	select {
	case <-transport.publishedCh:
	case <-time.After(2 * time.Second):
		t.Fatal("отложенная публикация не сработала")
	}

	got := transport.publishedPosts()
	if len(got) != 1 {
		t.Fatalf("ожидали одну публикацию, получили %d", len(got))
	}
	if got[0].channel != "mychannel" {
		t.Fatalf("ожидали канал mychannel, получили %s", got[0].channel)
	}
	if got[0].post.Description != "финальный текст" {
		t.Fatalf("ожидали последнюю редакцию, получили %q", got[0].post.Description)
	}
}

func TestSchedulerFiresForDeletedPost(t *testing.T) {
	sessions := newStubSessions()
	transport := newStubTransport()
	_ = sessions.AppendPost(context.Background(), 1, domain.Post{Link: "https://t.me/demo/1", Description: "текст"})

	s := NewScheduler(sessions, transport, nil, zerolog.Nop())
	defer s.Stop()
	s.Schedule(1, "https://t.me/demo/1", "mychannel", 20*time.Millisecond)

	// Удаление из очереди не отменяет уже поставленную публикацию.
	if err := sessions.SetPostDeleted(context.Background(), 1, "https://t.me/demo/1", true); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	select {
	case <-transport.publishedCh:
	case <-time.After(2 * time.Second):
		t.Fatal("отложенная публикация не сработала")
	}
}

func TestSchedulerStopCancelsTimers(t *testing.T) {
	sessions := newStubSessions()
	transport := newStubTransport()
	_ = sessions.AppendPost(context.Background(), 1, domain.Post{Link: "https://t.me/demo/1", Description: "текст"})

	s := NewScheduler(sessions, transport, nil, zerolog.Nop())
	s.Schedule(1, "https://t.me/demo/1", "mychannel", 50*time.Millisecond)
	s.Stop()

	select {
	case <-transport.publishedCh:
		t.Fatal("после Stop таймеры не должны срабатывать")
	case <-time.After(150 * time.Millisecond):
	}

	// Постановка после Stop игнорируется.
	s.Schedule(1, "https://t.me/demo/1", "mychannel", time.Millisecond)
	select {
	case <-transport.publishedCh:
		t.Fatal("после Stop новые таймеры не ставятся")
	case <-time.After(100 * time.Millisecond):
	}
}
