package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"tg-repost-bot/internal/domain"
	"tg-repost-bot/internal/infra/metrics"
)

// Маркеры ответа прокси, означающие что канала больше нет.
var permanentMarkers = []string{
	"peer not present",
	"username not occupied",
	"channel is unavailable",
}

// Fetcher получает ленту канала через RSS-прокси и нормализует её в посты.
type Fetcher struct {
	http    *http.Client
	baseURL string
}

// NewFetcher создаёт фетчер поверх указанного прокси.
func NewFetcher(baseURL string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Fetch реализует domain.FeedSource.
func (f *Fetcher) Fetch(ctx context.Context, nickname string) ([]domain.Post, error) {
	endpoint := f.baseURL + "/" + nickname
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &domain.FeedError{Nickname: nickname, Err: err}
	}

	start := time.Now()
	resp, err := f.http.Do(req)
	metrics.ObserveNetworkRequest("feed_proxy", "fetch", nickname, start, err)
	if err != nil {
		return nil, &domain.FeedError{Nickname: nickname, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.FeedError{Nickname: nickname, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("статус %d: %s", resp.StatusCode, strings.TrimSpace(clipString(string(body), 256)))
		return nil, &domain.FeedError{
			Nickname:  nickname,
			Permanent: isPermanentResponse(resp.StatusCode, string(body)),
			Err:       err,
		}
	}

	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, &domain.FeedError{Nickname: nickname, Err: fmt.Errorf("разбор ленты: %w", err)}
	}

	posts := make([]domain.Post, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil || item.Link == "" {
			continue
		}
		posts = append(posts, domain.Post{
			Link:            item.Link,
			Description:     item.Description,
			Media:           normalizeEnclosures(item.Enclosures),
			ChannelNickname: nickname,
			ChannelLink:     "https://t.me/" + nickname,
		})
	}
	return posts, nil
}

// normalizeEnclosures приводит вложения ленты к медиа-элементам.
// Каждому элементу выдаётся новый уникальный ID: удаление медиа
// в редакторе работает по ID, а не по позиции.
func normalizeEnclosures(enclosures []*gofeed.Enclosure) []domain.MediaItem {
	if len(enclosures) == 0 {
		return nil
	}
	items := make([]domain.MediaItem, 0, len(enclosures))
	for _, enc := range enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		size, _ := strconv.ParseInt(enc.Length, 10, 64)
		items = append(items, domain.MediaItem{
			ID:        uuid.NewString(),
			URL:       enc.URL,
			MimeType:  enc.Type,
			SizeBytes: size,
		})
	}
	if len(items) == 0 {
		return nil
	}
	return items
}

func isPermanentResponse(status int, body string) bool {
	if status == http.StatusNotFound || status == http.StatusGone {
		return true
	}
	lower := strings.ToLower(body)
	for _, marker := range permanentMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func clipString(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
