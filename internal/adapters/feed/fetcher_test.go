package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tg-repost-bot/internal/domain"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>demo</title>
<item>
<title>Первый пост</title>
<link>https://t.me/demo/2</link>
<description>&lt;b&gt;свежий&lt;/b&gt; текст</description>
<enclosure url="https://cdn.example/demo/2.jpg" type="image/jpeg" length="2048"/>
<enclosure url="https://cdn.example/demo/2.mp4" type="video/mp4" length="1048576"/>
</item>
<item>
<title>Второй пост</title>
<link>https://t.me/demo/1</link>
<description>просто текст</description>
</item>
</channel>
</rss>`

func TestFetchNormalizesFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/demo" {
			t.Fatalf("ожидали запрос /demo, получили %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, time.Second)
	posts, err := f.Fetch(context.Background(), "demo")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("ожидали 2 поста, получили %d", len(posts))
	}

	first := posts[0]
	if first.Link != "https://t.me/demo/2" {
		t.Fatalf("ожидали ссылку первого элемента ленты, получили %s", first.Link)
	}
	if first.ChannelNickname != "demo" || first.ChannelLink != "https://t.me/demo" {
		t.Fatalf("ожидали атрибуцию канала, получили %s %s", first.ChannelNickname, first.ChannelLink)
	}
	if len(first.Media) != 2 {
		t.Fatalf("ожидали 2 медиа-элемента, получили %d", len(first.Media))
	}
	if first.Media[0].ID == "" || first.Media[0].ID == first.Media[1].ID {
		t.Fatal("каждому медиа-элементу выдаётся уникальный ID")
	}
	if first.Media[1].MimeType != "video/mp4" || first.Media[1].SizeBytes != 1048576 {
		t.Fatalf("ожидали нормализованное вложение, получили %+v", first.Media[1])
	}
	if first.Delivered || first.Deleted {
		t.Fatal("свежий пост не несёт флагов доставки")
	}
	if posts[1].Media != nil {
		t.Fatal("пост без вложений не должен получать медиа")
	}
}

func TestFetchNotFoundIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, time.Second)
	_, err := f.Fetch(context.Background(), "gone")
	if err == nil {
		t.Fatal("ожидали ошибку")
	}
	if !domain.IsPermanentFeedError(err) {
		t.Fatalf("404 должен считаться постоянной ошибкой, получили %v", err)
	}
}

func TestFetchProxyMarkerIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("Error: Username not occupied"))
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, time.Second)
	_, err := f.Fetch(context.Background(), "gone")
	if !domain.IsPermanentFeedError(err) {
		t.Fatalf("маркер прокси должен считаться постоянной ошибкой, получили %v", err)
	}
}

func TestFetchServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, time.Second)
	_, err := f.Fetch(context.Background(), "flaky")
	if err == nil {
		t.Fatal("ожидали ошибку")
	}
	if domain.IsPermanentFeedError(err) {
		t.Fatalf("500 должен считаться временной ошибкой, получили %v", err)
	}
}

func TestFetchBrokenFeedIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("это не XML"))
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, time.Second)
	_, err := f.Fetch(context.Background(), "demo")
	if err == nil {
		t.Fatal("ожидали ошибку разбора")
	}
	if domain.IsPermanentFeedError(err) {
		t.Fatal("ошибка разбора не должна отписывать канал")
	}
}
