package session

import (
	"sync"

	"tg-repost-bot/internal/domain"
)

// Tracker хранит записи составной доставки: для каждого поста —
// упорядоченный список сообщений, отправленных при его показе
// (медиа-группа, затем текст с кнопками). Запись живёт в памяти
// процесса и позволяет убрать из чата весь блок одной командой.
type Tracker struct {
	mu      sync.Mutex
	records map[int64]map[string][]domain.MessageRef
}

// NewTracker создаёт пустой трекер.
func NewTracker() *Tracker {
	return &Tracker{records: make(map[int64]map[string][]domain.MessageRef)}
}

// Record добавляет ссылки сообщений к записи поста в порядке отправки.
// Повторная отправка поста дописывает новые ссылки к существующим.
func (t *Tracker) Record(chatID int64, link string, refs []domain.MessageRef) {
	if link == "" || len(refs) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	byLink, ok := t.records[chatID]
	if !ok {
		byLink = make(map[string][]domain.MessageRef)
		t.records[chatID] = byLink
	}
	byLink[link] = append(byLink[link], refs...)
}

// Refs возвращает копию записи поста.
func (t *Tracker) Refs(chatID int64, link string) []domain.MessageRef {
	t.mu.Lock()
	defer t.mu.Unlock()
	refs := t.records[chatID][link]
	if len(refs) == 0 {
		return nil
	}
	return append([]domain.MessageRef(nil), refs...)
}

// Take забирает запись поста, удаляя её из трекера.
func (t *Tracker) Take(chatID int64, link string) []domain.MessageRef {
	t.mu.Lock()
	defer t.mu.Unlock()
	byLink, ok := t.records[chatID]
	if !ok {
		return nil
	}
	refs := byLink[link]
	delete(byLink, link)
	if len(byLink) == 0 {
		delete(t.records, chatID)
	}
	return refs
}

// Drop удаляет все записи подписчика.
func (t *Tracker) Drop(chatID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.records, chatID)
}
