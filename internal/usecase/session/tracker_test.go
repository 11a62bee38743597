package session

import (
	"testing"

	"tg-repost-bot/internal/domain"
)

func TestTrackerRecordAndTake(t *testing.T) {
	tr := NewTracker()
	tr.Record(1, "https://t.me/demo/1", []domain.MessageRef{{MessageID: 10}, {MessageID: 11}})
	tr.Record(1, "https://t.me/demo/1", []domain.MessageRef{{MessageID: 12, HasButtons: true}})
	tr.Record(1, "https://t.me/demo/2", []domain.MessageRef{{MessageID: 20}})

	refs := tr.Take(1, "https://t.me/demo/1")
	if len(refs) != 3 {
		t.Fatalf("ожидали 3 сообщения составной доставки, получили %d", len(refs))
	}
	if refs[0].MessageID != 10 || refs[2].MessageID != 12 {
		t.Fatal("ожидали сообщения в порядке отправки")
	}
	if !refs[2].HasButtons {
		t.Fatal("последнее сообщение блока несёт кнопки")
	}
	if got := tr.Take(1, "https://t.me/demo/1"); got != nil {
		t.Fatal("повторный Take должен вернуть пустую запись")
	}
	if got := tr.Refs(1, "https://t.me/demo/2"); len(got) != 1 {
		t.Fatal("запись другого поста не должна задеваться")
	}
}

func TestTrackerRefsReturnsCopy(t *testing.T) {
	tr := NewTracker()
	tr.Record(1, "https://t.me/demo/1", []domain.MessageRef{{MessageID: 10}})
	refs := tr.Refs(1, "https://t.me/demo/1")
	refs[0].MessageID = 99
	if got := tr.Refs(1, "https://t.me/demo/1"); got[0].MessageID != 10 {
		t.Fatal("Refs должен возвращать копию записи")
	}
}

func TestTrackerIgnoresEmptyRecord(t *testing.T) {
	tr := NewTracker()
	tr.Record(1, "", []domain.MessageRef{{MessageID: 10}})
	tr.Record(1, "https://t.me/demo/1", nil)
	if got := tr.Refs(1, "https://t.me/demo/1"); got != nil {
		t.Fatal("пустые записи не сохраняются")
	}
}

func TestTrackerDrop(t *testing.T) {
	tr := NewTracker()
	tr.Record(1, "https://t.me/demo/1", []domain.MessageRef{{MessageID: 10}})
	tr.Record(2, "https://t.me/demo/1", []domain.MessageRef{{MessageID: 20}})
	tr.Drop(1)
	if got := tr.Refs(1, "https://t.me/demo/1"); got != nil {
		t.Fatal("записи подписчика должны удаляться целиком")
	}
	if got := tr.Refs(2, "https://t.me/demo/1"); len(got) != 1 {
		t.Fatal("записи других подписчиков не должны задеваться")
	}
}
