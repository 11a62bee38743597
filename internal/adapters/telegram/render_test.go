package telegram

import "testing"

func TestRenderDescriptionStripsBlockquote(t *testing.T) {
	in := `до <blockquote data-x="1">цитата
в несколько строк</blockquote> после`
	got := RenderDescription(in)
	if got != "до  после" {
		t.Fatalf("ожидали текст без цитаты, получили %q", got)
	}
}

func TestRenderDescriptionStripsBreaks(t *testing.T) {
	in := "строка<br>вторая<br/>третья<br />хвост</br>"
	got := RenderDescription(in)
	if got != "строкавтораятретьяхвост" {
		t.Fatalf("ожидали текст без переносов-тегов, получили %q", got)
	}
}

func TestRenderDescriptionStripsImagesAndEmptyAnchors(t *testing.T) {
	in := `<img src="https://cdn/1.jpg" alt=""><a href="https://t.me/demo"></a><b>текст</b> <a href="https://t.me/demo">канал</a>`
	got := RenderDescription(in)
	if got != `<b>текст</b> <a href="https://t.me/demo">канал</a>` {
		t.Fatalf("непустые ссылки и разметка должны сохраняться, получили %q", got)
	}
}

func TestRenderDescriptionTrimsWhitespace(t *testing.T) {
	if got := RenderDescription("  \n<img src=\"x\">\n  "); got != "" {
		t.Fatalf("ожидали пустую строку, получили %q", got)
	}
}

func TestParseCallbackRoundTrip(t *testing.T) {
	data := CallbackData(ActionDeletePost, "https://t.me/demo/1")
	action, payload, ok := ParseCallback(data)
	if !ok {
		t.Fatal("ожидали разбор callback-данных")
	}
	if action != ActionDeletePost || payload != "https://t.me/demo/1" {
		t.Fatalf("получили %s %s", action, payload)
	}
}

func TestParseCallbackRejectsGarbage(t *testing.T) {
	if _, _, ok := ParseCallback("что-то без разделителя"); ok {
		t.Fatal("не ожидали разбора строки без разделителя")
	}
	if _, _, ok := ParseCallback("::payload"); ok {
		t.Fatal("не ожидали разбора строки без действия")
	}
}
