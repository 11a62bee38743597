package telegram

import (
	"regexp"
	"strings"
)

// EmptyPostPlaceholder подставляется вместо пустого текста, чтобы было
// к чему прикрепить кнопки действий.
const EmptyPostPlaceholder = "Выберите действие:"

var (
	blockquoteRe  = regexp.MustCompile(`(?is)<blockquote\b[^>]*>.*?</blockquote>`)
	imgTagRe      = regexp.MustCompile(`(?i)<img[^>]*>`)
	emptyAnchorRe = regexp.MustCompile(`(?i)<a\s*[^>]*></a>`)

	brReplacer = strings.NewReplacer("<br/>", "", "<br />", "", "</br>", "", "<br>", "")
)

// RenderDescription убирает из HTML поста разметку, которую Telegram
// не принимает: блочные цитаты, переносы строк тегами, картинки и
// пустые ссылки. Результат обрезается по пробельным символам.
func RenderDescription(html string) string {
	text := blockquoteRe.ReplaceAllString(html, "")
	text = brReplacer.Replace(text)
	text = imgTagRe.ReplaceAllString(text, "")
	text = emptyAnchorRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
