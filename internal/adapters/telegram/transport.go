package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-repost-bot/internal/domain"
	"tg-repost-bot/internal/infra/metrics"
)

// ErrEmptyPost возвращается при попытке опубликовать пост без текста и медиа.
var ErrEmptyPost = errors.New("в посте не осталось ни медиа ни контента")

// Transport реализует domain.Transport поверх Bot API.
type Transport struct {
	bot *tgbotapi.BotAPI
	log zerolog.Logger
}

var _ domain.Transport = (*Transport)(nil)

// NewTransport создаёт транспорт.
func NewTransport(bot *tgbotapi.BotAPI, log zerolog.Logger) *Transport {
	return &Transport{bot: bot, log: log}
}

// SendText отправляет HTML-сообщение, при необходимости разбивая его на части.
// Возвращается идентификатор последнего отправленного сообщения.
func (t *Transport) SendText(ctx context.Context, chatID int64, html string) (domain.MessageRef, error) {
	var ref domain.MessageRef
	parts := SplitMessage(html)
	if len(parts) == 0 {
		parts = []string{html}
	}
	for _, part := range parts {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		sent, err := t.send(msg, "send_message", chatID)
		if err != nil {
			return domain.MessageRef{}, err
		}
		ref = domain.MessageRef{MessageID: sent.MessageID}
	}
	return ref, nil
}

// SendPost отправляет пост составным блоком: медиа-группа, затем текст.
// Все идентификаторы возвращаются в порядке отправки — по ним собирается
// запись составной доставки для последующего удаления.
func (t *Transport) SendPost(ctx context.Context, chatID int64, post domain.Post, withControls bool) ([]domain.MessageRef, error) {
	var refs []domain.MessageRef
	if post.HasMedia() {
		group := tgbotapi.NewMediaGroup(chatID, inputMedia(post.Media))
		start := time.Now()
		sent, err := t.bot.SendMediaGroup(group)
		metrics.ObserveNetworkRequest("telegram_bot", "send_media_group", strconv.FormatInt(chatID, 10), start, err)
		if err != nil {
			return nil, fmt.Errorf("отправка медиа-группы: %w", err)
		}
		for _, m := range sent {
			refs = append(refs, domain.MessageRef{MessageID: m.MessageID})
		}
	}

	text := RenderDescription(post.Description)
	if text == "" {
		text = EmptyPostPlaceholder
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if withControls {
		msg.ReplyMarkup = PostControlsKeyboard(post.Link)
	}
	sent, err := t.send(msg, "send_message", chatID)
	if err != nil {
		return refs, fmt.Errorf("отправка текста поста: %w", err)
	}
	refs = append(refs, domain.MessageRef{MessageID: sent.MessageID, HasButtons: withControls})
	return refs, nil
}

// DeleteMessage убирает сообщение из чата.
func (t *Transport) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	start := time.Now()
	_, err := t.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	metrics.ObserveNetworkRequest("telegram_bot", "delete_message", strconv.FormatInt(chatID, 10), start, err)
	if err != nil {
		return fmt.Errorf("удаление сообщения %d: %w", messageID, err)
	}
	return nil
}

// PublishPost отправляет пост в канал без кнопок управления.
func (t *Transport) PublishPost(ctx context.Context, channel string, post domain.Post) error {
	text := RenderDescription(post.Description)
	if text == "" && !post.HasMedia() {
		return ErrEmptyPost
	}
	target := "@" + strings.TrimPrefix(channel, "@")

	if post.HasMedia() {
		group := tgbotapi.MediaGroupConfig{
			ChannelUsername: target,
			Media:           inputMedia(post.Media),
		}
		start := time.Now()
		_, err := t.bot.SendMediaGroup(group)
		metrics.ObserveNetworkRequest("telegram_bot", "publish_media_group", target, start, err)
		if err != nil {
			return fmt.Errorf("публикация медиа в %s: %w", target, err)
		}
	}
	if text == "" {
		return nil
	}
	msg := tgbotapi.NewMessageToChannel(target, text)
	msg.ParseMode = tgbotapi.ModeHTML
	start := time.Now()
	_, err := t.bot.Send(msg)
	metrics.ObserveNetworkRequest("telegram_bot", "publish_message", target, start, err)
	if err != nil {
		return fmt.Errorf("публикация текста в %s: %w", target, err)
	}
	return nil
}

func (t *Transport) send(msg tgbotapi.MessageConfig, operation string, chatID int64) (tgbotapi.Message, error) {
	start := time.Now()
	sent, err := t.bot.Send(msg)
	metrics.ObserveNetworkRequest("telegram_bot", operation, strconv.FormatInt(chatID, 10), start, err)
	if err != nil {
		return tgbotapi.Message{}, fmt.Errorf("отправка сообщения: %w", err)
	}
	return sent, nil
}

// PostControlsKeyboard возвращает кнопки управления постом.
func PostControlsKeyboard(link string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Редактировать ✏️", CallbackData(ActionEditPost, link)),
			tgbotapi.NewInlineKeyboardButtonData("Удалить ❌", CallbackData(ActionDeletePost, link)),
		),
	)
}

// inputMedia собирает элементы медиа-группы по MIME-типу.
func inputMedia(media []domain.MediaItem) []interface{} {
	items := make([]interface{}, 0, len(media))
	for _, m := range media {
		file := tgbotapi.FileURL(m.URL)
		if strings.HasPrefix(m.MimeType, "video") {
			items = append(items, tgbotapi.NewInputMediaVideo(file))
			continue
		}
		items = append(items, tgbotapi.NewInputMediaPhoto(file))
	}
	return items
}
