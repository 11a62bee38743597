package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg-repost-bot/internal/adapters/telegram"
)

// StartKeyboard — клавиатура стартовой страницы.
func StartKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(captionShowSubscribed),
			tgbotapi.NewKeyboardButton(captionUpdateSubscribed),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(captionShowOwned),
			tgbotapi.NewKeyboardButton(captionUpdateOwned),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(captionStartDelivery),
			tgbotapi.NewKeyboardButton(captionStopDelivery),
		),
	)
}

// EditKeyboard — клавиатура страницы редактирования.
func EditKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(captionAssistant),
			tgbotapi.NewKeyboardButton(captionEditText),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(captionAddSignature),
			tgbotapi.NewKeyboardButton(captionEditMedia),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(captionPublish),
			tgbotapi.NewKeyboardButton(captionBack),
		),
	)
}

// PublishKeyboard — клавиатура страницы публикации.
func PublishKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(captionPublishNow),
			tgbotapi.NewKeyboardButton(captionDelayPublish),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(captionChangePublishChannel),
			tgbotapi.NewKeyboardButton(captionBack),
		),
	)
}

// AssistantKeyboard — клавиатура страницы помощника.
func AssistantKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(captionApplyAssistant),
			tgbotapi.NewKeyboardButton(captionBack),
		),
	)
}

// ChannelsKeyboard — inline-кнопки выбора канала для указанного действия.
func ChannelsKeyboard(action string, channels []string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(channels))
	for _, ch := range channels {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(ch, telegram.CallbackData(action, ch)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// MediaItemKeyboard — кнопка удаления под медиа-элементом.
func MediaItemKeyboard(mediaID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Удалить ❌", telegram.CallbackData(telegram.ActionDeleteMediaItem, mediaID)),
		),
	)
}
