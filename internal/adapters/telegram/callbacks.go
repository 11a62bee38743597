package telegram

import "strings"

// Действия inline-кнопок. Данные callback кодируются парой action::payload.
const (
	ActionDeletePost          = "delete_post"
	ActionDeleteMediaItem     = "delete_media_item"
	ActionEditPost            = "edit_post"
	ActionChosePublishChannel = "chose_publish_channel"
	ActionAddSubscribeChannel = "add_subscribe_channel"
)

const callbackSeparator = "::"

// CallbackData кодирует действие с полезной нагрузкой.
func CallbackData(action, payload string) string {
	return action + callbackSeparator + payload
}

// ParseCallback разбирает данные кнопки на действие и нагрузку.
func ParseCallback(data string) (action, payload string, ok bool) {
	action, payload, ok = strings.Cut(data, callbackSeparator)
	if !ok || action == "" {
		return "", "", false
	}
	return action, payload, true
}
