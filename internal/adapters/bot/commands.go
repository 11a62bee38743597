package bot

import "strings"

// Kind — распознанная команда подписчика. Подписи кнопок сопоставляются
// с командами только здесь: поток управления не зависит от текста кнопок.
type Kind int

const (
	KindUnknown Kind = iota
	KindStart
	KindShowSubscribed
	KindUpdateSubscribed
	KindShowOwned
	KindUpdateOwned
	KindStartDelivery
	KindStopDelivery
	KindEditText
	KindAddSignature
	KindEditMedia
	KindAssistant
	KindApplyAssistant
	KindPublish
	KindPublishNow
	KindDelayPublish
	KindChangePublishChannel
	KindBack
)

// Подписи кнопок.
const (
	captionShowSubscribed       = "Показать список отслеживаемых каналов"
	captionUpdateSubscribed     = "Обновить список отслеживаемых каналов"
	captionShowOwned            = "Показать список моих каналов"
	captionUpdateOwned          = "Обновить список моих каналов"
	captionStartDelivery        = "Запустить отслеживание"
	captionStopDelivery         = "Остановить отслеживание"
	captionAssistant            = "CHAT GPT"
	captionEditText             = "Редактировать текст"
	captionAddSignature         = "Добавить подпись"
	captionEditMedia            = "Вставить/Удалить креатив"
	captionPublish              = "Опубликовать"
	captionPublishNow           = "Опубликовать сейчас"
	captionDelayPublish         = "Отложить"
	captionChangePublishChannel = "Сменить канал публикации"
	captionApplyAssistant       = "Применить текст"
	captionBack                 = "Назад"
)

var captionKinds = map[string]Kind{
	captionShowSubscribed:       KindShowSubscribed,
	captionUpdateSubscribed:     KindUpdateSubscribed,
	captionShowOwned:            KindShowOwned,
	captionUpdateOwned:          KindUpdateOwned,
	captionStartDelivery:        KindStartDelivery,
	captionStopDelivery:         KindStopDelivery,
	captionAssistant:            KindAssistant,
	captionEditText:             KindEditText,
	captionAddSignature:         KindAddSignature,
	captionEditMedia:            KindEditMedia,
	captionPublish:              KindPublish,
	captionPublishNow:           KindPublishNow,
	captionDelayPublish:         KindDelayPublish,
	captionChangePublishChannel: KindChangePublishChannel,
	captionApplyAssistant:       KindApplyAssistant,
	captionBack:                 KindBack,
}

// Classify переводит текст сообщения в команду. Свободный текст,
// не совпавший ни с одной подписью, возвращается как KindUnknown.
func Classify(text string) Kind {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "/start") {
		return KindStart
	}
	if kind, ok := captionKinds[trimmed]; ok {
		return kind
	}
	return KindUnknown
}
