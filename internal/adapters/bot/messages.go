package bot

// Тексты сообщений бота.
const (
	msgChoseOption = "Выберите опцию:"

	msgUpdateSubscribed        = "Внесите список никнеймов каналов. Каждый никнейм на отдельной строке. Каналы должны быть публичными."
	msgUpdateOwned             = "Внесите список никнеймов каналов. Каждый никнейм на отдельной строке."
	msgSuccessfullyUpdatedList = "Список успешно обновлен."
	msgErrorUpdatedList        = "Произошла ошибка."

	msgStopWatcher  = "Отслеживание остановлено. Теперь новые посты не будут отображаться в чате."
	msgStartWatcher = "Отслеживание запущено."

	msgCurrentEditingPost    = "Текущий пост для редактирования:"
	msgEditText              = "Отредактируйте текст и отправьте ответом на это сообщение."
	msgSuccessfullyEdited    = "Текст поста успешно обновлен."
	msgErrorEdited           = "Произошла ошибка."
	msgCurrentPublishingPost = "Текущий пост для публикации:"
	msgChoseChannelPublish   = "Выберете канал в который опубликуется пост:"
	msgChoseChannelSignature = "Выберете канал для добавления подписи:"
	msgChannelChooseFirst    = "Сначала выберите канал публикации."
	msgEmptyChannels         = "Список пуст. Обновите его на стартовой странице."
	msgEditBusy              = "Сначала завершите текущее редактирование."
	msgSignatureAdded        = "Подпись добавлена."
	msgPublishChannelChosen  = "Канал для публикации выбран. Теперь вы можете опубликовать пост."
	msgErrorPublish          = "Ошибка публикации поста."
	msgSuccessfullyPublished = "Пост успешно опубликован."
	msgDelayPrompt           = "Введите задержку в минутах ответом на это сообщение."
	msgDelayScheduled        = "Публикация отложена."
	msgDelayInvalid          = "Некорректная задержка. Отправьте число минут, например 30."

	msgEmptyMediaItems  = "В текущем посте нет медиа элементов. Для добавления отправьте мне фото/видео. Отправляйте по одному медиа-элементу."
	msgYourMediaItems   = "Список текущих медиа элементов:"
	msgAfterMediaItems  = "Чтобы удалить медиа элемент нажмите кнопку под фото/видео. Для добавления отправьте мне фото/видео. Отправляйте по одному медиа-элементу."
	msgEmptyPostError   = "В вашем посте не осталось ни медиа ни контента. Такой пост вы не сможете опубликовать("
	msgMediaItemDeleted = "Медиа элемент успешно удален."
	msgMediaItemAdded   = "Медиа элемент добавлен."

	msgAssistantPrompt = "Отправьте сообщение помощнику. Последний ответ можно применить к тексту поста."
	msgAssistantEmpty  = "Помощник ещё не отвечал. Сначала отправьте ему сообщение."
	msgAssistantError  = "Помощник недоступен."
	msgAssistantSaved  = "Ответ помощника записан в текст поста."
)
