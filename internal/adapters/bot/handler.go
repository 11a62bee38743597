package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tg-repost-bot/internal/adapters/telegram"
	"tg-repost-bot/internal/domain"
	"tg-repost-bot/internal/infra/metrics"
	"tg-repost-bot/internal/usecase/session"
)

// pendingKind — ожидаемый следующий ввод подписчика свободным текстом.
type pendingKind int

const (
	pendingNone pendingKind = iota
	pendingSubscribedList
	pendingOwnedList
	pendingEditedText
	pendingDelay
)

// Handler обслуживает апдейты бота: команды кнопок, свободный текст,
// загрузку медиа и нажатия inline-кнопок.
type Handler struct {
	bot       *tgbotapi.BotAPI
	log       zerolog.Logger
	manager   *session.Manager
	sessions  domain.SessionRepo
	transport domain.Transport
	assistant domain.Assistant

	mu      sync.Mutex
	pending map[int64]pendingKind
}

// NewHandler создаёт обработчик.
func NewHandler(bot *tgbotapi.BotAPI, log zerolog.Logger, manager *session.Manager, sessions domain.SessionRepo, transport domain.Transport, assistant domain.Assistant) *Handler {
	return &Handler{
		bot:       bot,
		log:       log,
		manager:   manager,
		sessions:  sessions,
		transport: transport,
		assistant: assistant,
		pending:   make(map[int64]pendingKind),
	}
}

// HandleUpdate обрабатывает входящий апдейт.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		h.handleMessage(ctx, upd.Message)
	} else if upd.CallbackQuery != nil {
		h.handleCallback(ctx, upd.CallbackQuery)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	rt, err := h.manager.Attach(ctx, chatID)
	if err != nil {
		h.log.Error().Err(err).Int64("chat", chatID).Msg("сессия не подключена")
		h.reply(chatID, fmt.Sprintf("Произошла ошибка. %v", err), nil)
		return
	}

	if len(msg.Photo) > 0 || msg.Video != nil {
		h.handleMediaUpload(ctx, rt, msg)
		return
	}

	text := strings.TrimSpace(msg.Text)
	kind := Classify(text)
	if kind == KindUnknown {
		if p := h.takePending(chatID); p != pendingNone {
			h.handlePendingInput(ctx, rt, p, text)
			return
		}
		if rt.Machine.Page() == session.PageAssistant && text != "" {
			h.handleAssistantPrompt(ctx, rt, text)
		}
		return
	}
	h.clearPending(chatID)

	switch kind {
	case KindStart:
		h.reply(chatID, msgChoseOption, StartKeyboard())
	case KindShowSubscribed:
		h.showChannels(ctx, chatID, false)
	case KindShowOwned:
		h.showChannels(ctx, chatID, true)
	case KindUpdateSubscribed:
		h.setPending(chatID, pendingSubscribedList)
		h.reply(chatID, msgUpdateSubscribed, forceReply())
	case KindUpdateOwned:
		h.setPending(chatID, pendingOwnedList)
		h.reply(chatID, msgUpdateOwned, forceReply())
	case KindStartDelivery:
		h.setDeliveryPaused(ctx, chatID, false)
	case KindStopDelivery:
		h.setDeliveryPaused(ctx, chatID, true)
	case KindEditText:
		if _, ok := rt.Machine.EditingLink(); !ok {
			return
		}
		h.setPending(chatID, pendingEditedText)
		h.reply(chatID, msgEditText, forceReply())
	case KindAddSignature:
		h.handleAddSignature(ctx, rt)
	case KindEditMedia:
		h.handleEditMedia(ctx, rt)
	case KindAssistant:
		if rt.Machine.GoToAssistant() {
			h.reply(chatID, msgAssistantPrompt, AssistantKeyboard())
		}
	case KindApplyAssistant:
		h.handleApplyAssistant(ctx, rt)
	case KindPublish:
		h.handlePublishPage(ctx, rt)
	case KindPublishNow:
		h.handlePublishNow(ctx, rt)
	case KindDelayPublish:
		h.handleDelayRequest(rt)
	case KindChangePublishChannel:
		if rt.Machine.Page() == session.PagePublishing {
			h.sendChannelChoice(ctx, chatID, telegram.ActionChosePublishChannel, msgChoseChannelPublish)
		}
	case KindBack:
		h.handleBack(rt)
	}
}

// handlePendingInput обрабатывает свободный текст, которого ждала
// предыдущая команда.
func (h *Handler) handlePendingInput(ctx context.Context, rt *session.Runtime, p pendingKind, text string) {
	chatID := rt.ChatID
	switch p {
	case pendingSubscribedList:
		if err := h.sessions.SetSubscribedChannels(ctx, chatID, parseChannelList(text)); err != nil {
			h.reply(chatID, fmt.Sprintf("%s %v", msgErrorUpdatedList, err), nil)
			return
		}
		h.reply(chatID, msgSuccessfullyUpdatedList, nil)
	case pendingOwnedList:
		if err := h.sessions.SetOwnedChannels(ctx, chatID, parseChannelList(text)); err != nil {
			h.reply(chatID, fmt.Sprintf("%s %v", msgErrorUpdatedList, err), nil)
			return
		}
		h.reply(chatID, msgSuccessfullyUpdatedList, nil)
	case pendingEditedText:
		link, ok := rt.Machine.EditingLink()
		if !ok {
			return
		}
		if err := h.sessions.SetPostDescription(ctx, chatID, link, text); err != nil {
			h.reply(chatID, fmt.Sprintf("%s %v", msgErrorEdited, err), nil)
			return
		}
		h.reply(chatID, msgSuccessfullyEdited, nil)
		h.showCurrentPost(ctx, rt)
	case pendingDelay:
		h.handleDelayInput(rt, text)
	}
}

// handleDelayRequest запрашивает задержку отложенной публикации.
// Канал публикации должен быть выбран заранее: ссылка и канал
// фиксируются при постановке таймера.
func (h *Handler) handleDelayRequest(rt *session.Runtime) {
	if rt.Machine.Page() != session.PagePublishing {
		return
	}
	if _, ok := rt.Machine.PublishTarget(); !ok {
		h.reply(rt.ChatID, msgChannelChooseFirst, nil)
		return
	}
	h.setPending(rt.ChatID, pendingDelay)
	h.reply(rt.ChatID, msgDelayPrompt, forceReply())
}

func (h *Handler) handleDelayInput(rt *session.Runtime, text string) {
	chatID := rt.ChatID
	minutes, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || minutes <= 0 {
		h.setPending(chatID, pendingDelay)
		h.reply(chatID, msgDelayInvalid, forceReply())
		return
	}
	link, okLink := rt.Machine.EditingLink()
	channel, okChannel := rt.Machine.PublishTarget()
	if !okLink || !okChannel {
		return
	}
	h.manager.Scheduler().Schedule(chatID, link, channel, time.Duration(minutes)*time.Minute)
	h.reply(chatID, msgDelayScheduled, nil)
	if rt.Machine.FinishPublishing() {
		h.reply(chatID, msgChoseOption, StartKeyboard())
	}
}

func (h *Handler) handleAssistantPrompt(ctx context.Context, rt *session.Runtime, prompt string) {
	answer, err := h.assistant.Complete(ctx, prompt)
	if err != nil {
		h.log.Error().Err(err).Int64("chat", rt.ChatID).Msg("запрос к помощнику не удался")
		h.reply(rt.ChatID, msgAssistantError, nil)
		return
	}
	rt.Machine.SetAssistantReply(answer)
	h.reply(rt.ChatID, answer, nil)
}

func (h *Handler) handleApplyAssistant(ctx context.Context, rt *session.Runtime) {
	chatID := rt.ChatID
	answer, ok := rt.Machine.AssistantReply()
	if !ok {
		h.reply(chatID, msgAssistantEmpty, nil)
		return
	}
	link, ok := rt.Machine.EditingLink()
	if !ok {
		return
	}
	if err := h.sessions.SetPostDescription(ctx, chatID, link, answer); err != nil {
		h.reply(chatID, fmt.Sprintf("%s %v", msgErrorEdited, err), nil)
		return
	}
	h.reply(chatID, msgAssistantSaved, nil)
	h.showCurrentPost(ctx, rt)
}

// showCurrentPost перепоказывает редактируемый пост после правки.
func (h *Handler) showCurrentPost(ctx context.Context, rt *session.Runtime) {
	link, ok := rt.Machine.EditingLink()
	if !ok {
		return
	}
	post, err := h.sessions.GetPost(ctx, rt.ChatID, link)
	if err != nil {
		h.log.Error().Err(err).Int64("chat", rt.ChatID).Str("link", link).Msg("пост не перечитан после правки")
		return
	}
	if _, err := h.transport.SendPost(ctx, rt.ChatID, post, false); err != nil {
		h.log.Error().Err(err).Int64("chat", rt.ChatID).Msg("пост не перепоказан после правки")
	}
}

// handlePublishPage переводит редактор на страницу публикации и
// показывает предпросмотр поста с выбором канала.
func (h *Handler) handlePublishPage(ctx context.Context, rt *session.Runtime) {
	chatID := rt.ChatID
	if !rt.Machine.GoToPublishing() {
		return
	}
	h.reply(chatID, msgCurrentPublishingPost, PublishKeyboard())
	link, _ := rt.Machine.EditingLink()
	post, err := h.sessions.GetPost(ctx, chatID, link)
	if err != nil {
		h.reply(chatID, fmt.Sprintf("Произошла ошибка. %v", err), nil)
		return
	}
	if _, err := h.transport.SendPost(ctx, chatID, post, false); err != nil {
		h.log.Error().Err(err).Int64("chat", chatID).Msg("предпросмотр поста не отправлен")
	}
	h.sendChannelChoice(ctx, chatID, telegram.ActionChosePublishChannel, msgChoseChannelPublish)
}

func (h *Handler) handlePublishNow(ctx context.Context, rt *session.Runtime) {
	chatID := rt.ChatID
	if rt.Machine.Page() != session.PagePublishing {
		return
	}
	channel, ok := rt.Machine.PublishTarget()
	if !ok {
		h.reply(chatID, msgChannelChooseFirst, nil)
		h.sendChannelChoice(ctx, chatID, telegram.ActionChosePublishChannel, msgChoseChannelPublish)
		return
	}
	link, _ := rt.Machine.EditingLink()
	post, err := h.sessions.GetPost(ctx, chatID, link)
	if err != nil {
		h.reply(chatID, fmt.Sprintf("%s %v", msgErrorPublish, err), nil)
		return
	}
	if err := h.transport.PublishPost(ctx, channel, post); err != nil {
		h.reply(chatID, fmt.Sprintf("%s %v", msgErrorPublish, err), nil)
		return
	}
	metrics.PublishesTotal.WithLabelValues("immediate").Inc()
	h.manager.PublishEvent(ctx, domain.Event{Type: domain.EventPostPublished, ChatID: chatID, Channel: channel, Link: link})
	h.reply(chatID, msgSuccessfullyPublished, nil)
	if rt.Machine.FinishPublishing() {
		h.reply(chatID, msgChoseOption, StartKeyboard())
	}
}

func (h *Handler) handleBack(rt *session.Runtime) {
	page, ok := rt.Machine.Back()
	if !ok {
		return
	}
	switch page {
	case session.PageEditing:
		h.reply(rt.ChatID, msgChoseOption, EditKeyboard())
	case session.PageStart:
		h.reply(rt.ChatID, msgChoseOption, StartKeyboard())
	}
}

// handleAddSignature предлагает выбрать свой канал, ссылка на который
// допишется подписью к тексту поста.
func (h *Handler) handleAddSignature(ctx context.Context, rt *session.Runtime) {
	if rt.Machine.Page() != session.PageEditing {
		return
	}
	h.sendChannelChoice(ctx, rt.ChatID, telegram.ActionAddSubscribeChannel, msgChoseChannelSignature)
}

// handleEditMedia показывает каждый медиа-элемент поста с кнопкой удаления.
func (h *Handler) handleEditMedia(ctx context.Context, rt *session.Runtime) {
	chatID := rt.ChatID
	link, ok := rt.Machine.EditingLink()
	if !ok {
		return
	}
	post, err := h.sessions.GetPost(ctx, chatID, link)
	if err != nil {
		h.reply(chatID, fmt.Sprintf("Произошла ошибка. %v", err), nil)
		return
	}
	if !post.HasMedia() {
		h.reply(chatID, msgEmptyMediaItems, nil)
		return
	}
	h.reply(chatID, msgYourMediaItems, nil)
	for _, item := range post.Media {
		h.sendMediaItem(chatID, item)
	}
	h.reply(chatID, msgAfterMediaItems, nil)
}

func (h *Handler) sendMediaItem(chatID int64, item domain.MediaItem) {
	file := tgbotapi.FileURL(item.URL)
	var msg tgbotapi.Chattable
	if strings.HasPrefix(item.MimeType, "video") {
		video := tgbotapi.NewVideo(chatID, file)
		video.ReplyMarkup = MediaItemKeyboard(item.ID)
		msg = video
	} else {
		photo := tgbotapi.NewPhoto(chatID, file)
		photo.ReplyMarkup = MediaItemKeyboard(item.ID)
		msg = photo
	}
	start := time.Now()
	_, err := h.bot.Send(msg)
	metrics.ObserveNetworkRequest("telegram_bot", "send_media_item", strconv.FormatInt(chatID, 10), start, err)
	if err != nil {
		h.log.Error().Err(err).Int64("chat", chatID).Str("media", item.ID).Msg("медиа-элемент не отправлен")
	}
}

// handleMediaUpload принимает фото или видео от подписчика и добавляет
// его в редактируемый пост прямой ссылкой на файл Bot API.
func (h *Handler) handleMediaUpload(ctx context.Context, rt *session.Runtime, msg *tgbotapi.Message) {
	chatID := rt.ChatID
	link, ok := rt.Machine.EditingLink()
	if !ok {
		return
	}

	var fileID, mimeType string
	var size int64
	switch {
	case msg.Video != nil:
		fileID = msg.Video.FileID
		mimeType = msg.Video.MimeType
		if mimeType == "" {
			mimeType = "video/mp4"
		}
		size = int64(msg.Video.FileSize)
	case len(msg.Photo) > 0:
		// Последний размер в списке — самый крупный.
		photo := msg.Photo[len(msg.Photo)-1]
		fileID = photo.FileID
		mimeType = "image/jpeg"
		size = int64(photo.FileSize)
	default:
		return
	}

	start := time.Now()
	fileURL, err := h.bot.GetFileDirectURL(fileID)
	metrics.ObserveNetworkRequest("telegram_bot", "get_file", strconv.FormatInt(chatID, 10), start, err)
	if err != nil {
		h.reply(chatID, fmt.Sprintf("Произошла ошибка. %v", err), nil)
		return
	}

	item := domain.MediaItem{ID: uuid.NewString(), URL: fileURL, MimeType: mimeType, SizeBytes: size}
	if err := h.sessions.AddPostMedia(ctx, chatID, link, item); err != nil {
		h.reply(chatID, fmt.Sprintf("Произошла ошибка. %v", err), nil)
		return
	}
	h.reply(chatID, msgMediaItemAdded, nil)
}

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message != nil {
		chatID := cb.Message.Chat.ID
		action, payload, ok := telegram.ParseCallback(cb.Data)
		if ok {
			h.dispatchCallback(ctx, chatID, action, payload)
		}
	}
	start := time.Now()
	_, err := h.bot.Request(tgbotapi.NewCallback(cb.ID, ""))
	metrics.ObserveNetworkRequest("telegram_bot", "answer_callback", strconv.FormatInt(cb.From.ID, 10), start, err)
	if err != nil {
		h.log.Error().Err(err).Msg("не удалось ответить на callback")
	}
}

func (h *Handler) dispatchCallback(ctx context.Context, chatID int64, action, payload string) {
	rt, err := h.manager.Attach(ctx, chatID)
	if err != nil {
		h.log.Error().Err(err).Int64("chat", chatID).Msg("сессия не подключена")
		return
	}

	switch action {
	case telegram.ActionEditPost:
		h.beginEdit(ctx, rt, payload)
	case telegram.ActionDeletePost:
		if err := h.manager.DeletePost(ctx, chatID, payload); err != nil {
			h.reply(chatID, fmt.Sprintf("Произошла ошибка. %v", err), nil)
		}
	case telegram.ActionDeleteMediaItem:
		h.deleteMediaItem(ctx, rt, payload)
	case telegram.ActionChosePublishChannel:
		if rt.Machine.ChooseTarget(payload) {
			h.reply(chatID, msgPublishChannelChosen, nil)
		}
	case telegram.ActionAddSubscribeChannel:
		h.appendSignature(ctx, rt, payload)
	}
}

// beginEdit открывает редактор для поста из очереди.
func (h *Handler) beginEdit(ctx context.Context, rt *session.Runtime, link string) {
	chatID := rt.ChatID
	if !rt.Machine.BeginEdit(link) {
		h.reply(chatID, msgEditBusy, nil)
		return
	}
	post, err := h.sessions.GetPost(ctx, chatID, link)
	if err != nil {
		rt.Machine.Back()
		h.reply(chatID, fmt.Sprintf("Произошла ошибка. %v", err), nil)
		return
	}
	h.reply(chatID, msgCurrentEditingPost, EditKeyboard())
	if _, err := h.transport.SendPost(ctx, chatID, post, false); err != nil {
		h.log.Error().Err(err).Int64("chat", chatID).Msg("пост для редактирования не отправлен")
	}
}

func (h *Handler) deleteMediaItem(ctx context.Context, rt *session.Runtime, mediaID string) {
	chatID := rt.ChatID
	link, ok := rt.Machine.EditingLink()
	if !ok {
		return
	}
	if err := h.sessions.RemovePostMedia(ctx, chatID, link, mediaID); err != nil {
		h.reply(chatID, fmt.Sprintf("Произошла ошибка. %v", err), nil)
		return
	}
	h.reply(chatID, msgMediaItemDeleted, nil)

	post, err := h.sessions.GetPost(ctx, chatID, link)
	if err != nil {
		return
	}
	if !post.HasMedia() && telegram.RenderDescription(post.Description) == "" {
		h.reply(chatID, msgEmptyPostError, nil)
	}
}

// appendSignature дописывает к тексту поста ссылку на выбранный канал.
func (h *Handler) appendSignature(ctx context.Context, rt *session.Runtime, channel string) {
	chatID := rt.ChatID
	link, ok := rt.Machine.EditingLink()
	if !ok {
		return
	}
	post, err := h.sessions.GetPost(ctx, chatID, link)
	if err != nil {
		h.reply(chatID, fmt.Sprintf("Произошла ошибка. %v", err), nil)
		return
	}
	nickname := strings.TrimPrefix(channel, "@")
	signature := fmt.Sprintf(`<a href="https://t.me/%s">%s</a>`, nickname, nickname)
	description := strings.TrimSpace(post.Description)
	if description != "" {
		description += "\n\n"
	}
	if err := h.sessions.SetPostDescription(ctx, chatID, link, description+signature); err != nil {
		h.reply(chatID, fmt.Sprintf("%s %v", msgErrorEdited, err), nil)
		return
	}
	h.reply(chatID, msgSignatureAdded, nil)
	h.showCurrentPost(ctx, rt)
}

// showChannels выводит один из списков каналов сессии.
func (h *Handler) showChannels(ctx context.Context, chatID int64, owned bool) {
	sess, err := h.sessions.GetSession(ctx, chatID)
	if err != nil {
		h.reply(chatID, fmt.Sprintf("Произошла ошибка. %v", err), nil)
		return
	}
	channels := sess.SubscribedChannels
	if owned {
		channels = sess.OwnedChannels
	}
	if len(channels) == 0 {
		h.reply(chatID, msgEmptyChannels, nil)
		return
	}
	h.reply(chatID, strings.Join(channels, "\n"), nil)
}

// sendChannelChoice отправляет inline-клавиатуру выбора из своих каналов.
func (h *Handler) sendChannelChoice(ctx context.Context, chatID int64, action, caption string) {
	sess, err := h.sessions.GetSession(ctx, chatID)
	if err != nil {
		h.reply(chatID, fmt.Sprintf("Произошла ошибка. %v", err), nil)
		return
	}
	if len(sess.OwnedChannels) == 0 {
		h.reply(chatID, msgEmptyChannels, nil)
		return
	}
	h.reply(chatID, caption, ChannelsKeyboard(action, sess.OwnedChannels))
}

func (h *Handler) setDeliveryPaused(ctx context.Context, chatID int64, paused bool) {
	if err := h.sessions.SetDeliveryPaused(ctx, chatID, paused); err != nil {
		h.reply(chatID, fmt.Sprintf("Произошла ошибка. %v", err), nil)
		return
	}
	if paused {
		h.reply(chatID, msgStopWatcher, nil)
		return
	}
	h.reply(chatID, msgStartWatcher, nil)
}

func (h *Handler) setPending(chatID int64, p pendingKind) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending[chatID] = p
}

func (h *Handler) takePending(chatID int64) pendingKind {
	h.mu.Lock()
	defer h.mu.Unlock()
	p := h.pending[chatID]
	delete(h.pending, chatID)
	return p
}

func (h *Handler) clearPending(chatID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.pending, chatID)
}

// reply отправляет HTML-сообщение подписчику, разбивая длинный текст.
// Клавиатура прикрепляется к первой части.
func (h *Handler) reply(chatID int64, text string, keyboard interface{}) {
	parts := telegram.SplitMessage(text)
	for i, part := range parts {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		if i == 0 && keyboard != nil {
			msg.ReplyMarkup = keyboard
		}
		start := time.Now()
		_, err := h.bot.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(chatID, 10), start, err)
		if err != nil {
			h.log.Error().Err(err).Msg("не удалось отправить сообщение")
			return
		}
	}
}

// forceReply просит клиента подставить ответ на промпт.
func forceReply() tgbotapi.ForceReply {
	return tgbotapi.ForceReply{ForceReply: true}
}

// parseChannelList разбирает список никнеймов: по одному на строку,
// префикс @ и пустые строки отбрасываются.
func parseChannelList(text string) []string {
	var channels []string
	for _, line := range strings.Split(text, "\n") {
		nickname := strings.TrimPrefix(strings.TrimSpace(line), "@")
		if nickname == "" {
			continue
		}
		channels = append(channels, nickname)
	}
	return channels
}
