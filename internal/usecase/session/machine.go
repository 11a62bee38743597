package session

import "sync"

// Page — страница интерактивного сценария подписчика.
type Page int

const (
	PageStart Page = iota
	PageEditing
	PagePublishing
	PageAssistant
)

func (p Page) String() string {
	switch p {
	case PageStart:
		return "start"
	case PageEditing:
		return "editing"
	case PagePublishing:
		return "publishing"
	case PageAssistant:
		return "assistant"
	}
	return "unknown"
}

// Machine — конечный автомат страниц одного подписчика. Команды,
// допустимые только на другой странице, отклоняются без побочных
// эффектов: методы-переходы возвращают false.
//
// Блокировка доставки (Blocked) держится всё время, пока открыт
// редактор или публикация, чтобы фоновый цикл не прислал пост поверх
// незавершённой правки.
type Machine struct {
	mu             sync.Mutex
	page           Page
	editingLink    string
	publishTarget  string
	blocked        bool
	assistantReply string
}

// NewMachine создаёт автомат на стартовой странице.
func NewMachine() *Machine {
	return &Machine{page: PageStart}
}

// Page возвращает текущую страницу.
func (m *Machine) Page() Page {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.page
}

// Blocked сообщает, заблокирована ли фоновая доставка.
func (m *Machine) Blocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blocked
}

// EditingLink возвращает ссылку редактируемого поста.
func (m *Machine) EditingLink() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.editingLink, m.editingLink != ""
}

// PublishTarget возвращает выбранный канал публикации.
func (m *Machine) PublishTarget() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.publishTarget, m.publishTarget != ""
}

// BeginEdit открывает редактор поста. Допустимо только со стартовой страницы.
func (m *Machine) BeginEdit(link string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.page != PageStart || link == "" {
		return false
	}
	m.page = PageEditing
	m.editingLink = link
	m.publishTarget = ""
	m.assistantReply = ""
	m.blocked = true
	return true
}

// GoToPublishing переводит редактор на страницу публикации.
func (m *Machine) GoToPublishing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.page != PageEditing {
		return false
	}
	m.page = PagePublishing
	return true
}

// GoToAssistant переводит редактор в чат с помощником.
func (m *Machine) GoToAssistant() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.page != PageEditing {
		return false
	}
	m.page = PageAssistant
	return true
}

// ChooseTarget запоминает канал публикации. Страница не меняется.
func (m *Machine) ChooseTarget(channel string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.page != PagePublishing || channel == "" {
		return false
	}
	m.publishTarget = channel
	return true
}

// Back возвращает на предыдущую страницу: публикация и помощник — в
// редактор, редактор — на старт со сбросом выбора и снятием блокировки.
func (m *Machine) Back() (Page, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.page {
	case PagePublishing, PageAssistant:
		m.page = PageEditing
		return m.page, true
	case PageEditing:
		m.reset()
		return m.page, true
	}
	return m.page, false
}

// FinishPublishing завершает сценарий публикации и возвращает на старт.
func (m *Machine) FinishPublishing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.page != PagePublishing {
		return false
	}
	m.reset()
	return true
}

// SetAssistantReply запоминает последний ответ помощника.
func (m *Machine) SetAssistantReply(text string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.page != PageAssistant {
		return false
	}
	m.assistantReply = text
	return true
}

// AssistantReply возвращает последний ответ помощника.
func (m *Machine) AssistantReply() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assistantReply, m.assistantReply != ""
}

func (m *Machine) reset() {
	m.page = PageStart
	m.editingLink = ""
	m.publishTarget = ""
	m.assistantReply = ""
	m.blocked = false
}
