package session

import "testing"

func TestMachineBeginEditOnlyFromStart(t *testing.T) {
	m := NewMachine()
	if !m.BeginEdit("https://t.me/demo/1") {
		t.Fatal("ожидали переход в редактор со стартовой страницы")
	}
	if m.Page() != PageEditing {
		t.Fatalf("ожидали страницу editing, получили %s", m.Page())
	}
	if !m.Blocked() {
		t.Fatal("ожидали блокировку доставки в редакторе")
	}
	if m.BeginEdit("https://t.me/demo/2") {
		t.Fatal("не ожидали повторного входа в редактор из редактора")
	}
	if link, _ := m.EditingLink(); link != "https://t.me/demo/1" {
		t.Fatalf("ожидали первый пост, получили %s", link)
	}
}

func TestMachineBeginEditRejectsEmptyLink(t *testing.T) {
	m := NewMachine()
	if m.BeginEdit("") {
		t.Fatal("не ожидали входа в редактор без ссылки")
	}
}

func TestMachineChooseTargetOnlyOnPublishing(t *testing.T) {
	m := NewMachine()
	m.BeginEdit("https://t.me/demo/1")
	if m.ChooseTarget("mychannel") {
		t.Fatal("не ожидали выбора канала вне страницы публикации")
	}
	if !m.GoToPublishing() {
		t.Fatal("ожидали переход на публикацию из редактора")
	}
	if !m.ChooseTarget("mychannel") {
		t.Fatal("ожидали выбор канала на странице публикации")
	}
	target, ok := m.PublishTarget()
	if !ok || target != "mychannel" {
		t.Fatalf("ожидали mychannel, получили %q", target)
	}
}

func TestMachineBackChain(t *testing.T) {
	m := NewMachine()
	m.BeginEdit("https://t.me/demo/1")
	m.GoToPublishing()
	m.ChooseTarget("mychannel")

	page, ok := m.Back()
	if !ok || page != PageEditing {
		t.Fatalf("ожидали возврат в редактор, получили %s", page)
	}
	if !m.Blocked() {
		t.Fatal("блокировка должна держаться, пока открыт редактор")
	}

	page, ok = m.Back()
	if !ok || page != PageStart {
		t.Fatalf("ожидали возврат на старт, получили %s", page)
	}
	if m.Blocked() {
		t.Fatal("блокировка должна сниматься при выходе из редактора")
	}
	if _, ok := m.EditingLink(); ok {
		t.Fatal("ссылка редактора должна сбрасываться при выходе")
	}
	if _, ok := m.PublishTarget(); ok {
		t.Fatal("канал публикации должен сбрасываться при выходе")
	}
	if _, ok = m.Back(); ok {
		t.Fatal("со стартовой страницы возвращаться некуда")
	}
}

func TestMachineFinishPublishingResets(t *testing.T) {
	m := NewMachine()
	m.BeginEdit("https://t.me/demo/1")
	if m.FinishPublishing() {
		t.Fatal("не ожидали завершения публикации из редактора")
	}
	m.GoToPublishing()
	m.ChooseTarget("mychannel")
	if !m.FinishPublishing() {
		t.Fatal("ожидали завершение публикации")
	}
	if m.Page() != PageStart {
		t.Fatalf("ожидали возврат на старт, получили %s", m.Page())
	}
	if m.Blocked() {
		t.Fatal("блокировка должна сниматься после публикации")
	}
}

func TestMachineAssistantReply(t *testing.T) {
	m := NewMachine()
	m.BeginEdit("https://t.me/demo/1")
	if m.SetAssistantReply("текст") {
		t.Fatal("ответ помощника пишется только на его странице")
	}
	if !m.GoToAssistant() {
		t.Fatal("ожидали переход к помощнику из редактора")
	}
	if !m.SetAssistantReply("новый текст поста") {
		t.Fatal("ожидали запись ответа помощника")
	}
	reply, ok := m.AssistantReply()
	if !ok || reply != "новый текст поста" {
		t.Fatalf("ожидали сохранённый ответ, получили %q", reply)
	}

	// Возврат в редактор не стирает ответ: его ещё можно применить.
	m.Back()
	if _, ok := m.AssistantReply(); !ok {
		t.Fatal("ответ помощника должен переживать возврат в редактор")
	}
}
