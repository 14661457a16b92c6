// Package intake is the customer-facing chat front-end: a short dialogue that
// collects a repair request and submits it to the CRUD service.
package intake

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/psds-microservice/repair-desk/internal/model"
	"github.com/psds-microservice/repair-desk/internal/repairclient"
	"github.com/rs/zerolog"
)

const (
	CmdStart  = "/start"
	CmdHelp   = "/help"
	CmdCancel = "/cancel"

	ActionCreate = "Создать заявку"
	ActionHelp   = "Помощь"
	AnswerYes    = "Да"
	AnswerNo     = "Нет"
)

var (
	MainMenu  = []string{ActionCreate, ActionHelp}
	ItemTypes = []string{"Компьютер", "Телефон", "Бытовая техника", "Другое"}
	YesNo     = []string{AnswerYes, AnswerNo}
)

const (
	textWelcome = "👋 Привет! Я бот для подачи заявок на ремонт.\nВыберите действие:"
	textHelp    = "ℹ️ Этот бот предназначен для подачи заявок на ремонт.\n\n" +
		"Чтобы создать новую заявку:\n" +
		"1. Выберите «Создать заявку»\n" +
		"2. Выберите тип предмета\n" +
		"3. Опишите проблему\n" +
		"4. Укажите контактные данные\n\n" +
		"/cancel — отменить заявку"
	textAskType        = "Выберите тип предмета, который требует ремонта:"
	textAskDescription = "Опишите проблему как можно подробнее:"
	textAskContact     = "Укажите ваши контактные данные (телефон или email):"
	textAskYesNo       = "Ответьте «Да» или «Нет»."
	textAccepted       = "✅ Ваша заявка принята (№%d). Мы свяжемся с вами в ближайшее время."
	textRejected       = "❌ Ошибка при отправке заявки в приложение."
	textUnavailable    = "❌ Ошибка при отправке заявки: сервер не отвечает."
	textDeclined       = "❌ Заявка отменена. Вы можете создать новую заявку."
	textCancelled      = "❌ Создание заявки отменено."
	textUnknown        = "Не понял. Выберите действие:"
)

// Submitter creates one ticket; repairclient.Client satisfies it.
type Submitter interface {
	Create(ctx context.Context, f model.RepairFields) (uint64, error)
}

// Message is an incoming chat message, independent of the messenger.
type Message struct {
	ChatID     string
	SenderName string
	Text       string
}

// Reply is the bot's answer. Options are the choices the messenger should
// offer as buttons or a numbered list.
type Reply struct {
	Text    string
	Options []string
}

// Render formats the reply for messengers without reply keyboards.
func (r Reply) Render() string {
	if len(r.Options) == 0 {
		return r.Text
	}
	var b strings.Builder
	b.WriteString(r.Text)
	b.WriteString("\n")
	for i, o := range r.Options {
		fmt.Fprintf(&b, "\n%d. %s", i+1, o)
	}
	return b.String()
}

type step int

const (
	stepMenu step = iota
	stepType
	stepDescription
	stepContact
	stepConfirm
)

type session struct {
	mu      sync.Mutex
	step    step
	options []string
	req     model.RepairFields
}

// Dialogue keeps per-chat conversation state. It is safe for concurrent use;
// messages of one chat are handled one at a time.
type Dialogue struct {
	submit Submitter
	log    zerolog.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

func NewDialogue(s Submitter, log zerolog.Logger) *Dialogue {
	return &Dialogue{
		submit:   s,
		log:      log,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

func (d *Dialogue) session(chatID string) *session {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.sessions[chatID]
	if !ok {
		s = &session{}
		d.sessions[chatID] = s
	}
	return s
}

// Handle advances the chat's conversation by one message.
func (d *Dialogue) Handle(ctx context.Context, msg Message) Reply {
	s := d.session(msg.ChatID)
	s.mu.Lock()
	defer s.mu.Unlock()

	text := s.resolve(strings.TrimSpace(msg.Text))
	switch text {
	case CmdStart:
		s.reset()
		return s.offer(textWelcome, MainMenu)
	case CmdHelp, ActionHelp:
		if s.step == stepMenu {
			return s.offer(textHelp, MainMenu)
		}
		return Reply{Text: textHelp}
	case CmdCancel:
		s.reset()
		d.log.Info().Str("chat", msg.ChatID).Msg("intake cancelled")
		return s.offer(textCancelled, MainMenu)
	}

	switch s.step {
	case stepType:
		s.req.DeviceType = text
		s.step = stepDescription
		return s.offer(textAskDescription, nil)
	case stepDescription:
		s.req.IssueDescription = text
		s.step = stepContact
		return s.offer(textAskContact, nil)
	case stepContact:
		s.req.ClientAddress = text
		s.step = stepConfirm
		return s.offer(fmt.Sprintf("📝 Ваша заявка:\n\nТип предмета: %s\nОписание проблемы: %s\nКонтактные данные: %s\n\nВсё верно?",
			s.req.DeviceType, s.req.IssueDescription, s.req.ClientAddress), YesNo)
	case stepConfirm:
		switch {
		case strings.EqualFold(text, AnswerYes):
			req := s.req
			req.ClientName = msg.SenderName
			req.Notes = "Заявка из мессенджера от " + d.now().Format("2006-01-02")
			s.reset()
			return s.offer(d.send(ctx, msg.ChatID, req), MainMenu)
		case strings.EqualFold(text, AnswerNo):
			s.reset()
			return s.offer(textDeclined, MainMenu)
		}
		return s.offer(textAskYesNo, YesNo)
	}

	if text == ActionCreate {
		s.step = stepType
		return s.offer(textAskType, ItemTypes)
	}
	return s.offer(textUnknown, MainMenu)
}

// send makes exactly one create request; a failure is reported, never retried.
func (d *Dialogue) send(ctx context.Context, chatID string, req model.RepairFields) string {
	id, err := d.submit.Create(ctx, req)
	if err != nil {
		d.log.Error().Err(err).Str("chat", chatID).Msg("intake submit failed")
		if repairclient.IsNetworkError(err) {
			return textUnavailable
		}
		return textRejected
	}
	d.log.Info().
		Uint64("id", id).
		Str("chat", chatID).
		Str("client", req.ClientName).
		Str("device_type", req.DeviceType).
		Msg("intake request submitted")
	return fmt.Sprintf(textAccepted, id)
}

func (s *session) reset() {
	s.step = stepMenu
	s.req = model.RepairFields{}
}

func (s *session) offer(text string, options []string) Reply {
	s.options = options
	return Reply{Text: text, Options: options}
}

// resolve maps a numeric answer onto the options offered last.
func (s *session) resolve(text string) string {
	n, err := strconv.Atoi(text)
	if err != nil || n < 1 || n > len(s.options) {
		return text
	}
	return s.options[n-1]
}
