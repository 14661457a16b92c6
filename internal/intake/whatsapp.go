package intake

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mdp/qrterminal/v3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"
)

// sender is the part of whatsmeow.Client used to answer.
type sender interface {
	SendMessage(ctx context.Context, to types.JID, message *waE2E.Message, extra ...whatsmeow.SendRequestExtra) (whatsmeow.SendResponse, error)
}

// WhatsApp connects the dialogue to a WhatsApp account. The session lives in
// its own SQLite file; the bot never touches the repair store.
type WhatsApp struct {
	client   *whatsmeow.Client
	sender   sender
	dialogue *Dialogue
	log      zerolog.Logger
	qrOut    io.Writer
	timeout  time.Duration
}

// NewWhatsApp opens (or creates) the session store at dsn.
func NewWhatsApp(ctx context.Context, dsn string, d *Dialogue, timeout time.Duration, log zerolog.Logger) (*WhatsApp, error) {
	if err := ensureSessionDirectory(dsn); err != nil {
		return nil, err
	}
	container, err := sqlstore.New(ctx, "sqlite3", dsn, waLog.Zerolog(log.With().Str("module", "store").Logger()))
	if err != nil {
		return nil, fmt.Errorf("intake: session store: %w", err)
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("intake: device: %w", err)
	}
	w := &WhatsApp{
		client:   whatsmeow.NewClient(device, waLog.Zerolog(log.With().Str("module", "client").Logger())),
		dialogue: d,
		log:      log,
		qrOut:    os.Stdout,
		timeout:  timeout,
	}
	w.sender = w.client
	w.client.AddEventHandler(w.handleEvent)
	return w, nil
}

// Run connects, pairs by QR code when there is no saved session, and serves
// messages until ctx is cancelled.
func (w *WhatsApp) Run(ctx context.Context) error {
	if w.client.Store.ID == nil {
		qrChan, err := w.client.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("intake: qr channel: %w", err)
		}
		if err := w.client.Connect(); err != nil {
			return fmt.Errorf("intake: connect: %w", err)
		}
		for evt := range qrChan {
			if evt.Event == "code" {
				fmt.Fprintln(w.qrOut, "Отсканируйте QR-код в WhatsApp:")
				qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, w.qrOut)
				continue
			}
			w.log.Info().Str("event", evt.Event).Msg("pairing")
		}
	} else if err := w.client.Connect(); err != nil {
		return fmt.Errorf("intake: connect: %w", err)
	}

	w.log.Info().Msg("intake bot connected")
	<-ctx.Done()
	w.client.Disconnect()
	w.log.Info().Msg("intake bot stopped")
	return nil
}

func (w *WhatsApp) handleEvent(evt interface{}) {
	switch v := evt.(type) {
	case *events.Message:
		w.handleMessage(v)
	case *events.Connected:
		w.log.Debug().Msg("connected")
	case *events.LoggedOut:
		w.log.Warn().Msg("session logged out, delete the session file and pair again")
	}
}

func (w *WhatsApp) handleMessage(v *events.Message) {
	if v.Info.IsFromMe || v.Info.IsGroup {
		return
	}
	text := v.Message.GetConversation()
	if text == "" {
		text = v.Message.GetExtendedTextMessage().GetText()
	}
	if strings.TrimSpace(text) == "" {
		return
	}
	name := v.Info.PushName
	if name == "" {
		name = v.Info.Sender.User
	}

	w.respond(v.Info.Chat, Message{
		ChatID:     v.Info.Chat.String(),
		SenderName: name,
		Text:       text,
	})
}

// respond runs the dialogue and sends its reply. Each step has its own
// timeout, so a slow submit never eats the time of the answer.
func (w *WhatsApp) respond(chat types.JID, msg Message) {
	handleCtx, cancelHandle := context.WithTimeout(context.Background(), w.timeout)
	reply := w.dialogue.Handle(handleCtx, msg)
	cancelHandle()

	sendCtx, cancelSend := context.WithTimeout(context.Background(), w.timeout)
	defer cancelSend()
	if _, err := w.sender.SendMessage(sendCtx, chat, &waE2E.Message{
		Conversation: proto.String(reply.Render()),
	}); err != nil {
		w.log.Error().Err(err).Str("chat", chat.String()).Msg("send reply")
	}
}

// ensureSessionDirectory creates the parent directory of a file: DSN.
func ensureSessionDirectory(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	dir := filepath.Dir(path)
	if path == "" || path == ":memory:" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("intake: session dir: %w", err)
	}
	return nil
}
