package telegram

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	crerr "github.com/cockroachdb/errors"

	"github.com/matchwatch/livealert/internal/platform/logging"
)

// Notifier sends alert messages to users' own Telegram bots. Each user
// supplies a bot token, so clients are built lazily and cached per token.
type Notifier struct {
	logger *logging.Logger

	mu   sync.Mutex
	bots map[string]*tgbot.Bot
}

func NewNotifier(logger *logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &Notifier{
		logger: logger,
		bots:   make(map[string]*tgbot.Bot, 4),
	}
}

func (n *Notifier) bot(token string) (*tgbot.Bot, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if b, ok := n.bots[token]; ok {
		return b, nil
	}
	b, err := tgbot.New(token, tgbot.WithSkipGetMe())
	if err != nil {
		return nil, crerr.Wrap(err, "build telegram bot")
	}
	n.bots[token] = b
	return b, nil
}

// Send delivers a Markdown-formatted message.
func (n *Notifier) Send(ctx context.Context, token, chatID, text string) error {
	b, err := n.bot(token)
	if err != nil {
		return err
	}
	_, err = b.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeMarkdown,
	})
	if err != nil {
		return crerr.Wrap(err, "send telegram message")
	}
	return nil
}

// SendDocument uploads a local file, used for spreadsheet exports.
func (n *Notifier) SendDocument(ctx context.Context, token, chatID, path, caption string) error {
	b, err := n.bot(token)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return crerr.Wrap(err, "open export file")
	}
	defer func() { _ = f.Close() }()

	_, err = b.SendDocument(ctx, &tgbot.SendDocumentParams{
		ChatID: chatID,
		Document: &models.InputFileUpload{
			Filename: filepath.Base(path),
			Data:     f,
		},
		Caption: caption,
	})
	if err != nil {
		return crerr.Wrap(err, "send telegram document")
	}
	return nil
}
