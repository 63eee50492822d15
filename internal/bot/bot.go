package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/drew/servbot/internal/session"
	"github.com/drew/servbot/internal/shell"
)

const botVersion = "2.1"

// maxConcurrentShells bounds simultaneous shell executions across all users.
const maxConcurrentShells = 4

// workerQueueSize is the per-user update backlog before updates are dropped.
const workerQueueSize = 16

// telegramAPI is the slice of the Telegram client the bot uses.
// *tgbotapi.BotAPI satisfies it; tests substitute a fake.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
}

// Bot wires the Telegram transport to the command router and transfer flows.
type Bot struct {
	api       telegramAPI
	cfg       Config
	admins    map[int64]struct{}
	sessions  *session.Store
	shell     *shell.Runner
	routes    map[string]commandHandler
	log       *zap.Logger
	startTime time.Time

	// fetchFile retrieves the byte content of an uploaded Telegram file.
	fetchFile func(fileID string) ([]byte, error)

	workersMu sync.Mutex
	workers   map[int64]chan tgbotapi.Update
	group     errgroup.Group
}

// New creates a bot connected to the Telegram API.
func New(cfg Config, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	logger.Info("authorized on account", zap.String("username", api.Self.UserName))

	return newBot(api, cfg, logger), nil
}

func newBot(api telegramAPI, cfg Config, logger *zap.Logger) *Bot {
	b := &Bot{
		api:       api,
		cfg:       cfg,
		admins:    make(map[int64]struct{}, len(cfg.AdminIDs)),
		sessions:  session.NewStore(),
		shell:     shell.NewRunner(maxConcurrentShells),
		workers:   make(map[int64]chan tgbotapi.Update),
		log:       logger,
		startTime: time.Now(),
	}
	for _, id := range cfg.AdminIDs {
		b.admins[id] = struct{}{}
	}
	b.routes = b.buildRoutes()
	b.fetchFile = b.fetchFileHTTP
	return b
}

// Start runs the update loop until the context is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if err := os.MkdirAll(b.cfg.UploadDir, 0o755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	b.notifyStartup()
	b.log.Info("bot started, waiting for updates")

	for {
		select {
		case <-ctx.Done():
			b.notifyAdmins("🛑 Bot shutting down...")
			b.closeWorkers()
			return ctx.Err()
		case update := <-updates:
			b.dispatch(ctx, update)
		}
	}
}

// dispatch hands the update to the worker that serializes the sender's
// events. Workers are created lazily, one per user ID, so events from the
// same user are processed in order while unrelated users proceed in parallel.
func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	userID, ok := updateUserID(update)
	if !ok {
		return
	}

	b.workersMu.Lock()
	ch, ok := b.workers[userID]
	if !ok {
		ch = make(chan tgbotapi.Update, workerQueueSize)
		b.workers[userID] = ch
		b.group.Go(func() error {
			for u := range ch {
				b.handleUpdate(ctx, u)
			}
			return nil
		})
	}
	b.workersMu.Unlock()

	select {
	case ch <- update:
	default:
		b.log.Warn("dropping update, user queue full", zap.Int64("user_id", userID))
	}
}

func (b *Bot) closeWorkers() {
	b.workersMu.Lock()
	for id, ch := range b.workers {
		close(ch)
		delete(b.workers, id)
	}
	b.workersMu.Unlock()
	_ = b.group.Wait()
}

func updateUserID(update tgbotapi.Update) (int64, bool) {
	switch {
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID, true
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		return update.CallbackQuery.From.ID, true
	}
	return 0, false
}

// handleUpdate processes one update inside a per-user worker. No failure here
// may take down the worker or leak into another user's session.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("handler panic", zap.Any("panic", r))
		}
	}()

	if update.CallbackQuery != nil {
		b.handleCallbackQuery(update.CallbackQuery)
		return
	}
	if update.Message != nil {
		b.handleMessage(ctx, update.Message)
	}
}

// handleMessage classifies an inbound message: command, flow continuation, or
// noise. Unauthorized senders are dropped without a reply.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if !b.isAuthorized(msg.From.ID) {
		b.log.Warn("unauthorized access attempt", zap.Int64("user_id", msg.From.ID))
		return
	}

	if msg.IsCommand() {
		b.dispatchCommand(ctx, msg, msg.Command(), strings.TrimSpace(msg.CommandArguments()))
		return
	}

	// Non-command input only matters while a flow is waiting on this user.
	switch b.sessions.Get(msg.From.ID).State {
	case session.AwaitingUploadFile:
		b.handleUploadFile(msg)
	case session.AwaitingUploadPath:
		b.handleUploadPath(msg)
	case session.AwaitingDownloadPath:
		b.handleDownloadPath(msg)
	}
}

func (b *Bot) isAuthorized(userID int64) bool {
	_, ok := b.admins[userID]
	return ok
}

// fetchFileHTTP downloads an uploaded file's content from Telegram.
func (b *Bot) fetchFileHTTP(fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, err
	}

	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file download returned status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// send delivers one HTML-formatted message. Send failures are logged, never
// surfaced to the user.
func (b *Bot) send(chatID int64, text string) {
	m := tgbotapi.NewMessage(chatID, text)
	m.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(m); err != nil {
		b.log.Warn("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// reply sends text to a chat, splitting it into transport-safe chunks.
func (b *Bot) reply(chatID int64, text string) {
	for _, chunk := range SplitMessage(text, MaxMessageLength) {
		b.send(chatID, chunk)
	}
}

// replyWithCancel sends a prompt carrying the inline cancel button.
func (b *Bot) replyWithCancel(chatID int64, text string) {
	m := tgbotapi.NewMessage(chatID, text)
	m.ParseMode = tgbotapi.ModeHTML
	m.ReplyMarkup = cancelKeyboard()
	if _, err := b.api.Send(m); err != nil {
		b.log.Warn("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func cancelKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", "cancel_action"),
		),
	)
}

// notifyAdmins sends text to every configured admin.
func (b *Bot) notifyAdmins(text string) {
	for _, id := range b.cfg.AdminIDs {
		m := tgbotapi.NewMessage(id, text)
		if _, err := b.api.Send(m); err != nil {
			b.log.Warn("failed to notify admin", zap.Int64("admin_id", id), zap.Error(err))
		}
	}
}

func (b *Bot) notifyStartup() {
	host, _ := os.Hostname()
	b.notifyAdmins(fmt.Sprintf(
		"🟢 Bot v%s started!\n"+
			"⏰ Started at: %s\n"+
			"🐹 Go: %s\n"+
			"💻 Server:\n"+
			"  system: %s\n"+
			"  node: %s",
		botVersion,
		b.startTime.Format("2006-01-02 15:04:05"),
		runtime.Version(),
		runtime.GOOS,
		host,
	))
}

// formatUptime renders a duration without sub-second noise.
func formatUptime(d time.Duration) string {
	return d.Truncate(time.Second).String()
}
