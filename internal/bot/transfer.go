package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/drew/servbot/internal/session"
)

// cmdUpload starts the upload flow: the next message from this user must
// carry a document.
func (b *Bot) cmdUpload(ctx context.Context, msg *tgbotapi.Message, args string) {
	b.sessions.Set(msg.From.ID, session.AwaitingUploadFile, session.Payload{})
	b.replyWithCancel(msg.Chat.ID,
		"📤 Send the file to upload to the server\n"+
			"Or press ❌ Cancel to abort")
}

// cmdDownload resolves immediately when a path argument is present, otherwise
// waits for the path in the next message.
func (b *Bot) cmdDownload(ctx context.Context, msg *tgbotapi.Message, args string) {
	if args != "" {
		b.sessions.Clear(msg.From.ID)
		b.resolveDownload(msg.Chat.ID, args)
		return
	}
	b.sessions.Set(msg.From.ID, session.AwaitingDownloadPath, session.Payload{})
	b.replyWithCancel(msg.Chat.ID,
		"📥 Send the path of the file to download (e.g. /var/log/syslog)\n"+
			"Or press ❌ Cancel to abort")
}

// handleUploadFile receives the document turn of the upload flow. A message
// without a document re-prompts and leaves the state unchanged.
func (b *Bot) handleUploadFile(msg *tgbotapi.Message) {
	if msg.Document == nil {
		b.reply(msg.Chat.ID, "ℹ️ Please send a file")
		return
	}

	b.sessions.Set(msg.From.ID, session.AwaitingUploadPath, session.Payload{
		FileID:   msg.Document.FileID,
		FileName: msg.Document.FileName,
	})
	b.replyWithCancel(msg.Chat.ID, fmt.Sprintf(
		"📁 Send the directory to save the file in (e.g. /home/user/uploads/)\n"+
			"Default: <code>%s</code>\n\n"+
			"Or press ❌ Cancel to abort", b.cfg.UploadDir))
}

// handleUploadPath receives the destination turn of the upload flow and
// writes the file. The session is cleared on every terminal outcome.
func (b *Bot) handleUploadPath(msg *tgbotapi.Message) {
	sess := b.sessions.Get(msg.From.ID)
	defer b.sessions.Clear(msg.From.ID)

	if sess.Payload.FileID == "" || sess.Payload.FileName == "" {
		b.reply(msg.Chat.ID, "❌ Error: file details were lost, start over with /upload")
		return
	}

	// An empty reply or the literal "cancel" keyword means "use the default
	// directory" here, not flow cancellation.
	dir := strings.TrimSpace(msg.Text)
	if dir == "" || strings.EqualFold(dir, "cancel") {
		dir = b.cfg.UploadDir
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		b.reply(msg.Chat.ID, fmt.Sprintf("❌ Failed to create directory: %s", err))
		return
	}

	data, err := b.fetchFile(sess.Payload.FileID)
	if err != nil {
		b.reply(msg.Chat.ID, fmt.Sprintf("❌ Failed to save file: %s", err))
		return
	}

	target := filepath.Join(dir, sess.Payload.FileName)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		b.reply(msg.Chat.ID, fmt.Sprintf("❌ Failed to save file: %s", err))
		return
	}

	b.log.Info("file uploaded",
		zap.Int64("user_id", msg.From.ID),
		zap.String("path", target),
		zap.Int("size", len(data)))
	b.reply(msg.Chat.ID, fmt.Sprintf(
		"✅ File saved:\n"+
			"📄 Name: <code>%s</code>\n"+
			"📂 Path: <code>%s</code>\n"+
			"📏 Size: %s",
		sess.Payload.FileName, target, humanSize(int64(len(data)))))
}

// handleDownloadPath receives the path turn of the download flow.
func (b *Bot) handleDownloadPath(msg *tgbotapi.Message) {
	b.sessions.Clear(msg.From.ID)
	b.resolveDownload(msg.Chat.ID, strings.TrimSpace(msg.Text))
}

// resolveDownload validates the candidate path and sends the file back as a
// document. Oversized files are rejected before any content is read.
func (b *Bot) resolveDownload(chatID int64, path string) {
	if path == "" || strings.EqualFold(path, "cancel") {
		b.reply(chatID, "❌ Download cancelled")
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			b.reply(chatID, "❌ File not found")
			return
		}
		b.reply(chatID, fmt.Sprintf("❌ Failed to send file: %s", err))
		return
	}
	if info.IsDir() {
		b.reply(chatID, "❌ The path is a directory, not a file")
		return
	}
	if info.Size() > MaxDownloadSize {
		b.reply(chatID, "❌ File too large (20 MB maximum)")
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("❌ Failed to send file: %s", err))
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  filepath.Base(path),
		Bytes: data,
	})
	doc.Caption = fmt.Sprintf("📥 File: %s", path)
	if _, err := b.api.Send(doc); err != nil {
		b.reply(chatID, fmt.Sprintf("❌ Failed to send file: %s", err))
	}
}

// handleCallbackQuery handles inline keyboard callbacks. The only button the
// bot offers is the flow cancel action.
func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	if !b.isAuthorized(query.From.ID) {
		b.log.Warn("unauthorized callback query", zap.Int64("user_id", query.From.ID))
		return
	}

	if query.Data != "cancel_action" {
		if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "❌ Unknown action")); err != nil {
			b.log.Warn("failed to answer callback", zap.Error(err))
		}
		return
	}

	b.sessions.Clear(query.From.ID)

	if query.Message != nil {
		edit := tgbotapi.NewEditMessageText(query.Message.Chat.ID, query.Message.MessageID, "❌ Action cancelled")
		if _, err := b.api.Send(edit); err != nil {
			b.log.Warn("failed to edit message", zap.Error(err))
		}
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.log.Warn("failed to answer callback", zap.Error(err))
	}
}

// humanSize renders a byte count as KB below 1 MiB and MB above.
func humanSize(n int64) string {
	if n < 1024*1024 {
		return fmt.Sprintf("%.2f KB", float64(n)/1024)
	}
	return fmt.Sprintf("%.2f MB", float64(n)/1024/1024)
}
