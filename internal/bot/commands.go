package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type commandHandler func(ctx context.Context, msg *tgbotapi.Message, args string)

// buildRoutes assembles the command table consulted by the dispatcher. The
// table is built once at startup and read-only afterwards.
func (b *Bot) buildRoutes() map[string]commandHandler {
	return map[string]commandHandler{
		"start":    b.cmdStart,
		"data":     b.cmdStart,
		"status":   b.cmdStatus,
		"disk":     b.cmdDisk,
		"memory":   b.cmdMemory,
		"execute":  b.cmdExecute,
		"upload":   b.cmdUpload,
		"download": b.cmdDownload,
	}
}

func (b *Bot) dispatchCommand(ctx context.Context, msg *tgbotapi.Message, name, args string) {
	if !b.isAuthorized(msg.From.ID) {
		b.log.Warn("unauthorized command", zap.Int64("user_id", msg.From.ID), zap.String("command", name))
		return
	}

	handler, ok := b.routes[name]
	if !ok {
		b.reply(msg.Chat.ID, "Unknown command. Use /start for help.")
		return
	}

	b.log.Info("command", zap.Int64("user_id", msg.From.ID), zap.String("command", name))
	handler(ctx, msg, args)
}

func (b *Bot) cmdStart(ctx context.Context, msg *tgbotapi.Message, args string) {
	b.reply(msg.Chat.ID, fmt.Sprintf(
		"🖥️ <b>Server control bot v%s</b>\n\n"+
			"⏱ Uptime: <code>%s</code>\n"+
			"🆔 Your ID: <code>%d</code>\n\n"+
			"📋 <b>Server commands:</b>\n"+
			"/status - Server status\n"+
			"/disk - Disk space\n"+
			"/memory - Memory usage\n\n"+
			"📁 <b>File transfer:</b>\n"+
			"/upload - Upload a file to the server\n"+
			"/download - Download a file from the server\n\n"+
			"⚙️ <b>Other commands:</b>\n"+
			"/execute - Run a shell command",
		botVersion, formatUptime(time.Since(b.startTime)), msg.From.ID))
}

// reportEntry pairs a label with a fixed shell command inside a report group.
type reportEntry struct {
	Label   string
	Command string
}

// runReport executes each entry sequentially and formats every result on its
// own, so a failing command does not hide the rest of the group.
func (b *Bot) runReport(ctx context.Context, chatID int64, title string, entries []reportEntry, extra ...string) {
	results := []string{title}
	results = append(results, extra...)

	for _, e := range entries {
		res := b.shell.Run(ctx, e.Command)
		if res.ExitCode == 0 {
			results = append(results, fmt.Sprintf("\n<b>🔹 %s:</b>\n<code>%s</code>",
				e.Label, tgbotapi.EscapeText(tgbotapi.ModeHTML, res.Stdout)))
		} else {
			results = append(results, fmt.Sprintf("\n<b>🔹 %s:</b>\n❌ Error: <code>%s</code>",
				e.Label, tgbotapi.EscapeText(tgbotapi.ModeHTML, res.Stderr)))
		}
	}

	b.reply(chatID, strings.Join(results, "\n"))
}

func (b *Bot) cmdStatus(ctx context.Context, msg *tgbotapi.Message, args string) {
	entries := []reportEntry{
		{"Uptime", "uptime"},
		{"Load", "cat /proc/loadavg"},
		{"Users", "who"},
		{"Date and time", "date"},
		{"Disk space", "df -h | grep -v tmpfs"},
	}
	b.runReport(ctx, msg.Chat.ID, "<b>🔄 Server status:</b>", entries,
		fmt.Sprintf("\n⏱ <b>Bot uptime:</b> <code>%s</code>", formatUptime(time.Since(b.startTime))))
}

func (b *Bot) cmdDisk(ctx context.Context, msg *tgbotapi.Message, args string) {
	entries := []reportEntry{
		{"Disk space", "df -h"},
		{"Largest directories", "du -sh /* 2>/dev/null | sort -hr | head -n 10"},
		{"Block devices", "lsblk"},
	}
	b.runReport(ctx, msg.Chat.ID, "<b>💾 Disk information:</b>", entries)
}

func (b *Bot) cmdMemory(ctx context.Context, msg *tgbotapi.Message, args string) {
	entries := []reportEntry{
		{"Memory usage", "free -h"},
		{"Memory statistics", "vmstat"},
		{"Memory details", "cat /proc/meminfo | grep -E 'MemTotal|MemFree|MemAvailable|SwapTotal|SwapFree'"},
	}
	b.runReport(ctx, msg.Chat.ID, "<b>🧠 Memory information:</b>", entries)
}

func (b *Bot) cmdExecute(ctx context.Context, msg *tgbotapi.Message, args string) {
	if args == "" {
		b.reply(msg.Chat.ID, "ℹ️ Provide a command to run. Example: /execute ls -la")
		return
	}

	b.reply(msg.Chat.ID, fmt.Sprintf("🔄 Running: <code>%s</code>",
		tgbotapi.EscapeText(tgbotapi.ModeHTML, args)))

	res := b.shell.Run(ctx, args)
	if res.ExitCode != 0 {
		reason := res.Stderr
		if reason == "" {
			reason = fmt.Sprintf("command exited with code %d", res.ExitCode)
		}
		b.reply(msg.Chat.ID, fmt.Sprintf("❌ Command failed:\n<pre>%s</pre>",
			tgbotapi.EscapeText(tgbotapi.ModeHTML, reason)))
		return
	}

	if res.Stdout == "" {
		b.reply(msg.Chat.ID, "✅ Command completed with no output.")
		return
	}

	escaped := tgbotapi.EscapeText(tgbotapi.ModeHTML, res.Stdout)
	for _, chunk := range SplitMessage(escaped, MaxMessageLength) {
		b.send(msg.Chat.ID, "<pre>"+chunk+"</pre>")
	}
}
